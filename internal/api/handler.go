package api

import (
	"net/http"
	"strconv"

	"codeberg.org/kessl/xptrack/internal/monitor"
	"codeberg.org/kessl/xptrack/internal/profile"
	"codeberg.org/kessl/xptrack/internal/rate"
	"codeberg.org/kessl/xptrack/internal/sampler"
	"codeberg.org/kessl/xptrack/internal/source"
	"codeberg.org/kessl/xptrack/internal/store"
	"github.com/go-chi/chi/v5"
)

const (
	defaultWindowMinutes = 60
	defaultSampleLimit   = 100
)

type HandlerDeps struct {
	Store    store.Store
	Sampler  *sampler.Service
	Engine   *rate.Engine
	Manual   *source.ManualSource
	Profiles *profile.Store
}

type Handler struct {
	store    store.Store
	sampler  *sampler.Service
	engine   *rate.Engine
	manual   *source.ManualSource
	profiles *profile.Store
}

func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		store:    deps.Store,
		sampler:  deps.Sampler,
		engine:   deps.Engine,
		manual:   deps.Manual,
		profiles: deps.Profiles,
	}
}

type spotResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

func toSpotResponse(s store.Spot) spotResponse {
	return spotResponse{ID: s.ID, Name: s.Name, CreatedAt: s.CreatedAt}
}

type sampleResponse struct {
	ID         int64   `json:"id"`
	SpotID     int64   `json:"spot_id"`
	TS         int64   `json:"ts"`
	Level      int     `json:"level"`
	ExpPercent float64 `json:"exp_percent"`
}

func (h *Handler) CreateSpot(w http.ResponseWriter, r *http.Request) {
	payload, err := decode[struct {
		Name string `json:"name"`
	}](r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	spot, err := h.store.UpsertSpot(r.Context(), payload.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSpotResponse(spot))
}

func (h *Handler) ListSpots(w http.ResponseWriter, r *http.Request) {
	spots, err := h.store.ListSpots(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]spotResponse, 0, len(spots))
	for _, s := range spots {
		out = append(out, toSpotResponse(s))
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListSamples(w http.ResponseWriter, r *http.Request) {
	spotID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, errFactory.Wrap(ErrInvalidID, err))
		return
	}

	limit := defaultSampleLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, errFactory.WithData(ErrInvalidLimit, raw))
			return
		}
	}

	samples, err := h.store.ListSamples(r.Context(), spotID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]sampleResponse, 0, len(samples))
	for _, s := range samples {
		out = append(out, sampleResponse{
			ID:         s.ID,
			SpotID:     s.SpotID,
			TS:         s.TS,
			Level:      s.Level,
			ExpPercent: s.ExpPercent,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) RecordSample(w http.ResponseWriter, r *http.Request) {
	payload, err := decode[struct {
		SpotID     int64   `json:"spot_id"`
		Level      int     `json:"level"`
		ExpPercent float64 `json:"exp_percent"`
		TS         *int64  `json:"ts"`
	}](r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.store.GetSpot(r.Context(), payload.SpotID); err != nil {
		writeError(w, err)
		return
	}

	ts := nowMilli()
	if payload.TS != nil {
		ts = *payload.TS
	}

	if err := h.store.InsertSample(r.Context(), payload.SpotID, ts, payload.Level, payload.ExpPercent); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SpotRate(w http.ResponseWriter, r *http.Request) {
	spotID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, errFactory.Wrap(ErrInvalidID, err))
		return
	}

	window, err := windowMinutes(r)
	if err != nil {
		writeError(w, err)
		return
	}

	spot, err := h.store.GetSpot(r.Context(), spotID)
	if err != nil {
		writeError(w, err)
		return
	}

	spotRate, err := h.engine.SpotRate(r.Context(), spot, window)
	if err != nil {
		writeError(w, err)
		return
	}

	// Insufficient samples is absence, not an error
	if spotRate == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, spotRate)
}

func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	window, err := windowMinutes(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rates, err := h.engine.ListRates(r.Context(), window)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rates)
}

func (h *Handler) GetActiveSpot(w http.ResponseWriter, r *http.Request) {
	spot, err := h.sampler.ActiveSpot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if spot == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	writeJSON(w, http.StatusOK, toSpotResponse(*spot))
}

func (h *Handler) SetActiveSpot(w http.ResponseWriter, r *http.Request) {
	payload, err := decode[struct {
		SpotID int64 `json:"spot_id"`
	}](r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.sampler.SetActiveSpot(r.Context(), payload.SpotID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetInterval(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"seconds": h.sampler.Interval()})
}

func (h *Handler) SetInterval(w http.ResponseWriter, r *http.Request) {
	payload, err := decode[struct {
		Seconds int `json:"seconds"`
	}](r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.sampler.SetInterval(r.Context(), payload.Seconds); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"seconds": h.sampler.Interval()})
}

func (h *Handler) StartSampler(w http.ResponseWriter, _ *http.Request) {
	h.sampler.Start()
	writeJSON(w, http.StatusOK, map[string]bool{"running": true})
}

func (h *Handler) StopSampler(w http.ResponseWriter, _ *http.Request) {
	h.sampler.Stop()
	writeJSON(w, http.StatusOK, map[string]bool{"running": false})
}

func (h *Handler) SamplerStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"running": h.sampler.IsRunning()})
}

func (h *Handler) SetManualValues(w http.ResponseWriter, r *http.Request) {
	payload, err := decode[struct {
		Level      int     `json:"level"`
		ExpPercent float64 `json:"exp_percent"`
	}](r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	h.manual.Set(payload.Level, payload.ExpPercent)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListMonitors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, monitor.List())
}

func (h *Handler) ReadProfile(w http.ResponseWriter, r *http.Request) {
	data, err := h.profiles.Read(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) WriteProfile(w http.ResponseWriter, r *http.Request) {
	data, err := decode[profile.Data](r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.profiles.Write(chi.URLParam(r, "name"), data); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func windowMinutes(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return defaultWindowMinutes, nil
	}

	window, err := strconv.Atoi(raw)
	if err != nil || window < 1 {
		return 0, errFactory.WithData(ErrInvalidWindow, raw)
	}

	return window, nil
}
