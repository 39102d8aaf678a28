package rate

import (
	"context"
	"sort"
	"time"

	"codeberg.org/kessl/xptrack/internal/store"
)

const msPerHour = 3600000.0

// SpotRate is the derived exp-per-hour view for one spot. It is never
// persisted.
type SpotRate struct {
	SpotID      int64   `json:"spot_id"`
	SpotName    string  `json:"spot_name"`
	ExpPerHour  float64 `json:"exp_per_hour"`
	SampleCount int     `json:"sample_count"`
}

// SampleReader is the read-only slice of the store the engine needs.
type SampleReader interface {
	ListSpots(ctx context.Context) ([]store.Spot, error)
	SamplesSince(ctx context.Context, spotID, sinceMS int64) ([]store.ExpSample, error)
}

type Engine struct {
	reader SampleReader
	now    func() time.Time
}

func NewEngine(reader SampleReader) *Engine {
	return &Engine{
		reader: reader,
		now:    time.Now,
	}
}

// Compute derives an exp-per-hour estimate from samples ordered by
// ascending timestamp. Only samples at the level of the earliest
// sample count: exp_percent resets on leveling, and mixing pre and
// post level-up values would corrupt the delta sum. Negative and zero
// deltas are ignored, never subtracted, so duplicate or jittery
// readings cannot drag the rate down. Returns ok=false when the
// samples cannot produce a rate; that is absence, not an error.
func Compute(samples []store.ExpSample) (expPerHour float64, sampleCount int, ok bool) {
	if len(samples) < 2 {
		return 0, 0, false
	}

	baseLevel := samples[0].Level

	filtered := make([]store.ExpSample, 0, len(samples))
	for _, s := range samples {
		if s.Level == baseLevel {
			filtered = append(filtered, s)
		}
	}

	if len(filtered) < 2 {
		return 0, 0, false
	}

	var total float64
	for i := 1; i < len(filtered); i++ {
		delta := filtered[i].ExpPercent - filtered[i-1].ExpPercent
		if delta > 0 {
			total += delta
		}
	}

	elapsedHours := float64(filtered[len(filtered)-1].TS-filtered[0].TS) / msPerHour
	if elapsedHours <= 0 {
		return 0, 0, false
	}

	return total / elapsedHours, len(filtered), true
}

// SpotRate computes the rate for a single spot over the trailing
// window. A nil result means the window produced no rate.
func (e *Engine) SpotRate(ctx context.Context, spot store.Spot, windowMinutes int) (*SpotRate, error) {
	sinceMS := e.now().UnixMilli() - int64(windowMinutes)*60000

	samples, err := e.reader.SamplesSince(ctx, spot.ID, sinceMS)
	if err != nil {
		return nil, err
	}

	expPerHour, sampleCount, ok := Compute(samples)
	if !ok {
		return nil, nil
	}

	return &SpotRate{
		SpotID:      spot.ID,
		SpotName:    spot.Name,
		ExpPerHour:  expPerHour,
		SampleCount: sampleCount,
	}, nil
}

// ListRates computes rates for every known spot over the trailing
// window, omits spots with no rate, and sorts the rest descending by
// exp per hour.
func (e *Engine) ListRates(ctx context.Context, windowMinutes int) ([]SpotRate, error) {
	spots, err := e.reader.ListSpots(ctx)
	if err != nil {
		return nil, err
	}

	rates := make([]SpotRate, 0, len(spots))
	for _, spot := range spots {
		r, err := e.SpotRate(ctx, spot, windowMinutes)
		if err != nil {
			return nil, err
		}
		if r != nil {
			rates = append(rates, *r)
		}
	}

	sort.SliceStable(rates, func(i, j int) bool {
		return rates[i].ExpPerHour > rates[j].ExpPerHour
	})

	return rates, nil
}
