package sampler

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/kessl/xptrack/internal/logger"
	"codeberg.org/kessl/xptrack/internal/source"
	"codeberg.org/kessl/xptrack/internal/store"
)

const MinIntervalSec = 1

// Service owns the background sampling loop and the runtime state it
// reads on every tick: the active spot and the polling interval. Both
// are persisted to the settings table on write and survive restarts.
//
// The interval is a single scalar and lives in an atomic; the active
// spot id and the run state are compound and take a mutex each.
type Service struct {
	store  store.Store
	source source.ValueSource

	intervalSec atomic.Int64

	activeMu     sync.Mutex
	activeSpotID *int64

	runMu    sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

func New(st store.Store, src source.ValueSource, defaultIntervalSec int) *Service {
	s := &Service{
		store:  st,
		source: src,
	}
	s.intervalSec.Store(int64(clampInterval(defaultIntervalSec)))

	return s
}

func clampInterval(sec int) int {
	if sec < MinIntervalSec {
		return MinIntervalSec
	}

	return sec
}

// Hydrate applies persisted runtime settings. Malformed values are
// logged and replaced by the defaults rather than failing startup.
func (s *Service) Hydrate(ctx context.Context) error {
	if raw, ok, err := s.store.GetSetting(ctx, store.SettingSamplingIntervalSec); err != nil {
		return err
	} else if ok {
		sec, convErr := strconv.Atoi(raw)
		if convErr != nil {
			logger.Warn().
				Str("value", raw).
				Msg("Ignoring malformed persisted sampling interval")
		} else {
			s.intervalSec.Store(int64(clampInterval(sec)))
		}
	}

	if raw, ok, err := s.store.GetSetting(ctx, store.SettingActiveSpotID); err != nil {
		return err
	} else if ok {
		id, convErr := strconv.ParseInt(raw, 10, 64)
		if convErr != nil {
			logger.Warn().
				Str("value", raw).
				Msg("Ignoring malformed persisted active spot id")
		} else if _, spotErr := s.store.GetSpot(ctx, id); spotErr != nil {
			logger.Warn().
				Int64("spot_id", id).
				Msg("Persisted active spot no longer exists")
		} else {
			s.activeMu.Lock()
			s.activeSpotID = &id
			s.activeMu.Unlock()
		}
	}

	logger.Debug().
		Int64("interval_sec", s.intervalSec.Load()).
		Msg("Runtime settings hydrated")

	return nil
}

// Interval returns the current polling interval in seconds.
func (s *Service) Interval() int {
	return int(s.intervalSec.Load())
}

// SetInterval clamps sec to the minimum, persists it and publishes it
// to the running loop. The loop re-reads the interval every tick, so
// the change applies to the next tick without a restart.
func (s *Service) SetInterval(ctx context.Context, sec int) error {
	sec = clampInterval(sec)

	if err := s.store.SetSetting(ctx, store.SettingSamplingIntervalSec, strconv.Itoa(sec)); err != nil {
		return err
	}
	s.intervalSec.Store(int64(sec))

	return nil
}

// ActiveSpot returns the current active spot, or nil when none is set.
func (s *Service) ActiveSpot(ctx context.Context) (*store.Spot, error) {
	s.activeMu.Lock()
	id := s.activeSpotID
	s.activeMu.Unlock()

	if id == nil {
		return nil, nil
	}

	spot, err := s.store.GetSpot(ctx, *id)
	if err != nil {
		return nil, err
	}

	return &spot, nil
}

// SetActiveSpot makes spot id the sampling target. Write order:
// validate the spot exists, persist the setting, then publish the
// in-memory value. A not-found error leaves the previous active spot
// unchanged.
func (s *Service) SetActiveSpot(ctx context.Context, id int64) error {
	if _, err := s.store.GetSpot(ctx, id); err != nil {
		return err
	}

	if err := s.store.SetSetting(ctx, store.SettingActiveSpotID, strconv.FormatInt(id, 10)); err != nil {
		return err
	}

	s.activeMu.Lock()
	s.activeSpotID = &id
	s.activeMu.Unlock()

	return nil
}

// Start launches the background loop. Calling Start on a running
// service is a no-op; at most one loop exists at a time.
func (s *Service) Start() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.running {
		return
	}

	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.running = true

	go s.loop(s.stopChan, s.doneChan)

	logger.Info().
		Int64("interval_sec", s.intervalSec.Load()).
		Msg("Sampler started")
}

// Stop signals the loop and waits for it to exit. The loop checks the
// signal while sleeping, so the wait is bounded by one tick's work
// plus at most the current interval. Stopping a stopped service is a
// no-op.
func (s *Service) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if !s.running {
		return
	}

	close(s.stopChan)
	<-s.doneChan
	s.running = false

	logger.Info().Msg("Sampler stopped")
}

// IsRunning reports the loop state. Pure query, no side effect.
func (s *Service) IsRunning() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	return s.running
}

func (s *Service) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		default:
		}

		s.tick()

		interval := time.Duration(s.intervalSec.Load()) * time.Second
		select {
		case <-stop:
			return
		case <-time.After(interval):
		}
	}
}

// tick records one sample when both an active spot and a reading
// exist. Persistence failures are logged and swallowed; one failed
// tick must not stop future sampling.
func (s *Service) tick() {
	s.activeMu.Lock()
	id := s.activeSpotID
	s.activeMu.Unlock()

	if id == nil {
		return
	}

	reading, ok := s.source.CurrentReading()
	if !ok {
		return
	}

	ts := time.Now().UnixMilli()
	if err := s.store.InsertSample(context.Background(), *id, ts, reading.Level, reading.ExpPercent); err != nil {
		logger.Error().
			Err(err).
			Int64("spot_id", *id).
			Msg("Failed to record sample")
		return
	}

	logger.Debug().
		Int64("spot_id", *id).
		Int("level", reading.Level).
		Float64("exp_percent", reading.ExpPercent).
		Msg("Sample recorded")
}
