package store

import "context"

// Spot is a named grinding location. Spots are created on first
// reference and never mutated or deleted.
type Spot struct {
	ID        int64
	Name      string
	CreatedAt int64 // unix milliseconds
}

// ExpSample is one (level, exp-percent) observation for a spot.
// Samples are append-only.
type ExpSample struct {
	ID         int64
	SpotID     int64
	TS         int64 // unix milliseconds
	Level      int
	ExpPercent float64
}

// Recognized settings keys.
const (
	SettingSamplingIntervalSec = "sampling_interval_sec"
	SettingActiveSpotID        = "active_spot_id"
)

// Store defines the persistence operations for spots, samples and
// runtime settings. Implementations rely on the underlying database's
// transactional isolation; callers need no additional locking.
type Store interface {
	UpsertSpot(ctx context.Context, name string) (Spot, error)
	ListSpots(ctx context.Context) ([]Spot, error)
	GetSpot(ctx context.Context, id int64) (Spot, error)

	InsertSample(ctx context.Context, spotID, ts int64, level int, expPercent float64) error
	ListSamples(ctx context.Context, spotID int64, limit int) ([]ExpSample, error)
	SamplesSince(ctx context.Context, spotID, sinceMS int64) ([]ExpSample, error)

	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error

	Close() error
}
