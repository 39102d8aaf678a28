package sampler_test

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"codeberg.org/kessl/xptrack/internal/errors"
	"codeberg.org/kessl/xptrack/internal/sampler"
	"codeberg.org/kessl/xptrack/internal/source"
	"codeberg.org/kessl/xptrack/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "xptrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestStartStopIdempotent(t *testing.T) {
	svc := sampler.New(openTestStore(t), source.NewManualSource(), 10)

	assert.False(t, svc.IsRunning())

	svc.Start()
	svc.Start() // second call must not create a second loop
	assert.True(t, svc.IsRunning())

	svc.Stop()
	assert.False(t, svc.IsRunning())

	svc.Stop() // no-op
	assert.False(t, svc.IsRunning())
}

func TestIntervalClamp(t *testing.T) {
	st := openTestStore(t)
	svc := sampler.New(st, source.NewManualSource(), 10)
	ctx := context.Background()

	require.NoError(t, svc.SetInterval(ctx, 0))
	assert.Equal(t, 1, svc.Interval())

	// The clamped value is what gets persisted
	value, ok, err := st.GetSetting(ctx, store.SettingSamplingIntervalSec)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", value)
}

func TestDefaultIntervalClamped(t *testing.T) {
	svc := sampler.New(openTestStore(t), source.NewManualSource(), -3)
	assert.Equal(t, 1, svc.Interval())
}

func TestSetActiveSpot(t *testing.T) {
	st := openTestStore(t)
	svc := sampler.New(st, source.NewManualSource(), 10)
	ctx := context.Background()

	active, err := svc.ActiveSpot(ctx)
	require.NoError(t, err)
	assert.Nil(t, active, "Expected no active spot initially")

	spot, err := st.UpsertSpot(ctx, "Forest")
	require.NoError(t, err)

	require.NoError(t, svc.SetActiveSpot(ctx, spot.ID))

	active, err = svc.ActiveSpot(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "Forest", active.Name)
}

func TestSetActiveSpotUnknownID(t *testing.T) {
	st := openTestStore(t)
	svc := sampler.New(st, source.NewManualSource(), 10)
	ctx := context.Background()

	spot, err := st.UpsertSpot(ctx, "Forest")
	require.NoError(t, err)
	require.NoError(t, svc.SetActiveSpot(ctx, spot.ID))

	err = svc.SetActiveSpot(ctx, 99999)
	require.Error(t, err)
	assert.Equal(t, errors.ErrResourceNotFound, errors.CodeOf(err))

	// Previous active spot is unchanged
	active, err := svc.ActiveSpot(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, spot.ID, active.ID)
}

func TestHydrate(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	spot, err := st.UpsertSpot(ctx, "Forest")
	require.NoError(t, err)
	require.NoError(t, st.SetSetting(ctx, store.SettingSamplingIntervalSec, "30"))
	require.NoError(t, st.SetSetting(ctx, store.SettingActiveSpotID, strconv.FormatInt(spot.ID, 10)))

	svc := sampler.New(st, source.NewManualSource(), 10)
	require.NoError(t, svc.Hydrate(ctx))

	assert.Equal(t, 30, svc.Interval())

	active, err := svc.ActiveSpot(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, spot.ID, active.ID)
}

func TestHydrateMalformedValues(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetSetting(ctx, store.SettingSamplingIntervalSec, "soon"))
	require.NoError(t, st.SetSetting(ctx, store.SettingActiveSpotID, "the forest"))

	svc := sampler.New(st, source.NewManualSource(), 10)
	require.NoError(t, svc.Hydrate(ctx))

	assert.Equal(t, 10, svc.Interval(), "Malformed interval falls back to default")

	active, err := svc.ActiveSpot(ctx)
	require.NoError(t, err)
	assert.Nil(t, active, "Malformed spot id leaves no active spot")
}

func TestLoopRecordsSamples(t *testing.T) {
	st := openTestStore(t)
	src := source.NewManualSource()
	svc := sampler.New(st, src, 1)
	ctx := context.Background()

	spot, err := st.UpsertSpot(ctx, "Forest")
	require.NoError(t, err)
	require.NoError(t, svc.SetActiveSpot(ctx, spot.ID))
	src.Set(5, 42.5)

	svc.Start()
	defer svc.Stop()

	// The first tick runs before the first sleep
	require.Eventually(t, func() bool {
		samples, err := st.ListSamples(ctx, spot.ID, 10)
		return err == nil && len(samples) > 0
	}, 2*time.Second, 20*time.Millisecond)

	samples, err := st.ListSamples(ctx, spot.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, samples[0].Level)
	assert.InDelta(t, 42.5, samples[0].ExpPercent, 1e-9)
}

func TestLoopSkipsWithoutReading(t *testing.T) {
	st := openTestStore(t)
	svc := sampler.New(st, source.NewManualSource(), 1)
	ctx := context.Background()

	spot, err := st.UpsertSpot(ctx, "Forest")
	require.NoError(t, err)
	require.NoError(t, svc.SetActiveSpot(ctx, spot.ID))

	svc.Start()
	time.Sleep(100 * time.Millisecond)
	svc.Stop()

	samples, err := st.ListSamples(ctx, spot.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, samples, "No reading means no samples")
}
