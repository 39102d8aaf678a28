package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"codeberg.org/kessl/xptrack/internal/errors"
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

func TestUpsertSpotIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertSpot(ctx, "Forest")
	require.NoError(t, err)

	second, err := s.UpsertSpot(ctx, "Forest")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "Expected the same spot id on repeat upsert")

	spots, err := s.ListSpots(ctx)
	require.NoError(t, err)
	assert.Len(t, spots, 1, "Expected exactly one row")
}

func TestUpsertSpotEmptyName(t *testing.T) {
	s := openTestStore(t)

	_, err := s.UpsertSpot(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidArgument, errors.CodeOf(err))
}

func TestListSpotsOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertSpot(ctx, "Forest")
	require.NoError(t, err)
	_, err = s.UpsertSpot(ctx, "Cave")
	require.NoError(t, err)
	_, err = s.UpsertSpot(ctx, "Swamp")
	require.NoError(t, err)

	spots, err := s.ListSpots(ctx)
	require.NoError(t, err)
	require.Len(t, spots, 3)

	// Newest first; id breaks created_at ties
	assert.Equal(t, "Swamp", spots[0].Name)
	assert.Equal(t, "Cave", spots[1].Name)
	assert.Equal(t, "Forest", spots[2].Name)
}

func TestGetSpotNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetSpot(context.Background(), 12345)
	require.Error(t, err)
	assert.Equal(t, errors.ErrResourceNotFound, errors.CodeOf(err))
}

func TestSamples(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	spot, err := s.UpsertSpot(ctx, "Forest")
	require.NoError(t, err)

	for i := int64(0); i < 5; i++ {
		err := s.InsertSample(ctx, spot.ID, 1000*i, 5, float64(10*i))
		require.NoError(t, err)
	}

	// ListSamples: newest first, capped
	samples, err := s.ListSamples(ctx, spot.ID, 3)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, int64(4000), samples[0].TS)
	assert.Equal(t, int64(3000), samples[1].TS)
	assert.Equal(t, int64(2000), samples[2].TS)

	// SamplesSince: ascending, inclusive lower bound
	since, err := s.SamplesSince(ctx, spot.ID, 2000)
	require.NoError(t, err)
	require.Len(t, since, 3)
	assert.Equal(t, int64(2000), since[0].TS)
	assert.Equal(t, int64(4000), since[2].TS)
	assert.InDelta(t, 20.0, since[0].ExpPercent, 1e-9)
}

func TestSamplesEmptySpot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	spot, err := s.UpsertSpot(ctx, "Forest")
	require.NoError(t, err)

	samples, err := s.ListSamples(ctx, spot.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestSettings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetSetting(ctx, store.SettingSamplingIntervalSec)
	require.NoError(t, err)
	assert.False(t, ok, "Expected missing setting")

	require.NoError(t, s.SetSetting(ctx, store.SettingSamplingIntervalSec, "10"))
	require.NoError(t, s.SetSetting(ctx, store.SettingSamplingIntervalSec, "30"))

	value, ok, err := s.GetSetting(ctx, store.SettingSamplingIntervalSec)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "30", value, "Expected last written value")
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "xptrack.db")
	ctx := context.Background()

	s, err := store.Open(dbPath)
	require.NoError(t, err)

	spot, err := s.UpsertSpot(ctx, "Forest")
	require.NoError(t, err)
	require.NoError(t, s.InsertSample(ctx, spot.ID, 1000, 5, 10))
	require.NoError(t, s.Close())

	s, err = store.Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetSpot(ctx, spot.ID)
	require.NoError(t, err)
	assert.Equal(t, "Forest", got.Name)

	samples, err := s.ListSamples(ctx, spot.ID, 10)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, int64(1000), samples[0].TS)
}
