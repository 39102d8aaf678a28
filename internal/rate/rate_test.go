package rate_test

import (
	"context"
	"testing"

	"codeberg.org/kessl/xptrack/internal/rate"
	"codeberg.org/kessl/xptrack/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(ts int64, level int, pct float64) store.ExpSample {
	return store.ExpSample{TS: ts, Level: level, ExpPercent: pct}
}

func TestComputeInsufficientSamples(t *testing.T) {
	cases := map[string][]store.ExpSample{
		"none": nil,
		"one":  {sample(0, 5, 10)},
	}

	for name, samples := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, ok := rate.Compute(samples)
			assert.False(t, ok, "Expected no rate")
		})
	}
}

func TestComputeExcludesPostLevelUpSamples(t *testing.T) {
	samples := []store.ExpSample{
		sample(0, 5, 10),
		sample(1800000, 5, 40),
		sample(3600000, 6, 5),
	}

	expPerHour, sampleCount, ok := rate.Compute(samples)
	require.True(t, ok)

	// Base level 5, positive delta 30 over half an hour
	assert.InDelta(t, 60.0, expPerHour, 1e-9)
	assert.Equal(t, 2, sampleCount, "The level-6 sample must be excluded")
}

func TestComputeSuppressesNegativeDeltas(t *testing.T) {
	samples := []store.ExpSample{
		sample(0, 5, 50),
		sample(1000, 5, 40),
		sample(2000, 5, 70),
	}

	expPerHour, sampleCount, ok := rate.Compute(samples)
	require.True(t, ok)

	// Only the 40->70 delta counts; elapsed spans the full filtered
	// window (2000 ms).
	assert.InDelta(t, 30.0/(2000.0/3600000.0), expPerHour, 1e-6)
	assert.Equal(t, 3, sampleCount)
}

func TestComputeNoPositiveDeltas(t *testing.T) {
	samples := []store.ExpSample{
		sample(0, 5, 50),
		sample(1000, 5, 50),
		sample(2000, 5, 40),
	}

	expPerHour, _, ok := rate.Compute(samples)
	require.True(t, ok, "Zero rate is still a rate")
	assert.Zero(t, expPerHour)
}

func TestComputeSingleSampleAtBaseLevel(t *testing.T) {
	samples := []store.ExpSample{
		sample(0, 5, 90),
		sample(1000, 6, 5),
		sample(2000, 6, 10),
	}

	_, _, ok := rate.Compute(samples)
	assert.False(t, ok, "Fewer than two base-level samples must yield no rate")
}

func TestComputeZeroElapsed(t *testing.T) {
	samples := []store.ExpSample{
		sample(5000, 5, 10),
		sample(5000, 5, 20),
	}

	_, _, ok := rate.Compute(samples)
	assert.False(t, ok, "Identical timestamps must yield no rate")
}

type fakeReader struct {
	spots   []store.Spot
	samples map[int64][]store.ExpSample
	sinceMS int64
}

func (f *fakeReader) ListSpots(context.Context) ([]store.Spot, error) {
	return f.spots, nil
}

func (f *fakeReader) SamplesSince(_ context.Context, spotID, sinceMS int64) ([]store.ExpSample, error) {
	f.sinceMS = sinceMS
	return f.samples[spotID], nil
}

func TestListRatesOmitsAndSorts(t *testing.T) {
	reader := &fakeReader{
		spots: []store.Spot{
			{ID: 1, Name: "Forest"},
			{ID: 2, Name: "Cave"},
			{ID: 3, Name: "Swamp"},
		},
		samples: map[int64][]store.ExpSample{
			// 20 percent over one hour
			1: {sample(0, 5, 10), sample(3600000, 5, 30)},
			// single sample: no rate
			2: {sample(0, 7, 50)},
			// 50 percent over one hour
			3: {sample(0, 9, 0), sample(3600000, 9, 50)},
		},
	}

	engine := rate.NewEngine(reader)

	rates, err := engine.ListRates(context.Background(), 60)
	require.NoError(t, err)
	require.Len(t, rates, 2, "Cave has no rate and must be omitted")

	assert.Equal(t, "Swamp", rates[0].SpotName)
	assert.InDelta(t, 50.0, rates[0].ExpPerHour, 1e-9)
	assert.Equal(t, "Forest", rates[1].SpotName)
	assert.InDelta(t, 20.0, rates[1].ExpPerHour, 1e-9)
}
