package source

// Reading is one (level, exp-percent) observation from a provider.
type Reading struct {
	Level      int
	ExpPercent float64
}

// ValueSource provides the current reading, if any. Implementations
// must be safe for concurrent use and side-effect free from the
// caller's perspective, so providers can be swapped without touching
// the sampler or the rate engine.
type ValueSource interface {
	// CurrentReading returns the latest reading, or false when no
	// reading is available.
	CurrentReading() (Reading, bool)
}
