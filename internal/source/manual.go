package source

import "sync"

// ManualSource returns whatever the user last entered, verbatim.
// Level and percent are not validated; callers must tolerate jumps,
// resets and repeats.
type ManualSource struct {
	mu      sync.Mutex
	reading Reading
	set     bool
}

func NewManualSource() *ManualSource {
	return &ManualSource{}
}

// Set stores the user-entered value. Last writer wins.
func (m *ManualSource) Set(level int, expPercent float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reading = Reading{Level: level, ExpPercent: expPercent}
	m.set = true
}

func (m *ManualSource) CurrentReading() (Reading, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reading, m.set
}
