package monitor

import (
	"fmt"

	"github.com/kbinani/screenshot"
)

// Info describes one attached display. Used by the overlay UI to
// position widgets; nothing in the daemon renders.
type Info struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// List enumerates active displays. Displays carry no OS-level name
// here, so ids fall back to their index.
func List() []Info {
	n := screenshot.NumActiveDisplays()

	infos := make([]Info, 0, n)
	for i := 0; i < n; i++ {
		bounds := screenshot.GetDisplayBounds(i)
		infos = append(infos, Info{
			ID:     fmt.Sprintf("monitor-%d", i),
			X:      bounds.Min.X,
			Y:      bounds.Min.Y,
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		})
	}

	return infos
}
