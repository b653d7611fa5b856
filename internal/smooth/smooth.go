// Package smooth suppresses jitter in time-remaining estimates. upower's
// per-sample numbers jump around with momentary load; a rolling median over
// a handful of samples tracks the trend while ignoring single-sample
// spikes entirely.
package smooth

import (
	"sort"
	"sync"
	"time"
)

// DefaultWindow is the sample count used when none is configured.
const DefaultWindow = 5

// Window is a fixed-size rolling window of duration samples. It is safe
// for concurrent use.
type Window struct {
	mu      sync.Mutex
	size    int
	samples []time.Duration
}

// NewWindow creates a window keeping the last size samples.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindow
	}
	return &Window{size: size, samples: make([]time.Duration, 0, size)}
}

// Add appends a sample, evicting the oldest once the window is full.
// Non-positive samples carry no information and are dropped.
func (w *Window) Add(d time.Duration) {
	if d <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.samples) == w.size {
		copy(w.samples, w.samples[1:])
		w.samples[len(w.samples)-1] = d
		return
	}
	w.samples = append(w.samples, d)
}

// Median returns the middle sample (mean of the middle pair for even
// counts). The second result is false while the window is empty.
func (w *Window) Median() (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(w.samples)
	if n == 0 {
		return 0, false
	}

	sorted := append([]time.Duration(nil), w.samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if n%2 == 1 {
		return sorted[n/2], true
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2, true
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.samples)
}

// Reset drops all samples. The monitor calls this when the charge
// direction flips: estimates to-empty and to-full must never mix.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples = w.samples[:0]
}
