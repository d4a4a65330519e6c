package latency

import "time"

// DefaultRetention bounds how much history feeds the low/peak readings.
const DefaultRetention = 300 * time.Second

type sample struct {
	at    time.Time
	value float64
}

// Window keeps the selected samples from the most recent retention period.
// It is owned by the single refresh goroutine and needs no locking. Pruning
// is lazy: it re-runs before every derived read, so a window that stopped
// receiving samples eventually reports empty.
type Window struct {
	retention time.Duration
	samples   []sample
}

// NewWindow creates a window. A non-positive retention falls back to
// DefaultRetention.
func NewWindow(retention time.Duration) *Window {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Window{retention: retention}
}

// Record appends a sample and drops anything older than the retention
// horizon. The refresh driver is serialized, so timestamps are non-decreasing
// by construction.
func (w *Window) Record(value float64, now time.Time) {
	w.samples = append(w.samples, sample{at: now, value: value})
	w.prune(now)
}

// Current returns the most recently recorded retained value.
func (w *Window) Current(now time.Time) (float64, bool) {
	w.prune(now)
	if len(w.samples) == 0 {
		return 0, false
	}
	return w.samples[len(w.samples)-1].value, true
}

// Low returns the minimum retained value.
func (w *Window) Low(now time.Time) (float64, bool) {
	w.prune(now)
	if len(w.samples) == 0 {
		return 0, false
	}
	low := w.samples[0].value
	for _, s := range w.samples[1:] {
		if s.value < low {
			low = s.value
		}
	}
	return low, true
}

// Peak returns the maximum retained value.
func (w *Window) Peak(now time.Time) (float64, bool) {
	w.prune(now)
	if len(w.samples) == 0 {
		return 0, false
	}
	peak := w.samples[0].value
	for _, s := range w.samples[1:] {
		if s.value > peak {
			peak = s.value
		}
	}
	return peak, true
}

// Len returns the number of retained samples.
func (w *Window) Len(now time.Time) int {
	w.prune(now)
	return len(w.samples)
}

func (w *Window) prune(now time.Time) {
	cut := 0
	for cut < len(w.samples) && now.Sub(w.samples[cut].at) > w.retention {
		cut++
	}
	if cut > 0 {
		w.samples = append(w.samples[:0], w.samples[cut:]...)
	}
}
