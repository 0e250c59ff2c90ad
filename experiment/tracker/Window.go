package tracker

import (
	"math"

	"github.com/gammazero/deque"
)

// Window keeps the most recent values of a series and computes their
// mean
type Window struct {
	values *deque.Deque[float64]
	size   int
}

// NewWindow returns a new Window holding at most size values
func NewWindow(size int) *Window {
	if size < 1 {
		panic("newWindow: window size must be positive")
	}
	return &Window{values: deque.New[float64](size), size: size}
}

// Add adds a value to the window, dropping the oldest value if the
// window is full
func (w *Window) Add(value float64) {
	if w.values.Len() == w.size {
		w.values.PopFront()
	}
	w.values.PushBack(value)
}

// Len returns the number of values in the window
func (w *Window) Len() int {
	return w.values.Len()
}

// Mean returns the mean of the values in the window, or NaN if the
// window is empty
func (w *Window) Mean() float64 {
	if w.values.Len() == 0 {
		return math.NaN()
	}

	sum := 0.0
	for i := 0; i < w.values.Len(); i++ {
		sum += w.values.At(i)
	}
	return sum / float64(w.values.Len())
}

// Clear removes all values from the window
func (w *Window) Clear() {
	w.values.Clear()
}
