// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/logrusorgru/aurora"
)

// ManualProgressBar implement progress bar functionality that must
// be manually managed. That is, the Display() function must be called
// whenever an updated progress bar should be printed to the screen.
//
// ManualProgressBar does not use concurrency.
type ManualProgressBar struct {
	label           string
	width           float64
	maxProgress     float64
	currentProgress float64
	bar             strings.Builder
	startTime       time.Time
	out             io.Writer
	colour          aurora.Aurora
}

// NewManualProgressBar returns a new ManualProgressBar writing to
// standard output
func NewManualProgressBar(label string, width, max int) *ManualProgressBar {
	return NewManualProgressBarTo(os.Stdout, label, width, max, true)
}

// NewManualProgressBarTo returns a new ManualProgressBar writing to out.
// If colours is false, no terminal escape codes are used for colouring.
func NewManualProgressBarTo(out io.Writer, label string, width, max int,
	colours bool) *ManualProgressBar {
	if max <= 0 {
		max = 1
	}
	return &ManualProgressBar{
		label:           label,
		width:           float64(width),
		maxProgress:     float64(max),
		currentProgress: 0,
		startTime:       time.Now(),
		out:             out,
		colour:          aurora.NewAurora(colours),
	}
}

// Increment increments the interal progress counter. Each time an
// iteration is performed, Increment should be called.
func (p *ManualProgressBar) Increment() {
	p.Set(int(p.currentProgress) + 1)
}

// Set sets the internal progress counter, clipped to the maximum
func (p *ManualProgressBar) Set(progress int) {
	p.currentProgress = float64(progress)
	if p.currentProgress > p.maxProgress {
		p.currentProgress = p.maxProgress
	} else if p.currentProgress < 0 {
		p.currentProgress = 0
	}
}

// Progress returns the fraction of the bar that is filled
func (p *ManualProgressBar) Progress() float64 {
	return p.currentProgress / p.maxProgress
}

// String returns the current progress bar without any escape codes
// for redrawing the terminal line
func (p *ManualProgressBar) String() string {
	p.bar.Reset()
	p.bar.WriteString(p.colour.Bold(p.label).String())
	p.bar.WriteString(" |")

	var filled strings.Builder
	currentProg := p.Progress() * p.width
	for i := 0.0; i < currentProg; i++ {
		filled.WriteString("█")
	}
	p.bar.WriteString(p.colour.Green(filled.String()).String())
	for i := currentProg; i < p.width; i++ {
		p.bar.WriteString(" ")
	}
	p.bar.WriteString(fmt.Sprintf("| [%.2f%v | elapsed: %v]",
		p.Progress()*100, "%",
		time.Since(p.startTime).Truncate(time.Second)))

	return p.bar.String()
}

// Display displays the progress bar, redrawing the current terminal
// line.
func (p *ManualProgressBar) Display() {
	fmt.Fprintf(p.out, "\n\033[1A\033[K%v", p.String())
}

// Close moves the cursor past the progress bar
func (p *ManualProgressBar) Close() {
	fmt.Fprintln(p.out)
}
