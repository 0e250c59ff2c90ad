// Package summary implements summary writers which record scalar and
// histogram summaries of an experiment, indexed by frame number.
package summary

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Writer records summaries. Summaries may be buffered until Flush is
// called.
type Writer interface {
	AddScalar(tag string, step int, value float64) error
	AddHistogram(tag string, step int, values []float64) error
	Flush() error
}

// Histogram is a summary of a set of values counted into equal width
// bins
type Histogram struct {
	Step     int
	Dividers []float64 // Bin i holds values in [Dividers[i], Dividers[i+1])
	Counts   []float64
}

// NewHistogram counts values into bins equal width bins spanning their
// range
func NewHistogram(step int, values []float64, bins int) (Histogram, error) {
	if bins < 1 {
		return Histogram{}, fmt.Errorf("newHistogram: bins must be "+
			"positive, have(%v)", bins)
	}
	if len(values) == 0 {
		return Histogram{}, fmt.Errorf("newHistogram: no values given")
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	min, max := sorted[0], sorted[len(sorted)-1]
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) ||
		math.IsInf(max, 0) {
		return Histogram{}, fmt.Errorf("newHistogram: values must be finite")
	}

	// The last divider must exceed the maximum value
	upper := math.Nextafter(max, math.Inf(1))
	if min == max {
		upper = min + 1
	}
	dividers := floats.Span(make([]float64, bins+1), min, upper)

	// Span accumulates rounding error in the last divider
	dividers[bins] = upper
	counts := stat.Histogram(nil, dividers, sorted, nil)

	return Histogram{Step: step, Dividers: dividers, Counts: counts}, nil
}

type scalar struct {
	step  int
	value float64
}

// HTMLWriter renders summaries as an HTML page of charts. Each scalar
// tag is shown as a line chart over frames, and each histogram tag as
// a bar chart of its most recent histograms. The page is rewritten on
// each call to Flush.
type HTMLWriter struct {
	filename string
	bins     int
	keep     int // Histograms kept per tag

	tags       []string // Tags in order of first appearance
	scalars    map[string][]scalar
	histograms map[string][]Histogram
}

// NewHTMLWriter returns a new HTMLWriter writing to filename, which
// counts histogram values into bins bins and displays the keep most
// recent histograms of each tag.
func NewHTMLWriter(filename string, bins, keep int) (*HTMLWriter, error) {
	if bins < 1 || keep < 1 {
		return nil, fmt.Errorf("newHTMLWriter: bins and kept histograms "+
			"must be positive \n\tbins(%v) \n\tkeep(%v)", bins, keep)
	}
	return &HTMLWriter{
		filename:   filename,
		bins:       bins,
		keep:       keep,
		scalars:    make(map[string][]scalar),
		histograms: make(map[string][]Histogram),
	}, nil
}

func (h *HTMLWriter) addTag(tag string) {
	_, isScalar := h.scalars[tag]
	_, isHist := h.histograms[tag]
	if !isScalar && !isHist {
		h.tags = append(h.tags, tag)
	}
}

// AddScalar records the value of a scalar at a step
func (h *HTMLWriter) AddScalar(tag string, step int, value float64) error {
	if _, ok := h.histograms[tag]; ok {
		return fmt.Errorf("addScalar: tag %q is used by a histogram", tag)
	}
	h.addTag(tag)
	h.scalars[tag] = append(h.scalars[tag], scalar{step, value})
	return nil
}

// AddHistogram records a histogram of values at a step
func (h *HTMLWriter) AddHistogram(tag string, step int,
	values []float64) error {
	if _, ok := h.scalars[tag]; ok {
		return fmt.Errorf("addHistogram: tag %q is used by a scalar", tag)
	}
	hist, err := NewHistogram(step, values, h.bins)
	if err != nil {
		return fmt.Errorf("addHistogram: %v", err)
	}

	h.addTag(tag)
	hists := append(h.histograms[tag], hist)
	if len(hists) > h.keep {
		hists = hists[len(hists)-h.keep:]
	}
	h.histograms[tag] = hists
	return nil
}

// Flush renders all summaries to the HTML file
func (h *HTMLWriter) Flush() error {
	file, err := os.Create(h.filename)
	if err != nil {
		return fmt.Errorf("flush: could not create file: %v", err)
	}
	defer file.Close()

	if err := h.Render(file); err != nil {
		return fmt.Errorf("flush: %v", err)
	}
	return nil
}

// Render renders all summaries as an HTML page to w
func (h *HTMLWriter) Render(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "Summaries"

	for _, tag := range h.tags {
		if points, ok := h.scalars[tag]; ok {
			page.AddCharts(lineChart(tag, points))
		} else {
			page.AddCharts(barChart(tag, h.histograms[tag]))
		}
	}

	return page.Render(w)
}

func lineChart(tag string, points []scalar) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: tag}),
	)

	steps := make([]string, len(points))
	items := make([]opts.LineData, len(points))
	for i, point := range points {
		steps[i] = fmt.Sprintf("%d", point.step)
		items[i] = opts.LineData{Value: point.value}
	}

	line.SetXAxis(steps).AddSeries(tag, items)
	return line
}

// barChart draws the histograms of a tag as grouped bars. Bars are
// labelled with the bin centres of the most recent histogram, and
// older histograms are drawn by bin index.
func barChart(tag string, hists []Histogram) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: tag}),
	)

	last := hists[len(hists)-1]
	bins := make([]string, len(last.Counts))
	for i := range bins {
		centre := (last.Dividers[i] + last.Dividers[i+1]) / 2
		bins[i] = fmt.Sprintf("%.4g", centre)
	}
	bar.SetXAxis(bins)

	for _, hist := range hists {
		items := make([]opts.BarData, len(hist.Counts))
		for i, count := range hist.Counts {
			items[i] = opts.BarData{Value: count}
		}
		bar.AddSeries(fmt.Sprintf("frame %d", hist.Step), items)
	}
	return bar
}
