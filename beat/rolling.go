package beat

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// envelopeSeconds is the span of the trailing mean a pulse must rise
// above. Three quarters of a second straddles one beat at common heart
// rates, so the mean tracks drift but not individual pulses.
const envelopeSeconds = 0.75

// minRunSeconds is how long a suprathreshold run has to last before it
// counts as a pulse and not a glitch.
const minRunSeconds = 0.03

func init() {
	Register("rolling_average", rollingDetector{})
}

// rollingDetector finds beats by removing a trailing rolling mean from
// the waveform and picking the highest sample of every run above a
// prominence threshold. The threshold is the 90th percentile of the
// mean-removed signal, so it lands on the pulse flanks for any
// reasonable pulse duty cycle.
//
// The detector spans its own trailing window; the configured detection
// windows are not used.
type rollingDetector struct{}

func (rollingDetector) Detect(values []float64, rate float64, _ DetectorConfig) ([]int, error) {
	if err := checkSignal(values, rate); err != nil {
		return nil, err
	}

	span := int(envelopeSeconds * rate)
	if span < 2 {
		span = 2
	}

	// The trailing mean excludes the current sample, so a pulse cannot
	// hide inside its own envelope.
	d := make([]float64, len(values))
	win := newMovingStats(span)

	for i, v := range values {
		if win.count > 0 {
			d[i] = v - win.mean()
		}

		win.push(v)
	}

	sorted := append([]float64(nil), d...)
	sort.Float64s(sorted)

	thr := stat.Quantile(0.9, stat.Empirical, sorted, nil)
	if thr <= 0 {
		return nil, errors.Wrap(ErrBadSignal, "no pulse prominence above the rolling mean")
	}

	minRun := int(minRunSeconds * rate)
	if minRun < 1 {
		minRun = 1
	}

	var (
		peaks    []int
		runStart = -1
		tip      int
	)

	closeRun := func(end int) {
		if end-runStart >= minRun {
			peaks = append(peaks, toTimeline(tip, rate))
		}
	}

	for i, v := range d {
		switch {
		case v > thr && runStart < 0:
			runStart, tip = i, i

		case v > thr:
			if v > d[tip] {
				tip = i
			}

		case runStart >= 0:
			closeRun(i)
			runStart = -1
		}
	}

	if runStart >= 0 {
		closeRun(len(d))
	}

	return dedupe(peaks), nil
}

// movingStats is a fixed-span trailing window with a running sum,
// giving constant-time mean updates.
type movingStats struct {
	data  []float64
	index int
	count int
	sum   float64
}

func newMovingStats(size int) *movingStats {
	return &movingStats{data: make([]float64, size)}
}

func (w *movingStats) push(v float64) {
	if w.count == len(w.data) {
		w.sum -= w.data[w.index]
	} else {
		w.count++
	}

	w.data[w.index] = v
	w.sum += v
	w.index = (w.index + 1) % len(w.data)
}

func (w *movingStats) mean() float64 {
	return w.sum / float64(w.count)
}
