// Package beat finds heart beat peaks in pulse waveforms and corrects
// the detected series for spurious and missed beats.
//
// Detectors work on the raw waveform but report peak positions on a
// shared millisecond timeline, so downstream interval math is
// independent of the source sampling rate.
package beat

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// ErrBadSignal marks input a detector cannot work with, like a flat or
// truncated recording. Pipelines treat it as a per-subject skip rather
// than a failure.
var ErrBadSignal = errors.New("signal not usable for beat detection")

// TimelineRate is the rate of the shared peak timeline in Hz. One
// timeline sample is one millisecond.
const TimelineRate = 1000.0

// minPeakGapMs is the shortest believable distance between two beats,
// just above a 300 bpm heart rate.
const minPeakGapMs = 200

// minSignalSeconds is the shortest recording worth running detection
// on.
const minSignalSeconds = 5.0

// DetectorConfig carries the windowing parameters of a detection run.
type DetectorConfig struct {
	// WindowLength is the detection window in seconds
	WindowLength int
	// Overlap is the fractional overlap between windows, in [0, 1)
	Overlap float64
}

// Detector finds candidate beat peaks in a pulse waveform sampled at
// rate Hz. Detected positions are strictly increasing indices on the
// millisecond timeline.
type Detector interface {
	Detect(values []float64, rate float64, cfg DetectorConfig) ([]int, error)
}

// NamedDetector is a detector with a name.
type NamedDetector struct {
	Name string
	Detector
}

// Detectors holds every registered detection method.
var Detectors []NamedDetector

// Register registers a detection method. It is not safe for concurrent
// use; call it from init.
func Register(name string, d Detector) {
	Detectors = append(Detectors, NamedDetector{
		Name:     name,
		Detector: d,
	})
}

// Find returns the named detection method from the registry, or nil if
// there is none.
func Find(name string) Detector {
	for _, d := range Detectors {
		if d.Name == name {
			return d.Detector
		}
	}

	return nil
}

// Init returns the named detection method.
func Init(name string) (Detector, error) {
	d := Find(name)
	if d == nil {
		return nil, errors.Errorf("method not found: %q; check list-methods", name)
	}

	return d, nil
}

// TimelineLen returns the millisecond timeline length of a waveform of
// n samples at the given rate.
func TimelineLen(n int, rate float64) int {
	return int(math.Round(float64(n) / rate * TimelineRate))
}

// Indices returns the set positions of an acceptance mask, in order.
func Indices(mask []bool) []int {
	// sized for about one beat per timeline second
	idx := make([]int, 0, len(mask)/1000)

	for i, ok := range mask {
		if ok {
			idx = append(idx, i)
		}
	}

	return idx
}

// toTimeline maps a native sample index onto the millisecond timeline.
func toTimeline(i int, rate float64) int {
	return int(math.Round(float64(i) / rate * TimelineRate))
}

// checkSignal runs the shared validity checks all detectors apply
// before touching a waveform.
func checkSignal(values []float64, rate float64) error {
	if rate <= 0 {
		return errors.Wrapf(ErrBadSignal, "non-positive sampling rate %g", rate)
	}

	if len(values) == 0 {
		return errors.Wrap(ErrBadSignal, "empty signal")
	}

	if secs := float64(len(values)) / rate; secs < minSignalSeconds {
		return errors.Wrapf(ErrBadSignal,
			"signal of %.2f s is shorter than %g s", secs, minSignalSeconds)
	}

	lo, hi := values[0], values[0]

	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrap(ErrBadSignal, "non-finite samples")
		}

		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if lo == hi {
		return errors.Wrap(ErrBadSignal, "flat signal")
	}

	return nil
}

// windows slices n samples into [start, end) detection windows of winN
// samples with the given fractional overlap. A partial tail is covered
// by one extra window clamped against the end of the signal.
func windows(n, winN int, overlap float64) [][2]int {
	if winN >= n {
		return [][2]int{{0, n}}
	}

	step := int(float64(winN) * (1 - overlap))
	if step < 1 {
		step = 1
	}

	var ws [][2]int

	for start := 0; start+winN <= n; start += step {
		ws = append(ws, [2]int{start, start + winN})
	}

	if ws[len(ws)-1][1] < n {
		ws = append(ws, [2]int{n - winN, n})
	}

	return ws
}

// dedupe sorts timeline positions and collapses runs closer than the
// minimum believable beat gap, keeping the earliest of each run.
// Overlapping windows report shared beats more than once.
func dedupe(idx []int) []int {
	if len(idx) == 0 {
		return idx
	}

	sort.Ints(idx)

	out := make([]int, 0, len(idx))
	out = append(out, idx[0])

	for _, i := range idx[1:] {
		if i-out[len(out)-1] >= minPeakGapMs {
			out = append(out, i)
		}
	}

	return out
}
