package beat

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// maxBeatSpan is the longest beat interval the scale search accounts
// for, in seconds. Two seconds reaches down to a 30 bpm heart rate.
const maxBeatSpan = 2.0

func init() {
	Register("msptd", msptdDetector{})
}

// msptdDetector finds beats with multi-scale peak detection, running
// Scholkmann's automatic multiscale-based peak detection over sliding
// windows of the waveform.
//
// https://doi.org/10.3390/a5040588
type msptdDetector struct{}

func (msptdDetector) Detect(values []float64, rate float64, cfg DetectorConfig) ([]int, error) {
	if err := checkSignal(values, rate); err != nil {
		return nil, err
	}

	if cfg.WindowLength <= 0 {
		return nil, errors.Errorf("window length must be positive (got %d)", cfg.WindowLength)
	}

	if cfg.Overlap < 0 || cfg.Overlap >= 1 {
		return nil, errors.Errorf("overlap must be in [0, 1) (got %g)", cfg.Overlap)
	}

	winN := int(float64(cfg.WindowLength) * rate)

	var ms []int

	for _, w := range windows(len(values), winN, cfg.Overlap) {
		for _, p := range msptdPeaks(values[w[0]:w[1]], rate) {
			ms = append(ms, toTimeline(w[0]+p, rate))
		}
	}

	return dedupe(ms), nil
}

// msptdPeaks returns the native-rate peak indices of one window.
//
// A sample is marked at scale k when it exceeds both neighbors k
// samples away. The scale with the most marks sets the dominant beat
// spacing, and a peak is a sample marked at every scale up to it.
// Noise maxima die out at large scales, broad swells at small ones.
func msptdPeaks(seg []float64, rate float64) []int {
	n := len(seg)
	if n < 4 {
		return nil
	}

	scales := n/2 - 1
	if limit := int(math.Ceil(rate * maxBeatSpan / 2)); limit < scales {
		scales = limit
	}

	if scales < 1 {
		return nil
	}

	// Work on a linearly detrended copy so a drifting baseline does not
	// tilt the scale comparisons.
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = float64(i)
	}

	alpha, beta := stat.LinearRegression(ts, seg, nil, false)

	x := make([]float64, n)
	for i, v := range seg {
		x[i] = v - (alpha + beta*ts[i])
	}

	gamma := make([]int, scales+1)

	for k := 1; k <= scales; k++ {
		for i := k; i < n-k; i++ {
			if x[i] > x[i-k] && x[i] > x[i+k] {
				gamma[k]++
			}
		}
	}

	lambda := 1
	for k := 2; k <= scales; k++ {
		if gamma[k] > gamma[lambda] {
			lambda = k
		}
	}

	var peaks []int

	for i := lambda; i < n-lambda; i++ {
		marked := true

		for k := 1; k <= lambda; k++ {
			if x[i] <= x[i-k] || x[i] <= x[i+k] {
				marked = false
				break
			}
		}

		if marked {
			peaks = append(peaks, i)
		}
	}

	return peaks
}
