package beat

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// madScale converts a median absolute deviation into a standard
// deviation equivalent for normal data.
const madScale = 1.4826

// relLimit is the floor of the deviation band relative to the median
// interval. It keeps the corrector active when the series is too
// regular for the MAD to carry any spread.
const relLimit = 0.25

// CorrectorConfig tunes the interval outlier screen.
type CorrectorConfig struct {
	// Iterations is how many correction passes run over the series
	Iterations int
	// MinGap is the hard floor between beats in milliseconds
	MinGap int
	// MADLimit scales the deviation band around the median interval
	MADLimit float64
}

// Corrector screens a detected peak series for spurious and missed
// beats.
type Corrector interface {
	// Apply corrects peaks over a timeline of n samples and returns an
	// acceptance mask of that length. Peaks dropped as spurious stay
	// unset, and beats restored into long gaps are set.
	Apply(peaks []int, n int) []bool
}

// NewCorrector returns a Corrector with zero config values replaced by
// working defaults.
func NewCorrector(cfg CorrectorConfig) Corrector {
	if cfg.MinGap <= 0 {
		cfg.MinGap = minPeakGapMs
	}

	if cfg.MADLimit <= 0 {
		cfg.MADLimit = 5
	}

	return &corrector{cfg: cfg}
}

type corrector struct {
	cfg CorrectorConfig
}

func (c *corrector) Apply(peaks []int, n int) []bool {
	idx := append([]int(nil), peaks...)

	for iter := 0; iter < c.cfg.Iterations; iter++ {
		idx = c.pass(idx)
	}

	mask := make([]bool, n)

	for _, i := range idx {
		if i >= 0 && i < n {
			mask[i] = true
		}
	}

	return mask
}

// pass runs one sweep over the series. Too-short intervals drop the
// later peak, and too-long intervals are filled with evenly spaced
// beats, as many as fit at the median spacing. Each sweep classifies
// against the intervals it started from, so residual gaps left by an
// edit are picked up by the next iteration.
func (c *corrector) pass(idx []int) []int {
	if len(idx) < 3 {
		return idx
	}

	rr := make([]float64, len(idx)-1)
	for i := range rr {
		rr[i] = float64(idx[i+1] - idx[i])
	}

	med, dev := madBand(rr)
	tol := math.Max(c.cfg.MADLimit*dev, relLimit*med)

	out := make([]int, 0, len(idx)+4)
	out = append(out, idx[0])

	for i := 1; i < len(idx); i++ {
		d := float64(idx[i] - idx[i-1])

		switch {
		case d < float64(c.cfg.MinGap) || d < med-tol:
			// spurious beat, drop the later peak

		case d > med+tol:
			gap := idx[i] - idx[i-1]

			if missed := int(math.Round(d/med)) - 1; missed >= 1 {
				for j := 1; j <= missed; j++ {
					out = append(out, idx[i-1]+j*gap/(missed+1))
				}
			}

			out = append(out, idx[i])

		default:
			out = append(out, idx[i])
		}
	}

	return out
}

// madBand returns the median interval and its scaled median absolute
// deviation.
func madBand(rr []float64) (med, dev float64) {
	sorted := append([]float64(nil), rr...)
	sort.Float64s(sorted)

	med = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	devs := make([]float64, len(rr))
	for i, v := range rr {
		devs[i] = math.Abs(v - med)
	}
	sort.Float64s(devs)

	return med, madScale * stat.Quantile(0.5, stat.Empirical, devs, nil)
}
