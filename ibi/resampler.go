// Package ibi derives inter-beat interval series from beat peak
// positions and resamples them onto a regular grid.
package ibi

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// ErrTooFewPeaks marks a peak series too short to carry any interval
// information. Callers usually treat it as a skip, not a failure.
var ErrTooFewPeaks = errors.New("too few peaks for an interval series")

// minPeaks is the smallest peak count the resampler accepts. Two peaks
// make one interval, which pins no curve at all.
const minPeaks = 3

// ResamplerConfig describes the waveform the peaks came from and the
// grid to interpolate onto.
type ResamplerConfig struct {
	// SignalLen is the source waveform length in samples
	SignalLen int
	// SignalRate is the source waveform sampling rate in Hz
	SignalRate float64
	// TargetRate is the output sampling rate in Hz
	TargetRate float64
}

// Resampler turns beat peak positions into a regularly sampled
// inter-beat interval series.
type Resampler interface {
	// Resample interpolates the interval series of peaks onto the
	// configured grid. Peaks are millisecond positions, strictly
	// increasing.
	Resample(peaks []int) ([]float32, error)
}

// NewResampler returns a Resampler backed by cubic spline
// interpolation.
func NewResampler(cfg ResamplerConfig) Resampler {
	return &resampler{cfg: cfg}
}

type resampler struct {
	cfg ResamplerConfig
}

// Intervals computes the inter-beat interval series of a peak
// position series. Both returned slices are in milliseconds: times
// anchors every interval at the peak that closes it, shifted so the
// series starts at the first peak.
func Intervals(peaks []int) (times, durations []float64, err error) {
	if len(peaks) < 2 {
		return nil, nil, errors.Wrapf(ErrTooFewPeaks, "%d peaks", len(peaks))
	}

	durations = make([]float64, len(peaks)-1)

	for i := range durations {
		d := peaks[i+1] - peaks[i]
		if d <= 0 {
			return nil, nil, errors.Errorf(
				"peaks must be strictly increasing (peaks[%d]=%d, peaks[%d]=%d)",
				i, peaks[i], i+1, peaks[i+1])
		}

		durations[i] = float64(d)
	}

	times = floats.CumSum(make([]float64, len(durations)), durations)
	floats.AddConst(float64(peaks[0])-durations[0], times)

	return times, durations, nil
}

func (rs *resampler) Resample(peaks []int) ([]float32, error) {
	if rs.cfg.SignalLen < 0 || rs.cfg.SignalRate <= 0 {
		return nil, errors.Errorf("invalid waveform shape: %d samples at %g Hz",
			rs.cfg.SignalLen, rs.cfg.SignalRate)
	}

	if rs.cfg.TargetRate <= 0 {
		return nil, errors.Errorf("target rate must be positive, got %g", rs.cfg.TargetRate)
	}

	if len(peaks) < minPeaks {
		return nil, errors.Wrapf(ErrTooFewPeaks,
			"%d peaks (need %d)", len(peaks), minPeaks)
	}

	times, durations, err := Intervals(peaks)
	if err != nil {
		return nil, err
	}

	sp, err := newSpline(times, durations)
	if err != nil {
		return nil, err
	}

	// The grid spans the full waveform, not just the detected span, so
	// the output length depends only on waveform duration and rate.
	lenS := float64(rs.cfg.SignalLen) / rs.cfg.SignalRate
	count := int(math.Round(rs.cfg.TargetRate * lenS))

	out := make([]float32, count)

	switch {
	case count < 1:
		return out, nil

	case count == 1:
		out[0] = float32(sp.eval(0))
		return out, nil
	}

	grid := floats.Span(make([]float64, count), 0, 1000*lenS)
	for i, t := range grid {
		out[i] = float32(sp.eval(t))
	}

	return out, nil
}
