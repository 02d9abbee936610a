package beatnik

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/varpu/beatnik/beat"
	"github.com/varpu/beatnik/dataset"
	"github.com/varpu/beatnik/ibi"

	"github.com/pkg/errors"
)

// Process runs beat extraction over every subject of every series in
// the dataset: detect candidate peaks on the configured pulse channel,
// correct the detected series, and persist the peak positions together
// with the resampled inter-beat intervals as derived arrays.
//
// Subjects without a usable channel are reported to the Reporter and
// skipped. Anything pointing at a broken dataset stops the run with an
// error instead.
func Process(ctx context.Context, ds *dataset.Dataset, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	det, err := beat.Init(cfg.Method)
	if err != nil {
		return err
	}

	corr := beat.NewCorrector(beat.CorrectorConfig{
		Iterations: cfg.CorrectionIters,
	})

	rep := cfg.Reporter
	if rep == nil {
		rep = nopReporter{}
	}

	for _, series := range ds.Series {
		rep.SeriesStarted(series.Name, len(series.Subjects))

		for _, subject := range series.Subjects {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "run aborted")
			}

			result, err := processSubject(ds, series.Name, subject, cfg, det, corr)
			if err != nil {
				return errors.Wrapf(err, "series %s subject %s", series.Name, subject.ID)
			}

			rep.SubjectFinished(result)
		}
	}

	return nil
}

func processSubject(
	ds *dataset.Dataset,
	seriesName string,
	subject *dataset.Subject,
	cfg Config,
	det beat.Detector,
	corr beat.Corrector,
) (SubjectResult, error) {
	result := SubjectResult{Series: seriesName, Subject: subject.ID}

	skip := func(reason error) (SubjectResult, error) {
		result.Outcome = OutcomeSkipped
		result.Reason = reason
		return result, nil
	}

	arr, err := subject.Array(cfg.PPGKey)
	if err != nil {
		if errors.Is(err, dataset.ErrArrayNotFound) {
			return skip(err)
		}

		return result, err
	}

	rate, ok := arr.Attributes.Sampling.Rate()
	if !ok || rate <= 0 {
		return result, errors.Errorf("array %q has no usable sampling rate", cfg.PPGKey)
	}

	values, err := arr.Values()
	if err != nil {
		return result, err
	}

	candidates, err := det.Detect(values, rate, beat.DetectorConfig{
		WindowLength: cfg.WindowLength,
		Overlap:      cfg.Overlap,
	})
	if err != nil {
		if errors.Is(err, beat.ErrBadSignal) {
			return skip(err)
		}

		return result, err
	}

	mask := corr.Apply(candidates, beat.TimelineLen(len(values), rate))
	peaks := beat.Indices(mask)

	resampled, err := ibi.NewResampler(ibi.ResamplerConfig{
		SignalLen:  len(values),
		SignalRate: rate,
		TargetRate: cfg.TargetRate,
	}).Resample(peaks)
	if err != nil {
		if errors.Is(err, ibi.ErrTooFewPeaks) {
			return skip(err)
		}

		return result, err
	}

	outDir := subject.Dir
	if cfg.SaveDir != "" {
		outDir = filepath.Join(cfg.SaveDir, ds.Name, seriesName, subject.ID)
	}

	positions := make([]int64, len(peaks))
	for i, p := range peaks {
		positions[i] = int64(p)
	}

	peaksAttrs := dataset.ArrayAttributes{
		Name:      cfg.PPGKey + "_peaks",
		StartTS:   arr.Attributes.StartTS,
		Sampling:  dataset.IrregularSampling(),
		Unit:      "ms",
		SourceKey: cfg.PPGKey,
		Method:    cfg.Method,
	}

	if err := dataset.WriteArray(outDir, peaksAttrs, positions); err != nil {
		return result, err
	}

	ibiAttrs := dataset.ArrayAttributes{
		Name:      ibiArrayName(cfg.PPGKey, cfg.TargetRate),
		StartTS:   arr.Attributes.StartTS,
		Sampling:  dataset.RegularSampling(cfg.TargetRate),
		Unit:      "ms",
		SourceKey: cfg.PPGKey,
		Method:    cfg.Method,
	}

	if err := dataset.WriteArray(outDir, ibiAttrs, resampled); err != nil {
		return result, err
	}

	result.Outcome = OutcomeOK
	result.Peaks = len(peaks)
	result.Arrays = []string{peaksAttrs.Name, ibiAttrs.Name}

	return result, nil
}

// ibiArrayName builds the derived interval array name. The rate lands
// in the name as a whole number of Hz.
func ibiArrayName(key string, rate float64) string {
	return key + "_ibi_" + strconv.Itoa(int(rate)) + "_Hz"
}
