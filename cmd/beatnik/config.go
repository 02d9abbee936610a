package main

import (
	"errors"
	"fmt"
)

// config is the command line surface before it becomes a
// beatnik.Config.
type config struct {
	// dsDir is the dataset root directory
	dsDir string
	// ppgKey is the sample array holding the pulse waveform
	ppgKey string
	// method is the detection method from list-methods
	method string
	// fsInterp is the rate of the resampled interval series in Hz
	fsInterp float64
	// winLen is the detection window length in seconds
	winLen int
	// overlap is the fractional overlap between detection windows
	overlap float64
	// correctionIters is the number of interval correction passes
	correctionIters int
	// saveDir roots the output outside the dataset when set
	saveDir string
}

func newZeroConfig() config {
	return config{
		ppgKey:          "Pleth",
		method:          "msptd",
		fsInterp:        5,
		winLen:          60,
		overlap:         0.2,
		correctionIters: 2,
	}
}

func (cfg *config) validate() error {
	if cfg.dsDir == "" {
		return errors.New("--ds-dir is required")
	}

	if cfg.fsInterp <= 0 {
		return fmt.Errorf("fs-interp must be positive (got %g)", cfg.fsInterp)
	}

	switch {
	case cfg.winLen < 1:
		return errors.New("window length too small (1s min)")

	case cfg.overlap < 0 || cfg.overlap >= 1:
		return fmt.Errorf("overlap out of range [0, 1) (got %g)", cfg.overlap)

	case cfg.correctionIters < 0:
		return errors.New("correction iterations must not be negative")
	}

	return nil
}
