package beatnik

import (
	"errors"
	"fmt"
)

type Config struct {
	// The name of the sample array holding the pulse waveform
	PPGKey string
	// The name of the detection method from the beat package
	Method string
	// The rate of the resampled interval series in Hz
	TargetRate float64
	// The length of one detection window in seconds
	WindowLength int
	// The fractional overlap between detection windows
	Overlap float64
	// The number of interval correction passes
	CorrectionIters int
	// Root directory for derived arrays; empty writes into the dataset
	SaveDir string

	// Where to send per subject progress events
	Reporter Reporter
}

func NewZeroConfig() Config {
	return Config{
		PPGKey:          "Pleth",
		Method:          "msptd",
		TargetRate:      5,
		WindowLength:    60,
		Overlap:         0.2,
		CorrectionIters: 2,
	}
}

func (cfg *Config) Validate() error {
	if cfg.PPGKey == "" {
		return errors.New("ppg key must not be empty")
	}

	if cfg.Method == "" {
		return errors.New("method must not be empty")
	}

	if cfg.TargetRate <= 0 {
		return fmt.Errorf("target rate must be positive (got %g)", cfg.TargetRate)
	}

	switch {
	case cfg.WindowLength < 1:
		return errors.New("window length too small (1s min)")

	case cfg.Overlap < 0 || cfg.Overlap >= 1:
		return fmt.Errorf("overlap out of range [0, 1) (got %g)", cfg.Overlap)

	case cfg.CorrectionIters < 0:
		return errors.New("correction iterations must not be negative")
	}

	return nil
}
