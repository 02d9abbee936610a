package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/varpu/beatnik"
	"github.com/varpu/beatnik/beat"
	"github.com/varpu/beatnik/dataset"

	"github.com/integrii/flaggy"
)

// AppName is the app name
const AppName = "beatnik"

// AppDesc is the app description
const AppDesc = "Beat Extraction And Timed Normalization of Interval Kinetics"

// AppSite is the app website
const AppSite = "https://github.com/varpu/beatnik"

var version = "unknown"

func main() {
	log.SetFlags(0)

	cfg := newZeroConfig()

	if doFlags(&cfg) {
		return
	}

	chk(cfg.validate(), "invalid config")

	log.Printf("reading dataset from %s", cfg.dsDir)

	ds, err := dataset.Read(cfg.dsDir)
	chk(err, "failed to read dataset")

	rep := &logReporter{}

	runCfg := beatnik.Config{
		PPGKey:          cfg.ppgKey,
		Method:          cfg.method,
		TargetRate:      cfg.fsInterp,
		WindowLength:    cfg.winLen,
		Overlap:         cfg.overlap,
		CorrectionIters: cfg.correctionIters,
		SaveDir:         cfg.saveDir,
		Reporter:        rep,
	}

	// Root Context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	chk(beatnik.Process(ctx, ds, runCfg), "failed to process dataset")

	log.Printf("done: %d processed, %d skipped", rep.done, rep.skipped)
}

func doFlags(cfg *config) bool {

	parser := flaggy.NewParser(AppName)
	parser.Description = AppDesc
	parser.AdditionalHelpPrepend = AppSite
	parser.Version = version

	listMethodsCmd := flaggy.Subcommand{
		Name:        "list-methods",
		ShortName:   "lm",
		Description: "list all peak detection methods",
	}

	parser.AttachSubcommand(&listMethodsCmd, 1)

	parser.String(&cfg.dsDir, "ds", "ds-dir", "dataset root directory (required)")
	parser.String(&cfg.ppgKey, "k", "ppg-key", "sample array holding the pulse waveform")
	parser.String(&cfg.method, "m", "peak-detection-method", "detection method from list-methods")
	parser.Float64(&cfg.fsInterp, "fi", "fs-interp", "rate of the resampled interval series in Hz")
	parser.Int(&cfg.winLen, "wl", "win-len", "detection window length in seconds")
	parser.Float64(&cfg.overlap, "ov", "overlap", "fractional overlap between detection windows [0, 1)")
	parser.Int(&cfg.correctionIters, "ci", "correction-iters", "number of interval correction passes")
	parser.String(&cfg.saveDir, "sd", "savedir", "write derived arrays under this root instead of the dataset")

	chk(parser.Parse(), "failed to parse arguments")

	if listMethodsCmd.Used {
		for _, method := range beat.Detectors {
			fmt.Printf("- %s\n", method.Name)
		}

		return true
	}

	return false
}

// logReporter prints per subject progress to the standard logger.
type logReporter struct {
	done    int
	skipped int
}

func (r *logReporter) SeriesStarted(name string, subjects int) {
	log.Printf("series %s: %d subjects", name, subjects)
}

func (r *logReporter) SubjectFinished(result beatnik.SubjectResult) {
	switch result.Outcome {
	case beatnik.OutcomeSkipped:
		r.skipped++
		log.Printf("  %s: skipping: %v", result.Subject, result.Reason)

	default:
		r.done++
		log.Printf("  %s: %d peaks -> %s",
			result.Subject, result.Peaks, strings.Join(result.Arrays, ", "))
	}
}

func chk(err error, wrap string) {
	if err != nil {
		log.Fatalln(wrap+": ", err)
	}
}
