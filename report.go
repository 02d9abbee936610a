package beatnik

// Outcome classifies how a subject went through a run.
type Outcome int

const (
	// OutcomeOK means both derived arrays were written
	OutcomeOK Outcome = iota
	// OutcomeSkipped means the subject was left out for a recoverable
	// reason, like a missing channel or an unusable signal
	OutcomeSkipped
)

func (o Outcome) String() string {
	if o == OutcomeSkipped {
		return "skipped"
	}

	return "ok"
}

// SubjectResult is the outcome of one subject.
type SubjectResult struct {
	// Series and Subject locate the subject in the dataset
	Series  string
	Subject string
	// Outcome is what happened
	Outcome Outcome
	// Reason is the skip reason, nil when the subject went through
	Reason error
	// Peaks is the corrected beat count of a processed subject
	Peaks int
	// Arrays names the arrays written for a processed subject
	Arrays []string
}

// Reporter receives progress events during a run. The pipeline never
// logs on its own; wire a Reporter to see what it is doing.
type Reporter interface {
	// SeriesStarted fires before the subjects of a series are processed
	SeriesStarted(name string, subjects int)
	// SubjectFinished fires after every subject
	SubjectFinished(result SubjectResult)
}

type nopReporter struct{}

func (nopReporter) SeriesStarted(string, int)     {}
func (nopReporter) SubjectFinished(SubjectResult) {}
