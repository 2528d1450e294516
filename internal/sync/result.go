package sync

// Outcome classifies what a run did with one conversation. Terminal: a
// record settles on exactly one outcome per run.
type Outcome int

// Outcome values.
const (
	OutcomeCreated Outcome = iota
	OutcomeAppended
	OutcomeOverwritten
	OutcomeUnchanged
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAppended:
		return "appended"
	case OutcomeOverwritten:
		return "overwritten"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is the overall verdict of a run, mapped to process exit codes by
// the CLI (0 / 1 / 2).
type Status int

// Status values.
const (
	StatusSuccess Status = iota
	StatusPartialFailure
	StatusFatal
)

// ExitCode returns the conventional process exit code for the status.
func (s Status) ExitCode() int {
	return int(s)
}

// Result aggregates per-record outcomes into run totals.
type Result struct {
	Processed   int
	Created     int
	Appended    int
	Overwritten int
	Unchanged   int
	Failed      int
	Archived    int
}

func (r *Result) record(o Outcome) {
	r.Processed++

	switch o {
	case OutcomeCreated:
		r.Created++
	case OutcomeAppended:
		r.Appended++
	case OutcomeOverwritten:
		r.Overwritten++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeFailed:
		r.Failed++
	}
}

// Status reports Success for a clean run and PartialFailure when any record
// failed. Fatal conditions surface as errors from Run, not through Result.
func (r *Result) Status() Status {
	if r.Failed > 0 {
		return StatusPartialFailure
	}

	return StatusSuccess
}
