package suite

// Outcome is the final state of a single test.
type Outcome int

const (
	Passed Outcome = iota
	Failed
	Errored
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "ok"
	case Failed:
		return "FAIL"
	case Errored:
		return "ERROR"
	case Skipped:
		return "SKIP"
	default:
		return "UNKNOWN"
	}
}

// Record is one reported outcome.
type Record struct {
	Test    Test
	Outcome Outcome
	Err     error
	Reason  string
}

// Results accumulates outcomes in memory.
type Results struct {
	TestsRun      int
	Successes     int
	Failures      []Record
	Errors        []Record
	Skips         []Record
	StopOnFailure bool

	stop bool
}

// NewResults creates a new Results
func NewResults(stopOnFailure bool) *Results {
	return &Results{StopOnFailure: stopOnFailure}
}

func (r *Results) StartTest(t Test) { r.TestsRun++ }

func (r *Results) StopTest(t Test) {}

func (r *Results) AddSuccess(t Test) { r.Successes++ }

func (r *Results) AddFailure(t Test, err error) {
	r.Failures = append(r.Failures, Record{Test: t, Outcome: Failed, Err: err})
	if r.StopOnFailure {
		r.stop = true
	}
}

func (r *Results) AddError(t Test, err error) {
	r.Errors = append(r.Errors, Record{Test: t, Outcome: Errored, Err: err})
	if r.StopOnFailure {
		r.stop = true
	}
}

func (r *Results) AddSkip(t Test, reason string) {
	r.Skips = append(r.Skips, Record{Test: t, Outcome: Skipped, Reason: reason})
}

// ShouldStop reports whether the run should end before the next test.
func (r *Results) ShouldStop() bool { return r.stop }

// Stop asks the run to end before the next test.
func (r *Results) Stop() { r.stop = true }

// WasSuccessful reports whether nothing failed or errored.
func (r *Results) WasSuccessful() bool {
	return len(r.Failures) == 0 && len(r.Errors) == 0
}
