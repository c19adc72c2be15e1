package domain

// TestResultsMeta contains metadata about a test run
type TestResultsMeta struct {
	RunID           string   `json:"run_id"`
	WorkingDir      string   `json:"working_dir"`
	Names           []string `json:"names,omitempty"`
	TestsRun        int      `json:"tests_run"`
	Passed          int      `json:"passed"`
	Failures        int      `json:"failures"`
	Errors          int      `json:"errors"`
	Skipped         int      `json:"skipped"`
	Duration        string   `json:"duration"`
	DurationSeconds float64  `json:"duration_seconds"`
	Timestamp       string   `json:"timestamp"`
}

// Successful reports whether the run had no failures and no errors
func (m TestResultsMeta) Successful() bool {
	return m.Failures == 0 && m.Errors == 0
}

// TestResultsOutput is the complete output structure for test results
type TestResultsOutput struct {
	Meta    TestResultsMeta `json:"meta"`
	Details []TestFailure   `json:"details"`
}

// FailedAddresses returns the addresses of unresolved failures, in order
// and without duplicates.
func (o *TestResultsOutput) FailedAddresses() []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range o.Details {
		if d.Resolved || d.Address == "" || seen[d.Address] {
			continue
		}
		seen[d.Address] = true
		out = append(out, d.Address)
	}
	return out
}
