package domain

// TestFailure represents a test that failed or errored in a run
type TestFailure struct {
	TestName   string   `json:"test_name"`
	Address    string   `json:"address"`
	FilePath   string   `json:"file_path"`
	Outcome    string   `json:"outcome"`
	ErrorType  string   `json:"error_type"`
	Message    string   `json:"message"`
	StackTrace []string `json:"stack_trace,omitempty"`
	File       string   `json:"file,omitempty"`
	Line       int      `json:"line,omitempty"`
	Resolved   bool     `json:"resolved,omitempty"` // Track if the failure is marked as resolved in the viewer
}
