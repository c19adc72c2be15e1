package domain

// Test represents a collected test as shown by the list command
type Test struct {
	Name        string // Full dotted name of the test
	Address     string // Address the test can be loaded back from
	FilePath    string // Relative file path
	Description string // Short description, if any
}
