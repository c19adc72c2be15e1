package domain

// SchemaResult represents the outcome of preparing one report table
type SchemaResult struct {
	Table   string
	Created bool
	Error   error
}
