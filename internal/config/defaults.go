package config

const (
	// DefaultWorkingDir is the directory discovery starts from
	DefaultWorkingDir = "."
	// DefaultTestMatch matches names that look like tests
	DefaultTestMatch = `(?:^|[_./-])[Tt]est`
	// DefaultOutputJSONFile is the default output JSON file name
	DefaultOutputJSONFile = "test-results.json"
	// DefaultOutputJSONDir is the default output directory
	DefaultOutputJSONDir = ".nosey"
	// DefaultConfigFile is read from the working directory when present
	DefaultConfigFile = ".nosey.yaml"
	// DefaultVerbosity prints one character per test
	DefaultVerbosity = 1
	// DefaultLogLevel is the level of the tool's own logging
	DefaultLogLevel = "warn"
	// DefaultLogFormat is the handler used for the tool's own logging
	DefaultLogFormat = "text"
)

// DefaultIgnoreFiles are file name patterns never collected
var DefaultIgnoreFiles = []string{
	`^\.`,
	`^_`,
	`_test\.go$`,
}

// DefaultSourceSuffixes are the suffixes of source modules
var DefaultSourceSuffixes = []string{".go"}
