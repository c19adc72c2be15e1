package ui

import "nosey/internal/domain"

// Viewer displays the failures of a run
type Viewer interface {
	View(results *domain.TestResultsOutput) error
}
