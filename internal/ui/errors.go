package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"nosey/internal/domain"
	"nosey/internal/storage"
)

// maxTraceLines bounds the stack shown in the details pane.
const maxTraceLines = 10

// ErrorViewer displays the failures of the last run in an interactive TUI
type ErrorViewer struct {
	storage storage.Storage
	out     io.Writer
}

// NewErrorViewer creates a new ErrorViewer. Resolved marks are saved
// back through st.
func NewErrorViewer(st storage.Storage, out io.Writer) *ErrorViewer {
	return &ErrorViewer{storage: st, out: out}
}

// View displays the failures of results until the user quits
func (ev *ErrorViewer) View(results *domain.TestResultsOutput) error {
	if len(results.Details) == 0 {
		green.Fprintln(ev.out, "✓ No test failures found!")
		return nil
	}

	app := tview.NewApplication()

	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	for i := range results.Details {
		list.AddItem(listItemText(results.Details[i], i), "", 0, nil)
	}
	list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan).
		SetSecondaryTextColor(tview.Styles.SecondaryTextColor)

	statsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false).
		SetWordWrap(false)

	detailsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)

	detailsContainer := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(detailsView, 0, 1, false).
		AddItem(tview.NewBox(), 2, 0, false)

	rightSide := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(statsView, 3, 0, false).
		AddItem(detailsContainer, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(list, 0, 1, true).
		AddItem(rightSide, 0, 2, false)

	headerView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true)

	updateHeader := func() {
		headerView.SetText(headerText(results))
	}
	updateHeader()

	updateDetails := func() {
		index := list.GetCurrentItem()
		if index >= 0 && index < len(results.Details) {
			statsView.SetText(formatFailureStats(results.Details[index], index+1))
			detailsView.SetText(formatFailureDetails(results.Details[index]))
		}
	}

	var saveErr error
	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter, tcell.KeyRight:
			app.SetFocus(detailsView)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		case tcell.KeyRune:
			if event.Rune() != 'r' && event.Rune() != 'R' {
				return event
			}
			index := list.GetCurrentItem()
			if index < 0 || index >= len(results.Details) {
				return nil
			}
			ToggleResolved(results, index)
			list.SetItemText(index, listItemText(results.Details[index], index), "")
			updateHeader()
			updateDetails()
			if err := ev.storage.Save(results); err != nil {
				saveErr = fmt.Errorf("failed to save resolved status: %w", err)
			}
			return nil
		}
		return event
	})

	detailsView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyLeft, tcell.KeyEsc:
			app.SetFocus(list)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		}
		return event
	})

	list.SetChangedFunc(func(int, string, string, rune) {
		updateDetails()
	})
	updateDetails()

	mainLayout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(headerView, 1, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(flex, 0, 1, true)

	if err := app.SetRoot(mainLayout, true).SetFocus(list).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return saveErr
}

// ToggleResolved flips the resolved mark of the failure at index
func ToggleResolved(results *domain.TestResultsOutput, index int) {
	results.Details[index].Resolved = !results.Details[index].Resolved
}

// CountUnresolved returns the number of failures not marked resolved
func CountUnresolved(results *domain.TestResultsOutput) int {
	count := 0
	for _, d := range results.Details {
		if !d.Resolved {
			count++
		}
	}
	return count
}

func headerText(results *domain.TestResultsOutput) string {
	return fmt.Sprintf(" Test Failures (%d total, %d unresolved) | Use ↑↓ to navigate, [yellow]R[white] to mark resolved, → to view details, ← to go back, Ctrl+C to exit ",
		len(results.Details), CountUnresolved(results))
}

func listItemText(failure domain.TestFailure, index int) string {
	name := failure.TestName
	if name == "" {
		name = fmt.Sprintf("Test %d", index+1)
	}
	if failure.Resolved {
		return fmt.Sprintf("[gray]✓ [yellow]%d.[gray] %s[white]", index+1, name)
	}
	return fmt.Sprintf("[yellow]%d.[white] %s", index+1, name)
}

// formatFailureDetails formats a failure using tview color tags
func formatFailureDetails(failure domain.TestFailure) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[red]✗ %s: %s[white]\n\n", failure.Outcome, failure.TestName)

	if failure.Address != "" {
		fmt.Fprintf(&b, "[cyan]Address: %s[white]\n", failure.Address)
	}
	if failure.File != "" && failure.Line > 0 {
		fmt.Fprintf(&b, "[yellow]Location: %s:%d[white]\n", failure.File, failure.Line)
	}
	fmt.Fprintln(&b)

	if failure.ErrorType != "" {
		fmt.Fprintf(&b, "[yellow]Type:[white] %s\n\n", failure.ErrorType)
	}
	if failure.Message != "" {
		fmt.Fprintf(&b, "[yellow]Message:[white]\n%s\n\n", tview.Escape(failure.Message))
	}

	if len(failure.StackTrace) > 0 {
		fmt.Fprintf(&b, "[yellow]Stack Trace:[white]\n")
		for i, trace := range failure.StackTrace {
			if i == maxTraceLines {
				fmt.Fprintf(&b, "  [gray]... and %d more lines[white]\n", len(failure.StackTrace)-maxTraceLines)
				break
			}
			fmt.Fprintf(&b, "  %s\n", tview.Escape(trace))
		}
	}
	return b.String()
}

// formatFailureStats formats the header line of a failure
func formatFailureStats(failure domain.TestFailure, number int) string {
	path := failure.FilePath
	if path == "" {
		path = "Unknown path"
	}
	name := failure.TestName
	if name == "" {
		name = fmt.Sprintf("Test %d", number)
	}
	return fmt.Sprintf("[cyan]path:[white] [yellow]%s[white]::[yellow]%s[white]\n", path, name)
}
