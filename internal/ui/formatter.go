package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"nosey/internal/domain"
)

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	white  = color.New(color.FgWhite)
)

// Formatter formats and displays run summaries and test listings
type Formatter struct {
	w io.Writer
}

// NewFormatter creates a new Formatter writing to w
func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

// PrintMetaStats displays the statistics of a run followed by a tree of
// its failed tests
func (f *Formatter) PrintMetaStats(output *domain.TestResultsOutput) {
	meta := output.Meta

	fmt.Fprintln(f.w)
	cyan.Fprintln(f.w, "╔═══════════════════════════════════════════════════════════════╗")
	cyan.Fprintln(f.w, "║                    Test Execution Statistics                  ║")
	cyan.Fprintln(f.w, "╚═══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(f.w)

	rows := []struct {
		label string
		value string
		c     *color.Color
	}{
		{"Tests Run", fmt.Sprint(meta.TestsRun), white},
		{"Passed", fmt.Sprint(meta.Passed), green},
		{"Failures", fmt.Sprint(meta.Failures), red},
		{"Errors", fmt.Sprint(meta.Errors), red},
		{"Skipped", fmt.Sprint(meta.Skipped), yellow},
		{"Duration", fmt.Sprintf("%.2fs", meta.DurationSeconds), white},
		{"Timestamp", meta.Timestamp, white},
		{"Run ID", meta.RunID, white},
	}

	fmt.Fprintln(f.w, "┌─────────────────────────────────┬─────────────────────────────────────┐")
	for i, row := range rows {
		fmt.Fprintf(f.w, "│ %-31s │ ", row.label)
		row.c.Fprintf(f.w, "%-35s", row.value)
		fmt.Fprintln(f.w, " │")
		if i < len(rows)-1 {
			fmt.Fprintln(f.w, "├─────────────────────────────────┼─────────────────────────────────────┤")
		}
	}
	fmt.Fprintln(f.w, "└─────────────────────────────────┴─────────────────────────────────────┘")

	fmt.Fprintln(f.w)
	if meta.Successful() {
		green.Fprintln(f.w, "✓ All tests passed!")
		return
	}
	red.Fprintf(f.w, "✗ %d failure(s) and %d error(s)\n", meta.Failures, meta.Errors)
	fmt.Fprintln(f.w)
	f.printFailedTestsTree(output.Details)
}

// TreeNode represents a node in the file tree structure
type TreeNode struct {
	Name     string
	Children map[string]*TreeNode
	Failures []domain.TestFailure
	IsFile   bool
}

// BuildFailureTree groups failures under the directories and files they
// were collected from. Failures without a file are listed under "(no file)".
func BuildFailureTree(failures []domain.TestFailure) *TreeNode {
	root := &TreeNode{Children: make(map[string]*TreeNode)}
	for _, failure := range failures {
		path := strings.TrimPrefix(failure.FilePath, "./")
		if path == "" {
			path = "(no file)"
		}
		parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
		current := root
		for i, part := range parts {
			if part == "" {
				continue
			}
			child := current.Children[part]
			if child == nil {
				child = &TreeNode{
					Name:     part,
					Children: make(map[string]*TreeNode),
					IsFile:   i == len(parts)-1,
				}
				current.Children[part] = child
			}
			current = child
		}
		current.Failures = append(current.Failures, failure)
	}
	return root
}

// printFailedTestsTree prints a tree structure of failed tests
func (f *Formatter) printFailedTestsTree(failures []domain.TestFailure) {
	if len(failures) == 0 {
		return
	}
	f.printTreeNode(BuildFailureTree(failures), "")
}

func (f *Formatter) printTreeNode(node *TreeNode, prefix string) {
	var keys []string
	for key := range node.Children {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for i, key := range keys {
		child := node.Children[key]
		last := i == len(keys)-1

		connector, indent := "├── ", "│   "
		if last {
			connector, indent = "└── ", "    "
		}
		if child.IsFile {
			yellow.Fprintf(f.w, "%s%s%s\n", prefix, connector, child.Name)
		} else {
			cyan.Fprintf(f.w, "%s%s%s\n", prefix, connector, child.Name)
		}

		for j, failure := range child.Failures {
			caseConnector := "├── "
			if j == len(child.Failures)-1 && len(child.Children) == 0 {
				caseConnector = "└── "
			}
			red.Fprintf(f.w, "%s%s%s%s %s\n", prefix, indent, caseConnector, failure.Outcome, failure.TestName)
		}

		f.printTreeNode(child, prefix+indent)
	}
}

// PrintTestList prints collected tests grouped by file. Tests whose address
// failed in the last run are marked with [F].
func (f *Formatter) PrintTestList(tests []domain.Test, failed map[string]bool) {
	green.Fprintf(f.w, "Found %d test(s):\n\n", len(tests))

	var files []string
	byFile := make(map[string][]domain.Test)
	for _, t := range tests {
		if _, ok := byFile[t.FilePath]; !ok {
			files = append(files, t.FilePath)
		}
		byFile[t.FilePath] = append(byFile[t.FilePath], t)
	}

	for i, file := range files {
		lastFile := i == len(files)-1
		name := file
		if name == "" {
			name = "(no file)"
		}
		if lastFile {
			cyan.Fprintf(f.w, "└── %s\n", name)
		} else {
			cyan.Fprintf(f.w, "├── %s\n", name)
		}

		cases := byFile[file]
		for j, t := range cases {
			var prefix string
			switch {
			case lastFile && j == len(cases)-1:
				prefix = "    └── "
			case lastFile:
				prefix = "    ├── "
			case j == len(cases)-1:
				prefix = "│   └── "
			default:
				prefix = "│   ├── "
			}

			line := prefix + yellow.Sprint(t.Name)
			if failed[t.Address] {
				line += " " + red.Sprint("[F]")
			}
			if t.Description != "" {
				line += " " + white.Sprint("- "+t.Description)
			}
			fmt.Fprintln(f.w, line)
		}
	}
}
