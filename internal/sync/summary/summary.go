// Package summary renders a plan, and later its outcome, as the plain-text
// report operators review before confirming a run.
package summary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/dl-alexandre/ftpfetch/internal/sync/diff"
	"github.com/dl-alexandre/ftpfetch/internal/sync/executor"
	"github.com/dl-alexandre/ftpfetch/internal/sync/tree"
)

const (
	noChanges        = "No changes"
	downloadsHeading = "--- == Downloads == ---"
	deletionsHeading = "--- == Deletions == ---"
	resultHeading    = "--- == Result == ---"
)

// Writer saves summaries to one file, replacing it each time.
type Writer struct {
	fs   afero.Fs
	path string
}

func NewWriter(fs afero.Fs, path string) *Writer {
	return &Writer{fs: fs, path: path}
}

func (w *Writer) Path() string {
	return w.path
}

// SavePlan writes the pending plan.
func (w *Writer) SavePlan(plan diff.Plan) error {
	var buf bytes.Buffer
	if err := WritePlan(&buf, plan); err != nil {
		return err
	}
	return w.save(buf.Bytes())
}

// SaveReport writes the plan annotated with each action's outcome.
func (w *Writer) SaveReport(report executor.Report) error {
	var buf bytes.Buffer
	if err := WriteReport(&buf, report); err != nil {
		return err
	}
	return w.save(buf.Bytes())
}

func (w *Writer) save(data []byte) error {
	if err := afero.WriteFile(w.fs, w.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary %s: %w", w.path, err)
	}
	return nil
}

// WritePlan lists downloads (directories first) and deletions (files first).
func WritePlan(out io.Writer, plan diff.Plan) error {
	if plan.Empty() {
		_, err := io.WriteString(out, noChanges)
		return err
	}
	lines := func(a diff.Action) string { return display(a) }
	return write(out, plan.Actions, lines, "")
}

// WriteReport is WritePlan with a status after every path and a tally.
func WriteReport(out io.Writer, report executor.Report) error {
	if len(report.Outcomes) == 0 {
		_, err := io.WriteString(out, noChanges)
		return err
	}

	status := make(map[string]string, len(report.Outcomes))
	actions := make([]diff.Action, len(report.Outcomes))
	for i, o := range report.Outcomes {
		actions[i] = o.Action
		status[key(o.Action)] = statusOf(o)
	}
	line := func(a diff.Action) string {
		return display(a) + "  " + status[key(a)]
	}

	failed := len(report.Failed())
	footer := fmt.Sprintf("\n%s\nSucceeded: %d   Failed: %d   Bytes: %d",
		resultHeading, report.Succeeded(), failed, report.Bytes())
	if report.DryRun {
		footer += "   (dry run)"
	}
	return write(out, actions, line, footer)
}

func write(out io.Writer, actions []diff.Action, line func(diff.Action) string, footer string) error {
	var dirs, files, deletedFiles, deletedDirs []diff.Action
	for _, a := range actions {
		switch {
		case a.Type == diff.ActionCreateDir:
			dirs = append(dirs, a)
		case a.Type == diff.ActionFetch:
			files = append(files, a)
		case a.Type == diff.ActionDelete && a.Kind == tree.KindDir:
			deletedDirs = append(deletedDirs, a)
		case a.Type == diff.ActionDelete:
			deletedFiles = append(deletedFiles, a)
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Downloads: %d   Deletions: %d\n", len(dirs)+len(files), len(deletedFiles)+len(deletedDirs))
	buf.WriteString(downloadsHeading)
	for _, group := range [][]diff.Action{dirs, files} {
		for _, a := range group {
			buf.WriteString("\n" + line(a))
		}
	}
	buf.WriteString("\n" + deletionsHeading)
	for _, group := range [][]diff.Action{deletedFiles, deletedDirs} {
		for _, a := range group {
			buf.WriteString("\n" + line(a))
		}
	}
	buf.WriteString(footer)

	_, err := out.Write(buf.Bytes())
	return err
}

func display(a diff.Action) string {
	return "/" + a.Path.String()
}

func key(a diff.Action) string {
	return string(a.Type) + ":" + a.Path.String()
}

func statusOf(o executor.Outcome) string {
	switch {
	case o.Skipped:
		return "skipped"
	case o.Err != nil:
		return "FAILED: " + o.Err.Error()
	default:
		return "ok"
	}
}
