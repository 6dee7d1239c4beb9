package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"github.com/dl-alexandre/ftpfetch/internal/types"
	"github.com/dl-alexandre/ftpfetch/internal/utils"
)

// exitError carries the process exit code of a command that already reported
// its failure.
type exitError struct {
	code   int
	cliErr types.CLIError
}

func (e *exitError) Error() string {
	return e.cliErr.Code + ": " + e.cliErr.Message
}

// OutputWriter handles CLI output formatting
type OutputWriter struct {
	format   types.OutputFormat
	quiet    bool
	verbose  bool
	traceID  string
	out      io.Writer
	errOut   io.Writer
	warnings []types.CLIWarning
}

// NewOutputWriter creates a new output writer
func NewOutputWriter(format types.OutputFormat, quiet, verbose bool) *OutputWriter {
	return &OutputWriter{
		format:   format,
		quiet:    quiet,
		verbose:  verbose,
		out:      os.Stdout,
		errOut:   os.Stderr,
		warnings: []types.CLIWarning{},
	}
}

// SetWriters redirects results and diagnostics.
func (w *OutputWriter) SetWriters(out, errOut io.Writer) *OutputWriter {
	w.out = out
	w.errOut = errOut
	return w
}

// SetTraceID makes the envelope carry the run id instead of a fresh uuid.
func (w *OutputWriter) SetTraceID(id string) {
	w.traceID = id
}

func (w *OutputWriter) currentTraceID() string {
	if w.traceID == "" {
		w.traceID = uuid.New().String()
	}
	return w.traceID
}

// AddWarning adds a warning to the output
func (w *OutputWriter) AddWarning(code, message, severity string) {
	w.warnings = append(w.warnings, types.CLIWarning{
		Code:     code,
		Message:  message,
		Severity: severity,
	})
}

// WriteSuccess writes a successful result
func (w *OutputWriter) WriteSuccess(command string, data interface{}) error {
	if w.format == types.OutputFormatJSON {
		return w.writeJSON(w.envelope(command, data, nil))
	}
	return w.writeTable(command, data)
}

// WritePartial writes a result whose actions partly failed and returns the
// partial failure exit error.
func (w *OutputWriter) WritePartial(command string, data interface{}, errs []types.CLIError) error {
	summary := utils.NewCLIError(utils.ErrCodePartialFailure,
		fmt.Sprintf("%d actions failed", len(errs))).Build()

	if w.format == types.OutputFormatJSON {
		if err := w.writeJSON(w.envelope(command, data, errs)); err != nil {
			return err
		}
	} else {
		if err := w.writeTable(command, data); err != nil {
			return err
		}
		fmt.Fprintf(w.errOut, "Error [%s]: %s\n", summary.Code, summary.Message)
	}
	return &exitError{code: utils.ExitPartialFailure, cliErr: summary}
}

// WriteError writes an error result and returns it as an exit error.
func (w *OutputWriter) WriteError(command string, cliErr types.CLIError) error {
	exit := &exitError{code: utils.GetExitCode(cliErr.Code), cliErr: cliErr}
	if w.format == types.OutputFormatJSON {
		if err := w.writeJSON(w.envelope(command, nil, []types.CLIError{cliErr})); err != nil {
			return err
		}
		return exit
	}

	msg := fmt.Sprintf("Error [%s]: %s", cliErr.Code, cliErr.Message)
	if cliErr.FTPStatus != 0 {
		msg += fmt.Sprintf(" (FTP %d)", cliErr.FTPStatus)
	}
	fmt.Fprintln(w.errOut, msg)
	if action, ok := cliErr.Context["suggestedAction"].(string); ok && action != "" {
		fmt.Fprintln(w.errOut, "  "+action)
	}
	return exit
}

func (w *OutputWriter) envelope(command string, data interface{}, errs []types.CLIError) types.CLIOutput {
	if errs == nil {
		errs = []types.CLIError{}
	}
	return types.CLIOutput{
		SchemaVersion: utils.SchemaVersion,
		TraceID:       w.currentTraceID(),
		Command:       command,
		Data:          data,
		Warnings:      w.warnings,
		Errors:        errs,
	}
}

func (w *OutputWriter) writeJSON(output types.CLIOutput) error {
	encoder := json.NewEncoder(w.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func (w *OutputWriter) writeTable(command string, data interface{}) error {
	for _, warning := range w.warnings {
		fmt.Fprintf(w.errOut, "%s: %s\n", warning.Severity, warning.Message)
	}
	if renderable, ok := data.(types.TableRenderable); ok {
		return w.renderTable(renderable.AsTableRenderer())
	}
	if renderer, ok := data.(types.TableRenderer); ok {
		return w.renderTable(renderer)
	}
	// Fallback to JSON for types without a table form
	return w.writeJSON(w.envelope(command, data, nil))
}

func (w *OutputWriter) renderTable(renderer types.TableRenderer) error {
	rows := renderer.Rows()
	if len(rows) == 0 {
		if !w.quiet {
			fmt.Fprintln(w.out, renderer.EmptyMessage())
		}
		return nil
	}

	table := tablewriter.NewWriter(w.out)
	table.SetHeader(renderer.Headers())
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, row := range rows {
		table.Append(row)
	}

	table.Render()
	return nil
}

// Log writes to stderr if not quiet
func (w *OutputWriter) Log(format string, args ...interface{}) {
	if !w.quiet {
		fmt.Fprintf(w.errOut, format+"\n", args...)
	}
}

// Verbose writes to stderr if verbose is enabled
func (w *OutputWriter) Verbose(format string, args ...interface{}) {
	if w.verbose {
		fmt.Fprintf(w.errOut, "[VERBOSE] "+format+"\n", args...)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
