package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/dl-alexandre/ftpfetch/internal/types"
	"github.com/dl-alexandre/ftpfetch/internal/utils"
)

func TestWriteErrorReturnsExitCode(t *testing.T) {
	var out, errOut bytes.Buffer
	w := NewOutputWriter(types.OutputFormatTable, false, false).SetWriters(&out, &errOut)

	cliErr := utils.NewCLIError(utils.ErrCodeListingFailed, "cannot list /pub").
		WithFTPStatus(550).
		WithContext("suggestedAction", "Check the remote_root setting").
		Build()
	err := w.WriteError("sync", cliErr)

	var exit *exitError
	if !errors.As(err, &exit) {
		t.Fatalf("WriteError() = %v, want *exitError", err)
	}
	if exit.code != utils.ExitListingFailed {
		t.Errorf("exit code = %d, want %d", exit.code, utils.ExitListingFailed)
	}
	if got := errOut.String(); !strings.Contains(got, "Error [LISTING_FAILED]: cannot list /pub (FTP 550)") ||
		!strings.Contains(got, "Check the remote_root setting") {
		t.Errorf("stderr = %q", got)
	}
	if out.Len() != 0 {
		t.Errorf("stdout = %q, want empty", out.String())
	}
}

func TestWriteErrorJSON(t *testing.T) {
	var out bytes.Buffer
	w := NewOutputWriter(types.OutputFormatJSON, false, false).SetWriters(&out, &bytes.Buffer{})
	w.SetTraceID("run-1")

	_ = w.WriteError("plan", utils.NewCLIError(utils.ErrCodeInvalidPath, "bad path").Build())

	var env types.CLIOutput
	if err := json.Unmarshal(out.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if env.TraceID != "run-1" || env.Command != "plan" || env.SchemaVersion != utils.SchemaVersion {
		t.Errorf("envelope = %+v", env)
	}
	if len(env.Errors) != 1 || env.Errors[0].Code != utils.ErrCodeInvalidPath {
		t.Errorf("errors = %+v", env.Errors)
	}
}

func TestWritePartial(t *testing.T) {
	var out, errOut bytes.Buffer
	w := NewOutputWriter(types.OutputFormatTable, false, false).SetWriters(&out, &errOut)

	view := runView{Actions: []actionView{
		{Type: "fetch", Path: "/a.txt", Status: "failed", Error: "426 aborted"},
		{Type: "fetch", Path: "/b.txt", Status: "ok", Bytes: 2048},
	}}
	err := w.WritePartial("sync", view, view.actionErrors())

	var exit *exitError
	if !errors.As(err, &exit) || exit.code != utils.ExitPartialFailure {
		t.Fatalf("WritePartial() = %v, want partial failure exit", err)
	}
	if !strings.Contains(out.String(), "/a.txt") || !strings.Contains(out.String(), "2.0 KB") {
		t.Errorf("table = %q", out.String())
	}
	if !strings.Contains(errOut.String(), "1 actions failed") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestWriteSuccessEmptyTable(t *testing.T) {
	var out bytes.Buffer
	w := NewOutputWriter(types.OutputFormatTable, false, false).SetWriters(&out, &bytes.Buffer{})

	if err := w.WriteSuccess("history", historyView{}); err != nil {
		t.Fatalf("WriteSuccess() error = %v", err)
	}
	if strings.TrimSpace(out.String()) != "No runs recorded" {
		t.Errorf("output = %q", out.String())
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for in, want := range tests {
		if got := formatSize(in); got != want {
			t.Errorf("formatSize(%d) = %q, want %q", in, got, want)
		}
	}
}
