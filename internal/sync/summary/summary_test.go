package summary

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dl-alexandre/ftpfetch/internal/sync/diff"
	"github.com/dl-alexandre/ftpfetch/internal/sync/executor"
	"github.com/dl-alexandre/ftpfetch/internal/sync/paths"
	"github.com/dl-alexandre/ftpfetch/internal/sync/tree"
)

func action(t diff.ActionType, p string, kind tree.Kind) diff.Action {
	return diff.Action{Type: t, Path: paths.MustNormalize(p), Kind: kind}
}

func samplePlan() diff.Plan {
	return diff.Plan{Actions: []diff.Action{
		action(diff.ActionDelete, "old/stale.txt", tree.KindFile),
		action(diff.ActionDelete, "old", tree.KindDir),
		action(diff.ActionDelete, "gone.txt", tree.KindFile),
		action(diff.ActionCreateDir, "x", tree.KindDir),
		action(diff.ActionFetch, "x/y.txt", tree.KindFile),
		action(diff.ActionFetch, "top.txt", tree.KindFile),
	}}
}

func TestWritePlan(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlan(&buf, samplePlan()))

	want := "Downloads: 3   Deletions: 3\n" +
		"--- == Downloads == ---\n" +
		"/x\n" +
		"/x/y.txt\n" +
		"/top.txt\n" +
		"--- == Deletions == ---\n" +
		"/old/stale.txt\n" +
		"/gone.txt\n" +
		"/old"
	assert.Equal(t, want, buf.String())
}

func TestWritePlanEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlan(&buf, diff.Plan{}))
	assert.Equal(t, "No changes", buf.String())
}

func TestWriteReport(t *testing.T) {
	plan := diff.Plan{Actions: []diff.Action{
		action(diff.ActionDelete, "gone.txt", tree.KindFile),
		action(diff.ActionCreateDir, "x", tree.KindDir),
		action(diff.ActionFetch, "x/y.txt", tree.KindFile),
		action(diff.ActionFetch, "x/z.txt", tree.KindFile),
	}}
	report := executor.Report{Outcomes: []executor.Outcome{
		{Action: plan.Actions[0]},
		{Action: plan.Actions[1]},
		{Action: plan.Actions[2], Bytes: 10},
		{Action: plan.Actions[3], Err: errors.New("connection reset")},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, report))

	out := buf.String()
	assert.Contains(t, out, "Downloads: 3   Deletions: 1\n")
	assert.Contains(t, out, "/x  ok\n")
	assert.Contains(t, out, "/x/y.txt  ok\n")
	assert.Contains(t, out, "/x/z.txt  FAILED: connection reset\n")
	assert.Contains(t, out, "/gone.txt  ok\n")
	assert.Contains(t, out, "--- == Result == ---\nSucceeded: 3   Failed: 1   Bytes: 10")
	assert.NotContains(t, out, "(dry run)")
}

func TestWriteReportDryRun(t *testing.T) {
	a := action(diff.ActionFetch, "a.txt", tree.KindFile)
	report := executor.Report{DryRun: true, Outcomes: []executor.Outcome{{Action: a, Skipped: true}}}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, report))
	assert.Contains(t, buf.String(), "/a.txt  skipped")
	assert.Contains(t, buf.String(), "Succeeded: 0   Failed: 0   Bytes: 0   (dry run)")
}

func TestWriterReplacesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, "/work/summary.txt")
	require.NoError(t, fs.MkdirAll("/work", 0o755))

	require.NoError(t, w.SavePlan(samplePlan()))
	require.NoError(t, w.SavePlan(diff.Plan{}))

	data, err := afero.ReadFile(fs, w.Path())
	require.NoError(t, err)
	assert.Equal(t, "No changes", string(data))
}

func TestWriterReportsWriteFailure(t *testing.T) {
	w := NewWriter(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/summary.txt")
	err := w.SavePlan(samplePlan())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/summary.txt")
}
