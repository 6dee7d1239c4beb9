package cli

import (
	"strconv"
	"time"

	syncengine "github.com/dl-alexandre/ftpfetch/internal/sync"
	"github.com/dl-alexandre/ftpfetch/internal/sync/diff"
	"github.com/dl-alexandre/ftpfetch/internal/sync/executor"
	"github.com/dl-alexandre/ftpfetch/internal/sync/index"
	"github.com/dl-alexandre/ftpfetch/internal/types"
)

type actionView struct {
	Type   string `json:"type"`
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Size   int64  `json:"size,omitempty"`
	Status string `json:"status,omitempty"`
	Bytes  int64  `json:"bytes,omitempty"`
	Error  string `json:"error,omitempty"`
}

type countsView struct {
	CreateDirs int   `json:"createDirs"`
	Fetches    int   `json:"fetches"`
	Deletes    int   `json:"deletes"`
	FetchBytes int64 `json:"fetchBytes"`
}

func newCountsView(c diff.Counts) countsView {
	return countsView{CreateDirs: c.CreateDirs, Fetches: c.Fetches, Deletes: c.Deletes, FetchBytes: c.FetchBytes}
}

func newActionView(a diff.Action) actionView {
	return actionView{
		Type: string(a.Type),
		Path: "/" + a.Path.String(),
		Kind: string(a.Kind),
		Size: a.Size,
	}
}

// planView is the output of `plan`.
type planView struct {
	RunID      string       `json:"runId"`
	RemoteRoot string       `json:"remoteRoot"`
	LocalRoot  string       `json:"localRoot"`
	Counts     countsView   `json:"counts"`
	Actions    []actionView `json:"actions"`
}

func newPlanView(p syncengine.Plan) planView {
	v := planView{
		RunID:      p.RunID,
		RemoteRoot: p.RemoteRoot,
		LocalRoot:  p.Job.LocalRoot,
		Counts:     newCountsView(p.Diff.Counts()),
		Actions:    make([]actionView, 0, len(p.Diff.Actions)),
	}
	for _, a := range p.Diff.Actions {
		v.Actions = append(v.Actions, newActionView(a))
	}
	return v
}

func (v planView) Headers() []string {
	return []string{"Action", "Path", "Kind", "Size"}
}

func (v planView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Actions))
	for _, a := range v.Actions {
		size := ""
		if a.Type == string(diff.ActionFetch) {
			size = formatSize(a.Size)
		}
		rows = append(rows, []string{a.Type, truncate(a.Path, 80), a.Kind, size})
	}
	return rows
}

func (v planView) EmptyMessage() string {
	return "Everything is up to date!"
}

// runView is the output of `sync`.
type runView struct {
	RunID       string       `json:"runId"`
	Status      string       `json:"status"`
	RemoteRoot  string       `json:"remoteRoot"`
	LocalRoot   string       `json:"localRoot"`
	SummaryFile string       `json:"summaryFile,omitempty"`
	Counts      countsView   `json:"counts"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Bytes       int64        `json:"bytes"`
	DurationMs  int64        `json:"durationMs"`
	Actions     []actionView `json:"actions"`
}

func newRunView(r *syncengine.Result, summaryFile string) runView {
	v := runView{
		RunID:       r.RunID,
		Status:      string(r.Status),
		RemoteRoot:  r.Plan.RemoteRoot,
		LocalRoot:   r.Plan.Job.LocalRoot,
		SummaryFile: summaryFile,
		Counts:      newCountsView(r.Plan.Diff.Counts()),
		Succeeded:   r.Report.Succeeded(),
		Failed:      len(r.Report.Failed()),
		Bytes:       r.Report.Bytes(),
		Actions:     make([]actionView, 0, len(r.Report.Outcomes)),
	}
	if !r.Report.Finished.IsZero() {
		v.DurationMs = r.Report.Finished.Sub(r.Report.Started).Milliseconds()
	}
	for _, o := range r.Report.Outcomes {
		a := newActionView(o.Action)
		a.Status, a.Error = outcomeStatus(o)
		a.Bytes = o.Bytes
		v.Actions = append(v.Actions, a)
	}
	return v
}

func outcomeStatus(o executor.Outcome) (string, string) {
	switch {
	case o.Skipped:
		return index.ActionSkipped, ""
	case o.Err != nil:
		return index.ActionFailed, o.Err.Error()
	default:
		return index.ActionOK, ""
	}
}

func (v runView) Headers() []string {
	return []string{"Action", "Path", "Status", "Bytes"}
}

func (v runView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Actions))
	for _, a := range v.Actions {
		status := a.Status
		if a.Error != "" {
			status += ": " + truncate(a.Error, 60)
		}
		bytes := ""
		if a.Bytes > 0 {
			bytes = formatSize(a.Bytes)
		}
		rows = append(rows, []string{a.Type, truncate(a.Path, 80), status, bytes})
	}
	return rows
}

func (v runView) EmptyMessage() string {
	return "Everything is up to date!"
}

// actionErrors lists the failed actions of a run as CLI errors.
func (v runView) actionErrors() []types.CLIError {
	var errs []types.CLIError
	for _, a := range v.Actions {
		if a.Status != index.ActionFailed {
			continue
		}
		errs = append(errs, types.CLIError{Code: "ACTION_FAILED", Message: a.Error, Path: a.Path})
	}
	return errs
}

// historyView is the output of `history`.
type historyView struct {
	Runs []index.Run `json:"runs"`
}

func (v historyView) Headers() []string {
	return []string{"ID", "Started", "Status", "Server", "Remote", "Local", "Fetched", "Deleted", "Failed", "Bytes"}
}

func (v historyView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Runs))
	for _, r := range v.Runs {
		rows = append(rows, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			string(r.Status),
			r.Host,
			truncate(r.RemoteRoot, 30),
			truncate(r.LocalRoot, 30),
			strconv.Itoa(r.Fetches),
			strconv.Itoa(r.Deletes),
			strconv.Itoa(r.Failed),
			formatSize(r.Bytes),
		})
	}
	return rows
}

func (v historyView) EmptyMessage() string {
	return "No runs recorded"
}

// runDetailView is the output of `history show`.
type runDetailView struct {
	Run     index.Run         `json:"run"`
	Actions []index.RunAction `json:"actions"`
}

func (v runDetailView) Headers() []string {
	return []string{"#", "Action", "Path", "Status", "Bytes"}
}

func (v runDetailView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Actions))
	for _, a := range v.Actions {
		status := a.Status
		if a.Error != "" {
			status += ": " + truncate(a.Error, 60)
		}
		rows = append(rows, []string{
			strconv.Itoa(a.Seq),
			a.Type,
			truncate("/"+a.Path, 80),
			status,
			formatSize(a.Bytes),
		})
	}
	return rows
}

func (v runDetailView) EmptyMessage() string {
	return "Run " + shortID(v.Run.ID) + " (" + string(v.Run.Status) + ") performed no actions"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
