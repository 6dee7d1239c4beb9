// Package sync runs one mirror pass: build both trees, filter them, diff them,
// show the plan, and apply it once confirmed.
package sync

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	syncerr "github.com/dl-alexandre/ftpfetch/internal/errors"
	"github.com/dl-alexandre/ftpfetch/internal/logging"
	"github.com/dl-alexandre/ftpfetch/internal/sync/diff"
	"github.com/dl-alexandre/ftpfetch/internal/sync/executor"
	"github.com/dl-alexandre/ftpfetch/internal/sync/filter"
	"github.com/dl-alexandre/ftpfetch/internal/sync/index"
	"github.com/dl-alexandre/ftpfetch/internal/sync/paths"
	"github.com/dl-alexandre/ftpfetch/internal/sync/scanner"
	"github.com/dl-alexandre/ftpfetch/internal/sync/summary"
	"github.com/dl-alexandre/ftpfetch/internal/sync/tree"
)

// Confirmer asks the operator whether to apply a plan. The plan has already
// been written to summaryPath when Confirm is called.
type Confirmer interface {
	Confirm(ctx context.Context, summaryPath string, counts diff.Counts) (bool, error)
}

// Job describes what to mirror.
type Job struct {
	ConfigPath string
	Host       string
	RemoteRoot string
	LocalRoot  string
	Blacklist  []string
	Whitelist  []string
	// Owned lists files the tool itself writes, such as the summary and log
	// files. Those inside LocalRoot are kept out of both trees.
	Owned []string
}

type Options struct {
	NoConfirm   bool
	DryRun      bool
	Concurrency int
	// SummaryPath is where the plan and report are written. Empty disables it.
	SummaryPath string
	// Confirmer is consulted unless NoConfirm or DryRun is set. A nil
	// Confirmer approves every plan.
	Confirmer Confirmer
	Progress  func(done, total int, action diff.Action)
}

// Plan is a computed change plan together with the trees it came from.
type Plan struct {
	RunID      string
	Job        Job
	RemoteRoot string
	Remote     *tree.Entry
	Local      *tree.Entry
	Diff       diff.Plan
	Started    time.Time
}

type Result struct {
	RunID  string
	Plan   Plan
	Report executor.Report
	Status index.RunStatus
}

// Failed reports whether any action of the run failed.
func (r *Result) Failed() bool {
	return r != nil && len(r.Report.Failed()) > 0
}

type Engine struct {
	lister  scanner.Lister
	fetcher executor.Fetcher
	fs      afero.Fs
	history *index.DB
	logger  logging.Logger
}

// NewEngine wires the collaborators of a run. history may be nil.
func NewEngine(lister scanner.Lister, fetcher executor.Fetcher, fs afero.Fs, history *index.DB, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Engine{
		lister:  lister,
		fetcher: fetcher,
		fs:      fs,
		history: history,
		logger:  logger,
	}
}

// NewRunContext tags ctx with a fresh run id used as the log trace id.
func NewRunContext(ctx context.Context) (context.Context, string) {
	if id := logging.TraceIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.New().String()
	return logging.ContextWithTraceID(ctx, id), id
}

// Plan builds both trees and diffs them. Nothing on disk is changed.
func (e *Engine) Plan(ctx context.Context, job Job) (Plan, error) {
	ctx, runID := NewRunContext(ctx)
	logger := e.logger.WithContext(ctx)
	plan := Plan{RunID: runID, Job: job, Started: time.Now()}

	blacklist := job.Blacklist
	if owned := ownedPaths(job.LocalRoot, job.Owned); len(owned) > 0 {
		logger.Debug("Leaving own files out of the mirror", logging.F("paths", strings.Join(owned, ",")))
		blacklist = append(append([]string(nil), job.Blacklist...), owned...)
	}
	rules, err := filter.New(blacklist, job.Whitelist)
	if err != nil {
		return plan, err
	}
	remoteRoot, err := paths.RemoteRoot(job.RemoteRoot)
	if err != nil {
		return plan, err
	}
	plan.RemoteRoot = remoteRoot

	remote, err := scanner.BuildRemote(ctx, e.lister, remoteRoot, rules, logger)
	if err != nil {
		return plan, err
	}
	local, err := scanner.BuildLocal(ctx, e.fs, job.LocalRoot, rules, logger)
	if err != nil {
		return plan, err
	}

	plan.Remote = rules.Apply(remote)
	plan.Local = rules.Apply(local)
	plan.Diff = diff.Compute(plan.Local, plan.Remote)

	for _, a := range plan.Diff.Blocked {
		logger.Warn("Remote file blocked by a local directory holding filtered entries",
			logging.F("path", a.Path.String()),
		)
	}

	counts := plan.Diff.Counts()
	logger.Info("Plan computed",
		logging.F("create_dirs", counts.CreateDirs),
		logging.F("fetches", counts.Fetches),
		logging.F("deletes", counts.Deletes),
		logging.F("fetch_bytes", counts.FetchBytes),
	)
	return plan, nil
}

// Apply writes the plan summary, asks for confirmation and executes the plan.
// Per-action failures are reported in the Result, not as an error.
func (e *Engine) Apply(ctx context.Context, plan Plan, opts Options) (*Result, error) {
	ctx = logging.ContextWithTraceID(ctx, plan.RunID)
	logger := e.logger.WithContext(ctx)
	result := &Result{RunID: plan.RunID, Plan: plan}

	var writer *summary.Writer
	if opts.SummaryPath != "" {
		writer = summary.NewWriter(e.fs, opts.SummaryPath)
		if err := writer.SavePlan(plan.Diff); err != nil {
			err = syncerr.New(syncerr.KindLocalIOFailed, opts.SummaryPath, err)
			result.Status = index.RunFailed
			e.record(ctx, result, result.Status, err)
			return result, err
		}
	}

	if plan.Diff.Empty() {
		logger.Info("Everything is up to date!")
		result.Status = index.RunUpToDate
		e.record(ctx, result, result.Status, nil)
		return result, nil
	}

	if !opts.NoConfirm && !opts.DryRun && opts.Confirmer != nil {
		ok, err := opts.Confirmer.Confirm(ctx, opts.SummaryPath, plan.Diff.Counts())
		if err != nil {
			result.Status = index.RunFailed
			e.record(ctx, result, result.Status, err)
			return result, err
		}
		if !ok {
			logger.Info("Sync canceled")
			result.Status = index.RunCancelled
			err := syncerr.New(syncerr.KindCancelled, "", errors.New("plan was not confirmed"))
			e.record(ctx, result, result.Status, err)
			return result, err
		}
	}

	exec := executor.New(e.fs, e.fetcher, logger)
	result.Report = exec.Apply(ctx, plan.Diff, executor.Options{
		LocalRoot:   plan.Job.LocalRoot,
		RemoteRoot:  plan.RemoteRoot,
		Concurrency: opts.Concurrency,
		DryRun:      opts.DryRun,
		Progress:    opts.Progress,
	})

	if writer != nil {
		if err := writer.SaveReport(result.Report); err != nil {
			logger.Warn("Failed to write run report", logging.F("path", opts.SummaryPath), logging.F("error", err.Error()))
		}
	}

	switch {
	case opts.DryRun:
		result.Status = index.RunDryRun
	case result.Failed():
		result.Status = index.RunPartial
	default:
		result.Status = index.RunSucceeded
	}
	e.record(ctx, result, result.Status, nil)
	return result, nil
}

// Run is Plan followed by Apply. A failure to plan is recorded in the history.
func (e *Engine) Run(ctx context.Context, job Job, opts Options) (*Result, error) {
	ctx, _ = NewRunContext(ctx)
	if opts.SummaryPath != "" {
		job.Owned = append(append([]string(nil), job.Owned...), opts.SummaryPath)
	}
	plan, err := e.Plan(ctx, job)
	if err != nil {
		result := &Result{RunID: plan.RunID, Plan: plan, Status: index.RunFailed}
		e.record(ctx, result, index.RunFailed, err)
		return result, err
	}
	return e.Apply(ctx, plan, opts)
}

func (e *Engine) record(ctx context.Context, result *Result, status index.RunStatus, runErr error) {
	if e.history == nil {
		return
	}
	plan := result.Plan
	counts := plan.Diff.Counts()
	finished := result.Report.Finished
	if finished.IsZero() {
		finished = time.Now()
	}
	run := index.Run{
		ID:         result.RunID,
		ConfigPath: plan.Job.ConfigPath,
		Host:       plan.Job.Host,
		RemoteRoot: plan.RemoteRoot,
		LocalRoot:  plan.Job.LocalRoot,
		Status:     status,
		StartedAt:  plan.Started,
		FinishedAt: finished,
		CreateDirs: counts.CreateDirs,
		Fetches:    counts.Fetches,
		Deletes:    counts.Deletes,
		Failed:     len(result.Report.Failed()),
		Bytes:      result.Report.Bytes(),
	}
	if run.RemoteRoot == "" {
		run.RemoteRoot = plan.Job.RemoteRoot
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	actions := make([]index.RunAction, 0, len(result.Report.Outcomes))
	for _, o := range result.Report.Outcomes {
		a := index.RunAction{
			Type:   string(o.Action.Type),
			Path:   o.Action.Path.String(),
			Kind:   string(o.Action.Kind),
			Status: index.ActionOK,
			Bytes:  o.Bytes,
		}
		switch {
		case o.Skipped:
			a.Status = index.ActionSkipped
		case o.Err != nil:
			a.Status = index.ActionFailed
			a.Error = o.Err.Error()
		}
		actions = append(actions, a)
	}

	// History failures are logged, not returned.
	if err := e.history.RecordRun(context.WithoutCancel(ctx), run, actions); err != nil {
		e.logger.WithContext(ctx).Warn("Failed to record run history",
			logging.F("run_id", run.ID),
			logging.F("error", err.Error()),
		)
	}
}

// ownedPaths returns the entries of owned that lie inside localRoot, relative
// to it in slash form.
func ownedPaths(localRoot string, owned []string) []string {
	root, err := filepath.Abs(localRoot)
	if err != nil {
		return nil
	}
	var out []string
	for _, p := range owned {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}
