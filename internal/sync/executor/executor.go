package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	syncerr "github.com/dl-alexandre/ftpfetch/internal/errors"
	"github.com/dl-alexandre/ftpfetch/internal/logging"
	"github.com/dl-alexandre/ftpfetch/internal/sync/diff"
	"github.com/dl-alexandre/ftpfetch/internal/sync/paths"
	"github.com/dl-alexandre/ftpfetch/internal/sync/tree"
)

// Fetcher downloads one remote file into w and returns the bytes written.
type Fetcher interface {
	Fetch(ctx context.Context, remotePath string, w io.Writer) (int64, error)
}

type Executor struct {
	fs      afero.Fs
	fetcher Fetcher
	logger  logging.Logger
}

type Options struct {
	LocalRoot   string
	RemoteRoot  string
	Concurrency int
	DryRun      bool
	// Progress is called after each fetch finishes. Calls are serialized.
	Progress func(done, total int, action diff.Action)
}

func New(fs afero.Fs, fetcher Fetcher, logger logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Executor{
		fs:      fs,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Apply runs every action of the plan and returns one outcome per action in
// plan order. A failed action never stops the others. Deletes and directory
// creations run in order; fetches then run on up to Concurrency workers.
func (e *Executor) Apply(ctx context.Context, plan diff.Plan, opts Options) Report {
	report := Report{
		Outcomes: make([]Outcome, len(plan.Actions)),
		Started:  time.Now(),
		DryRun:   opts.DryRun,
	}
	for i, action := range plan.Actions {
		report.Outcomes[i].Action = action
	}

	if opts.DryRun {
		for i := range report.Outcomes {
			report.Outcomes[i].Skipped = true
		}
		report.Finished = time.Now()
		return report
	}

	if err := e.fs.MkdirAll(opts.LocalRoot, 0o755); err != nil {
		rootErr := syncerr.New(syncerr.KindLocalIOFailed, opts.LocalRoot, err)
		for i := range report.Outcomes {
			report.Outcomes[i].Err = rootErr
		}
		report.Finished = time.Now()
		return report
	}

	failedDirs := map[string]bool{}
	var fetches []int

	for i, action := range plan.Actions {
		out := &report.Outcomes[i]
		if action.Type == diff.ActionFetch {
			fetches = append(fetches, i)
			continue
		}
		if err := ctx.Err(); err != nil {
			out.Err = err
			continue
		}

		start := time.Now()
		switch action.Type {
		case diff.ActionDelete:
			out.Err = e.delete(action, opts)
		case diff.ActionCreateDir:
			if underFailed(action.Path, failedDirs) {
				out.Err = parentMissing(action)
			} else {
				out.Err = e.createDir(action, opts)
			}
			if out.Err != nil {
				failedDirs[action.Path.String()] = true
			}
		}
		out.Duration = time.Since(start)
		e.logOutcome(*out)
	}

	e.runFetches(ctx, report.Outcomes, fetches, failedDirs, opts)

	report.Finished = time.Now()
	failed := len(report.Failed())
	e.logger.Info("Plan applied",
		logging.F("actions", len(report.Outcomes)),
		logging.F("failed", failed),
		logging.F("bytes", report.Bytes()),
		logging.F("duration_ms", report.Finished.Sub(report.Started).Milliseconds()),
	)
	return report
}

func (e *Executor) runFetches(ctx context.Context, outcomes []Outcome, idx []int, failedDirs map[string]bool, opts Options) {
	if len(idx) == 0 {
		return
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu   sync.Mutex
		done int
	)
	total := len(idx)

	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, i := range idx {
		out := &outcomes[i]
		if underFailed(out.Action.Path, failedDirs) {
			out.Err = parentMissing(out.Action)
			e.logOutcome(*out)
			continue
		}
		g.Go(func() error {
			start := time.Now()
			if err := ctx.Err(); err != nil {
				out.Err = err
			} else {
				out.Bytes, out.Err = e.fetch(ctx, out.Action, opts)
			}
			out.Duration = time.Since(start)

			mu.Lock()
			done++
			e.logger.Info(fmt.Sprintf("Downloading file %d of %d", done, total),
				logging.F("path", out.Action.Path.String()),
			)
			if opts.Progress != nil {
				opts.Progress(done, total, out.Action)
			}
			mu.Unlock()

			e.logOutcome(*out)
			return nil
		})
	}
	_ = g.Wait()
}

// fetch writes the remote file over the local path, then stamps the remote
// modification time. A file that was not stamped compares as stale next run.
func (e *Executor) fetch(ctx context.Context, action diff.Action, opts Options) (int64, error) {
	name := action.Path.String()
	target := action.Path.Local(opts.LocalRoot)
	if err := e.claim(action, opts); err != nil {
		return 0, err
	}

	f, err := e.fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, syncerr.New(syncerr.KindLocalIOFailed, name, err)
	}
	n, err := e.fetcher.Fetch(ctx, action.Path.Remote(opts.RemoteRoot), f)
	closeErr := f.Close()
	if err != nil {
		return n, syncerr.New(syncerr.KindTransferFailed, name, err)
	}
	if closeErr != nil {
		return n, syncerr.New(syncerr.KindLocalIOFailed, name, closeErr)
	}
	if n != action.Size {
		return n, syncerr.New(syncerr.KindTransferFailed, name,
			fmt.Errorf("received %d bytes, listing reported %d", n, action.Size))
	}
	if err := e.fs.Chtimes(target, action.ModTime, action.ModTime); err != nil {
		return n, syncerr.New(syncerr.KindLocalIOFailed, name, err)
	}
	return n, nil
}

func (e *Executor) createDir(action diff.Action, opts Options) error {
	if err := e.claim(action, opts); err != nil {
		return err
	}
	if err := e.fs.MkdirAll(action.Path.Local(opts.LocalRoot), 0o755); err != nil {
		return syncerr.New(syncerr.KindLocalIOFailed, action.Path.String(), err)
	}
	return nil
}

func (e *Executor) delete(action diff.Action, opts Options) error {
	target := action.Path.Local(opts.LocalRoot)
	if err := e.checkParents(action, opts); err != nil {
		return err
	}
	var err error
	if action.Kind == tree.KindDir {
		err = e.fs.RemoveAll(target)
	} else {
		err = e.fs.Remove(target)
		if os.IsNotExist(err) {
			err = nil
		}
	}
	if err != nil {
		return syncerr.New(syncerr.KindLocalIOFailed, action.Path.String(), err)
	}
	return nil
}

// claim makes the local path of action safe to write. Writes never pass
// through a symbolic link: a link at the target itself is removed (the link,
// not what it points to) and a link among the parents fails the action.
func (e *Executor) claim(action diff.Action, opts Options) error {
	name := action.Path.String()
	if err := e.checkParents(action, opts); err != nil {
		return err
	}

	target := action.Path.Local(opts.LocalRoot)
	info, err := e.lstat(target)
	switch {
	case os.IsNotExist(err):
		return nil
	case err != nil:
		return syncerr.New(syncerr.KindLocalIOFailed, name, err)
	case info.Mode()&os.ModeSymlink == 0:
		return nil
	}
	e.logger.Info("Replacing local symbolic link", logging.F("path", name))
	if err := e.fs.Remove(target); err != nil {
		return syncerr.New(syncerr.KindLocalIOFailed, name, err)
	}
	return nil
}

// checkParents fails the action when a directory between the local root and
// its path is a symbolic link.
func (e *Executor) checkParents(action diff.Action, opts Options) error {
	link, err := e.symlinkedParent(action.Path, opts.LocalRoot)
	if err != nil {
		return syncerr.New(syncerr.KindLocalIOFailed, action.Path.String(), err)
	}
	if !link.IsRoot() {
		return syncerr.New(syncerr.KindLocalIOFailed, action.Path.String(),
			fmt.Errorf("parent %s is a symbolic link", link))
	}
	return nil
}

// symlinkedParent returns the first strict ancestor of p, below the local
// root, that is a symbolic link. It returns the root path when there is none.
func (e *Executor) symlinkedParent(p paths.Path, localRoot string) (paths.Path, error) {
	var chain []paths.Path
	for parent := p.Parent(); !parent.IsRoot(); parent = parent.Parent() {
		chain = append(chain, parent)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		info, err := e.lstat(chain[i].Local(localRoot))
		if os.IsNotExist(err) {
			break
		}
		if err != nil {
			return nil, err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return chain[i], nil
		}
	}
	return nil, nil
}

// lstat does not follow a final symbolic link when the filesystem has them.
func (e *Executor) lstat(name string) (os.FileInfo, error) {
	if l, ok := e.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(name)
		return info, err
	}
	return e.fs.Stat(name)
}

func (e *Executor) logOutcome(out Outcome) {
	if out.Err != nil {
		e.logger.Warn("Action failed",
			logging.F("action", string(out.Action.Type)),
			logging.F("path", out.Action.Path.String()),
			logging.F("error", out.Err.Error()),
		)
		return
	}
	e.logger.Debug("Action applied",
		logging.F("action", string(out.Action.Type)),
		logging.F("path", out.Action.Path.String()),
		logging.F("bytes", out.Bytes),
		logging.F("duration_ms", out.Duration.Milliseconds()),
	)
}

func underFailed(p paths.Path, failedDirs map[string]bool) bool {
	if len(failedDirs) == 0 {
		return false
	}
	for parent := p.Parent(); !parent.IsRoot(); parent = parent.Parent() {
		if failedDirs[parent.String()] {
			return true
		}
	}
	return false
}

func parentMissing(action diff.Action) error {
	return syncerr.New(syncerr.KindLocalIOFailed, action.Path.String(),
		fmt.Errorf("parent directory %s was not created", action.Path.Parent()))
}
