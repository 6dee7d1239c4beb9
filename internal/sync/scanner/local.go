package scanner

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"

	syncerr "github.com/dl-alexandre/ftpfetch/internal/errors"
	"github.com/dl-alexandre/ftpfetch/internal/logging"
	"github.com/dl-alexandre/ftpfetch/internal/sync/filter"
	"github.com/dl-alexandre/ftpfetch/internal/sync/tree"
)

// BuildLocal walks localRoot depth-first and returns the resulting tree.
// Symbolic links and special files are left out and never followed. A missing
// root yields an empty tree; an unreadable directory aborts the walk with
// LocalWalkFailed.
func BuildLocal(ctx context.Context, fsys afero.Fs, localRoot string, rules *filter.RuleSet, logger logging.Logger) (*tree.Entry, error) {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	root := tree.NewRoot()

	info, err := fsys.Stat(localRoot)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("Local root does not exist yet", logging.F("root", localRoot))
			return root, nil
		}
		return nil, syncerr.New(syncerr.KindLocalWalkFailed, localRoot, err)
	}
	if !info.IsDir() {
		return nil, syncerr.New(syncerr.KindLocalWalkFailed, localRoot, fmt.Errorf("not a directory"))
	}

	if err := walkInto(ctx, fsys, localRoot, root, rules, logger); err != nil {
		return nil, err
	}

	files, dirs := root.Count()
	logger.Info("Local tree built",
		logging.F("root", localRoot),
		logging.F("files", files),
		logging.F("dirs", dirs),
	)
	return root, nil
}

func walkInto(ctx context.Context, fsys afero.Fs, localRoot string, dir *tree.Entry, rules *filter.RuleSet, logger logging.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	abs := dir.Path.Local(localRoot)
	infos, err := afero.ReadDir(fsys, abs)
	if err != nil {
		return syncerr.New(syncerr.KindLocalWalkFailed, abs, err)
	}

	for _, info := range infos {
		name := info.Name()
		mode := info.Mode()
		childPath := dir.Path.Join(name)

		switch {
		case mode&os.ModeSymlink != 0:
			logger.Debug("Skipping symlink", logging.F("path", childPath.String()))
		case mode.IsDir():
			if rules.Excluded(childPath) {
				dir.Pruned = true
				logger.Debug("Skipping excluded local directory", logging.F("path", childPath.String()))
				continue
			}
			child := dir.AddDir(name, info.ModTime())
			if err := walkInto(ctx, fsys, localRoot, child, rules, logger); err != nil {
				return err
			}
		case mode.IsRegular():
			dir.AddFile(name, info.Size(), info.ModTime())
		default:
			logger.Debug("Skipping special file", logging.F("path", childPath.String()))
		}
	}
	return nil
}
