package scanner

import (
	"context"
	"path"
	"sort"

	syncerr "github.com/dl-alexandre/ftpfetch/internal/errors"
	"github.com/dl-alexandre/ftpfetch/internal/logging"
	"github.com/dl-alexandre/ftpfetch/internal/sync/filter"
	"github.com/dl-alexandre/ftpfetch/internal/sync/paths"
	"github.com/dl-alexandre/ftpfetch/internal/sync/tree"
)

// BuildRemote lists remoteRoot and every subdirectory depth-first and returns
// the resulting tree. Directories the rules exclude entirely are not listed.
// A directory that cannot be listed aborts the build with ListingFailed.
func BuildRemote(ctx context.Context, lister Lister, remoteRoot string, rules *filter.RuleSet, logger logging.Logger) (*tree.Entry, error) {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	root := tree.NewRoot()
	if err := listInto(ctx, lister, remoteRoot, root, rules, logger); err != nil {
		return nil, err
	}

	files, dirs := root.Count()
	logger.Info("Remote tree built",
		logging.F("root", remoteRoot),
		logging.F("files", files),
		logging.F("dirs", dirs),
	)
	return root, nil
}

func listInto(ctx context.Context, lister Lister, remoteRoot string, dir *tree.Entry, rules *filter.RuleSet, logger logging.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	items, err := list(ctx, lister, dir.Path.Remote(remoteRoot), logger)
	if err != nil {
		return err
	}
	return addItems(ctx, lister, remoteRoot, dir, items, rules, logger)
}

// list returns the children of remotePath sorted by name.
func list(ctx context.Context, lister Lister, remotePath string, logger logging.Logger) ([]Item, error) {
	logger.Debug("Listing remote directory", logging.F("path", remotePath))
	items, err := lister.List(ctx, remotePath)
	if err != nil {
		return nil, syncerr.New(syncerr.KindListingFailed, remotePath, err)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items, nil
}

func addItems(ctx context.Context, lister Lister, remoteRoot string, dir *tree.Entry, items []Item, rules *filter.RuleSet, logger logging.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	remotePath := dir.Path.Remote(remoteRoot)

	for _, item := range items {
		if !paths.ValidName(item.Name) {
			if item.Name != "." && item.Name != ".." {
				logger.Warn("Skipping remote entry with unusable name",
					logging.F("parent", remotePath),
					logging.F("name", item.Name),
				)
			}
			continue
		}

		childPath := dir.Path.Join(item.Name)
		switch item.Kind {
		case ItemDir:
			if rules.Excluded(childPath) {
				dir.Pruned = true
				logger.Debug("Skipping excluded remote directory", logging.F("path", childPath.String()))
				continue
			}
			childRemote := childPath.Remote(remoteRoot)
			childItems, err := list(ctx, lister, childRemote, logger)
			if item.Name == path.Base(remotePath) && ctx.Err() == nil {
				// MLSD cdir entries may carry the listed directory's own name.
				if err != nil {
					logger.Warn("Skipping unlistable remote directory named after its parent",
						logging.F("path", childRemote),
						logging.F("error", err.Error()),
					)
					continue
				}
				if sameListing(childItems, items) {
					logger.Debug("Skipping remote entry for the listed directory itself", logging.F("path", childRemote))
					continue
				}
			}
			if err != nil {
				return err
			}
			child := dir.AddDir(item.Name, item.ModTime)
			if err := addItems(ctx, lister, remoteRoot, child, childItems, rules, logger); err != nil {
				return err
			}
		case ItemFile:
			logger.Debug("Found remote file", logging.F("path", childPath.String()), logging.F("size", item.Size))
			dir.AddFile(item.Name, item.Size, item.ModTime)
		default:
			logger.Debug("Skipping remote entry that is not a file or directory",
				logging.F("path", childPath.String()),
				logging.F("kind", string(item.Kind)),
			)
		}
	}
	return nil
}

func sameListing(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Kind != b[i].Kind || a[i].Size != b[i].Size {
			return false
		}
	}
	return true
}
