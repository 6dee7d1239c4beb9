package diff

import (
	"github.com/dl-alexandre/ftpfetch/internal/sync/tree"
)

// Compute compares two filtered trees and returns the plan that makes local
// match remote. It does no I/O. A nil tree is treated as empty.
//
// Local directories marked Pruned are never deleted themselves, only their
// surviving descendants are, so content hidden by filters stays on disk. A
// remote file facing such a directory cannot be fetched; it is reported in
// Blocked instead of being planned.
func Compute(local, remote *tree.Entry) Plan {
	if local == nil {
		local = tree.NewRoot()
	}
	if remote == nil {
		remote = tree.NewRoot()
	}

	b := &builder{}
	b.mergeDir(local, remote)

	actions := make([]Action, 0, len(b.deletes)+len(b.creates))
	actions = append(actions, b.deletes...)
	actions = append(actions, b.creates...)
	return Plan{Actions: actions, Blocked: b.blocked}
}

type builder struct {
	deletes []Action
	creates []Action
	blocked []Action
}

// mergeDir walks the children of two directories in lexical order.
func (b *builder) mergeDir(local, remote *tree.Entry) {
	ls := local.Sorted()
	rs := remote.Sorted()

	i, j := 0, 0
	for i < len(ls) || j < len(rs) {
		switch {
		case j == len(rs) || (i < len(ls) && ls[i].Name() < rs[j].Name()):
			b.remove(ls[i])
			i++
		case i == len(ls) || rs[j].Name() < ls[i].Name():
			b.create(rs[j])
			j++
		default:
			b.merge(ls[i], rs[j])
			i++
			j++
		}
	}
}

func (b *builder) merge(local, remote *tree.Entry) {
	switch {
	case local.Kind != remote.Kind:
		b.remove(local)
		if local.IsDir() && local.Pruned {
			b.blocked = append(b.blocked, fetchOf(remote))
			return
		}
		b.create(remote)
	case local.IsDir():
		b.mergeDir(local, remote)
	case stale(local, remote):
		b.creates = append(b.creates, fetchOf(remote))
	}
}

// remove schedules local and its subtree for deletion, children first.
func (b *builder) remove(local *tree.Entry) {
	if local.IsDir() {
		for _, child := range local.Sorted() {
			b.remove(child)
		}
		if local.Pruned {
			return
		}
	}
	b.deletes = append(b.deletes, Action{
		Type:    ActionDelete,
		Path:    local.Path,
		Kind:    local.Kind,
		Size:    local.Size,
		ModTime: local.ModTime,
	})
}

// create schedules remote and its subtree, parents first.
func (b *builder) create(remote *tree.Entry) {
	if !remote.IsDir() {
		b.creates = append(b.creates, fetchOf(remote))
		return
	}
	b.creates = append(b.creates, Action{
		Type:    ActionCreateDir,
		Path:    remote.Path,
		Kind:    tree.KindDir,
		ModTime: remote.ModTime,
	})
	for _, child := range remote.Sorted() {
		b.create(child)
	}
}

func fetchOf(remote *tree.Entry) Action {
	return Action{
		Type:    ActionFetch,
		Path:    remote.Path,
		Kind:    tree.KindFile,
		Size:    remote.Size,
		ModTime: remote.ModTime,
	}
}

// stale compares files at one-second resolution, the finest most servers report.
func stale(local, remote *tree.Entry) bool {
	return local.Size != remote.Size || local.ModTime.Unix() != remote.ModTime.Unix()
}
