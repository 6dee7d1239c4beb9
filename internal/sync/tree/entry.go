// Package tree holds the in-memory representation of one side of a mirror:
// a root directory entry that exclusively owns its children.
package tree

import (
	"sort"
	"time"

	"github.com/dl-alexandre/ftpfetch/internal/sync/paths"
)

type Kind string

const (
	KindFile Kind = "file"
	KindDir  Kind = "dir"
)

type Entry struct {
	Path     paths.Path
	Kind     Kind
	Size     int64
	ModTime  time.Time
	Children map[string]*Entry

	// Pruned marks a directory whose on-disk contents include entries that
	// were filtered out. Such a directory is never removed wholesale.
	Pruned bool
}

// NewRoot returns an empty directory with the root path.
func NewRoot() *Entry {
	return &Entry{Kind: KindDir, Children: map[string]*Entry{}}
}

func (e *Entry) IsDir() bool {
	return e.Kind == KindDir
}

func (e *Entry) Name() string {
	return e.Path.Base()
}

// AddFile creates a file child. It replaces any existing child with that name.
func (e *Entry) AddFile(name string, size int64, modTime time.Time) *Entry {
	child := &Entry{
		Path:    e.Path.Join(name),
		Kind:    KindFile,
		Size:    size,
		ModTime: modTime,
	}
	e.Children[name] = child
	return child
}

// AddDir creates a directory child. It replaces any existing child with that name.
func (e *Entry) AddDir(name string, modTime time.Time) *Entry {
	child := &Entry{
		Path:     e.Path.Join(name),
		Kind:     KindDir,
		ModTime:  modTime,
		Children: map[string]*Entry{},
	}
	e.Children[name] = child
	return child
}

// Sorted returns the children in lexical name order.
func (e *Entry) Sorted() []*Entry {
	if len(e.Children) == 0 {
		return nil
	}
	names := make([]string, 0, len(e.Children))
	for name := range e.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Entry, len(names))
	for i, name := range names {
		out[i] = e.Children[name]
	}
	return out
}

// Lookup finds the entry at p below e, or nil.
func (e *Entry) Lookup(p paths.Path) *Entry {
	cur := e
	for _, seg := range p {
		if cur == nil || cur.Children == nil {
			return nil
		}
		cur = cur.Children[seg]
	}
	return cur
}

// Walk visits e and every descendant in pre-order, lexical by name.
// Returning false from fn skips the entry's children.
func (e *Entry) Walk(fn func(*Entry) bool) {
	if !fn(e) {
		return
	}
	for _, child := range e.Sorted() {
		child.Walk(fn)
	}
}

// Count returns the number of files and directories below e, excluding e.
func (e *Entry) Count() (files, dirs int) {
	e.Walk(func(n *Entry) bool {
		if n == e {
			return true
		}
		if n.IsDir() {
			dirs++
		} else {
			files++
		}
		return true
	})
	return files, dirs
}

// Clone copies e and its subtree.
func (e *Entry) Clone() *Entry {
	out := *e
	out.Path = append(paths.Path(nil), e.Path...)
	if e.Children != nil {
		out.Children = make(map[string]*Entry, len(e.Children))
		for name, child := range e.Children {
			out.Children[name] = child.Clone()
		}
	}
	return &out
}
