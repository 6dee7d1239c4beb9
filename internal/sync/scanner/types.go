package scanner

import (
	"context"
	"time"
)

// ItemKind is the type of a listed remote entry.
type ItemKind string

const (
	ItemFile  ItemKind = "file"
	ItemDir   ItemKind = "dir"
	ItemLink  ItemKind = "link"
	ItemOther ItemKind = "other"
)

// Item is one immediate child returned by a Lister.
type Item struct {
	Name    string
	Kind    ItemKind
	Size    int64
	ModTime time.Time
}

// Lister enumerates the immediate children of a remote directory. remotePath
// is absolute on the server. Implementations must return an error rather than
// an empty slice when the directory cannot be read.
type Lister interface {
	List(ctx context.Context, remotePath string) ([]Item, error)
}
