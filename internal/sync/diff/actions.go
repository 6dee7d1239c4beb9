package diff

import (
	"time"

	"github.com/dl-alexandre/ftpfetch/internal/sync/paths"
	"github.com/dl-alexandre/ftpfetch/internal/sync/tree"
)

type ActionType string

const (
	ActionCreateDir ActionType = "create_dir"
	ActionFetch     ActionType = "fetch"
	ActionDelete    ActionType = "delete"
)

// Action is one step of a Plan. Size and ModTime carry the remote values for
// a fetch; for a delete they describe the local entry being removed.
type Action struct {
	Type    ActionType
	Path    paths.Path
	Kind    tree.Kind
	Size    int64
	ModTime time.Time
}

func (a Action) String() string {
	return string(a.Type) + " " + a.Path.String()
}

// Plan is an ordered list of actions. Every delete comes before every
// create_dir and fetch; deletes are bottom-up and creations top-down.
type Plan struct {
	Actions []Action
	// Blocked holds fetches that were left out because a local directory of
	// the same name still holds filtered entries. They repeat every run until
	// the directory is cleared by hand.
	Blocked []Action
}

type Counts struct {
	CreateDirs int
	Fetches    int
	Deletes    int
	FetchBytes int64
}

func (p Plan) Empty() bool {
	return len(p.Actions) == 0
}

func (p Plan) Counts() Counts {
	var c Counts
	for _, a := range p.Actions {
		switch a.Type {
		case ActionCreateDir:
			c.CreateDirs++
		case ActionFetch:
			c.Fetches++
			c.FetchBytes += a.Size
		case ActionDelete:
			c.Deletes++
		}
	}
	return c
}

// Filter returns the actions of the given type, in plan order.
func (p Plan) Filter(t ActionType) []Action {
	var out []Action
	for _, a := range p.Actions {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}
