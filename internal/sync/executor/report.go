package executor

import (
	"time"

	"github.com/dl-alexandre/ftpfetch/internal/sync/diff"
)

// Outcome records what happened to one action.
type Outcome struct {
	Action   diff.Action
	Err      error
	Bytes    int64
	Duration time.Duration
	// Skipped is set for every action of a dry run.
	Skipped bool
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// Report lists the outcome of every action in plan order.
type Report struct {
	Outcomes []Outcome
	Started  time.Time
	Finished time.Time
	DryRun   bool
}

func (r Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

func (r Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil && !o.Skipped {
			n++
		}
	}
	return n
}

func (r Report) Bytes() int64 {
	var total int64
	for _, o := range r.Outcomes {
		total += o.Bytes
	}
	return total
}
