package index

import "time"

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
	RunUpToDate  RunStatus = "up_to_date"
	RunDryRun    RunStatus = "dry_run"
)

// Run is one invocation of the mirror against a config file.
type Run struct {
	ID         string    `json:"id"`
	ConfigPath string    `json:"configPath"`
	Host       string    `json:"host"`
	RemoteRoot string    `json:"remoteRoot"`
	LocalRoot  string    `json:"localRoot"`
	Status     RunStatus `json:"status"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	CreateDirs int       `json:"createDirs"`
	Fetches    int       `json:"fetches"`
	Deletes    int       `json:"deletes"`
	Failed     int       `json:"failed"`
	Bytes      int64     `json:"bytes"`
	Error      string    `json:"error,omitempty"`
}

const (
	ActionOK      = "ok"
	ActionFailed  = "failed"
	ActionSkipped = "skipped"
)

// RunAction is the recorded outcome of one planned action.
type RunAction struct {
	RunID  string `json:"runId"`
	Seq    int    `json:"seq"`
	Type   string `json:"type"`
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Bytes  int64  `json:"bytes"`
	Error  string `json:"error,omitempty"`
}
