package utils

// Connection defaults
const (
	DefaultFTPPort        = 21
	DefaultTimeoutSeconds = 60
	MaxTimeoutSeconds     = 3600
	DefaultConcurrency    = 1
	MaxConcurrency        = 16
	DefaultSummaryFile    = "summary.txt"
)

// Retry configuration
const (
	DefaultMaxRetries   = 3
	DefaultRetryDelayMs = 1000
	MaxRetryDelayMs     = 32000
)

// History retention
const (
	DefaultHistoryLimit = 20
	HistoryDBName       = "history.db"
)

// KeyringService is the service name passwords are stored under
const KeyringService = "ftpfetch"

// Schema version
const SchemaVersion = "1.0"
