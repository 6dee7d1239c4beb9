package types

// GlobalFlags holds the persistent flags shared by every command
type GlobalFlags struct {
	OutputFormat OutputFormat
	JSON         bool
	Quiet        bool
	Verbose      bool
	Debug        bool
	LogFile      string
}
