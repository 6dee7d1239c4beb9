package errors

import (
	stderrors "errors"
	"strings"
)

// Kind identifies one class of failure in a mirror run.
type Kind string

const (
	// KindInvalidPath is a malformed path in config, flags or a listing.
	KindInvalidPath Kind = "INVALID_PATH"
	// KindListingFailed is a remote directory that could not be listed.
	KindListingFailed Kind = "LISTING_FAILED"
	// KindLocalWalkFailed is a local directory that could not be read.
	KindLocalWalkFailed Kind = "LOCAL_WALK_FAILED"
	// KindTransferFailed is a single file download that did not complete.
	KindTransferFailed Kind = "TRANSFER_FAILED"
	// KindLocalIOFailed is a mkdir, remove, write or chtimes that failed.
	KindLocalIOFailed Kind = "LOCAL_IO_FAILED"
	// KindCancelled is a plan the operator declined to apply.
	KindCancelled Kind = "CANCELLED"
)

// Sentinels for errors.Is checks. They match any SyncError of the same kind.
var (
	ErrInvalidPath     = &SyncError{Kind: KindInvalidPath}
	ErrListingFailed   = &SyncError{Kind: KindListingFailed}
	ErrLocalWalkFailed = &SyncError{Kind: KindLocalWalkFailed}
	ErrTransferFailed  = &SyncError{Kind: KindTransferFailed}
	ErrLocalIOFailed   = &SyncError{Kind: KindLocalIOFailed}
	ErrCancelled       = &SyncError{Kind: KindCancelled}
)

// SyncError carries the failure kind and the path it concerns.
type SyncError struct {
	Kind Kind
	Path string
	Err  error
}

// New builds a SyncError. path may be empty when the failure is not tied to one entry.
func New(kind Kind, path string, err error) *SyncError {
	return &SyncError{Kind: kind, Path: path, Err: err}
}

func (e *SyncError) Error() string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(strings.ReplaceAll(string(e.Kind), "_", " ")))
	if e.Path != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Path)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind only.
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	if !ok {
		return false
	}
	return t.Path == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf extracts the kind of the first SyncError in err's chain.
func KindOf(err error) (Kind, bool) {
	var se *SyncError
	if stderrors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// IsFatal reports whether a failure of this kind must abort the run before
// anything destructive happens.
func IsFatal(kind Kind) bool {
	switch kind {
	case KindInvalidPath, KindListingFailed, KindLocalWalkFailed, KindCancelled:
		return true
	}
	return false
}
