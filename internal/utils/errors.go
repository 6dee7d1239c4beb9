package utils

import (
	"fmt"

	"github.com/dl-alexandre/ftpfetch/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	// Auth errors (10-19)
	ExitAuthRequired = 10
	ExitAuthInvalid  = 12
	// Remote errors (20-29)
	ExitListingFailed    = 20
	ExitPermissionDenied = 21
	ExitTransferFailed   = 22
	// Network errors (30-39)
	ExitNetworkError = 30
	ExitTimeout      = 31
	// Validation errors (40-49)
	ExitInvalidArgument = 40
	ExitInvalidPath     = 41
	ExitInvalidConfig   = 42
	// Local filesystem errors (50-59)
	ExitLocalWalkFailed = 50
	ExitLocalIOFailed   = 51
	// Some actions of an applied plan failed
	ExitPartialFailure = 60
	// The operator declined the plan
	ExitCancelled = 70
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeAuthRequired     = "AUTH_REQUIRED"
	ErrCodeAuthInvalid      = "AUTH_INVALID"
	ErrCodeListingFailed    = "LISTING_FAILED"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeFileNotFound     = "FILE_NOT_FOUND"
	ErrCodeTransferFailed   = "TRANSFER_FAILED"
	ErrCodeNetworkError     = "NETWORK_ERROR"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeServiceBusy      = "SERVICE_BUSY"
	ErrCodeInvalidArgument  = "INVALID_ARGUMENT"
	ErrCodeInvalidPath      = "INVALID_PATH"
	ErrCodeInvalidConfig    = "INVALID_CONFIG"
	ErrCodeLocalWalkFailed  = "LOCAL_WALK_FAILED"
	ErrCodeLocalIOFailed    = "LOCAL_IO_FAILED"
	ErrCodePartialFailure   = "PARTIAL_FAILURE"
	ErrCodeCancelled        = "CANCELLED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeUnknown          = "UNKNOWN"
)

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err types.CLIError
}

// NewCLIError creates a new error builder
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: types.CLIError{
			Code:    code,
			Message: message,
		},
	}
}

// WithFTPStatus records the three-digit server reply code
func (b *CLIErrorBuilder) WithFTPStatus(status int) *CLIErrorBuilder {
	b.err.FTPStatus = status
	return b
}

func (b *CLIErrorBuilder) WithPath(path string) *CLIErrorBuilder {
	b.err.Path = path
	return b
}

func (b *CLIErrorBuilder) WithRetryable(retryable bool) *CLIErrorBuilder {
	b.err.Retryable = retryable
	return b
}

func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

func (b *CLIErrorBuilder) Build() types.CLIError {
	return b.err
}

// GetExitCode returns the exit code for an error code
func GetExitCode(errorCode string) int {
	mapping := map[string]int{
		ErrCodeAuthRequired:     ExitAuthRequired,
		ErrCodeAuthInvalid:      ExitAuthInvalid,
		ErrCodeListingFailed:    ExitListingFailed,
		ErrCodePermissionDenied: ExitPermissionDenied,
		ErrCodeFileNotFound:     ExitTransferFailed,
		ErrCodeTransferFailed:   ExitTransferFailed,
		ErrCodeNetworkError:     ExitNetworkError,
		ErrCodeTimeout:          ExitTimeout,
		ErrCodeServiceBusy:      ExitNetworkError,
		ErrCodeInvalidArgument:  ExitInvalidArgument,
		ErrCodeInvalidPath:      ExitInvalidPath,
		ErrCodeInvalidConfig:    ExitInvalidConfig,
		ErrCodeLocalWalkFailed:  ExitLocalWalkFailed,
		ErrCodeLocalIOFailed:    ExitLocalIOFailed,
		ErrCodePartialFailure:   ExitPartialFailure,
		ErrCodeCancelled:        ExitCancelled,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError is a custom error type that carries CLI error info
type AppError struct {
	CLIError types.CLIError
	Err      error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr types.CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}

// WrapAppError creates an AppError that keeps err in the chain
func WrapAppError(cliErr types.CLIError, err error) *AppError {
	return &AppError{CLIError: cliErr, Err: err}
}
