package errors

import (
	"context"
	stderrors "errors"

	"github.com/dl-alexandre/ftpfetch/internal/types"
	"github.com/dl-alexandre/ftpfetch/internal/utils"
)

var kindCodes = map[Kind]string{
	KindInvalidPath:     utils.ErrCodeInvalidPath,
	KindListingFailed:   utils.ErrCodeListingFailed,
	KindLocalWalkFailed: utils.ErrCodeLocalWalkFailed,
	KindTransferFailed:  utils.ErrCodeTransferFailed,
	KindLocalIOFailed:   utils.ErrCodeLocalIOFailed,
	KindCancelled:       utils.ErrCodeCancelled,
}

// ToCLIError renders any error as a CLIError. A SyncError keeps its kind as
// the code; FTP details from a wrapped AppError are carried over.
func ToCLIError(err error) types.CLIError {
	var se *SyncError
	if stderrors.As(err, &se) {
		builder := utils.NewCLIError(kindCodes[se.Kind], err.Error()).WithPath(se.Path)
		var inner *utils.AppError
		if stderrors.As(se.Err, &inner) {
			builder.WithFTPStatus(inner.CLIError.FTPStatus).
				WithRetryable(inner.CLIError.Retryable).
				WithContext("cause", inner.CLIError.Code)
			if action, ok := inner.CLIError.Context["suggestedAction"]; ok {
				builder.WithContext("suggestedAction", action)
			}
		}
		return builder.Build()
	}

	var appErr *utils.AppError
	if stderrors.As(err, &appErr) {
		return appErr.CLIError
	}

	if stderrors.Is(err, context.Canceled) {
		return utils.NewCLIError(utils.ErrCodeCancelled, err.Error()).Build()
	}
	return utils.NewCLIError(utils.ErrCodeUnknown, err.Error()).Build()
}
