package errors

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/textproto"
	"strings"

	"github.com/dl-alexandre/ftpfetch/internal/logging"
	"github.com/dl-alexandre/ftpfetch/internal/utils"
)

// FTPStatus returns the server reply code carried by err, or 0.
func FTPStatus(err error) int {
	var tpErr *textproto.Error
	if stderrors.As(err, &tpErr) {
		return tpErr.Code
	}
	return 0
}

// IsRetryableFTP reports whether an operation that failed with err is worth
// repeating on a fresh session. Transient (4xx) replies and broken
// connections are; permanent (5xx) replies are not.
func IsRetryableFTP(err error) bool {
	if err == nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if code := FTPStatus(err); code != 0 {
		return code >= 400 && code < 500 && code != 430
	}
	if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr)
}

// ClassifyFTPError converts a protocol or network failure into an AppError
// with a stable code. op names the command ("list", "retr", "login").
func ClassifyFTPError(op, path string, err error, logger logging.Logger) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var appErr *utils.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	var tpErr *textproto.Error
	if !stderrors.As(err, &tpErr) {
		code := utils.ErrCodeNetworkError
		var netErr net.Error
		if stderrors.As(err, &netErr) && netErr.Timeout() {
			code = utils.ErrCodeTimeout
		}
		logger.Error("Non-protocol FTP error",
			logging.F("op", op),
			logging.F("path", path),
			logging.F("error", err.Error()),
		)
		return utils.WrapAppError(utils.NewCLIError(code, err.Error()).
			WithPath(path).
			WithRetryable(IsRetryableFTP(err)).
			WithContext("op", op).
			Build(), err)
	}

	var code string
	retryable := false

	switch tpErr.Code {
	case 421:
		code = utils.ErrCodeServiceBusy
		retryable = true
	case 425, 426:
		code = utils.ErrCodeNetworkError
		retryable = true
	case 430, 530:
		code = utils.ErrCodeAuthInvalid
	case 450, 451, 452:
		code = utils.ErrCodeServiceBusy
		retryable = true
	case 550:
		code = utils.ErrCodeFileNotFound
		msg := strings.ToLower(tpErr.Msg)
		if strings.Contains(msg, "permission") || strings.Contains(msg, "denied") {
			code = utils.ErrCodePermissionDenied
		}
	case 553:
		code = utils.ErrCodeInvalidPath
	default:
		code = utils.ErrCodeUnknown
		retryable = tpErr.Code >= 400 && tpErr.Code < 500
	}

	logger.Error("FTP error classified",
		logging.F("ftpStatus", tpErr.Code),
		logging.F("errorCode", code),
		logging.F("retryable", retryable),
		logging.F("message", tpErr.Msg),
		logging.F("op", op),
		logging.F("path", path),
	)

	builder := utils.NewCLIError(code, tpErr.Msg).
		WithFTPStatus(tpErr.Code).
		WithPath(path).
		WithRetryable(retryable).
		WithContext("op", op)

	switch code {
	case utils.ErrCodeAuthInvalid:
		builder.WithContext("suggestedAction", "check the user name and run 'ftpfetch password set' to store the password")
	case utils.ErrCodeFileNotFound:
		builder.WithContext("suggestedAction", "verify remote_root and the path exist on the server")
	case utils.ErrCodeServiceBusy:
		builder.WithContext("suggestedAction", "server is busy, retrying with backoff")
	}

	return utils.WrapAppError(builder.Build(), err)
}
