package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dl-alexandre/ftpfetch/internal/utils"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyFTPError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      string
		status    int
		retryable bool
	}{
		{"busy", &textproto.Error{Code: 421, Msg: "Too many users"}, utils.ErrCodeServiceBusy, 421, true},
		{"data conn", &textproto.Error{Code: 425, Msg: "Can't open data connection"}, utils.ErrCodeNetworkError, 425, true},
		{"login", &textproto.Error{Code: 530, Msg: "Login incorrect"}, utils.ErrCodeAuthInvalid, 530, false},
		{"missing", &textproto.Error{Code: 550, Msg: "No such file or directory"}, utils.ErrCodeFileNotFound, 550, false},
		{"denied", &textproto.Error{Code: 550, Msg: "Permission denied"}, utils.ErrCodePermissionDenied, 550, false},
		{"bad name", &textproto.Error{Code: 553, Msg: "File name not allowed"}, utils.ErrCodeInvalidPath, 553, false},
		{"other 4xx", &textproto.Error{Code: 499, Msg: "odd"}, utils.ErrCodeUnknown, 499, true},
		{"timeout", timeoutErr{}, utils.ErrCodeTimeout, 0, true},
		{"eof", io.EOF, utils.ErrCodeNetworkError, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyFTPError("list", "/pub", tt.err, nil)

			var appErr *utils.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.code, appErr.CLIError.Code)
			assert.Equal(t, tt.status, appErr.CLIError.FTPStatus)
			assert.Equal(t, tt.retryable, appErr.CLIError.Retryable)
			assert.Equal(t, "/pub", appErr.CLIError.Path)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassifyFTPErrorPassesThrough(t *testing.T) {
	assert.NoError(t, ClassifyFTPError("retr", "/f", nil, nil))
	assert.Equal(t, context.Canceled, ClassifyFTPError("retr", "/f", context.Canceled, nil))

	already := ClassifyFTPError("retr", "/f", &textproto.Error{Code: 550, Msg: "gone"}, nil)
	assert.Same(t, already, ClassifyFTPError("retr", "/f", already, nil))
}

func TestIsRetryableFTP(t *testing.T) {
	assert.True(t, IsRetryableFTP(&textproto.Error{Code: 450}))
	assert.True(t, IsRetryableFTP(fmt.Errorf("read: %w", io.ErrUnexpectedEOF)))
	assert.False(t, IsRetryableFTP(&textproto.Error{Code: 430}))
	assert.False(t, IsRetryableFTP(&textproto.Error{Code: 550}))
	assert.False(t, IsRetryableFTP(context.DeadlineExceeded))
	assert.False(t, IsRetryableFTP(stderrors.New("plain")))
	assert.False(t, IsRetryableFTP(nil))
}

func TestToCLIError(t *testing.T) {
	inner := ClassifyFTPError("list", "/pub/x", &textproto.Error{Code: 421, Msg: "busy"}, nil)
	cliErr := ToCLIError(New(KindListingFailed, "/pub/x", inner))

	assert.Equal(t, utils.ErrCodeListingFailed, cliErr.Code)
	assert.Equal(t, "/pub/x", cliErr.Path)
	assert.Equal(t, 421, cliErr.FTPStatus)
	assert.Equal(t, utils.ErrCodeServiceBusy, cliErr.Context["cause"])

	assert.Equal(t, utils.ErrCodeFileNotFound, ToCLIError(ClassifyFTPError("retr", "/f", &textproto.Error{Code: 550, Msg: "x"}, nil)).Code)
	assert.Equal(t, utils.ErrCodeCancelled, ToCLIError(context.Canceled).Code)
	assert.Equal(t, utils.ErrCodeUnknown, ToCLIError(stderrors.New("x")).Code)
}
