package logging

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Raw FTP PASS commands from protocol traces
	passCommandPattern = regexp.MustCompile(`(?i)\bPASS\s+\S+`)
	// password=..., "password": "...", passwd: ...
	passwordFieldPattern = regexp.MustCompile(`(?i)(password|passwd|pwd)["']?\s*[:=]\s*["']?[^\s"',}]+`)
	// Credentials embedded in ftp:// and ftps:// URLs
	urlCredentialPattern = regexp.MustCompile(`(?i)(ftps?://[^:/@\s]+):[^@\s]+@`)
)

// redactSensitiveData masks passwords in free text.
func redactSensitiveData(s string) string {
	s = passCommandPattern.ReplaceAllString(s, "PASS [REDACTED]")
	s = passwordFieldPattern.ReplaceAllString(s, "$1=[REDACTED]")
	s = urlCredentialPattern.ReplaceAllString(s, "$1:[REDACTED]@")
	return s
}

func isSecretKey(key string) bool {
	switch strings.ToLower(key) {
	case "password", "passwd", "pass", "secret":
		return true
	}
	return false
}

// redactValue returns v with secrets masked. Values of secret keys are
// replaced whole; strings are scrubbed; anything else is returned as is.
func redactValue(key string, v interface{}) interface{} {
	if isSecretKey(key) {
		return "[REDACTED]"
	}
	switch s := v.(type) {
	case string:
		return redactSensitiveData(s)
	case error:
		return redactSensitiveData(s.Error())
	case fmt.Stringer:
		return redactSensitiveData(s.String())
	}
	return v
}
