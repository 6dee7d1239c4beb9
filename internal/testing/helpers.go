// Package testing holds fixtures shared by package tests.
package testing

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ModTime is the modification time used for fixture files on both sides.
var ModTime = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

// TestContext creates a standard test context
func TestContext() context.Context {
	return context.Background()
}

// IsolateEnv points the state directory at a temp dir and clears every
// FTPFETCH_ variable for the duration of the test.
func IsolateEnv(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"HOST", "USER", "PASSWORD", "TLS", "PORT", "TIMEOUT", "CONCURRENCY"} {
		t.Setenv("FTPFETCH_"+name, "")
	}
	dir := t.TempDir()
	t.Setenv("FTPFETCH_CONFIG_DIR", dir)
	return dir
}

// WriteConfig writes a job config to dir/name and returns its path. Keys
// missing from overrides get working defaults pointing at localRoot.
func WriteConfig(t *testing.T, dir, localRoot string, overrides map[string]interface{}) string {
	t.Helper()
	cfg := map[string]interface{}{
		"remote_connection": map[string]interface{}{
			"host": "ftp.example.com",
			"user": "mirror",
		},
		"remote_root":  "/pub",
		"local_root":   localRoot,
		"summary_file": filepath.Join(dir, "summary.txt"),
	}
	for k, v := range overrides {
		cfg[k] = v
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "mirror.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// WriteLocalFile creates a file and its parents, stamped with modTime.
func WriteLocalFile(t *testing.T, path, content string, modTime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
