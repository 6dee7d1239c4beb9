package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dl-alexandre/ftpfetch/internal/sync/paths"
	"github.com/dl-alexandre/ftpfetch/internal/utils"
)

const (
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "FTPFETCH_"
	// appDirName is the directory under ~/.config holding application state
	appDirName = "ftpfetch"
)

// RemoteConnection describes the FTP server and the account used on it.
type RemoteConnection struct {
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	// TLS enables explicit FTPS.
	TLS  bool `json:"tls"`
	Port int  `json:"port"`
	// Timeout is the dial and command timeout in seconds.
	Timeout int `json:"timeout"`
}

// Config is one mirror job as read from its JSON file.
type Config struct {
	RemoteConnection RemoteConnection `json:"remote_connection"`
	RemoteRoot       string           `json:"remote_root"`
	LocalRoot        string           `json:"local_root"`
	Blacklist        []string         `json:"blacklist"`
	Whitelist        []string         `json:"whitelist"`
	Concurrency      int              `json:"concurrency"`
	SummaryFile      string           `json:"summary_file"`
	NoConfirm        bool             `json:"no_confirm"`

	// Path is the file the config was loaded from.
	Path string `json:"-"`
}

// DefaultConfig returns a config with every optional field at its default.
func DefaultConfig() *Config {
	return &Config{
		RemoteConnection: RemoteConnection{
			Port:    utils.DefaultFTPPort,
			Timeout: utils.DefaultTimeoutSeconds,
		},
		Blacklist:   []string{},
		Whitelist:   []string{},
		Concurrency: utils.DefaultConcurrency,
		SummaryFile: utils.DefaultSummaryFile,
	}
}

// Load reads the config at path with precedence: env vars > config file > defaults.
// Command line flags are applied by the caller, which must call Validate again.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	cfg.Path = path

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Decode parses a config document on top of the defaults. Unknown fields and
// missing required fields are errors.
func Decode(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after config object")
	}

	var raw struct {
		RemoteConnection map[string]json.RawMessage `json:"remote_connection"`
		RemoteRoot       *string                    `json:"remote_root"`
		LocalRoot        *string                    `json:"local_root"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var missing []string
	if raw.RemoteConnection == nil {
		missing = append(missing, "remote_connection")
	} else {
		for _, key := range []string{"host", "user"} {
			if _, ok := raw.RemoteConnection[key]; !ok {
				missing = append(missing, "remote_connection."+key)
			}
		}
	}
	if raw.RemoteRoot == nil {
		missing = append(missing, "remote_root")
	}
	if raw.LocalRoot == nil {
		missing = append(missing, "local_root")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// loadFromEnv applies FTPFETCH_* overrides
func (c *Config) loadFromEnv() error {
	rc := &c.RemoteConnection
	if v := os.Getenv(EnvPrefix + "HOST"); v != "" {
		rc.Host = v
	}
	if v := os.Getenv(EnvPrefix + "USER"); v != "" {
		rc.User = v
	}
	if v := os.Getenv(EnvPrefix + "PASSWORD"); v != "" {
		rc.Password = v
	}
	if v := os.Getenv(EnvPrefix + "TLS"); v != "" {
		rc.TLS = parseBool(v)
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"PORT", &rc.Port},
		{"TIMEOUT", &rc.Timeout},
		{"CONCURRENCY", &c.Concurrency},
	}
	for _, it := range ints {
		v := os.Getenv(EnvPrefix + it.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s%s: %q is not a number", EnvPrefix, it.name, v)
		}
		*it.dst = n
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	rc := c.RemoteConnection
	if strings.TrimSpace(rc.Host) == "" {
		return errors.New("remote_connection.host must not be empty")
	}
	if strings.TrimSpace(rc.User) == "" {
		return errors.New("remote_connection.user must not be empty")
	}
	if rc.Port < 1 || rc.Port > 65535 {
		return fmt.Errorf("remote_connection.port must be between 1 and 65535, got: %d", rc.Port)
	}
	if rc.Timeout < 1 || rc.Timeout > utils.MaxTimeoutSeconds {
		return fmt.Errorf("remote_connection.timeout must be between 1 and %d seconds, got: %d", utils.MaxTimeoutSeconds, rc.Timeout)
	}

	if _, err := paths.Normalize(c.RemoteRoot); err != nil {
		return fmt.Errorf("remote_root: %w", err)
	}
	if strings.TrimSpace(c.LocalRoot) == "" {
		return errors.New("local_root must not be empty")
	}
	if _, err := paths.NormalizeAll(c.Blacklist); err != nil {
		return fmt.Errorf("blacklist: %w", err)
	}
	if _, err := paths.NormalizeAll(c.Whitelist); err != nil {
		return fmt.Errorf("whitelist: %w", err)
	}

	if c.Concurrency < 1 || c.Concurrency > utils.MaxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d, got: %d", utils.MaxConcurrency, c.Concurrency)
	}
	if strings.TrimSpace(c.SummaryFile) == "" {
		return errors.New("summary_file must not be empty")
	}
	return nil
}

// GetTimeout returns the connection timeout as a duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.RemoteConnection.Timeout) * time.Second
}

// Address returns host:port of the server.
func (c *Config) Address() string {
	return net.JoinHostPort(c.RemoteConnection.Host, strconv.Itoa(c.RemoteConnection.Port))
}

// KeyringAccount is the account name the password is stored under.
func (c *Config) KeyringAccount() string {
	return c.RemoteConnection.User + "@" + c.Address()
}

// Redacted returns a copy that is safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	out.Blacklist = append([]string(nil), c.Blacklist...)
	out.Whitelist = append([]string(nil), c.Whitelist...)
	if out.RemoteConnection.Password != "" {
		out.RemoteConnection.Password = "[REDACTED]"
	}
	return &out
}

// SplitList parses a comma separated flag value, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// GetHistoryPath returns the path of the run history database
func GetHistoryPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, utils.HistoryDBName), nil
}

// GetConfigDir returns the path to the application state directory
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", appDirName), nil
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
