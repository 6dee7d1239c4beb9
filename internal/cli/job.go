package cli

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/dl-alexandre/ftpfetch/internal/auth"
	"github.com/dl-alexandre/ftpfetch/internal/config"
	"github.com/dl-alexandre/ftpfetch/internal/ftp"
	"github.com/dl-alexandre/ftpfetch/internal/logging"
	syncengine "github.com/dl-alexandre/ftpfetch/internal/sync"
	"github.com/dl-alexandre/ftpfetch/internal/sync/diff"
	"github.com/dl-alexandre/ftpfetch/internal/sync/executor"
	"github.com/dl-alexandre/ftpfetch/internal/sync/index"
	"github.com/dl-alexandre/ftpfetch/internal/sync/scanner"
	"github.com/dl-alexandre/ftpfetch/internal/utils"
)

// sessionPool is the part of ftp.Pool the commands use.
type sessionPool interface {
	scanner.Lister
	executor.Fetcher
	Close() error
}

// openPool connects to the server. Tests replace it with a fake.
var openPool = func(cfg ftp.Config, size int, logger logging.Logger) sessionPool {
	return ftp.NewPool(cfg, size, logger)
}

// jobFlags are the per-run overrides of a config file.
type jobFlags struct {
	whitelist   string
	blacklist   string
	password    string
	concurrency int
	summaryFile string
}

func (f *jobFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.whitelist, "whitelist", "w", "", "Comma-separated whitelist, replaces the config whitelist")
	cmd.Flags().StringVarP(&f.blacklist, "blacklist", "b", "", "Comma-separated blacklist, replaces the config blacklist")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "FTP password, overrides config, environment and stored password")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "Concurrent transfers (1-16), overrides config")
	cmd.Flags().StringVar(&f.summaryFile, "summary-file", "", "Where to write the change summary, overrides config")
}

// loadJobConfig loads the config file and applies command line overrides.
func loadJobConfig(cmd *cobra.Command, path string, f *jobFlags) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("whitelist") {
		cfg.Whitelist = config.SplitList(f.whitelist)
	}
	if flags.Changed("blacklist") {
		cfg.Blacklist = config.SplitList(f.blacklist)
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if flags.Changed("summary-file") {
		cfg.SummaryFile = f.summaryFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openPasswordStore returns nil when no backend can be opened; the run then
// relies on the flag, environment and config file.
func openPasswordStore(out *OutputWriter) *auth.PasswordStore {
	configDir, err := config.GetConfigDir()
	if err != nil {
		out.AddWarning("PASSWORD_STORE_UNAVAILABLE", err.Error(), "warning")
		return nil
	}
	store, err := auth.NewPasswordStore(configDir, auth.StoreOptions{})
	if err != nil {
		out.AddWarning("PASSWORD_STORE_UNAVAILABLE", err.Error(), "warning")
		return nil
	}
	if w := store.Warning(); w != "" {
		GetLogger().Debug(w)
	}
	return store
}

// connect resolves the password and opens the session pool.
func connect(cfg *config.Config, passwordFlag string, out *OutputWriter) (sessionPool, error) {
	store := openPasswordStore(out)
	password, source, err := store.Resolve(passwordFlag, cfg.RemoteConnection.Password, cfg.KeyringAccount())
	if err != nil {
		return nil, err
	}
	GetLogger().Debug("Resolved FTP password", logging.F("source", string(source)))

	ftpCfg := ftp.Config{
		Host:       cfg.RemoteConnection.Host,
		Port:       cfg.RemoteConnection.Port,
		User:       cfg.RemoteConnection.User,
		Password:   password,
		TLS:        cfg.RemoteConnection.TLS,
		Timeout:    cfg.GetTimeout(),
		MaxRetries: utils.DefaultMaxRetries,
		RetryDelay: time.Duration(utils.DefaultRetryDelayMs) * time.Millisecond,
	}
	GetLogger().Info("Connecting", logging.F("server", ftpCfg.String()))
	return openPool(ftpCfg, cfg.Concurrency, GetLogger()), nil
}

// openHistory returns nil when the history database cannot be opened.
func openHistory(out *OutputWriter) *index.DB {
	path, err := config.GetHistoryPath()
	if err == nil {
		var db *index.DB
		if db, err = index.Open(path); err == nil {
			return db
		}
	}
	out.AddWarning("HISTORY_UNAVAILABLE", "run history disabled: "+err.Error(), "warning")
	return nil
}

func jobFromConfig(cfg *config.Config) syncengine.Job {
	owned := []string{cfg.SummaryFile, GetGlobalFlags().LogFile}
	if path, err := config.GetHistoryPath(); err == nil {
		owned = append(owned, path)
	}
	return syncengine.Job{
		Owned:      owned,
		ConfigPath: cfg.Path,
		Host:       cfg.Address(),
		RemoteRoot: cfg.RemoteRoot,
		LocalRoot:  cfg.LocalRoot,
		Blacklist:  cfg.Blacklist,
		Whitelist:  cfg.Whitelist,
	}
}

// warnBlocked surfaces remote files a filtered local directory keeps from
// being fetched.
func warnBlocked(out *OutputWriter, plan diff.Plan) {
	for _, a := range plan.Blocked {
		out.AddWarning("PATH_BLOCKED",
			"remote file /"+a.Path.String()+" is shadowed by a local directory holding filtered entries",
			"warning")
	}
}

// commandContext is cancelled on interrupt.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}
