package cli

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	syncerr "github.com/dl-alexandre/ftpfetch/internal/errors"
	syncengine "github.com/dl-alexandre/ftpfetch/internal/sync"
	"github.com/dl-alexandre/ftpfetch/internal/sync/diff"
	"github.com/dl-alexandre/ftpfetch/internal/utils"
)

var syncCmd = &cobra.Command{
	Use:   "sync <config.json>",
	Short: "Mirror the remote tree into the local directory",
	Long: `Mirror the remote directory named in the config file into its local root.

The planned downloads and deletions are written to the summary file first.
Unless --no-confirm is given you are asked before anything is changed.`,
	Example: `  ftpfetch sync mirror.json
  ftpfetch sync mirror.json --blacklist tmp,logs/old --no-confirm
  ftpfetch sync mirror.json --dry-run --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

var (
	syncFlags     jobFlags
	syncNoConfirm bool
	syncDryRun    bool
)

func init() {
	syncFlags.register(syncCmd)
	syncCmd.Flags().BoolVarP(&syncNoConfirm, "no-confirm", "n", false, "Apply the plan without asking")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Write the summary but change nothing")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)

	cfg, err := loadJobConfig(cmd, args[0], &syncFlags)
	if err != nil {
		return out.WriteError("sync", utils.NewCLIError(utils.ErrCodeInvalidConfig, err.Error()).Build())
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	pool, err := connect(cfg, syncFlags.password, out)
	if err != nil {
		return out.WriteError("sync", syncerr.ToCLIError(err))
	}
	defer pool.Close()

	history := openHistory(out)
	defer history.Close()

	engine := syncengine.NewEngine(pool, pool, afero.NewOsFs(), history, GetLogger())
	opts := syncengine.Options{
		NoConfirm:   cfg.NoConfirm || syncNoConfirm,
		DryRun:      syncDryRun,
		Concurrency: cfg.Concurrency,
		SummaryPath: cfg.SummaryFile,
		Confirmer:   newPromptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr()),
		Progress: func(done, total int, action diff.Action) {
			out.Verbose("[%d/%d] %s", done, total, action.Path)
		},
	}

	result, err := engine.Run(ctx, jobFromConfig(cfg), opts)
	if result != nil {
		out.SetTraceID(result.RunID)
		warnBlocked(out, result.Plan.Diff)
	}
	if err != nil {
		return out.WriteError("sync", syncerr.ToCLIError(err))
	}

	view := newRunView(result, cfg.SummaryFile)
	if result.Failed() {
		return out.WritePartial("sync", view, view.actionErrors())
	}
	return out.WriteSuccess("sync", view)
}
