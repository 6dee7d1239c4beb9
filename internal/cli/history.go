package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/dl-alexandre/ftpfetch/internal/config"
	"github.com/dl-alexandre/ftpfetch/internal/sync/index"
	"github.com/dl-alexandre/ftpfetch/internal/utils"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded sync runs",
	Long:  "List the most recent sync runs, newest first, from the local run history.",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the actions of one run",
	Long:  "Show a recorded run and the outcome of each of its actions. A unique prefix of the run id is enough.",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", utils.DefaultHistoryLimit, "Maximum number of runs to list (0 for all)")

	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistoryStrict() (*index.DB, error) {
	path, err := config.GetHistoryPath()
	if err != nil {
		return nil, err
	}
	return index.Open(path)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)

	db, err := openHistoryStrict()
	if err != nil {
		return out.WriteError("history", utils.NewCLIError(utils.ErrCodeLocalIOFailed, err.Error()).Build())
	}
	defer db.Close()

	runs, err := db.ListRuns(cmd.Context(), historyLimit)
	if err != nil {
		return out.WriteError("history", utils.NewCLIError(utils.ErrCodeLocalIOFailed, err.Error()).Build())
	}
	if runs == nil {
		runs = []index.Run{}
	}
	return out.WriteSuccess("history", historyView{Runs: runs})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)

	db, err := openHistoryStrict()
	if err != nil {
		return out.WriteError("history.show", utils.NewCLIError(utils.ErrCodeLocalIOFailed, err.Error()).Build())
	}
	defer db.Close()

	run, err := db.GetRun(cmd.Context(), args[0])
	if err != nil {
		code := utils.ErrCodeLocalIOFailed
		if errors.Is(err, index.ErrRunNotFound) || errors.Is(err, index.ErrAmbiguousRun) {
			code = utils.ErrCodeInvalidArgument
		}
		return out.WriteError("history.show", utils.NewCLIError(code, err.Error()).Build())
	}
	actions, err := db.ListRunActions(cmd.Context(), run.ID)
	if err != nil {
		return out.WriteError("history.show", utils.NewCLIError(utils.ErrCodeLocalIOFailed, err.Error()).Build())
	}
	if actions == nil {
		actions = []index.RunAction{}
	}
	out.SetTraceID(run.ID)
	return out.WriteSuccess("history.show", runDetailView{Run: *run, Actions: actions})
}
