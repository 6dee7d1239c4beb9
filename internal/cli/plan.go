package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	syncerr "github.com/dl-alexandre/ftpfetch/internal/errors"
	syncengine "github.com/dl-alexandre/ftpfetch/internal/sync"
	"github.com/dl-alexandre/ftpfetch/internal/sync/summary"
	"github.com/dl-alexandre/ftpfetch/internal/types"
	"github.com/dl-alexandre/ftpfetch/internal/utils"
)

var planCmd = &cobra.Command{
	Use:   "plan <config.json>",
	Short: "Show what sync would change",
	Long:  "List both trees and print the downloads and deletions a sync would perform. Nothing is written.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

var planFlags jobFlags

func init() {
	planFlags.register(planCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)

	cfg, err := loadJobConfig(cmd, args[0], &planFlags)
	if err != nil {
		return out.WriteError("plan", utils.NewCLIError(utils.ErrCodeInvalidConfig, err.Error()).Build())
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	pool, err := connect(cfg, planFlags.password, out)
	if err != nil {
		return out.WriteError("plan", syncerr.ToCLIError(err))
	}
	defer pool.Close()

	engine := syncengine.NewEngine(pool, pool, afero.NewReadOnlyFs(afero.NewOsFs()), nil, GetLogger())
	plan, err := engine.Plan(ctx, jobFromConfig(cfg))
	out.SetTraceID(plan.RunID)
	if err != nil {
		return out.WriteError("plan", syncerr.ToCLIError(err))
	}
	warnBlocked(out, plan.Diff)

	if GetGlobalFlags().OutputFormat == types.OutputFormatTable {
		w := cmd.OutOrStdout()
		if err := summary.WritePlan(w, plan.Diff); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w)
		return err
	}
	return out.WriteSuccess("plan", newPlanView(plan))
}
