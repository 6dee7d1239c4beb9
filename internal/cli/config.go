package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dl-alexandre/ftpfetch/internal/config"
	"github.com/dl-alexandre/ftpfetch/internal/utils"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Commands for checking ftpfetch job configuration files",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <config.json>",
	Short: "Check a config file",
	Long:  "Load a config file with environment overrides applied and print the resulting settings. The password is never shown.",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
}

// configView prints a config as setting/value rows.
type configView struct {
	*config.Config
}

func (v configView) Headers() []string {
	return []string{"Setting", "Value"}
}

func (v configView) Rows() [][]string {
	rc := v.RemoteConnection
	password := rc.Password
	if password == "" {
		password = "(not set)"
	}
	return [][]string{
		{"host", rc.Host},
		{"port", strconv.Itoa(rc.Port)},
		{"user", rc.User},
		{"password", password},
		{"tls", strconv.FormatBool(rc.TLS)},
		{"timeout", v.GetTimeout().String()},
		{"remote_root", v.RemoteRoot},
		{"local_root", v.LocalRoot},
		{"blacklist", strings.Join(v.Blacklist, ", ")},
		{"whitelist", strings.Join(v.Whitelist, ", ")},
		{"concurrency", strconv.Itoa(v.Concurrency)},
		{"summary_file", v.SummaryFile},
		{"no_confirm", strconv.FormatBool(v.NoConfirm)},
	}
}

func (v configView) EmptyMessage() string {
	return "Empty configuration"
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)

	cfg, err := config.Load(args[0])
	if err != nil {
		return out.WriteError("config.validate", utils.NewCLIError(utils.ErrCodeInvalidConfig, err.Error()).
			WithPath(args[0]).Build())
	}
	return out.WriteSuccess("config.validate", configView{cfg.Redacted()})
}
