package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dl-alexandre/ftpfetch/internal/auth"
	"github.com/dl-alexandre/ftpfetch/internal/config"
	"github.com/dl-alexandre/ftpfetch/internal/utils"
)

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Manage stored FTP passwords",
	Long: `Store FTP passwords in the system keyring, or in an encrypted file when no
keyring is available, so config files do not need to contain them.

A password given with --password or in the config file takes precedence
over the stored one.`,
}

var passwordSetCmd = &cobra.Command{
	Use:   "set <config.json>",
	Short: "Store the password for a config's account",
	Long:  "Read a password from the terminal (or standard input) and store it for the user and server named in the config file.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPasswordSet,
}

var passwordDeleteCmd = &cobra.Command{
	Use:   "delete <config.json>",
	Short: "Remove the stored password for a config's account",
	Args:  cobra.ExactArgs(1),
	RunE:  runPasswordDelete,
}

var passwordFileStorage bool

// readSecret reads the password without echo when stdin is a terminal.
var readSecret = func(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(secret), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	passwordCmd.PersistentFlags().BoolVar(&passwordFileStorage, "file-storage", false, "Use encrypted file storage instead of the system keyring")

	passwordCmd.AddCommand(passwordSetCmd)
	passwordCmd.AddCommand(passwordDeleteCmd)
	rootCmd.AddCommand(passwordCmd)
}

type passwordResult struct {
	Account string `json:"account"`
	Backend string `json:"backend"`
	Stored  bool   `json:"stored"`
}

func (r passwordResult) Headers() []string {
	return []string{"Account", "Backend", "Stored"}
}

func (r passwordResult) Rows() [][]string {
	stored := "no"
	if r.Stored {
		stored = "yes"
	}
	return [][]string{{r.Account, r.Backend, stored}}
}

func (r passwordResult) EmptyMessage() string {
	return ""
}

func passwordStore() (*auth.PasswordStore, error) {
	configDir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	store, err := auth.NewPasswordStore(configDir, auth.StoreOptions{ForceEncryptedFile: passwordFileStorage})
	if err != nil {
		return nil, err
	}
	if w := store.Warning(); w != "" {
		GetLogger().Info(w)
	}
	return store, nil
}

func runPasswordSet(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)

	cfg, err := config.Load(args[0])
	if err != nil {
		return out.WriteError("password.set", utils.NewCLIError(utils.ErrCodeInvalidConfig, err.Error()).Build())
	}
	store, err := passwordStore()
	if err != nil {
		return out.WriteError("password.set", utils.NewCLIError(utils.ErrCodeLocalIOFailed, err.Error()).Build())
	}

	secret, err := readSecret(cmd)
	if err != nil {
		return out.WriteError("password.set", utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	}
	if secret == "" {
		return out.WriteError("password.set", utils.NewCLIError(utils.ErrCodeInvalidArgument, "password is empty").Build())
	}

	account := cfg.KeyringAccount()
	if err := store.Set(account, secret); err != nil {
		return out.WriteError("password.set", utils.NewCLIError(utils.ErrCodeLocalIOFailed, err.Error()).Build())
	}
	return out.WriteSuccess("password.set", passwordResult{Account: account, Backend: store.Backend(), Stored: true})
}

func runPasswordDelete(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)

	cfg, err := config.Load(args[0])
	if err != nil {
		return out.WriteError("password.delete", utils.NewCLIError(utils.ErrCodeInvalidConfig, err.Error()).Build())
	}
	store, err := passwordStore()
	if err != nil {
		return out.WriteError("password.delete", utils.NewCLIError(utils.ErrCodeLocalIOFailed, err.Error()).Build())
	}

	account := cfg.KeyringAccount()
	if err := store.Delete(account); err != nil && !errors.Is(err, auth.ErrPasswordNotFound) {
		return out.WriteError("password.delete", utils.NewCLIError(utils.ErrCodeLocalIOFailed, err.Error()).Build())
	}
	return out.WriteSuccess("password.delete", passwordResult{Account: account, Backend: store.Backend(), Stored: false})
}
