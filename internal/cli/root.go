// Package cli implements the ull command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/ull/internal/paths"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// env is the per-invocation state shared by subcommands. It is filled by the
// root command's PersistentPreRunE.
type env struct {
	flags    rootFlags
	settings settings
	logger   *zap.Logger
}

// NewRootCmd creates the top-level "ull" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	e := &env{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "ull",
		Short: "Meaning-first content layer",
		Long: "ull validates meaning objects, guards inserts into meaning-backed tables,\n" +
			"and serves locale-specific text from a two-tier translation cache.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return e.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = e.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&e.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&e.flags.dataDir, "data-dir", "", "translation store directory (default: ./.ull-db if present, else the user data dir)")
	root.PersistentFlags().BoolVar(&e.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(e))
	root.AddCommand(newValidateCmd(e))
	root.AddCommand(newGuardCmd(e))
	root.AddCommand(newCacheCmd(e))
	root.AddCommand(newTextCmd(e))
	root.AddCommand(newMeaningCmd(e))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(ExitCode(err))
}

// load resolves directories, reads config.yaml and builds the logger.
func (e *env) load() error {
	configDir, err := paths.ResolveConfigDir(e.flags.configDir)
	if err != nil {
		return sysError("resolve config dir: %s", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return sysError("load config: %s", err)
	}
	s, err := readSettings(v)
	if err != nil {
		return userError("config: %s", err)
	}
	s.DataDir, err = paths.ResolveDataDir(e.flags.dataDir, s.DataDir)
	if err != nil {
		return sysError("resolve data dir: %s", err)
	}
	logger, err := newLogger(s.LogLevel, s.LogDevelopment)
	if err != nil {
		return userError("config: %s", err)
	}

	e.settings = s
	e.logger = logger
	return nil
}

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func userError(format string, args ...any) error {
	return &exitError{code: exitUserError, msg: fmt.Sprintf(format, args...)}
}

func sysError(format string, args ...any) error {
	return &exitError{code: exitSysError, msg: fmt.Sprintf(format, args...)}
}

// ExitCode maps a command error to a process exit code. Errors that carry
// no code, such as cobra's usage errors, are user errors.
func ExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// readInput returns arg, or all of in when arg is "-".
func readInput(arg string, in io.Reader) ([]byte, error) {
	if arg != "-" {
		return []byte(arg), nil
	}
	return io.ReadAll(in)
}
