package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/execdef/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Config returns the loaded configuration, loading it on first use.
func (o *RootOptions) Config() (config.Config, error) {
	if o.cfg == nil {
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		o.cfg = &cfg
	}
	return *o.cfg, nil
}

// dbPath returns flag when set and the configured database otherwise.
func (o *RootOptions) dbPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := o.Config()
	if err != nil {
		return "", err
	}
	return cfg.DB, nil
}

// Execute runs the CLI with args and returns the process exit code. Errors
// not already reported by a command are printed to stderr.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// NewRootCommand creates the root command for the execdef CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "execdef",
		Short: "execdef - execution definitions and data views",
		Long: `Build, fingerprint and execute analytical execution definitions.

Definitions are read from YAML or CUE documents, executed against a SQLite
workspace dataset and read back as paged data views.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := opts.Config()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			return setupLogging(cfg.Log, opts.Verbose, cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file")

	cmd.AddCommand(NewFingerprintCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewExecuteCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setupLogging installs the default slog logger. Verbose output forces
// debug level.
func setupLogging(cfg config.LogConfig, verbose bool, w io.Writer) error {
	level, err := cfg.SlogLevel()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log level", err)
	}
	if verbose {
		level = slog.LevelDebug
	}

	hopts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, hopts)
	} else {
		handler = slog.NewTextHandler(w, hopts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
