// Package cli implements the scripthost command line.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cryguy/scripthost"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config    string
	Verbose   bool
	Bootstrap string
	ScenesDB  string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "scripthost",
		Short: "Run a JavaScript automation script",
		Long: `scripthost runs one JavaScript (or TypeScript) automation script in an
embedded interpreter, with timers, periodic garbage collection and access
to the scene catalog through the OBS object.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Bootstrap, "bootstrap", "", "environment script (default: embedded)")
	cmd.PersistentFlags().StringVar(&opts.ScenesDB, "scenes", "", "SQLite file persisting the scene catalog")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// logger builds the process logger. Logs go to stderr.
func (o *RootOptions) logger() *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// config merges the config file with flags; flags win.
func (o *RootOptions) config() (scripthost.Config, error) {
	var cfg scripthost.Config
	if o.Config != "" {
		var err error
		cfg, err = scripthost.LoadConfig(o.Config)
		if err != nil {
			return cfg, err
		}
	}
	if o.Bootstrap != "" {
		cfg.Bootstrap = o.Bootstrap
	}
	if o.ScenesDB != "" {
		cfg.ScenesDB = o.ScenesDB
	}
	cfg.Logger = o.logger()
	return cfg, nil
}
