package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cryguy/scripthost"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <script>",
		Short: "Load a script and run it until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runScript(ctx, rootOpts, args[0])
		},
	}
}

func runScript(ctx context.Context, opts *RootOptions, path string) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	text, err := scripthost.ReadScript(path)
	if err != nil {
		return err
	}

	s, err := scripthost.New(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Load(text); err != nil {
		return err
	}
	cfg.Logger.Info("running", "script", path, "backend", scripthost.Backend)

	<-ctx.Done()
	cfg.Logger.Info("stopping")
	return nil
}
