package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cryguy/scripthost"
	"github.com/cryguy/scripthost/internal/control"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr, script string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the WebSocket control endpoint",
		Long: `Serve /control, a WebSocket endpoint accepting JSON requests
{"op":"load","text":...}, {"op":"stop"}, {"op":"text"} and {"op":"stats"}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := rootOpts.config()
			if err != nil {
				return err
			}
			s, err := scripthost.New(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if script != "" {
				text, err := scripthost.ReadScript(script)
				if err != nil {
					return err
				}
				if err := s.Load(text); err != nil {
					return err
				}
			}

			return control.New(s, cfg.Logger).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:4455", "listen address")
	cmd.Flags().StringVar(&script, "script", "", "script to load at startup")
	return cmd
}
