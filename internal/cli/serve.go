package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/kiln/internal/transport"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the furnace API over HTTP",
		Long: `Serve the furnace controller over HTTP with Prometheus metrics at
/metrics and a ledger health check at /healthz. Callers identify themselves
with the ` + transport.AuthorityHeader + ` header.

The server shuts down gracefully on SIGINT or SIGTERM.

Example:
  kiln serve --db ./kiln.db --addr 127.0.0.1:8420`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = rootOpts.Config.HTTPAddr
			}

			s, err := rootOpts.openSession(true)
			if err != nil {
				return err
			}
			defer s.Close()

			logger, err := rootOpts.Logger()
			if err != nil {
				return err
			}
			logger.Info("ledger opened",
				zap.String("database", rootOpts.Config.Database),
				zap.Bool("thermal_enforcement", rootOpts.Config.ThermalEnforcement),
			)

			handler := transport.NewHandler(s.controller, s.store, logger.Named("http"))
			srv := transport.NewServer(addr, handler.Routes())
			if err := transport.Serve(cmd.Context(), srv, logger); err != nil {
				return WrapExitError(ExitCommandError, "serve", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config http_addr)")

	return cmd
}
