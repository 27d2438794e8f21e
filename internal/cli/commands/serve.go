package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flowmon-io/flowmon/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard data API",
		Long: `Start the JSON API the dashboard frontend consumes. Data is loaded
fresh for every request from the database or the most recent CSV export,
and re-checked in the background on a fixed interval.`,
		Example: `  # Serve on the configured port
  flowmon serve

  # Custom port, reload when a CSV export changes
  flowmon serve --port 9000 --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("port") {
				cc.Cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("watch") {
				cc.Cfg.Server.Watch, _ = cmd.Flags().GetBool("watch")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc := server.NewService(cc.Cfg, cc.Selector, cc.Loader, cc.Logger)
			srv := server.NewServer(cc.Cfg, svc, cc.Logger)
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().Int("port", 0, "Port to serve on")
	cmd.Flags().Bool("watch", false, "Reload when a flow_data CSV changes")

	return cmd
}
