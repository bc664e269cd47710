package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newLaunchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Start the bringup on this host",
		Long: `Plans the bringup and starts every service with the ros2 command line
tool: standalone services as supervised processes, components by loading
them into their container once it is up. Services with respawn enabled
are restarted after they exit.

The launch runs until interrupted (Ctrl+C), which stops every process.
Set supervisor.metricsAddr in the config to expose Prometheus metrics.`,
		Args: cobra.NoArgs,
	}
	v := addRequestFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		application, err := newApplication(cmd)
		if err != nil {
			return err
		}
		req, err := resolveRequest(v, application.Settings().Launch)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return application.Launch(ctx, req, cmd.OutOrStdout())
	}
	return cmd
}
