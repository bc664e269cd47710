package cmd

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"bringupctl/internal/app"
	"bringupctl/internal/color"
	"bringupctl/internal/render"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	var output string
	var watch bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the start records for the given launch arguments",
		Long: `Plans the bringup without starting anything and prints one record
per service in start order, followed by the lifecycle manager settings.

With --watch the plan is printed again every time the parameter file
changes, until interrupted.`,
		Args: cobra.NoArgs,
	}
	v := addRequestFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", string(render.FormatTable), "Output format: table, yaml or json")
	cmd.Flags().BoolVar(&watch, "watch", false, "Re-plan whenever the parameter file changes")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		format, err := render.ParseFormat(output)
		if err != nil {
			return err
		}

		application, err := newApplication(cmd)
		if err != nil {
			return err
		}
		req, err := resolveRequest(v, application.Settings().Launch)
		if err != nil {
			return err
		}

		if format == render.FormatTable {
			color.Initialize(lipgloss.HasDarkBackground())
		}
		out := cmd.OutOrStdout()

		if !watch {
			result, err := app.Build(req)
			if err != nil {
				return err
			}
			return render.Write(out, format, result.Report())
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return application.Watch(ctx, req, func(result app.Result, err error) {
			printWatched(out, cmd.ErrOrStderr(), format, result, err)
		})
	}
	return cmd
}

func printWatched(out, errOut io.Writer, format render.Format, result app.Result, err error) {
	if err != nil {
		fmt.Fprintf(errOut, "plan failed: %v\n", err)
		return
	}
	if format == render.FormatYAML {
		fmt.Fprintln(out, "---")
	}
	if err := render.Write(out, format, result.Report()); err != nil {
		fmt.Fprintf(errOut, "render failed: %v\n", err)
	}
}
