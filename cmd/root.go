package cmd

import (
	"os"

	"bringupctl/internal/app"

	"github.com/spf13/cobra"
)

var (
	// debug enables verbose logging across the application.
	debug bool
	// configPath replaces the layered config lookup with a single file.
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bringupctl",
	Short: "Plan and launch the data collection bringup",
	Long: `bringupctl turns the data collection launch arguments into a deployment
plan: either one process per service, or one component container hosting
the measurement and destination servers and their lifecycle manager.

The plan can be printed, run on this host under supervision, or exported
as Kubernetes manifests.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid parameter files, failed starts)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "bringupctl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

// newApplication bootstraps logging and configuration for a subcommand.
func newApplication(cmd *cobra.Command) (*app.Application, error) {
	cfg := app.NewConfig(debug, configPath)
	cfg.LogOutput = cmd.ErrOrStderr()
	return app.NewApplication(cfg)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: layered ~/.config/bringupctl and ./.bringupctl)")

	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newLaunchCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
