package cmd

import (
	"bringupctl/internal/app"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var opts app.ExportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the bringup as Kubernetes manifests",
		Long: `Renders one ConfigMap with the rewritten parameter files and one Pod per
standalone service. Components are started by their container's Pod.

Without --apply the manifests are printed as a YAML stream suitable for
kubectl apply -f -. With --apply they are created in the cluster, updating
the ConfigMap and replacing Pods that already exist.`,
		Args: cobra.NoArgs,
	}
	v := addRequestFlags(cmd)
	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "Create the manifests in the cluster")
	cmd.Flags().StringVar(&opts.KubeContext, "context", "", "Kubeconfig context to apply to (default: current context)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		application, err := newApplication(cmd)
		if err != nil {
			return err
		}
		req, err := resolveRequest(v, application.Settings().Launch)
		if err != nil {
			return err
		}
		return application.Export(cmd.Context(), req, cmd.OutOrStdout(), opts)
	}
	return cmd
}
