package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"bringupctl/internal/kubeexport"
	"bringupctl/internal/launch"
	"bringupctl/internal/params"
	"bringupctl/internal/supervisor"
	"bringupctl/pkg/logging"

	"golang.org/x/sync/errgroup"
)

// Launch builds the launch and supervises it on this host until ctx is
// cancelled. Process output goes to out.
func (a *Application) Launch(ctx context.Context, req launch.Request, out io.Writer) error {
	result, err := Build(req)
	if err != nil {
		return err
	}

	settings := a.Settings().Supervisor
	opts := a.supervisorOptions
	if opts.Launcher == nil {
		launcher := &supervisor.ExecLauncher{Command: settings.RosCommand, Output: out}
		defer func() {
			if err := launcher.Close(); err != nil {
				logging.Warn("App", "Failed to clean up parameter files: %v", err)
			}
		}()
		opts.Launcher = launcher
	}
	if opts.Loader == nil {
		opts.Loader = &supervisor.ExecLoader{Command: settings.RosCommand, Output: out}
	}
	sup := supervisor.New(opts)

	logging.Info("App", "Starting launch %s (%s)", result.LaunchID, req.Summary())

	g, gctx := errgroup.WithContext(ctx)
	if settings.MetricsAddr != "" {
		g.Go(func() error {
			return sup.Metrics().Serve(gctx, settings.MetricsAddr)
		})
	}
	g.Go(func() error {
		err := sup.Run(gctx, result.Records)
		if err != nil {
			return err
		}
		// all processes are down; stop the metrics server as well
		return errLaunchFinished
	})

	err = g.Wait()
	for _, st := range sup.States().All() {
		logging.Debug("App", "%s: %s, %d restarts", st.ServiceID, st.Phase, st.Restarts)
	}
	if err != nil && !errors.Is(err, errLaunchFinished) {
		return err
	}
	logging.Info("App", "Launch %s stopped", result.LaunchID)
	return nil
}

var errLaunchFinished = errors.New("launch finished")

// ExportOptions selects where manifests go.
type ExportOptions struct {
	// Apply sends the manifests to the cluster instead of only printing them.
	Apply       bool
	KubeContext string
}

// Export renders the launch as Kubernetes manifests, writes them to out
// and, when asked, applies them.
func (a *Application) Export(ctx context.Context, req launch.Request, out io.Writer, opts ExportOptions) error {
	result, err := Build(req)
	if err != nil {
		return err
	}

	settings := a.Settings()
	manifests, err := kubeexport.Render(result.Records, result.Lifecycle, kubeexport.Options{
		Image:      settings.Export.Image,
		Namespace:  settings.Export.KubeNamespace,
		RosCommand: settings.Supervisor.RosCommand,
		LaunchID:   result.LaunchID,
	})
	if err != nil {
		return fmt.Errorf("render manifests: %w", err)
	}

	if !opts.Apply {
		data, err := manifests.Encode()
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	client, err := a.newKubeClient(settings.Export.Kubeconfig, opts.KubeContext)
	if err != nil {
		return err
	}
	if err := kubeexport.Apply(ctx, client, manifests); err != nil {
		return err
	}
	fmt.Fprintf(out, "Applied configmap %s and %d pods to namespace %s\n",
		manifests.ConfigMap.Name, len(manifests.Pods), settings.Export.KubeNamespace)
	return nil
}

// Watch builds the launch once and again after every change to the
// parameter file, handing each outcome to fn, until ctx is done.
func (a *Application) Watch(ctx context.Context, req launch.Request, fn func(Result, error)) error {
	fn(Build(req))
	return params.Watch(ctx, req.ParamsFile, func() {
		fn(Build(req))
	})
}
