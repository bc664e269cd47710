package app

import (
	"fmt"
	"os"

	"bringupctl/internal/config"
	"bringupctl/internal/kubeexport"
	"bringupctl/internal/supervisor"
	"bringupctl/pkg/logging"

	"k8s.io/client-go/kubernetes"
)

// Application wires configuration, planning and the launch back ends.
type Application struct {
	config *Config

	supervisorOptions supervisor.Options
	newKubeClient     func(kubeconfig, kubeContext string) (kubernetes.Interface, error)
}

// NewApplication initializes logging and loads the bringupctl configuration.
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}
	out := cfg.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logging.InitForCLI(appLogLevel, out)

	if cfg.Bringup == nil {
		var bringupCfg config.BringupConfig
		var err error
		if cfg.ConfigPath != "" {
			bringupCfg, err = config.LoadConfigFromPath(cfg.ConfigPath)
			if err != nil {
				logging.Error("Bootstrap", err, "Failed to load configuration from path: %s", cfg.ConfigPath)
				return nil, fmt.Errorf("failed to load configuration from path %s: %w", cfg.ConfigPath, err)
			}
			logging.Debug("Bootstrap", "Loaded configuration from custom path: %s", cfg.ConfigPath)
		} else {
			bringupCfg, err = config.LoadConfig()
			if err != nil {
				logging.Error("Bootstrap", err, "Failed to load configuration")
				return nil, fmt.Errorf("failed to load configuration: %w", err)
			}
			logging.Debug("Bootstrap", "Loaded configuration using layered approach")
		}
		cfg.Bringup = &bringupCfg
	}

	return &Application{
		config:        cfg,
		newKubeClient: kubeexport.NewClient,
	}, nil
}

// Settings returns the loaded configuration.
func (a *Application) Settings() config.BringupConfig {
	return *a.config.Bringup
}
