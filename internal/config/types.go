package config

import (
	"fmt"

	"bringupctl/internal/launch"
)

// BringupConfig is the top-level configuration for bringupctl.
type BringupConfig struct {
	Launch     LaunchDefaults   `yaml:"launch"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Export     ExportConfig     `yaml:"export"`
}

// LaunchDefaults holds the value of every launch argument when no flag or
// environment variable overrides it.
type LaunchDefaults struct {
	Namespace      string                  `yaml:"namespace"`
	UseSimTime     bool                    `yaml:"useSimTime"`
	ParamsFile     string                  `yaml:"paramsFile"`
	Autostart      bool                    `yaml:"autostart"`
	UseComposition bool                    `yaml:"useComposition"`
	ContainerName  string                  `yaml:"containerName"`
	UseRespawn     bool                    `yaml:"useRespawn"`
	LogLevel       string                  `yaml:"logLevel"`
	Services       launch.OptionalServices `yaml:"services"`
}

// Request converts the defaults into a launch request.
func (d LaunchDefaults) Request() (launch.Request, error) {
	level, err := launch.ParseLogLevel(d.LogLevel)
	if err != nil {
		return launch.Request{}, fmt.Errorf("launch.logLevel: %w", err)
	}
	return launch.Request{
		Namespace:      d.Namespace,
		UseSimTime:     d.UseSimTime,
		ParamsFile:     d.ParamsFile,
		Autostart:      d.Autostart,
		UseComposition: d.UseComposition,
		ContainerName:  d.ContainerName,
		UseRespawn:     d.UseRespawn,
		LogLevel:       level,
		Services:       d.Services,
	}, nil
}

// SupervisorConfig configures the local process supervisor.
type SupervisorConfig struct {
	// RosCommand is the CLI used to start processes and load components.
	RosCommand string `yaml:"rosCommand"`
	// MetricsAddr serves /metrics when non-empty, e.g. ":9464".
	MetricsAddr string `yaml:"metricsAddr"`
}

// ExportConfig configures Kubernetes manifest export.
type ExportConfig struct {
	Image         string `yaml:"image"`
	KubeNamespace string `yaml:"kubeNamespace"`
	// Kubeconfig overrides the default loading rules when set.
	Kubeconfig string `yaml:"kubeconfig"`
}
