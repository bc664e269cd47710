package config

import "bringupctl/internal/launch"

const (
	DefaultParamsFile    = "params/dc_params.yaml"
	DefaultContainerName = "dc_container"
	DefaultRosCommand    = "ros2"
	DefaultImage         = "ghcr.io/minipada/ros2_data_collection:humble"
	DefaultKubeNamespace = "default"
)

// GetDefaultConfig returns the built-in configuration. Launch defaults
// match the declared defaults of the bringup launch arguments.
func GetDefaultConfig() BringupConfig {
	return BringupConfig{
		Launch: LaunchDefaults{
			Namespace:      "",
			UseSimTime:     false,
			ParamsFile:     DefaultParamsFile,
			Autostart:      true,
			UseComposition: true,
			ContainerName:  DefaultContainerName,
			UseRespawn:     false,
			LogLevel:       string(launch.LogLevelInfo),
			Services:       launch.OptionalServices{},
		},
		Supervisor: SupervisorConfig{
			RosCommand: DefaultRosCommand,
		},
		Export: ExportConfig{
			Image:         DefaultImage,
			KubeNamespace: DefaultKubeNamespace,
		},
	}
}
