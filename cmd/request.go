package cmd

import (
	"strings"

	"bringupctl/internal/config"
	"bringupctl/internal/launch"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Launch argument flags. Each can also be set as BRINGUP_<FLAG> with dashes
// turned into underscores, e.g. BRINGUP_USE_COMPOSITION=false.
const (
	flagNamespace      = "namespace"
	flagUseSimTime     = "use-sim-time"
	flagParamsFile     = "params-file"
	flagAutostart      = "autostart"
	flagUseComposition = "use-composition"
	flagContainerName  = "container-name"
	flagUseRespawn     = "use-respawn"
	flagLogLevel       = "log-level"
	flagSaveImage      = "save-image"
	flagDrawImage      = "draw-image"
	flagDetectBarcodes = "detect-barcodes"
	flagGroupNode      = "group-node"
)

const envPrefix = "BRINGUP"

// addRequestFlags registers the launch arguments on cmd and returns the
// viper instance that resolves them.
func addRequestFlags(cmd *cobra.Command) *viper.Viper {
	defaults := config.GetDefaultConfig().Launch

	f := cmd.Flags()
	f.String(flagNamespace, defaults.Namespace, "Top-level namespace")
	f.Bool(flagUseSimTime, defaults.UseSimTime, "Use simulation (Gazebo) clock if true")
	f.String(flagParamsFile, defaults.ParamsFile, "Full path to the ROS2 parameters file to use for all launched nodes")
	f.Bool(flagAutostart, defaults.Autostart, "Automatically startup the data collection stack")
	f.Bool(flagUseComposition, defaults.UseComposition, "Use composed bringup if true")
	f.String(flagContainerName, defaults.ContainerName, "The name of container that nodes will load in if use composition")
	f.Bool(flagUseRespawn, defaults.UseRespawn, "Whether to respawn if a node crashes. Applied when composition is disabled.")
	f.String(flagLogLevel, defaults.LogLevel, "Log level (debug, info, warn, error, fatal)")
	f.Bool(flagSaveImage, defaults.Services.SaveImage, "Launch the image saving service")
	f.Bool(flagDrawImage, defaults.Services.DrawImage, "Launch the image drawing service")
	f.Bool(flagDetectBarcodes, defaults.Services.DetectBarcodes, "Launch the barcode detection service")
	f.Bool(flagGroupNode, defaults.Services.GroupNode, "Launch the group node")

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// BindPFlags only fails on a nil flag set
	_ = v.BindPFlags(f)
	return v
}

// resolveRequest builds the launch request. Precedence, highest first:
// explicit flags, BRINGUP_* environment variables, config files, built-in
// defaults.
func resolveRequest(v *viper.Viper, defaults config.LaunchDefaults) (launch.Request, error) {
	v.SetDefault(flagNamespace, defaults.Namespace)
	v.SetDefault(flagUseSimTime, defaults.UseSimTime)
	v.SetDefault(flagParamsFile, defaults.ParamsFile)
	v.SetDefault(flagAutostart, defaults.Autostart)
	v.SetDefault(flagUseComposition, defaults.UseComposition)
	v.SetDefault(flagContainerName, defaults.ContainerName)
	v.SetDefault(flagUseRespawn, defaults.UseRespawn)
	v.SetDefault(flagLogLevel, defaults.LogLevel)
	v.SetDefault(flagSaveImage, defaults.Services.SaveImage)
	v.SetDefault(flagDrawImage, defaults.Services.DrawImage)
	v.SetDefault(flagDetectBarcodes, defaults.Services.DetectBarcodes)
	v.SetDefault(flagGroupNode, defaults.Services.GroupNode)

	resolved := config.LaunchDefaults{
		Namespace:      v.GetString(flagNamespace),
		UseSimTime:     v.GetBool(flagUseSimTime),
		ParamsFile:     v.GetString(flagParamsFile),
		Autostart:      v.GetBool(flagAutostart),
		UseComposition: v.GetBool(flagUseComposition),
		ContainerName:  v.GetString(flagContainerName),
		UseRespawn:     v.GetBool(flagUseRespawn),
		LogLevel:       v.GetString(flagLogLevel),
		Services: launch.OptionalServices{
			SaveImage:      v.GetBool(flagSaveImage),
			DrawImage:      v.GetBool(flagDrawImage),
			DetectBarcodes: v.GetBool(flagDetectBarcodes),
			GroupNode:      v.GetBool(flagGroupNode),
		},
	}
	return resolved.Request()
}
