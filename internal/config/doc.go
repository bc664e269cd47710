// Package config provides configuration management for bringupctl.
//
// Configuration is loaded from multiple YAML sources and merged in order,
// with later sources overriding earlier ones:
//
//  1. Default configuration (built into the binary)
//  2. User configuration (~/.config/bringupctl/config.yaml)
//  3. Project configuration (./.bringupctl/config.yaml)
//
// A layer only has to contain the keys it changes. Unknown keys are an
// error so that typos do not silently fall back to a default.
//
// # Configuration Structure
//
//	launch:
//	  namespace: "robot1"
//	  useSimTime: false
//	  paramsFile: "params/dc_params.yaml"
//	  autostart: true
//	  useComposition: true
//	  containerName: "dc_container"
//	  useRespawn: false
//	  logLevel: "info"
//	  services:
//	    saveImage: false
//	    drawImage: false
//	    detectBarcodes: true
//	    groupNode: false
//
//	supervisor:
//	  rosCommand: "ros2"
//	  metricsAddr: ":9464"
//
//	export:
//	  image: "ghcr.io/minipada/ros2_data_collection:humble"
//	  kubeNamespace: "robots"
//	  kubeconfig: ""
//
// Command-line flags and BRINGUP_* environment variables take precedence
// over every file layer; that resolution happens in the cmd package.
package config
