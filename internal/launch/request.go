// Package launch defines the resolved launch request handed to the planner.
//
// A Request is built once per launch by the CLI layer (flags over config
// over defaults) and is read-only afterwards; every planning function takes
// it by value.
package launch

import (
	"fmt"
	"strings"
)

// LogLevel is the log level passed to every launched service.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

// ParseLogLevel validates a log level name.
func ParseLogLevel(raw string) (LogLevel, error) {
	switch lvl := LogLevel(strings.ToLower(strings.TrimSpace(raw))); lvl {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelFatal:
		return lvl, nil
	case "":
		return LogLevelInfo, nil
	default:
		return "", fmt.Errorf("invalid log level %q (want debug, info, warn, error or fatal)", raw)
	}
}

// Valid reports whether l is a known level. The empty level is valid and
// means info.
func (l LogLevel) Valid() bool {
	switch l {
	case "", LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelFatal:
		return true
	}
	return false
}

// OptionalServices toggles the services that are spliced into either topology.
type OptionalServices struct {
	SaveImage      bool `yaml:"saveImage" json:"saveImage"`
	DrawImage      bool `yaml:"drawImage" json:"drawImage"`
	DetectBarcodes bool `yaml:"detectBarcodes" json:"detectBarcodes"`
	GroupNode      bool `yaml:"groupNode" json:"groupNode"`
}

// Enabled returns the names of the enabled flags in their fixed order.
func (o OptionalServices) Enabled() []string {
	var names []string
	if o.SaveImage {
		names = append(names, "saveImage")
	}
	if o.DrawImage {
		names = append(names, "drawImage")
	}
	if o.DetectBarcodes {
		names = append(names, "detectBarcodes")
	}
	if o.GroupNode {
		names = append(names, "groupNode")
	}
	return names
}

// Request is the fully resolved input of one launch.
type Request struct {
	Namespace      string           `yaml:"namespace" json:"namespace"`
	UseSimTime     bool             `yaml:"useSimTime" json:"useSimTime"`
	ParamsFile     string           `yaml:"paramsFile" json:"paramsFile"`
	Autostart      bool             `yaml:"autostart" json:"autostart"`
	UseComposition bool             `yaml:"useComposition" json:"useComposition"`
	ContainerName  string           `yaml:"containerName" json:"containerName"`
	UseRespawn     bool             `yaml:"useRespawn" json:"useRespawn"`
	LogLevel       LogLevel         `yaml:"logLevel" json:"logLevel"`
	Services       OptionalServices `yaml:"services" json:"services"`
}

// EffectiveLogLevel returns the request's log level, defaulting to info.
func (r Request) EffectiveLogLevel() LogLevel {
	if r.LogLevel == "" {
		return LogLevelInfo
	}
	return r.LogLevel
}

// Summary is a one-line description used in logs.
func (r Request) Summary() string {
	topology := "standalone"
	if r.UseComposition {
		topology = fmt.Sprintf("composed(%s)", r.ContainerName)
	}
	ns := r.Namespace
	if ns == "" {
		ns = "/"
	}
	return fmt.Sprintf("namespace=%s topology=%s autostart=%t respawn=%t log_level=%s optional=%v",
		ns, topology, r.Autostart, r.UseRespawn, r.EffectiveLogLevel(), r.Services.Enabled())
}
