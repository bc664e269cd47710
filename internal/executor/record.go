package executor

import (
	"errors"
	"fmt"

	"bringupctl/internal/launch"
	"bringupctl/internal/params"
	"bringupctl/internal/topology"
)

// ErrMalformedPlanEntry is matched by every *MalformedEntryError.
var ErrMalformedPlanEntry = errors.New("malformed plan entry")

// MalformedEntryError reports a plan entry that breaks the invariants of its
// role. It always points at a planner defect.
type MalformedEntryError struct {
	Index     int
	ServiceID string
	Reason    string
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("malformed plan entry #%d (%q): %s", e.Index, e.ServiceID, e.Reason)
}

func (e *MalformedEntryError) Is(target error) bool {
	return target == ErrMalformedPlanEntry
}

// Kind is what the substrate has to do with a record.
type Kind string

const (
	// KindProcess forks an executable.
	KindProcess Kind = "process"
	// KindComponent loads a plugin into a running container.
	KindComponent Kind = "component"
	// KindFragment includes an external sub-launch.
	KindFragment Kind = "fragment"
)

// SinkScreen routes a stream to the launching terminal.
const SinkScreen = "screen"

// OutputPolicy says where a service's streams go.
type OutputPolicy struct {
	Stdout string `yaml:"stdout" json:"stdout"`
	Stderr string `yaml:"stderr" json:"stderr"`
}

// StartRecord is one concrete start action for the process/component substrate.
type StartRecord struct {
	Index     int           `yaml:"index" json:"index"`
	ServiceID string        `yaml:"serviceId" json:"serviceId"`
	Role      topology.Role `yaml:"role" json:"role"`
	Kind      Kind          `yaml:"kind" json:"kind"`

	Package    string `yaml:"package" json:"package"`
	Executable string `yaml:"executable,omitempty" json:"executable,omitempty"`
	Plugin     string `yaml:"plugin,omitempty" json:"plugin,omitempty"`
	NodeName   string `yaml:"nodeName,omitempty" json:"nodeName,omitempty"`
	Namespace  string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Fragment   string `yaml:"fragment,omitempty" json:"fragment,omitempty"`

	ContainerTarget string `yaml:"containerTarget,omitempty" json:"containerTarget,omitempty"`

	Parameters params.Document `yaml:"parameters" json:"parameters"`
	Inline     params.Document `yaml:"inline" json:"inline"`
	// LaunchArguments are handed to fragment sub-launches.
	LaunchArguments map[string]string `yaml:"launchArguments,omitempty" json:"launchArguments,omitempty"`

	Arguments   []string                `yaml:"arguments" json:"arguments"`
	LogLevel    launch.LogLevel         `yaml:"logLevel" json:"logLevel"`
	Output      OutputPolicy            `yaml:"output" json:"output"`
	Environment map[string]string       `yaml:"environment,omitempty" json:"environment,omitempty"`
	Respawn     *topology.FailurePolicy `yaml:"respawn,omitempty" json:"respawn,omitempty"`
}

// Label is a short human readable name for logs.
func (r StartRecord) Label() string {
	if r.Kind == KindComponent {
		return fmt.Sprintf("%s@%s", r.ServiceID, r.ContainerTarget)
	}
	return r.ServiceID
}
