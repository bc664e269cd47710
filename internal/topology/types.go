package topology

import (
	"errors"
	"fmt"
	"time"

	"bringupctl/internal/launch"
	"bringupctl/internal/lifecycle"
	"bringupctl/internal/params"
)

// Topology is the chosen arrangement of the services of one launch.
type Topology string

const (
	// TopologyStandalone runs every service as its own process.
	TopologyStandalone Topology = "standalone"
	// TopologyComposed packs the managed services into one container process.
	TopologyComposed Topology = "composed"
)

// Role is how a single plan entry is started.
type Role string

const (
	RoleStandaloneProcess  Role = "standalone-process"
	RoleInProcessComponent Role = "in-process-component"
)

// DefaultRespawnDelay is the delay before a respawning process is restarted.
const DefaultRespawnDelay = 2 * time.Second

// ErrInvalidTopologyConfig is matched by every *ConfigError.
var ErrInvalidTopologyConfig = errors.New("invalid topology config")

// ConfigError reports a request field the selected topology cannot work without.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid topology config: field '%s': %s", e.Field, e.Message)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidTopologyConfig
}

// FailurePolicy tells the process supervisor what to do when a process exits.
type FailurePolicy struct {
	Respawn      bool          `yaml:"respawn" json:"respawn"`
	RespawnDelay time.Duration `yaml:"respawnDelay" json:"respawnDelay"`
}

// Entry is one service of a plan. Entries are values; nothing mutates them
// once the planner or splicer has returned them.
type Entry struct {
	ServiceID string `yaml:"serviceId" json:"serviceId"`
	Role      Role   `yaml:"role" json:"role"`

	Package    string `yaml:"package" json:"package"`
	Executable string `yaml:"executable,omitempty" json:"executable,omitempty"`
	Plugin     string `yaml:"plugin,omitempty" json:"plugin,omitempty"`
	NodeName   string `yaml:"nodeName,omitempty" json:"nodeName,omitempty"`
	// Fragment is the launch file of an externally supplied sub-launch.
	Fragment string `yaml:"fragment,omitempty" json:"fragment,omitempty"`

	Parameters params.Document `yaml:"parameters" json:"parameters"`
	// Inline parameters are applied after Parameters.
	Inline params.Document `yaml:"inline" json:"inline"`

	Failure          *FailurePolicy    `yaml:"failure,omitempty" json:"failure,omitempty"`
	ContainerTarget  string            `yaml:"containerTarget,omitempty" json:"containerTarget,omitempty"`
	LifecycleManaged bool              `yaml:"lifecycleManaged" json:"lifecycleManaged"`
	Lifecycle        *lifecycle.Config `yaml:"lifecycle,omitempty" json:"lifecycle,omitempty"`
}

// IsFragment reports whether the entry delegates to an external sub-launch.
func (e Entry) IsFragment() bool {
	return e.Fragment != ""
}

// Plan is the result of planning one launch request.
type Plan struct {
	Request  launch.Request `yaml:"request" json:"request"`
	Topology Topology       `yaml:"topology" json:"topology"`

	// Parameters is the rewritten document shared by the service entries.
	Parameters params.Document  `yaml:"-" json:"-"`
	Entries    []Entry          `yaml:"entries" json:"entries"`
	Lifecycle  lifecycle.Config `yaml:"lifecycle" json:"lifecycle"`
}

// Managed returns the ids of the lifecycle-managed entries in plan order.
func (p Plan) Managed() []string {
	var ids []string
	for _, e := range p.Entries {
		if e.LifecycleManaged {
			ids = append(ids, e.ServiceID)
		}
	}
	return ids
}

// Entry looks an entry up by service id.
func (p Plan) Entry(serviceID string) (Entry, bool) {
	for _, e := range p.Entries {
		if e.ServiceID == serviceID {
			return e, true
		}
	}
	return Entry{}, false
}

// Roles counts entries per role.
func (p Plan) Roles() map[Role]int {
	counts := make(map[Role]int)
	for _, e := range p.Entries {
		counts[e.Role]++
	}
	return counts
}
