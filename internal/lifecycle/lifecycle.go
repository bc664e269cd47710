package lifecycle

import (
	"errors"
	"fmt"
	"time"
)

const (
	MeasurementServer = "measurement_server"
	DestinationServer = "destination_server"

	// DefaultBondTimeout is how long the coordinator waits for a managed
	// service's heartbeat before it considers the service failed.
	DefaultBondTimeout = 10 * time.Second
)

// ErrMembershipMismatch is returned when the managed entries of a plan do
// not match the membership handed to the coordinator.
var ErrMembershipMismatch = errors.New("lifecycle membership mismatch")

// Membership returns the ordered list of lifecycle-managed services. It is
// the same for every topology.
func Membership() []string {
	return []string{MeasurementServer, DestinationServer}
}

// Config is everything the external lifecycle coordinator receives.
type Config struct {
	Membership  []string      `yaml:"membership" json:"membership"`
	Autostart   bool          `yaml:"autostart" json:"autostart"`
	BondTimeout time.Duration `yaml:"-" json:"-"`
	// BondTimeoutSeconds mirrors BondTimeout for serialized output.
	BondTimeoutSeconds float64 `yaml:"bondTimeoutSeconds" json:"bondTimeoutSeconds"`
}

// NewConfig returns the coordinator config for a launch.
func NewConfig(autostart bool) Config {
	return Config{
		Membership:         Membership(),
		Autostart:          autostart,
		BondTimeout:        DefaultBondTimeout,
		BondTimeoutSeconds: DefaultBondTimeout.Seconds(),
	}
}

// Parameters renders the config as the coordinator node's parameters.
func (c Config) Parameters() map[string]interface{} {
	names := make([]interface{}, len(c.Membership))
	for i, n := range c.Membership {
		names[i] = n
	}
	return map[string]interface{}{
		"autostart":    c.Autostart,
		"node_names":   names,
		"bond_timeout": c.BondTimeout.Seconds(),
	}
}

// VerifyMembership checks that managed lists exactly the configured members, in order.
func VerifyMembership(cfg Config, managed []string) error {
	if len(cfg.Membership) != len(managed) {
		return fmt.Errorf("%w: coordinator has %v, plan manages %v", ErrMembershipMismatch, cfg.Membership, managed)
	}
	for i := range managed {
		if cfg.Membership[i] != managed[i] {
			return fmt.Errorf("%w: coordinator has %v, plan manages %v", ErrMembershipMismatch, cfg.Membership, managed)
		}
	}
	return nil
}
