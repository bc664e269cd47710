package lifecycle

import "time"

// State is a managed service's lifecycle state.
type State string

const (
	StateUnconfigured State = "unconfigured"
	StateInactive     State = "inactive"
	StateActive       State = "active"
	StateFinalized    State = "finalized"
)

// Transition names a lifecycle transition the coordinator requests.
type Transition string

const (
	TransitionConfigure  Transition = "configure"
	TransitionActivate   Transition = "activate"
	TransitionDeactivate Transition = "deactivate"
	TransitionCleanup    Transition = "cleanup"
	TransitionShutdown   Transition = "shutdown"
)

// Target returns the state a service reaches after a successful transition.
func (t Transition) Target() State {
	switch t {
	case TransitionConfigure, TransitionDeactivate:
		return StateInactive
	case TransitionActivate:
		return StateActive
	case TransitionCleanup:
		return StateUnconfigured
	default:
		return StateFinalized
	}
}

// Step is one transition of one service, bounded by the bond timeout.
type Step struct {
	Service    string        `yaml:"service" json:"service"`
	Transition Transition    `yaml:"transition" json:"transition"`
	Target     State         `yaml:"target" json:"target"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// StartupSequence brings each member through configure then activate, in
// membership order. An empty result means autostart is off and the
// coordinator waits for an explicit request.
func StartupSequence(cfg Config) []Step {
	if !cfg.Autostart {
		return nil
	}
	steps := make([]Step, 0, 2*len(cfg.Membership))
	for _, svc := range cfg.Membership {
		for _, tr := range []Transition{TransitionConfigure, TransitionActivate} {
			steps = append(steps, Step{Service: svc, Transition: tr, Target: tr.Target(), Timeout: cfg.BondTimeout})
		}
	}
	return steps
}

// ShutdownSequence tears members down in reverse membership order.
func ShutdownSequence(cfg Config) []Step {
	steps := make([]Step, 0, 3*len(cfg.Membership))
	for i := len(cfg.Membership) - 1; i >= 0; i-- {
		svc := cfg.Membership[i]
		for _, tr := range []Transition{TransitionDeactivate, TransitionCleanup, TransitionShutdown} {
			steps = append(steps, Step{Service: svc, Transition: tr, Target: tr.Target(), Timeout: cfg.BondTimeout})
		}
	}
	return steps
}
