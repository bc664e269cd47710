// Package state tracks the runtime phase of each supervised service.
package state

import (
	"sort"
	"sync"
	"time"
)

// Phase is where a service is in its run.
type Phase string

const (
	PhaseStarting   Phase = "starting"
	PhaseRunning    Phase = "running"
	PhaseLoaded     Phase = "loaded"
	PhaseRespawning Phase = "respawning"
	PhaseExited     Phase = "exited"
	PhaseFailed     Phase = "failed"
)

// ServiceState is the last known state of one service.
type ServiceState struct {
	ServiceID string
	Phase     Phase
	PID       int
	Restarts  int
	Error     error
	Since     time.Time
}

// Tracker records service states. It is safe for concurrent use.
type Tracker interface {
	Update(serviceID string, phase Phase, pid int, err error)
	Get(serviceID string) (ServiceState, bool)
	All() []ServiceState
}

type tracker struct {
	states map[string]ServiceState
	mu     sync.RWMutex
	now    func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() Tracker {
	return &tracker{
		states: make(map[string]ServiceState),
		now:    time.Now,
	}
}

// Update moves a service to phase. Entering PhaseRespawning counts a restart.
func (t *tracker) Update(serviceID string, phase Phase, pid int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.states[serviceID]
	s.ServiceID = serviceID
	if phase == PhaseRespawning {
		s.Restarts++
	}
	s.Phase = phase
	s.PID = pid
	s.Error = err
	s.Since = t.now()
	t.states[serviceID] = s
}

func (t *tracker) Get(serviceID string) (ServiceState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.states[serviceID]
	return s, ok
}

// All returns a copy of every state ordered by service id.
func (t *tracker) All() []ServiceState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]ServiceState, 0, len(t.states))
	for _, s := range t.states {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServiceID < out[j].ServiceID })
	return out
}
