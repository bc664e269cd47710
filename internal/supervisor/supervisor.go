// Package supervisor runs start records on the local host.
//
// Standalone records become processes started through a ProcessLauncher;
// component records are loaded into their container through a
// ComponentLoader once the container process is up. A standalone record
// whose respawn policy is set is restarted after its delay. Any failed start
// or load tears the whole launch down.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"bringupctl/internal/executor"
	"bringupctl/internal/state"
	"bringupctl/pkg/logging"

	"golang.org/x/sync/errgroup"
)

// Component loads are retried while the container comes up.
const (
	DefaultLoadAttempts = 5
	DefaultLoadBackoff  = time.Second
)

// Options configures a Supervisor. Nil launcher or loader fall back to the
// exec based implementations.
type Options struct {
	Launcher ProcessLauncher
	Loader   ComponentLoader
	Metrics  *Metrics
	States   state.Tracker

	// LoadAttempts bounds how often a component load is tried while its
	// container is still coming up.
	LoadAttempts int
	LoadBackoff  time.Duration
}

// Supervisor starts and watches the records of one launch.
type Supervisor struct {
	launcher     ProcessLauncher
	loader       ComponentLoader
	metrics      *Metrics
	states       state.Tracker
	loadAttempts int
	loadBackoff  time.Duration
}

// New creates a supervisor.
func New(opts Options) *Supervisor {
	s := &Supervisor{
		launcher:     opts.Launcher,
		loader:       opts.Loader,
		metrics:      opts.Metrics,
		states:       opts.States,
		loadAttempts: opts.LoadAttempts,
		loadBackoff:  opts.LoadBackoff,
	}
	if s.launcher == nil {
		s.launcher = &ExecLauncher{}
	}
	if s.loader == nil {
		s.loader = &ExecLoader{}
	}
	if s.metrics == nil {
		s.metrics = NewMetrics("")
	}
	if s.states == nil {
		s.states = state.NewTracker()
	}
	if s.loadAttempts <= 0 {
		s.loadAttempts = DefaultLoadAttempts
	}
	if s.loadBackoff <= 0 {
		s.loadBackoff = DefaultLoadBackoff
	}
	return s
}

// Metrics returns the collector the supervisor records into.
func (s *Supervisor) Metrics() *Metrics {
	return s.metrics
}

// States returns the per-service state tracker.
func (s *Supervisor) States() state.Tracker {
	return s.states
}

// Run starts every record in order and blocks until ctx is cancelled, every
// process has exited for good, or a start fails. Cancellation is a clean
// shutdown and returns nil.
func (s *Supervisor) Run(ctx context.Context, records []executor.StartRecord) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	abort := func(err error) error {
		logging.Error("Supervisor", err, "Tearing down launch")
		cancel()
		_ = g.Wait()
		return err
	}

	running := make(map[string]bool)
	for _, rec := range records {
		rec := rec
		if rec.Kind == executor.KindComponent {
			if !running[rec.ContainerTarget] {
				return abort(fmt.Errorf("container %q for %s is not running", rec.ContainerTarget, rec.ServiceID))
			}
			if err := s.load(gctx, rec); err != nil {
				return abort(err)
			}
			continue
		}

		proc, err := s.start(gctx, rec)
		if err != nil {
			return abort(err)
		}
		running[rec.ServiceID] = true
		g.Go(func() error {
			return s.supervise(gctx, rec, proc)
		})
	}

	logging.Info("Supervisor", "All %d records started", len(records))
	err := g.Wait()
	if err != nil {
		logging.Error("Supervisor", err, "Launch stopped")
	}
	return err
}

func (s *Supervisor) start(ctx context.Context, rec executor.StartRecord) (Process, error) {
	s.states.Update(rec.ServiceID, state.PhaseStarting, 0, nil)
	proc, err := s.launcher.Start(ctx, rec)
	if err != nil {
		s.states.Update(rec.ServiceID, state.PhaseFailed, 0, err)
		return nil, err
	}
	s.states.Update(rec.ServiceID, state.PhaseRunning, proc.PID(), nil)
	s.metrics.ServiceStart(rec.ServiceID)
	logging.Info("Supervisor", "Started %s (pid %d)", rec.Label(), proc.PID())
	return proc, nil
}

func (s *Supervisor) supervise(ctx context.Context, rec executor.StartRecord, proc Process) error {
	for {
		err := proc.Wait()
		if ctx.Err() != nil {
			s.metrics.ServiceExit(rec.ServiceID, OutcomeCancelled)
			s.states.Update(rec.ServiceID, state.PhaseExited, 0, nil)
			return nil
		}
		s.states.Update(rec.ServiceID, state.PhaseExited, 0, err)
		if err != nil {
			s.metrics.ServiceExit(rec.ServiceID, OutcomeFailure)
			logging.Warn("Supervisor", "%s exited: %v", rec.Label(), err)
		} else {
			s.metrics.ServiceExit(rec.ServiceID, OutcomeSuccess)
			logging.Info("Supervisor", "%s exited", rec.Label())
		}

		if rec.Respawn == nil || !rec.Respawn.Respawn {
			return nil
		}

		s.states.Update(rec.ServiceID, state.PhaseRespawning, 0, nil)
		logging.Info("Supervisor", "Respawning %s in %s", rec.Label(), rec.Respawn.RespawnDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(rec.Respawn.RespawnDelay):
		}

		s.metrics.ServiceRestart(rec.ServiceID)
		proc, err = s.start(ctx, rec)
		if err != nil {
			return fmt.Errorf("respawn %s: %w", rec.ServiceID, err)
		}
	}
}

func (s *Supervisor) load(ctx context.Context, rec executor.StartRecord) error {
	var err error
	for attempt := 1; attempt <= s.loadAttempts; attempt++ {
		err = s.loader.Load(ctx, rec)
		s.metrics.ComponentLoad(rec.ServiceID, rec.ContainerTarget, err)
		if err == nil {
			s.states.Update(rec.ServiceID, state.PhaseLoaded, 0, nil)
			logging.Info("Supervisor", "Loaded %s", rec.Label())
			return nil
		}
		if attempt == s.loadAttempts {
			break
		}
		logging.Debug("Supervisor", "Load of %s failed (attempt %d/%d): %v", rec.Label(), attempt, s.loadAttempts, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.loadBackoff):
		}
	}
	s.states.Update(rec.ServiceID, state.PhaseFailed, 0, err)
	return fmt.Errorf("load %s after %d attempts: %w", rec.Label(), s.loadAttempts, err)
}
