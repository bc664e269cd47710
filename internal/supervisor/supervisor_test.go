package supervisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bringupctl/internal/executor"
	"bringupctl/internal/state"
	"bringupctl/internal/topology"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcess struct {
	done chan struct{}
	err  error
}

func (p *fakeProcess) Wait() error { <-p.done; return p.err }
func (p *fakeProcess) PID() int    { return 4242 }

// fakeLauncher records starts. Processes stay up until the launch context
// ends unless exitAfter says how many starts of a service exit at once.
type fakeLauncher struct {
	mu        sync.Mutex
	events    []string
	starts    map[string]int
	exitAfter map[string]int
	failOn    string
	cancelled map[string]bool
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{starts: map[string]int{}, exitAfter: map[string]int{}, cancelled: map[string]bool{}}
}

func (l *fakeLauncher) Start(ctx context.Context, rec executor.StartRecord) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec.ServiceID == l.failOn {
		return nil, errors.New("exec: not found")
	}
	l.starts[rec.ServiceID]++
	l.events = append(l.events, "start:"+rec.ServiceID)

	p := &fakeProcess{done: make(chan struct{})}
	if l.starts[rec.ServiceID] <= l.exitAfter[rec.ServiceID] {
		p.err = errors.New("exit status 1")
		close(p.done)
		return p, nil
	}
	go func() {
		<-ctx.Done()
		l.mu.Lock()
		l.cancelled[rec.ServiceID] = true
		l.mu.Unlock()
		close(p.done)
	}()
	return p, nil
}

func (l *fakeLauncher) startCount(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.starts[id]
}

func (l *fakeLauncher) wasCancelled(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancelled[id]
}

type fakeLoader struct {
	launcher *fakeLauncher
	failures int
	calls    int
}

func (f *fakeLoader) Load(ctx context.Context, rec executor.StartRecord) error {
	f.launcher.mu.Lock()
	defer f.launcher.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("container not ready")
	}
	f.launcher.events = append(f.launcher.events, "load:"+rec.ServiceID)
	return nil
}

func processRecord(id string, respawn bool) executor.StartRecord {
	rec := executor.StartRecord{ServiceID: id, Kind: executor.KindProcess, Role: topology.RoleStandaloneProcess, Package: "pkg", Executable: id}
	if respawn {
		rec.Respawn = &topology.FailurePolicy{Respawn: true, RespawnDelay: 5 * time.Millisecond}
	}
	return rec
}

func componentRecord(id, container string) executor.StartRecord {
	return executor.StartRecord{ServiceID: id, Kind: executor.KindComponent, Role: topology.RoleInProcessComponent, Package: "pkg", Plugin: "pkg::" + id, ContainerTarget: container}
}

func runAsync(ctx context.Context, s *Supervisor, records []executor.StartRecord) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, records) }()
	return errCh
}

func TestRun_ComposedLoadsAfterContainer(t *testing.T) {
	launcher := newFakeLauncher()
	loader := &fakeLoader{launcher: launcher}
	s := New(Options{Launcher: launcher, Loader: loader})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(ctx, s, []executor.StartRecord{
		processRecord("dc_container", false),
		componentRecord("measurement_server", "dc_container"),
		componentRecord("destination_server", "dc_container"),
		processRecord("save_image", false),
	})

	require.Eventually(t, func() bool { return launcher.startCount("save_image") == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)

	assert.Equal(t, []string{"start:dc_container", "load:measurement_server", "load:destination_server", "start:save_image"}, launcher.events)
	loaded, _ := s.States().Get("destination_server")
	assert.Equal(t, state.PhaseLoaded, loaded.Phase)
	assert.True(t, launcher.wasCancelled("dc_container"))

	m := s.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.starts.WithLabelValues("dc_container")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.componentLoads.WithLabelValues("measurement_server", "dc_container", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exits.WithLabelValues("save_image", OutcomeCancelled)))
}

func TestRun_RespawnsAfterExit(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.exitAfter["measurement_server"] = 2
	s := New(Options{Launcher: launcher, Loader: &fakeLoader{launcher: launcher}})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(ctx, s, []executor.StartRecord{processRecord("measurement_server", true)})

	require.Eventually(t, func() bool { return launcher.startCount("measurement_server") == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)

	m := s.Metrics()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.restarts.WithLabelValues("measurement_server")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.exits.WithLabelValues("measurement_server", OutcomeFailure)))

	st, ok := s.States().Get("measurement_server")
	require.True(t, ok)
	assert.Equal(t, 2, st.Restarts)
	assert.Equal(t, state.PhaseExited, st.Phase)
}

func TestRun_NoRespawnLetsProcessStayDown(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.exitAfter["lifecycle_manager"] = 1
	s := New(Options{Launcher: launcher, Loader: &fakeLoader{launcher: launcher}})

	err := s.Run(context.Background(), []executor.StartRecord{processRecord("lifecycle_manager", false)})
	require.NoError(t, err)
	assert.Equal(t, 1, launcher.startCount("lifecycle_manager"))
}

func TestRun_StartFailureTearsDown(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.failOn = "destination_server"
	s := New(Options{Launcher: launcher, Loader: &fakeLoader{launcher: launcher}})

	err := s.Run(context.Background(), []executor.StartRecord{
		processRecord("measurement_server", true),
		processRecord("destination_server", true),
		processRecord("lifecycle_manager", false),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.True(t, launcher.wasCancelled("measurement_server"))
	assert.Equal(t, 0, launcher.startCount("lifecycle_manager"))

	st, _ := s.States().Get("destination_server")
	assert.Equal(t, state.PhaseFailed, st.Phase)
	assert.Error(t, st.Error)
}

func TestRun_ComponentWithoutContainer(t *testing.T) {
	launcher := newFakeLauncher()
	s := New(Options{Launcher: launcher, Loader: &fakeLoader{launcher: launcher}})

	err := s.Run(context.Background(), []executor.StartRecord{componentRecord("group_server", "dc_container")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dc_container")
}

func TestRun_LoadRetries(t *testing.T) {
	launcher := newFakeLauncher()
	loader := &fakeLoader{launcher: launcher, failures: 2}
	s := New(Options{Launcher: launcher, Loader: loader, LoadAttempts: 3, LoadBackoff: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(ctx, s, []executor.StartRecord{
		processRecord("dc_container", false),
		componentRecord("measurement_server", "dc_container"),
		processRecord("marker", false),
	})

	require.Eventually(t, func() bool { return launcher.startCount("marker") == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)

	assert.Equal(t, 3, loader.calls)
	m := s.Metrics()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.componentLoads.WithLabelValues("measurement_server", "dc_container", "error")))
}

func TestRun_LoadExhaustedTearsDown(t *testing.T) {
	launcher := newFakeLauncher()
	loader := &fakeLoader{launcher: launcher, failures: 10}
	s := New(Options{Launcher: launcher, Loader: loader, LoadAttempts: 2, LoadBackoff: time.Millisecond})

	err := s.Run(context.Background(), []executor.StartRecord{
		processRecord("dc_container", false),
		componentRecord("measurement_server", "dc_container"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.True(t, launcher.wasCancelled("dc_container"))
}
