package topology

import (
	"errors"
	"testing"
	"time"

	"bringupctl/internal/launch"
	"bringupctl/internal/lifecycle"
	"bringupctl/internal/params"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSource(t *testing.T) params.Document {
	t.Helper()
	doc, err := params.Parse([]byte(`
measurement_server:
  ros__parameters:
    autostart: false
    measurement_plugins: ["cpu"]
destination_server:
  ros__parameters:
    destination_plugins: ["flb_stdout"]
`), params.FormatYAML)
	require.NoError(t, err)
	return doc
}

func standaloneRequest() launch.Request {
	return launch.Request{
		Namespace:  "robot1",
		Autostart:  true,
		UseRespawn: true,
		LogLevel:   launch.LogLevelInfo,
	}
}

func composedRequest() launch.Request {
	return launch.Request{
		Namespace:      "robot1",
		Autostart:      true,
		UseComposition: true,
		ContainerName:  "dc_container",
		LogLevel:       launch.LogLevelInfo,
	}
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ServiceID
	}
	return out
}

func TestPlan_Standalone(t *testing.T) {
	plan, err := NewPlanner(nil).Plan(standaloneRequest(), testSource(t))
	require.NoError(t, err)

	assert.Equal(t, TopologyStandalone, plan.Topology)
	assert.Equal(t, []string{"measurement_server", "destination_server", "lifecycle_manager"}, ids(plan.Entries))

	for _, e := range plan.Entries {
		assert.Equal(t, RoleStandaloneProcess, e.Role, e.ServiceID)
		assert.Empty(t, e.ContainerTarget, e.ServiceID)
	}

	ms, _ := plan.Entry("measurement_server")
	require.NotNil(t, ms.Failure)
	assert.Equal(t, FailurePolicy{Respawn: true, RespawnDelay: 2 * time.Second}, *ms.Failure)
	assert.True(t, ms.LifecycleManaged)
	assert.Equal(t, "dc_measurements", ms.Package)
	assert.Equal(t, "measurement_server", ms.Executable)

	ds, _ := plan.Entry("destination_server")
	require.NotNil(t, ds.Failure)
	assert.True(t, ds.Failure.Respawn)

	lm, _ := plan.Entry("lifecycle_manager")
	assert.False(t, lm.LifecycleManaged)
	assert.Nil(t, lm.Failure)
	assert.Equal(t, "lifecycle_manager_navigation", lm.NodeName)
	require.NotNil(t, lm.Lifecycle)
	assert.Equal(t, []string{"measurement_server", "destination_server"}, lm.Lifecycle.Membership)
	assert.Equal(t, 10*time.Second, lm.Lifecycle.BondTimeout)
	v, _ := lm.Inline.Get("bond_timeout")
	assert.Equal(t, 10.0, v)
	assert.True(t, lm.Parameters.IsEmpty())
}

func TestPlan_StandaloneRespawnFollowsRequest(t *testing.T) {
	req := standaloneRequest()
	req.UseRespawn = false

	plan, err := NewPlanner(nil).Plan(req, testSource(t))
	require.NoError(t, err)

	for _, id := range []string{"measurement_server", "destination_server"} {
		e, _ := plan.Entry(id)
		require.NotNil(t, e.Failure)
		assert.False(t, e.Failure.Respawn)
		assert.Equal(t, DefaultRespawnDelay, e.Failure.RespawnDelay)
	}
}

func TestPlan_Composed(t *testing.T) {
	plan, err := NewPlanner(nil).Plan(composedRequest(), testSource(t))
	require.NoError(t, err)

	assert.Equal(t, TopologyComposed, plan.Topology)
	assert.Equal(t, []string{"dc_container", "measurement_server", "destination_server", "lifecycle_manager"}, ids(plan.Entries))

	container := plan.Entries[0]
	assert.Equal(t, RoleStandaloneProcess, container.Role)
	assert.Equal(t, "component_container_isolated", container.Executable)
	assert.Nil(t, container.Failure)
	v, _ := container.Inline.Get("autostart")
	assert.Equal(t, true, v)

	for _, e := range plan.Entries[1:] {
		assert.Equal(t, RoleInProcessComponent, e.Role, e.ServiceID)
		assert.Equal(t, "dc_container", e.ContainerTarget, e.ServiceID)
		assert.Nil(t, e.Failure, e.ServiceID)
		assert.NotEmpty(t, e.Plugin, e.ServiceID)
	}

	lm, _ := plan.Entry("lifecycle_manager")
	assert.Equal(t, "nav2_lifecycle_manager::LifecycleManager", lm.Plugin)
	require.NotNil(t, lm.Lifecycle)
	assert.Equal(t, lifecycle.DefaultBondTimeout, lm.Lifecycle.BondTimeout)
}

func TestPlan_ManagedRolesNeverMixed(t *testing.T) {
	for _, req := range []launch.Request{standaloneRequest(), composedRequest()} {
		plan, err := NewPlanner(nil).Plan(req, testSource(t))
		require.NoError(t, err)

		want := RoleStandaloneProcess
		if req.UseComposition {
			want = RoleInProcessComponent
		}
		for _, id := range []string{"measurement_server", "destination_server"} {
			e, ok := plan.Entry(id)
			require.True(t, ok)
			assert.Equal(t, want, e.Role)
		}
	}
}

func TestPlan_MembershipIndependentOfTopology(t *testing.T) {
	flags := []launch.OptionalServices{
		{},
		{SaveImage: true, DrawImage: true, DetectBarcodes: true, GroupNode: true},
		{GroupNode: true},
	}

	for _, base := range []launch.Request{standaloneRequest(), composedRequest()} {
		for _, svc := range flags {
			req := base
			req.Services = svc

			plan, err := NewPlanner(nil).Plan(req, testSource(t))
			require.NoError(t, err)
			plan = Splice(plan, req)

			assert.Equal(t, []string{"measurement_server", "destination_server"}, plan.Lifecycle.Membership)
			assert.Equal(t, []string{"measurement_server", "destination_server"}, plan.Managed())
			assert.NoError(t, lifecycle.VerifyMembership(plan.Lifecycle, plan.Managed()))
		}
	}
}

func TestPlan_Idempotent(t *testing.T) {
	req := composedRequest()
	req.Services = launch.OptionalServices{DetectBarcodes: true, GroupNode: true}
	src := testSource(t)
	planner := NewPlanner(nil)

	first, err := planner.Plan(req, src)
	require.NoError(t, err)
	second, err := planner.Plan(req, src)
	require.NoError(t, err)

	assert.Equal(t, Splice(first, req), Splice(second, req))
}

func TestPlan_RewritesParametersUnderNamespace(t *testing.T) {
	src := testSource(t)
	plan, err := NewPlanner(nil).Plan(standaloneRequest(), src)
	require.NoError(t, err)

	ms, _ := plan.Entry("measurement_server")
	v, ok := ms.Parameters.Get("robot1.measurement_server.ros__parameters.autostart")
	require.True(t, ok)
	assert.Equal(t, true, v)

	// the source stays untouched
	v, _ = src.Get("measurement_server.ros__parameters.autostart")
	assert.Equal(t, false, v)

	ds, _ := plan.Entry("destination_server")
	assert.True(t, ms.Parameters.Equal(ds.Parameters))
	assert.True(t, plan.Parameters.Equal(ms.Parameters))
}

func TestPlan_InvalidTopologyConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*launch.Request)
		field  string
	}{
		{"empty container name", func(r *launch.Request) { r.ContainerName = "" }, "containerName"},
		{"blank container name", func(r *launch.Request) { r.ContainerName = "   " }, "containerName"},
		{"container named like measurement server", func(r *launch.Request) { r.ContainerName = "measurement_server" }, "containerName"},
		{"container named like destination server", func(r *launch.Request) { r.ContainerName = "destination_server" }, "containerName"},
		{"container named like lifecycle manager", func(r *launch.Request) { r.ContainerName = " lifecycle_manager " }, "containerName"},
		{"container named like group server", func(r *launch.Request) { r.ContainerName = "group_server" }, "containerName"},
		{"container named like a fragment", func(r *launch.Request) { r.ContainerName = "detect_barcodes" }, "containerName"},
		{"unknown log level", func(r *launch.Request) { r.LogLevel = "verbose" }, "logLevel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := composedRequest()
			tt.mutate(&req)

			plan, err := NewPlanner(nil).Plan(req, testSource(t))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTopologyConfig))

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Empty(t, plan.Entries)
		})
	}
}

func TestPlan_UnknownLogLevelRejectedWhenStandalone(t *testing.T) {
	req := standaloneRequest()
	req.LogLevel = "verbose"

	_, err := NewPlanner(nil).Plan(req, testSource(t))
	assert.True(t, errors.Is(err, ErrInvalidTopologyConfig))
}

func TestPlan_ServiceNamedContainerAllowedWhenStandalone(t *testing.T) {
	req := standaloneRequest()
	req.ContainerName = "measurement_server"

	_, err := NewPlanner(nil).Plan(req, testSource(t))
	assert.NoError(t, err)
}

func TestPlan_EmptyContainerNameIgnoredWhenStandalone(t *testing.T) {
	req := standaloneRequest()
	req.ContainerName = ""

	_, err := NewPlanner(nil).Plan(req, testSource(t))
	assert.NoError(t, err)
}

func TestPlan_ManagerMembershipIsolated(t *testing.T) {
	plan, err := NewPlanner(nil).Plan(standaloneRequest(), testSource(t))
	require.NoError(t, err)

	lm, _ := plan.Entry("lifecycle_manager")
	lm.Lifecycle.Membership[0] = "changed"

	assert.Equal(t, "measurement_server", plan.Lifecycle.Membership[0])
}
