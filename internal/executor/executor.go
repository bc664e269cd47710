package executor

import (
	"strconv"

	"bringupctl/internal/params"
	"bringupctl/internal/topology"
	"bringupctl/pkg/logging"
)

// Every service gets line-buffered output so interleaved logs stay readable.
var defaultEnvironment = map[string]string{
	"RCUTILS_LOGGING_BUFFERED_STREAM": "1",
}

// Executor flattens a finalized plan into start records. It makes no
// decisions of its own; an entry that does not fit its role is a planner
// defect and fails the whole plan.
type Executor struct{}

// New creates an executor.
func New() *Executor {
	return &Executor{}
}

// Execute returns one record per plan entry, in plan order. On error no
// records are returned.
func (x *Executor) Execute(plan topology.Plan) ([]StartRecord, error) {
	seen := make(map[string]bool, len(plan.Entries))
	for i, e := range plan.Entries {
		if err := checkEntry(i, e, seen); err != nil {
			logging.Error("Executor", err, "Refusing plan with %d entries", len(plan.Entries))
			return nil, err
		}
	}

	req := plan.Request
	level := req.EffectiveLogLevel()
	namespace := params.NormalizeNamespace(req.Namespace)

	records := make([]StartRecord, 0, len(plan.Entries))
	for i, e := range plan.Entries {
		rec := StartRecord{
			Index:           i,
			ServiceID:       e.ServiceID,
			Role:            e.Role,
			Package:         e.Package,
			Executable:      e.Executable,
			Plugin:          e.Plugin,
			NodeName:        e.NodeName,
			Namespace:       namespace,
			Fragment:        e.Fragment,
			ContainerTarget: e.ContainerTarget,
			Parameters:      e.Parameters,
			Arguments:       []string{"--log-level", string(level)},
			LogLevel:        level,
			Output:          OutputPolicy{Stdout: SinkScreen, Stderr: SinkScreen},
			Environment:     copyEnv(defaultEnvironment),
		}

		switch {
		case e.IsFragment():
			rec.Kind = KindFragment
			rec.LaunchArguments = map[string]string{
				"namespace":    namespace,
				"use_sim_time": strconv.FormatBool(req.UseSimTime),
				"log_level":    string(level),
			}
		case e.Role == topology.RoleInProcessComponent:
			rec.Kind = KindComponent
		default:
			rec.Kind = KindProcess
		}

		if rec.Kind != KindFragment {
			inline := e.Inline.Map()
			inline["use_sim_time"] = req.UseSimTime
			rec.Inline = params.NewDocument(inline)
		}

		if e.Role == topology.RoleStandaloneProcess && e.Failure != nil {
			policy := *e.Failure
			rec.Respawn = &policy
		}

		records = append(records, rec)
	}

	logging.Debug("Executor", "Produced %d start records for %s topology", len(records), plan.Topology)
	return records, nil
}

func checkEntry(i int, e topology.Entry, seen map[string]bool) error {
	malformed := func(reason string) error {
		return &MalformedEntryError{Index: i, ServiceID: e.ServiceID, Reason: reason}
	}

	if e.ServiceID == "" {
		return malformed("service id is empty")
	}
	if seen[e.ServiceID] {
		return malformed("duplicate service id")
	}
	seen[e.ServiceID] = true

	if e.Package == "" {
		return malformed("package is empty")
	}

	switch e.Role {
	case topology.RoleStandaloneProcess:
		if e.ContainerTarget != "" {
			return malformed("standalone process has a container target")
		}
		if e.Executable == "" && e.Fragment == "" {
			return malformed("standalone process has neither an executable nor a fragment")
		}
	case topology.RoleInProcessComponent:
		if e.ContainerTarget == "" {
			return malformed("component has no container target")
		}
		if e.Plugin == "" {
			return malformed("component has no plugin")
		}
		if e.Failure != nil {
			return malformed("component has a failure policy")
		}
		if e.IsFragment() {
			return malformed("component cannot be a fragment")
		}
	default:
		return malformed("unknown role " + strconv.Quote(string(e.Role)))
	}
	return nil
}

func copyEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}
