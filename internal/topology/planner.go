package topology

import (
	"fmt"
	"strings"

	"bringupctl/internal/launch"
	"bringupctl/internal/lifecycle"
	"bringupctl/internal/params"
	"bringupctl/pkg/logging"
)

// Planner turns a launch request into a plan for exactly one topology.
type Planner struct {
	rewriter *params.Rewriter
}

// NewPlanner creates a planner. A nil rewriter uses params.NewRewriter().
func NewPlanner(rewriter *params.Rewriter) *Planner {
	if rewriter == nil {
		rewriter = params.NewRewriter()
	}
	return &Planner{rewriter: rewriter}
}

// Plan decides the topology for req and builds its mandatory entries.
// source is the parameter document read from req.ParamsFile; it is rewritten
// once for req.Namespace with the autostart override and shared by every
// service entry. Optional services are added afterwards by Splice.
func (p *Planner) Plan(req launch.Request, source params.Document) (Plan, error) {
	if err := validate(req); err != nil {
		return Plan{}, err
	}

	configured := p.rewriter.Rewrite(source, req.Namespace, map[string]interface{}{
		"autostart": req.Autostart,
	})
	lc := lifecycle.NewConfig(req.Autostart)

	plan := Plan{
		Request:    req,
		Parameters: configured,
		Lifecycle:  lc,
	}

	if req.UseComposition {
		plan.Topology = TopologyComposed
		plan.Entries = composedEntries(req, configured, lc)
	} else {
		plan.Topology = TopologyStandalone
		plan.Entries = standaloneEntries(req, configured, lc)
	}

	logging.Debug("Planner", "Planned %s topology with %d entries (%s)", plan.Topology, len(plan.Entries), req.Summary())
	return plan, nil
}

func validate(req launch.Request) error {
	if !req.LogLevel.Valid() {
		return &ConfigError{Field: "logLevel", Message: fmt.Sprintf("unknown log level %q", req.LogLevel)}
	}
	if !req.UseComposition {
		return nil
	}

	container := strings.TrimSpace(req.ContainerName)
	if container == "" {
		return &ConfigError{Field: "containerName", Message: "a container name is required when composition is enabled"}
	}
	// The container is planned under its own name next to the services.
	if reservedIDs[container] {
		return &ConfigError{Field: "containerName", Message: fmt.Sprintf("%q is the id of a planned service", container)}
	}
	return nil
}

func standaloneEntries(req launch.Request, configured params.Document, lc lifecycle.Config) []Entry {
	failure := func() *FailurePolicy {
		return &FailurePolicy{Respawn: req.UseRespawn, RespawnDelay: DefaultRespawnDelay}
	}

	return []Entry{
		processEntry(measurementServer, configured, failure(), true),
		processEntry(destinationServer, configured, failure(), true),
		managerEntry(RoleStandaloneProcess, "", lc),
	}
}

func composedEntries(req launch.Request, configured params.Document, lc lifecycle.Config) []Entry {
	container := strings.TrimSpace(req.ContainerName)

	return []Entry{
		{
			ServiceID:  container,
			Role:       RoleStandaloneProcess,
			Package:    containerPackage,
			Executable: containerExecutable,
			NodeName:   container,
			Parameters: configured,
			Inline:     params.NewDocument(map[string]interface{}{"autostart": req.Autostart}),
		},
		componentEntry(measurementServer, container, configured, true),
		componentEntry(destinationServer, container, configured, true),
		managerEntry(RoleInProcessComponent, container, lc),
	}
}

func processEntry(d descriptor, configured params.Document, failure *FailurePolicy, managed bool) Entry {
	return Entry{
		ServiceID:        d.id,
		Role:             RoleStandaloneProcess,
		Package:          d.pkg,
		Executable:       d.executable,
		NodeName:         d.nodeName,
		Parameters:       configured,
		Failure:          failure,
		LifecycleManaged: managed,
	}
}

func componentEntry(d descriptor, container string, configured params.Document, managed bool) Entry {
	return Entry{
		ServiceID:        d.id,
		Role:             RoleInProcessComponent,
		Package:          d.pkg,
		Plugin:           d.plugin,
		NodeName:         d.nodeName,
		Parameters:       configured,
		ContainerTarget:  container,
		LifecycleManaged: managed,
	}
}

// managerEntry builds the lifecycle manager itself. It is never managed and
// only receives the coordinator parameters, not the shared document.
func managerEntry(role Role, container string, lc lifecycle.Config) Entry {
	cfg := lc
	cfg.Membership = append([]string(nil), lc.Membership...)

	var e Entry
	if role == RoleInProcessComponent {
		e = componentEntry(lifecycleManager, container, params.Document{}, false)
	} else {
		e = processEntry(lifecycleManager, params.Document{}, nil, false)
	}
	e.Inline = params.NewDocument(cfg.Parameters())
	e.Lifecycle = &cfg
	return e
}
