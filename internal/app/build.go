package app

import (
	"fmt"

	"bringupctl/internal/executor"
	"bringupctl/internal/launch"
	"bringupctl/internal/lifecycle"
	"bringupctl/internal/params"
	"bringupctl/internal/render"
	"bringupctl/internal/topology"
	"bringupctl/pkg/logging"

	"github.com/google/uuid"
)

// For mocking in tests
var readParams = params.ReadFile

// Result is a fully planned launch.
type Result struct {
	LaunchID  string
	Plan      topology.Plan
	Records   []executor.StartRecord
	Lifecycle lifecycle.Config
}

// Report converts the result for rendering.
func (r Result) Report() render.Report {
	return render.Report{
		LaunchID:  r.LaunchID,
		Request:   r.Plan.Request,
		Topology:  r.Plan.Topology,
		Records:   r.Records,
		Lifecycle: r.Lifecycle,
		Startup:   lifecycle.StartupSequence(r.Lifecycle),
		Shutdown:  lifecycle.ShutdownSequence(r.Lifecycle),
	}
}

// Build reads the parameter file named by req, plans the topology, splices
// the optional services, checks the lifecycle membership against the
// managed entries and produces the start records. Nothing is returned on
// error.
func Build(req launch.Request) (Result, error) {
	logging.Debug("App", "Building launch: %s", req.Summary())

	source, err := readParams(req.ParamsFile)
	if err != nil {
		logging.Error("App", err, "Cannot read parameter file %s", req.ParamsFile)
		return Result{}, err
	}

	plan, err := topology.NewPlanner(params.NewRewriter()).Plan(req, source)
	if err != nil {
		logging.Error("App", err, "Planning failed")
		return Result{}, err
	}
	plan = topology.Splice(plan, req)

	if err := lifecycle.VerifyMembership(plan.Lifecycle, plan.Managed()); err != nil {
		logging.Error("App", err, "Lifecycle membership check failed")
		return Result{}, fmt.Errorf("plan for %s: %w", req.Summary(), err)
	}

	records, err := executor.New().Execute(plan)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		LaunchID:  uuid.NewString(),
		Plan:      plan,
		Records:   records,
		Lifecycle: plan.Lifecycle,
	}
	logging.Info("App", "Planned launch %s: %d records, %s topology", result.LaunchID, len(records), plan.Topology)
	return result, nil
}
