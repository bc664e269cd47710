// Package topology decides how the data-collection stack is arranged for one
// launch and produces the flat list of entries to start.
//
// # Topologies
//
// Two mutually exclusive arrangements exist:
//
//   - standalone: measurement_server, destination_server and the lifecycle
//     manager each run as their own process. The two servers carry the
//     request's respawn policy with a fixed 2s delay.
//   - composed: a single container process is started and the two servers
//     plus the lifecycle manager are loaded into it as components. Respawn is
//     not available here; a crashing component takes the whole container
//     down.
//
// In both arrangements the lifecycle manager is configured with the same
// membership, [measurement_server, destination_server], and a 10s bond
// timeout.
//
// # Optional services
//
// Splice appends the optional services after the mandatory entries. The
// image and barcode services are external sub-launches and look the same in
// both topologies; the group server takes the role of the active topology.
//
// # Usage
//
//	planner := topology.NewPlanner(nil)
//	plan, err := planner.Plan(req, source)
//	if err != nil {
//	    return err
//	}
//	plan = topology.Splice(plan, req)
package topology
