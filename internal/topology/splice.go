package topology

import (
	"strings"

	"bringupctl/internal/launch"
	"bringupctl/internal/params"
	"bringupctl/pkg/logging"
)

// Splice returns a copy of plan with one entry appended per enabled optional
// service, in the fixed order save image, draw image, detect barcodes, group
// node. The mandatory entries are left as they are.
//
// The image and barcode services are external sub-launches and are started
// the same way under both topologies. The group server follows the active
// topology instead: a component in the configured container when composing,
// a standalone process otherwise.
func Splice(plan Plan, req launch.Request) Plan {
	out := plan
	out.Entries = append(make([]Entry, 0, len(plan.Entries)+4), plan.Entries...)

	svc := req.Services
	for _, f := range []struct {
		enabled bool
		frag    fragment
	}{
		{svc.SaveImage, saveImageFragment},
		{svc.DrawImage, drawImageFragment},
		{svc.DetectBarcodes, detectBarcodesFragment},
	} {
		if f.enabled {
			out.Entries = append(out.Entries, fragmentEntry(f.frag))
		}
	}

	if svc.GroupNode {
		out.Entries = append(out.Entries, groupEntry(plan.Topology, req, plan.Parameters))
	}

	if added := len(out.Entries) - len(plan.Entries); added > 0 {
		logging.Debug("Planner", "Spliced %d optional entries: %v", added, req.Services.Enabled())
	}
	return out
}

func fragmentEntry(f fragment) Entry {
	return Entry{
		ServiceID: f.id,
		Role:      RoleStandaloneProcess,
		Package:   fragmentPackage,
		Fragment:  f.launchFile,
	}
}

func groupEntry(t Topology, req launch.Request, configured params.Document) Entry {
	if t == TopologyComposed {
		return componentEntry(groupServer, strings.TrimSpace(req.ContainerName), configured, false)
	}
	return processEntry(groupServer, configured, nil, false)
}
