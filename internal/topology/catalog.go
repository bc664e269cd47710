package topology

import "bringupctl/internal/lifecycle"

// descriptor names what to start for a service, in either role.
type descriptor struct {
	id         string
	pkg        string
	executable string
	plugin     string
	nodeName   string
}

var (
	measurementServer = descriptor{
		id:         lifecycle.MeasurementServer,
		pkg:        "dc_measurements",
		executable: "measurement_server",
		plugin:     "measurement_server::MeasurementServer",
		nodeName:   "measurement_server",
	}
	destinationServer = descriptor{
		id:         lifecycle.DestinationServer,
		pkg:        "dc_destinations",
		executable: "destination_server",
		plugin:     "destination_server::DestinationServer",
		nodeName:   "destination_server",
	}
	lifecycleManager = descriptor{
		id:         LifecycleManagerID,
		pkg:        "nav2_lifecycle_manager",
		executable: "lifecycle_manager",
		plugin:     "nav2_lifecycle_manager::LifecycleManager",
		nodeName:   "lifecycle_manager_navigation",
	}
	groupServer = descriptor{
		id:         GroupServerID,
		pkg:        "dc_group",
		executable: "group_server",
		plugin:     "group_server::GroupServer",
		nodeName:   "group_server",
	}
)

const (
	LifecycleManagerID = "lifecycle_manager"
	GroupServerID      = "group_server"

	containerPackage    = "rclcpp_components"
	containerExecutable = "component_container_isolated"

	fragmentPackage = "dc_services"
)

// fragment maps an optional service flag onto its external sub-launch.
type fragment struct {
	id         string
	launchFile string
}

var (
	saveImageFragment      = fragment{id: "save_image", launchFile: "dc_save_image.launch.py"}
	drawImageFragment      = fragment{id: "draw_image", launchFile: "dc_draw_image.launch.py"}
	detectBarcodesFragment = fragment{id: "detect_barcodes", launchFile: "dc_detection_barcodes.launch.py"}
)

// reservedIDs are the service ids the planner and splicer may emit.
var reservedIDs = map[string]bool{
	measurementServer.id:      true,
	destinationServer.id:      true,
	lifecycleManager.id:       true,
	groupServer.id:            true,
	saveImageFragment.id:      true,
	drawImageFragment.id:      true,
	detectBarcodesFragment.id: true,
}
