package supervisor

import (
	"encoding/json"
	"fmt"
	"sort"

	"bringupctl/internal/executor"
	"bringupctl/internal/params"
)

// ParamFiles are the on-disk parameter files a process record starts with.
type ParamFiles struct {
	// Parameters is the rewritten shared parameter document.
	Parameters string
	// Inline holds the record's inline parameters under a wildcard node key.
	Inline string
}

// RunArgs returns the arguments (without the ros command itself) that start
// a standalone process record.
func RunArgs(rec executor.StartRecord, files ParamFiles) []string {
	args := []string{"run", rec.Package, rec.Executable, "--ros-args"}
	args = append(args, rec.Arguments...)
	if rec.NodeName != "" {
		args = append(args, "-r", "__node:="+rec.NodeName)
	}
	if rec.Namespace != "" {
		args = append(args, "-r", "__ns:=/"+rec.Namespace)
	}
	if files.Parameters != "" {
		args = append(args, "--params-file", files.Parameters)
	}
	if files.Inline != "" {
		args = append(args, "--params-file", files.Inline)
	}
	return args
}

// LaunchArgs returns the arguments that include a fragment sub-launch.
func LaunchArgs(rec executor.StartRecord) []string {
	args := []string{"launch", rec.Package, rec.Fragment}
	keys := make([]string, 0, len(rec.LaunchArguments))
	for k := range rec.LaunchArguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, fmt.Sprintf("%s:=%s", k, rec.LaunchArguments[k]))
	}
	return args
}

// LoadArgs returns the arguments that load a component record into its
// container. Component loading takes no parameter files, so the node's own
// section of the shared document and the inline parameters are passed as
// individual -p assignments.
func LoadArgs(rec executor.StartRecord) ([]string, error) {
	container := "/" + rec.ContainerTarget
	if rec.Namespace != "" {
		container = "/" + rec.Namespace + container
	}

	args := []string{"component", "load", container, rec.Package, rec.Plugin}
	if rec.NodeName != "" {
		args = append(args, "--node-name", rec.NodeName)
	}
	if rec.Namespace != "" {
		args = append(args, "--node-namespace", "/"+rec.Namespace)
	}

	assignments, err := componentParameters(rec)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		args = append(args, "-p", a)
	}
	return args, nil
}

func componentParameters(rec executor.StartRecord) ([]string, error) {
	merged := map[string]interface{}{}

	node := rec.NodeName
	if node == "" {
		node = rec.ServiceID
	}
	if section, ok := rec.Parameters.Scoped(rec.Namespace).Get(node + ".ros__parameters"); ok {
		if m, ok := section.(map[string]interface{}); ok {
			for k, v := range params.NewDocument(m).Flatten() {
				merged[k] = v
			}
		}
	}
	for k, v := range rec.Inline.Flatten() {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		value, err := encodeParameter(merged[k])
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		out = append(out, k+":="+value)
	}
	return out, nil
}

// encodeParameter renders a value the way the ros command line parses it.
// JSON is a subset of the YAML flow syntax it expects.
func encodeParameter(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// InlineDocument wraps inline parameters so they apply to whichever node
// reads the file.
func InlineDocument(inline params.Document) params.Document {
	return params.NewDocument(map[string]interface{}{
		"/**": map[string]interface{}{"ros__parameters": inline.Map()},
	})
}
