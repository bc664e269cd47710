// Package kubeexport renders a launch as Kubernetes manifests and applies
// them to a cluster.
//
// Every standalone record becomes one Pod running the ros command that the
// local supervisor would run. Parameter files travel in a single ConfigMap
// mounted into each Pod. Components are not Pods of their own: the Pod of
// their container gets a second container that loads them, in plan order,
// retrying each load while the container comes up.
package kubeexport

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"bringupctl/internal/executor"
	"bringupctl/internal/lifecycle"
	"bringupctl/internal/supervisor"

	"github.com/kballard/go-shellquote"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"
	"sigs.k8s.io/yaml"
)

const (
	paramsMountPath = "/etc/bringup"
	paramsVolume    = "parameters"
	sharedParamsKey = "params.yaml"
	lifecycleKey    = "lifecycle.yaml"

	AnnotationLaunchID     = "bringup.ros2-data-collection.io/launch-id"
	AnnotationService      = "bringup.ros2-data-collection.io/service"
	AnnotationRespawnDelay = "bringup.ros2-data-collection.io/respawn-delay"
	AnnotationComponents   = "bringup.ros2-data-collection.io/components"

	loaderContainer = "load-components"

	LabelName   = "app.kubernetes.io/name"
	LabelPartOf = "app.kubernetes.io/part-of"
	partOf      = "dc-bringup"
)

// Options control how records are rendered.
type Options struct {
	Image      string
	Namespace  string
	RosCommand string
	LaunchID   string

	// LoadAttempts and LoadBackoff bound the component load retries.
	// They default to the local supervisor's values.
	LoadAttempts int
	LoadBackoff  time.Duration
}

// Manifests is the rendered output of one launch.
type Manifests struct {
	ConfigMap *corev1.ConfigMap
	Pods      []*corev1.Pod
}

// Render converts start records into manifests. Records are expected in
// plan order: a container record precedes the components loaded into it.
func Render(records []executor.StartRecord, lc lifecycle.Config, opts Options) (Manifests, error) {
	if opts.Image == "" {
		return Manifests{}, fmt.Errorf("an image is required to export manifests")
	}
	if opts.RosCommand == "" {
		opts.RosCommand = "ros2"
	}

	prefix := objectPrefix(records)
	cm := &corev1.ConfigMap{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: objectMeta(prefix+"-params", opts, ""),
		Data:       map[string]string{},
	}

	lcData, err := yaml.Marshal(lc)
	if err != nil {
		return Manifests{}, fmt.Errorf("encode lifecycle config: %w", err)
	}
	cm.Data[lifecycleKey] = string(lcData)

	components := map[string][]executor.StartRecord{}
	for _, rec := range records {
		if rec.Kind == executor.KindComponent {
			components[rec.ContainerTarget] = append(components[rec.ContainerTarget], rec)
		}
	}

	var pods []*corev1.Pod
	for _, rec := range records {
		if rec.Kind == executor.KindComponent {
			continue
		}

		var args []string
		if rec.Kind == executor.KindFragment {
			args = supervisor.LaunchArgs(rec)
		} else {
			files, err := addParamFiles(cm, rec)
			if err != nil {
				return Manifests{}, err
			}
			args = supervisor.RunArgs(rec, files)
		}

		pod, err := renderPod(prefix, rec, opts, args, cm.Name)
		if err != nil {
			return Manifests{}, err
		}
		if members := components[rec.ServiceID]; len(members) > 0 {
			loader, err := loaderSpec(members, opts)
			if err != nil {
				return Manifests{}, err
			}
			pod.Spec.Containers = append(pod.Spec.Containers, loader)
			pod.Annotations[AnnotationComponents] = strings.Join(serviceIDs(members), ",")
			delete(components, rec.ServiceID)
		}
		pods = append(pods, pod)
	}

	for _, rec := range records {
		if _, pending := components[rec.ContainerTarget]; pending && rec.Kind == executor.KindComponent {
			return Manifests{}, fmt.Errorf("container %q for %s is not part of the launch", rec.ContainerTarget, rec.ServiceID)
		}
	}

	return Manifests{ConfigMap: cm, Pods: pods}, nil
}

func addParamFiles(cm *corev1.ConfigMap, rec executor.StartRecord) (supervisor.ParamFiles, error) {
	var files supervisor.ParamFiles
	if !rec.Parameters.IsEmpty() {
		// Every process shares the same rewritten document.
		if _, ok := cm.Data[sharedParamsKey]; !ok {
			data, err := rec.Parameters.Encode()
			if err != nil {
				return files, err
			}
			cm.Data[sharedParamsKey] = string(data)
		}
		files.Parameters = paramsMountPath + "/" + sharedParamsKey
	}
	if !rec.Inline.IsEmpty() {
		key := rec.ServiceID + ".inline.yaml"
		data, err := supervisor.InlineDocument(rec.Inline).Encode()
		if err != nil {
			return files, err
		}
		cm.Data[key] = string(data)
		files.Inline = paramsMountPath + "/" + key
	}
	return files, nil
}

func renderPod(prefix string, rec executor.StartRecord, opts Options, args []string, configMap string) (*corev1.Pod, error) {
	name := prefix + "-" + dnsName(rec.ServiceID)
	if errs := validation.IsDNS1123Subdomain(name); len(errs) > 0 {
		return nil, fmt.Errorf("pod name %q for %s: %s", name, rec.ServiceID, strings.Join(errs, "; "))
	}

	restart := corev1.RestartPolicyNever
	meta := objectMeta(name, opts, rec.ServiceID)
	if rec.Respawn != nil && rec.Respawn.Respawn {
		restart = corev1.RestartPolicyAlways
		meta.Annotations[AnnotationRespawnDelay] = rec.Respawn.RespawnDelay.String()
	}

	return &corev1.Pod{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Pod"},
		ObjectMeta: meta,
		Spec: corev1.PodSpec{
			RestartPolicy: restart,
			// DDS discovery needs the host network.
			HostNetwork: true,
			Containers: []corev1.Container{{
				Name:    dnsName(rec.ServiceID),
				Image:   opts.Image,
				Command: []string{opts.RosCommand},
				Args:    args,
				Env:     envVars(rec.Environment),
				VolumeMounts: []corev1.VolumeMount{{
					Name:      paramsVolume,
					MountPath: paramsMountPath,
					ReadOnly:  true,
				}},
			}},
			Volumes: []corev1.Volume{{
				Name: paramsVolume,
				VolumeSource: corev1.VolumeSource{
					ConfigMap: &corev1.ConfigMapVolumeSource{
						LocalObjectReference: corev1.LocalObjectReference{Name: configMap},
					},
				},
			}},
		},
	}, nil
}

// loaderSpec runs "ros2 component load" for each member once the container
// next to it accepts loads. The first load that keeps failing stops the
// rest.
func loaderSpec(members []executor.StartRecord, opts Options) (corev1.Container, error) {
	attempts := opts.LoadAttempts
	if attempts <= 0 {
		attempts = supervisor.DefaultLoadAttempts
	}
	backoff := opts.LoadBackoff
	if backoff <= 0 {
		backoff = supervisor.DefaultLoadBackoff
	}
	delay := int(backoff.Round(time.Second) / time.Second)
	if delay < 1 {
		delay = 1
	}

	var script strings.Builder
	fmt.Fprintf(&script, `set -e
load() {
  n=1
  until "$@"; do
    if [ "$n" -ge %d ]; then
      echo "component load failed after $n attempts: $*" >&2
      return 1
    fi
    n=$((n+1))
    sleep %d
  done
}
`, attempts, delay)

	for _, rec := range members {
		args, err := supervisor.LoadArgs(rec)
		if err != nil {
			return corev1.Container{}, fmt.Errorf("build load command for %s: %w", rec.Label(), err)
		}
		script.WriteString("load " + shellquote.Join(append([]string{opts.RosCommand}, args...)...) + "\n")
	}

	return corev1.Container{
		Name:    loaderContainer,
		Image:   opts.Image,
		Command: []string{"/bin/sh", "-c"},
		Args:    []string{script.String()},
		Env:     envVars(members[0].Environment),
	}, nil
}

func serviceIDs(records []executor.StartRecord) []string {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ServiceID
	}
	return ids
}

func objectMeta(name string, opts Options, service string) metav1.ObjectMeta {
	meta := metav1.ObjectMeta{
		Name:        name,
		Namespace:   opts.Namespace,
		Labels:      map[string]string{LabelPartOf: partOf},
		Annotations: map[string]string{},
	}
	if service != "" {
		meta.Labels[LabelName] = dnsName(service)
		meta.Annotations[AnnotationService] = service
	}
	if opts.LaunchID != "" {
		meta.Annotations[AnnotationLaunchID] = opts.LaunchID
	}
	return meta
}

// objectPrefix names objects after the robot namespace so several robots
// can share a cluster namespace.
func objectPrefix(records []executor.StartRecord) string {
	for _, rec := range records {
		if rec.Namespace != "" {
			return "dc-" + dnsName(rec.Namespace)
		}
	}
	return "dc"
}

func dnsName(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, s)
}

func envVars(env map[string]string) []corev1.EnvVar {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]corev1.EnvVar, 0, len(keys))
	for _, k := range keys {
		out = append(out, corev1.EnvVar{Name: k, Value: env[k]})
	}
	return out
}

// Encode serializes the manifests as a multi-document YAML stream.
func (m Manifests) Encode() ([]byte, error) {
	var buf bytes.Buffer
	objects := []interface{}{m.ConfigMap}
	for _, p := range m.Pods {
		objects = append(objects, p)
	}
	for i, obj := range objects {
		data, err := yaml.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("encode manifest: %w", err)
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}
