package kubeexport

import (
	"context"
	"fmt"
	"time"

	"bringupctl/pkg/logging"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// A deleted Pod lingers while it terminates; replacing it waits for it to go.
var (
	podGonePollInterval = time.Second
	podGoneTimeout      = 2 * time.Minute
)

// NewClientsetFromConfig is a package-level variable to allow overriding in tests.
var NewClientsetFromConfig = func(c *rest.Config) (kubernetes.Interface, error) {
	return kubernetes.NewForConfig(c)
}

// NewClient builds a clientset from the default loading rules, optionally
// pinned to an explicit kubeconfig file and context.
func NewClient(kubeconfig, kubeContext string) (kubernetes.Interface, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}
	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get REST config: %w", err)
	}
	restConfig.Timeout = 15 * time.Second

	clientset, err := NewClientsetFromConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes clientset: %w", err)
	}
	return clientset, nil
}

// Apply creates the manifests in the cluster. An existing ConfigMap is
// updated in place; an existing Pod is replaced, since a Pod spec cannot be
// changed after creation.
func Apply(ctx context.Context, client kubernetes.Interface, m Manifests) error {
	if err := applyConfigMap(ctx, client, m); err != nil {
		return err
	}
	for _, pod := range m.Pods {
		if err := applyPod(ctx, client, pod); err != nil {
			return err
		}
		logging.Debug("KubeExport", "Applied pod %s/%s", pod.Namespace, pod.Name)
	}
	logging.Info("KubeExport", "Applied configmap and %d pods", len(m.Pods))
	return nil
}

func applyPod(ctx context.Context, client kubernetes.Interface, pod *corev1.Pod) error {
	pods := client.CoreV1().Pods(pod.Namespace)
	_, err := pods.Create(ctx, pod, metav1.CreateOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("create pod %s: %w", pod.Name, err)
	}

	logging.Info("KubeExport", "Replacing pod %s/%s", pod.Namespace, pod.Name)
	if err := pods.Delete(ctx, pod.Name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete pod %s: %w", pod.Name, err)
	}
	err = wait.PollUntilContextTimeout(ctx, podGonePollInterval, podGoneTimeout, true, func(ctx context.Context) (bool, error) {
		_, err := pods.Get(ctx, pod.Name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return true, nil
		}
		return false, err
	})
	if err != nil {
		return fmt.Errorf("wait for pod %s to terminate: %w", pod.Name, err)
	}

	if _, err := pods.Create(ctx, pod, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("create pod %s: %w", pod.Name, err)
	}
	return nil
}

func applyConfigMap(ctx context.Context, client kubernetes.Interface, m Manifests) error {
	cm := m.ConfigMap
	configMaps := client.CoreV1().ConfigMaps(cm.Namespace)

	_, err := configMaps.Create(ctx, cm, metav1.CreateOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("create configmap %s: %w", cm.Name, err)
	}

	existing, err := configMaps.Get(ctx, cm.Name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("get configmap %s: %w", cm.Name, err)
	}
	updated := existing.DeepCopy()
	updated.Data = cm.Data
	updated.Labels = cm.Labels
	updated.Annotations = cm.Annotations
	if _, err := configMaps.Update(ctx, updated, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("update configmap %s: %w", cm.Name, err)
	}
	logging.Info("KubeExport", "Updated configmap %s/%s", cm.Namespace, cm.Name)
	return nil
}
