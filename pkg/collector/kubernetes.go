package collector

import (
	"context"
	"fmt"
	"log/slog"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

var (
	// managementClusterGVR addresses the management-plane cluster objects
	// that carry the expiry labels.
	managementClusterGVR = schema.GroupVersionResource{
		Group:    "kommander.mesosphere.io",
		Version:  "v1beta1",
		Resource: "kommanderclusters",
	}

	// capiClusterGVR addresses the CAPI cluster objects that actually get
	// deleted.
	capiClusterGVR = schema.GroupVersionResource{
		Group:    "cluster.x-k8s.io",
		Version:  "v1beta1",
		Resource: "clusters",
	}
)

// KubernetesClient wraps the typed and dynamic clients used to walk the
// cluster inventory and act on CAPI objects
type KubernetesClient struct {
	clientset kubernetes.Interface
	dynamic   dynamic.Interface
	config    *rest.Config
}

// NewKubernetesClient creates a new Kubernetes client
// It supports both in-cluster (uses service account) and out-of-cluster (uses kubeconfig) modes
func NewKubernetesClient(kubeconfig string) (*KubernetesClient, error) {
	var config *rest.Config
	var err error

	if kubeconfig != "" {
		// Out-of-cluster: Use kubeconfig file
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build config from kubeconfig: %w", err)
		}
	} else {
		// In-cluster: Use service account
		config, err = rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get in-cluster config (are you running outside k8s? try --kubeconfig): %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	dynClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	return &KubernetesClient{
		clientset: clientset,
		dynamic:   dynClient,
		config:    config,
	}, nil
}

// ListNamespaces returns the names of all active namespaces. Namespaces
// already terminating are skipped.
func (k *KubernetesClient) ListNamespaces(ctx context.Context) ([]string, error) {
	namespaces, err := k.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}

	names := make([]string, 0, len(namespaces.Items))
	for _, ns := range namespaces.Items {
		if ns.Status.Phase == corev1.NamespaceTerminating {
			continue
		}
		names = append(names, ns.Name)
	}
	return names, nil
}

// ListManagementClusters lists management cluster objects in one namespace.
// A 404 means the CRD is not installed or the namespace has none; both yield
// an empty list so a partial inventory never aborts the sweep.
func (k *KubernetesClient) ListManagementClusters(ctx context.Context, namespace string) ([]unstructured.Unstructured, error) {
	list, err := k.dynamic.Resource(managementClusterGVR).Namespace(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			slog.Warn("management cluster CRD not found, is the management plane installed?", "namespace", namespace)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list management clusters in namespace %s: %w", namespace, err)
	}
	return list.Items, nil
}

// CAPIClusterExists verifies that the referenced CAPI cluster is present.
func (k *KubernetesClient) CAPIClusterExists(ctx context.Context, name, namespace string) (bool, error) {
	_, err := k.dynamic.Resource(capiClusterGVR).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to verify CAPI cluster %s/%s: %w", namespace, name, err)
	}
	return true, nil
}

// DeleteCAPICluster deletes the CAPI cluster, which tears down the workload
// cluster it controls.
func (k *KubernetesClient) DeleteCAPICluster(ctx context.Context, name, namespace string) error {
	err := k.dynamic.Resource(capiClusterGVR).Namespace(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete CAPI cluster %s/%s: %w", namespace, name, err)
	}
	return nil
}

// GetClientset returns the underlying Kubernetes clientset
func (k *KubernetesClient) GetClientset() kubernetes.Interface {
	return k.clientset
}

// GetDynamicClient returns the underlying dynamic client
func (k *KubernetesClient) GetDynamicClient() dynamic.Interface {
	return k.dynamic
}
