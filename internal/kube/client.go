// Package kube is the gateway to a provisioned cluster's API server.
// Clients are built from kubeconfig bytes held in the store, so no
// kubeconfig ever touches the filesystem.
package kube

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/datainfrapilot/dip/internal/apperror"
)

// PodSummary aggregates pod readiness in a namespace.
type PodSummary struct {
	Ready int
	Total int
}

// Client provides the Kubernetes operations the orchestrators need.
type Client interface {
	// EnsureNamespace creates the namespace if absent.
	EnsureNamespace(ctx context.Context, name string) error

	// DeleteNamespace deletes a namespace, nil if not found.
	DeleteNamespace(ctx context.Context, name string) error

	// CreateSecret creates or replaces an opaque secret.
	CreateSecret(ctx context.Context, namespace, name string, data map[string][]byte) error

	// CreateDockerRegistrySecret creates or replaces an image pull secret.
	CreateDockerRegistrySecret(ctx context.Context, namespace, name, server, username, password string) error

	// GetSecret returns a secret's decoded data.
	GetSecret(ctx context.Context, namespace, name string) (map[string][]byte, error)

	// DeleteSecret deletes a secret, nil if not found.
	DeleteSecret(ctx context.Context, namespace, name string) error

	// EnsureIngress creates or updates an ingress.
	EnsureIngress(ctx context.Context, ingress *networkingv1.Ingress) error

	// DeleteIngress deletes an ingress, nil if not found.
	DeleteIngress(ctx context.Context, namespace, name string) error

	// CreatePVC creates a persistent volume claim on the cloud storage
	// class if absent.
	CreatePVC(ctx context.Context, namespace, name string, sizeGiB int) error

	// DeletePVC deletes a claim, nil if not found.
	DeletePVC(ctx context.Context, namespace, name string) error

	// ListPVCNames lists claim names in a namespace.
	ListPVCNames(ctx context.Context, namespace string) ([]string, error)

	// PodReadiness summarizes pod readiness in a namespace.
	PodReadiness(ctx context.Context, namespace string) (PodSummary, error)

	// ApplyManifests applies multi-document YAML with Server-Side Apply.
	ApplyManifests(ctx context.Context, manifests []byte, fieldManager string) error

	// DeleteManifests deletes every object of a multi-document YAML
	// stream, ignoring objects that are already gone.
	DeleteManifests(ctx context.Context, manifests []byte) error
}

// Factory builds a Client from kubeconfig bytes. Injected into the
// orchestrators so tests can substitute fakes.
type Factory func(kubeconfig []byte) (Client, error)

type client struct {
	clientset     kubernetes.Interface
	dynamicClient dynamic.Interface
	mapper        meta.RESTMapper
}

// NewFromKubeconfig creates a Client from kubeconfig bytes.
func NewFromKubeconfig(kubeconfig []byte) (Client, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeKube, "failed to parse kubeconfig", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeKube, "failed to create clientset", err)
	}

	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeKube, "failed to create dynamic client", err)
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeKube, "failed to create discovery client", err)
	}
	groupResources, err := restmapper.GetAPIGroupResources(discoveryClient)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeKube, "failed to discover API resources", err)
	}

	return &client{
		clientset:     clientset,
		dynamicClient: dynamicClient,
		mapper:        restmapper.NewDiscoveryRESTMapper(groupResources),
	}, nil
}

// NewFromClients creates a Client from pre-configured clients, used in
// tests with fake clientsets.
func NewFromClients(clientset kubernetes.Interface, dynamicClient dynamic.Interface, mapper meta.RESTMapper) Client {
	return &client{clientset: clientset, dynamicClient: dynamicClient, mapper: mapper}
}

func (c *client) EnsureNamespace(ctx context.Context, name string) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	_, err := c.clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil && !isAlreadyExists(err) {
		return apperror.Wrap(apperror.CodeKube, "failed to create namespace "+name, err)
	}
	return nil
}

func (c *client) DeleteNamespace(ctx context.Context, name string) error {
	err := c.clientset.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !isNotFound(err) {
		return apperror.Wrap(apperror.CodeKube, "failed to delete namespace "+name, err)
	}
	return nil
}

func (c *client) PodReadiness(ctx context.Context, namespace string) (PodSummary, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return PodSummary{}, apperror.Wrap(apperror.CodeKube, "failed to list pods in "+namespace, err)
	}

	summary := PodSummary{Total: len(pods.Items)}
	for _, pod := range pods.Items {
		for _, cond := range pod.Status.Conditions {
			if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
				summary.Ready++
				break
			}
		}
	}
	return summary, nil
}
