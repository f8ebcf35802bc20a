// Package naming centralizes resource naming for provider and
// Kubernetes objects so creation and teardown agree on names.
package naming

import "fmt"

func SSHKey(clusterID string) string {
	return fmt.Sprintf("dip-%s", clusterID)
}

func Firewall(clusterID string) string {
	return fmt.Sprintf("dip-%s", clusterID)
}

func Network(clusterID string) string {
	return fmt.Sprintf("dip-%s", clusterID)
}

func Server(clusterName, poolName string, index int) string {
	return fmt.Sprintf("%s-%s-%d", clusterName, poolName, index)
}

func ControlPlaneServer(clusterName string) string {
	return fmt.Sprintf("%s-control-plane-1", clusterName)
}

// PlacementGroup names the spread group holding a pool's servers.
func PlacementGroup(clusterName, poolName string) string {
	return fmt.Sprintf("%s-%s", clusterName, poolName)
}

// DeploymentNamespace is the namespace allocated to a deployment.
func DeploymentNamespace(deploymentID string) string {
	return fmt.Sprintf("dip-%s", deploymentID)
}

// ReleaseName is the immutable Helm release name for a deployment.
func ReleaseName(appName, deploymentID string) string {
	return fmt.Sprintf("%s-%s", appName, deploymentID)
}

// PVC names a claim created for a deployment's volume requirement.
func PVC(deploymentID, volumeName string) string {
	return fmt.Sprintf("dip-%s-%s", deploymentID, volumeName)
}

// TLSSecret names the certificate secret for an ingress host.
func TLSSecret(namespace, endpointName string) string {
	return fmt.Sprintf("%s-%s-tls", namespace, endpointName)
}

// PullSecret names the docker-registry secret for custom images.
func PullSecret(deploymentID string) string {
	return fmt.Sprintf("dip-%s-pull", deploymentID)
}
