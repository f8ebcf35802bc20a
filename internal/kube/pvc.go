package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/datainfrapilot/dip/internal/apperror"
)

const storageClassName = "hcloud-volumes"

// CreatePVC creates a claim on the cloud storage class if absent.
func (c *client) CreatePVC(ctx context.Context, namespace, name string, sizeGiB int) error {
	className := storageClassName
	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes:      []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			StorageClassName: &className,
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: resource.MustParse(fmt.Sprintf("%dGi", sizeGiB)),
				},
			},
		},
	}

	_, err := c.clientset.CoreV1().PersistentVolumeClaims(namespace).Create(ctx, pvc, metav1.CreateOptions{})
	if err != nil && !isAlreadyExists(err) {
		return apperror.Wrap(apperror.CodeKube, "failed to create pvc "+name, err)
	}
	return nil
}

// DeletePVC deletes a claim, nil if not found.
func (c *client) DeletePVC(ctx context.Context, namespace, name string) error {
	err := c.clientset.CoreV1().PersistentVolumeClaims(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !isNotFound(err) {
		return apperror.Wrap(apperror.CodeKube, "failed to delete pvc "+name, err)
	}
	return nil
}

// ListPVCNames lists claim names in a namespace.
func (c *client) ListPVCNames(ctx context.Context, namespace string) ([]string, error) {
	list, err := c.clientset.CoreV1().PersistentVolumeClaims(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeKube, "failed to list pvcs in "+namespace, err)
	}
	names := make([]string, 0, len(list.Items))
	for _, pvc := range list.Items {
		names = append(names, pvc.Name)
	}
	return names, nil
}
