package kube

import (
	"context"
	"encoding/base64"
	"encoding/json"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/datainfrapilot/dip/internal/apperror"
)

// CreateSecret creates or replaces an opaque secret. Replace rather
// than update keeps stale keys from previous installs out.
func (c *client) CreateSecret(ctx context.Context, namespace, name string, data map[string][]byte) error {
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Type:       corev1.SecretTypeOpaque,
		Data:       data,
	}
	return c.replaceSecret(ctx, secret)
}

// CreateDockerRegistrySecret creates or replaces an image pull secret
// in the .dockerconfigjson format.
func (c *client) CreateDockerRegistrySecret(ctx context.Context, namespace, name, server, username, password string) error {
	auth := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	dockerConfig := map[string]any{
		"auths": map[string]any{
			server: map[string]string{
				"username": username,
				"password": password,
				"auth":     auth,
			},
		},
	}
	payload, err := json.Marshal(dockerConfig)
	if err != nil {
		return apperror.Wrap(apperror.CodeKube, "failed to encode docker config", err)
	}

	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Type:       corev1.SecretTypeDockerConfigJson,
		Data:       map[string][]byte{corev1.DockerConfigJsonKey: payload},
	}
	return c.replaceSecret(ctx, secret)
}

func (c *client) replaceSecret(ctx context.Context, secret *corev1.Secret) error {
	secrets := c.clientset.CoreV1().Secrets(secret.Namespace)

	_, err := secrets.Create(ctx, secret, metav1.CreateOptions{})
	if err == nil {
		return nil
	}
	if !isAlreadyExists(err) {
		return apperror.Wrap(apperror.CodeKube, "failed to create secret "+secret.Name, err)
	}

	if err := secrets.Delete(ctx, secret.Name, metav1.DeleteOptions{}); err != nil && !isNotFound(err) {
		return apperror.Wrap(apperror.CodeKube, "failed to replace secret "+secret.Name, err)
	}
	if _, err := secrets.Create(ctx, secret, metav1.CreateOptions{}); err != nil {
		return apperror.Wrap(apperror.CodeKube, "failed to recreate secret "+secret.Name, err)
	}
	return nil
}

// GetSecret returns a secret's decoded data.
func (c *client) GetSecret(ctx context.Context, namespace, name string) (map[string][]byte, error) {
	secret, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.New(apperror.CodeNotFound, "secret "+name+" not found")
		}
		return nil, apperror.Wrap(apperror.CodeKube, "failed to get secret "+name, err)
	}
	return secret.Data, nil
}

// DeleteSecret deletes a secret, nil if not found.
func (c *client) DeleteSecret(ctx context.Context, namespace, name string) error {
	err := c.clientset.CoreV1().Secrets(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !isNotFound(err) {
		return apperror.Wrap(apperror.CodeKube, "failed to delete secret "+name, err)
	}
	return nil
}
