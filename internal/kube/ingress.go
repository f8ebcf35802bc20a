package kube

import (
	"context"

	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/datainfrapilot/dip/internal/apperror"
)

// EnsureIngress creates or updates an ingress.
func (c *client) EnsureIngress(ctx context.Context, ingress *networkingv1.Ingress) error {
	ingresses := c.clientset.NetworkingV1().Ingresses(ingress.Namespace)

	_, err := ingresses.Create(ctx, ingress, metav1.CreateOptions{})
	if err == nil {
		return nil
	}
	if !isAlreadyExists(err) {
		return apperror.Wrap(apperror.CodeKube, "failed to create ingress "+ingress.Name, err)
	}

	existing, err := ingresses.Get(ctx, ingress.Name, metav1.GetOptions{})
	if err != nil {
		return apperror.Wrap(apperror.CodeKube, "failed to get ingress "+ingress.Name, err)
	}
	ingress.ResourceVersion = existing.ResourceVersion
	if _, err := ingresses.Update(ctx, ingress, metav1.UpdateOptions{}); err != nil {
		return apperror.Wrap(apperror.CodeKube, "failed to update ingress "+ingress.Name, err)
	}
	return nil
}

// DeleteIngress deletes an ingress, nil if not found.
func (c *client) DeleteIngress(ctx context.Context, namespace, name string) error {
	err := c.clientset.NetworkingV1().Ingresses(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !isNotFound(err) {
		return apperror.Wrap(apperror.CodeKube, "failed to delete ingress "+name, err)
	}
	return nil
}

// IngressRule is a convenience builder input for a single-path
// traefik ingress.
type IngressRule struct {
	Host        string
	Path        string
	ServiceName string
	ServicePort int32
	TLSSecret   string
	Annotations map[string]string
}

// BuildIngress assembles a traefik ingress for one backend path.
func BuildIngress(namespace, name string, rule IngressRule) *networkingv1.Ingress {
	pathType := networkingv1.PathTypePrefix
	className := "traefik"

	ingress := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:        name,
			Namespace:   namespace,
			Annotations: rule.Annotations,
		},
		Spec: networkingv1.IngressSpec{
			IngressClassName: &className,
			Rules: []networkingv1.IngressRule{{
				Host: rule.Host,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     rule.Path,
							PathType: &pathType,
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: rule.ServiceName,
									Port: networkingv1.ServiceBackendPort{Number: rule.ServicePort},
								},
							},
						}},
					},
				},
			}},
		},
	}

	if rule.TLSSecret != "" && rule.Host != "" {
		ingress.Spec.TLS = []networkingv1.IngressTLS{{
			Hosts:      []string{rule.Host},
			SecretName: rule.TLSSecret,
		}}
	}
	return ingress
}
