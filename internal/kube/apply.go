package kube

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/yaml"

	"github.com/datainfrapilot/dip/internal/apperror"
)

// ApplyManifests applies multi-document YAML with Server-Side Apply.
// Empty documents are skipped.
func (c *client) ApplyManifests(ctx context.Context, manifests []byte, fieldManager string) error {
	return c.walkManifests(manifests, func(obj *unstructured.Unstructured) error {
		if err := c.applyObject(ctx, obj, fieldManager); err != nil {
			return apperror.Wrap(apperror.CodeKube,
				fmt.Sprintf("failed to apply %s %s/%s", obj.GetKind(), obj.GetNamespace(), obj.GetName()), err)
		}
		return nil
	})
}

// DeleteManifests deletes every object of a multi-document YAML stream,
// ignoring objects already gone.
func (c *client) DeleteManifests(ctx context.Context, manifests []byte) error {
	return c.walkManifests(manifests, func(obj *unstructured.Unstructured) error {
		if err := c.deleteObject(ctx, obj); err != nil {
			return apperror.Wrap(apperror.CodeKube,
				fmt.Sprintf("failed to delete %s %s/%s", obj.GetKind(), obj.GetNamespace(), obj.GetName()), err)
		}
		return nil
	})
}

func (c *client) walkManifests(manifests []byte, fn func(*unstructured.Unstructured) error) error {
	decoder := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(manifests), 4096)
	for docIndex := 0; ; docIndex++ {
		var obj unstructured.Unstructured
		if err := decoder.Decode(&obj); err != nil {
			if err == io.EOF {
				return nil
			}
			return apperror.Wrap(apperror.CodeKube,
				fmt.Sprintf("failed to decode manifest document %d", docIndex), err)
		}
		if len(obj.Object) == 0 {
			continue
		}
		if err := fn(&obj); err != nil {
			return err
		}
	}
}

func (c *client) resourceFor(obj *unstructured.Unstructured) (*meta.RESTMapping, error) {
	gvk := obj.GroupVersionKind()
	if gvk.Kind == "" {
		return nil, fmt.Errorf("object has no kind set")
	}
	mapping, err := c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to get REST mapping for %v: %w", gvk, err)
	}
	return mapping, nil
}

func (c *client) applyObject(ctx context.Context, obj *unstructured.Unstructured, fieldManager string) error {
	mapping, err := c.resourceFor(obj)
	if err != nil {
		return err
	}

	data, err := obj.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal object to JSON: %w", err)
	}
	opts := metav1.PatchOptions{FieldManager: fieldManager}

	resource := c.dynamicClient.Resource(mapping.Resource)
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		namespace := obj.GetNamespace()
		if namespace == "" {
			namespace = "default"
		}
		_, err = resource.Namespace(namespace).Patch(ctx, obj.GetName(), types.ApplyPatchType, data, opts)
	} else {
		_, err = resource.Patch(ctx, obj.GetName(), types.ApplyPatchType, data, opts)
	}
	return err
}

func (c *client) deleteObject(ctx context.Context, obj *unstructured.Unstructured) error {
	mapping, err := c.resourceFor(obj)
	if err != nil {
		return err
	}

	resource := c.dynamicClient.Resource(mapping.Resource)
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		namespace := obj.GetNamespace()
		if namespace == "" {
			namespace = "default"
		}
		err = resource.Namespace(namespace).Delete(ctx, obj.GetName(), metav1.DeleteOptions{})
	} else {
		err = resource.Delete(ctx, obj.GetName(), metav1.DeleteOptions{})
	}
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}
