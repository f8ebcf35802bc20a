package model

import (
	"strings"
)

// NormalizeEndpointValue canonicalizes an endpoint value so that
// uniqueness checks compare like with like. Subdomain values are
// lowercased with any surrounding slashes stripped; path-typed values
// are lowercased, carry exactly one leading slash and no trailing slash.
// Normalizing an already-normalized value is a no-op.
func NormalizeEndpointValue(accessType AccessType, value string) string {
	v := strings.ToLower(strings.TrimSpace(value))

	switch accessType {
	case AccessSubdomain:
		return strings.Trim(v, "/")
	case AccessDomainPath, AccessClusterIPPath:
		v = strings.TrimRight(strings.TrimLeft(v, "/"), "/")
		return "/" + v
	default:
		return v
	}
}

// EndpointKey is the uniqueness key for an enabled endpoint within a
// cluster: no two enabled endpoints may share the same key.
type EndpointKey struct {
	AccessType AccessType
	Value      string
}

// Key returns the normalized uniqueness key for the endpoint.
func (e Endpoint) Key() EndpointKey {
	return EndpointKey{
		AccessType: e.AccessType,
		Value:      NormalizeEndpointValue(e.AccessType, e.Value),
	}
}

// EndpointKeys collects the uniqueness keys of all enabled endpoints,
// mapping each key to the endpoint name that claimed it.
func EndpointKeys(endpoints []Endpoint) map[EndpointKey]string {
	keys := make(map[EndpointKey]string)
	for _, ep := range endpoints {
		if ep.Enabled {
			keys[ep.Key()] = ep.Name
		}
	}
	return keys
}
