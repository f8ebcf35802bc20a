package model

import (
	"fmt"
	"regexp"
)

// Boundary values for pools and volumes.
const (
	MinPoolNodes = 1
	MaxPoolNodes = 20

	MinAutoscaleMin = 0
	MaxAutoscaleMin = 10
	MinAutoscaleMax = 1
	MaxAutoscaleMax = 10

	MinVolumeGiB = 10
	MaxVolumeGiB = 1000
)

// dnsLabel matches DNS label syntax: 1-63 chars of [a-z0-9-], not
// starting or ending with a hyphen.
var dnsLabel = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidateName checks cluster and deployment names against DNS label syntax.
func ValidateName(kind, name string) error {
	if !dnsLabel.MatchString(name) {
		return fmt.Errorf("%s name %q must be 1-63 characters of [a-z0-9-] and must not start or end with a hyphen", kind, name)
	}
	return nil
}

// Validate checks pool boundaries: fixed counts within [1, 20], or a
// well-formed autoscaling range.
func (p *Pool) Validate() error {
	if err := ValidateName("pool", p.Name); err != nil {
		return err
	}
	if p.NodeType == "" {
		return fmt.Errorf("pool %q: node_type is required", p.Name)
	}
	if p.Region == "" {
		return fmt.Errorf("pool %q: region is required", p.Name)
	}

	if p.ControlPlane {
		if p.Count != 1 {
			return fmt.Errorf("control plane pool %q must have exactly 1 node, got %d", p.Name, p.Count)
		}
		if p.Autoscaling != nil && p.Autoscaling.Enabled {
			return fmt.Errorf("control plane pool %q cannot be autoscaled", p.Name)
		}
		return nil
	}

	if p.Autoscaling != nil && p.Autoscaling.Enabled {
		a := p.Autoscaling
		if a.MinNodes < MinAutoscaleMin || a.MinNodes > MaxAutoscaleMin {
			return fmt.Errorf("pool %q: autoscaling min_nodes %d out of range [%d, %d]", p.Name, a.MinNodes, MinAutoscaleMin, MaxAutoscaleMin)
		}
		if a.MaxNodes < MinAutoscaleMax || a.MaxNodes > MaxAutoscaleMax {
			return fmt.Errorf("pool %q: autoscaling max_nodes %d out of range [%d, %d]", p.Name, a.MaxNodes, MinAutoscaleMax, MaxAutoscaleMax)
		}
		if a.MinNodes > a.MaxNodes {
			return fmt.Errorf("pool %q: autoscaling min_nodes %d exceeds max_nodes %d", p.Name, a.MinNodes, a.MaxNodes)
		}
		return nil
	}

	if p.Count < MinPoolNodes || p.Count > MaxPoolNodes {
		return fmt.Errorf("pool %q: node count %d out of range [%d, %d]", p.Name, p.Count, MinPoolNodes, MaxPoolNodes)
	}
	return nil
}

// Validate checks the cluster invariants: a valid name, exactly one
// control-plane pool with count 1, unique pool names, valid pools.
func (c *Cluster) Validate() error {
	if err := ValidateName("cluster", c.Name); err != nil {
		return err
	}
	if c.K3sVersion == "" {
		return fmt.Errorf("k3s_version is required")
	}

	controlPlanes := 0
	seen := make(map[string]bool)
	for i := range c.Pools {
		p := &c.Pools[i]
		if seen[p.Name] {
			return fmt.Errorf("duplicate pool name %q", p.Name)
		}
		seen[p.Name] = true
		if p.ControlPlane {
			controlPlanes++
		}
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if controlPlanes != 1 {
		return fmt.Errorf("cluster must have exactly one control-plane pool, got %d", controlPlanes)
	}

	if c.Addons.TraefikDashboard.Enabled {
		td := c.Addons.TraefikDashboard
		if len(td.Username) < 3 || len(td.Username) > 20 {
			return fmt.Errorf("traefik_dashboard username must be 3-20 characters")
		}
		if len(td.Password) < 4 || len(td.Password) > 20 {
			return fmt.Errorf("traefik_dashboard password must be 4-20 characters")
		}
	}
	return nil
}

// ValidateVolumeSize checks the volume size boundary.
func ValidateVolumeSize(sizeGiB int) error {
	if sizeGiB < MinVolumeGiB || sizeGiB > MaxVolumeGiB {
		return fmt.Errorf("volume size %d GiB out of range [%d, %d]", sizeGiB, MinVolumeGiB, MaxVolumeGiB)
	}
	return nil
}
