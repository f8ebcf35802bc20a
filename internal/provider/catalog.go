package provider

import (
	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/model"
)

// NodeType is a server size offered by a provider.
type NodeType struct {
	Name     string `json:"name"`
	Cores    int    `json:"cores"`
	MemoryGB int    `json:"memory_gb"`
	DiskGB   int    `json:"disk_gb"`
}

// Region is a provider location.
type Region struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var hetznerNodeTypes = []NodeType{
	{Name: "cx22", Cores: 2, MemoryGB: 4, DiskGB: 40},
	{Name: "cx32", Cores: 4, MemoryGB: 8, DiskGB: 80},
	{Name: "cx42", Cores: 8, MemoryGB: 16, DiskGB: 160},
	{Name: "cx52", Cores: 16, MemoryGB: 32, DiskGB: 320},
}

var hetznerRegions = []Region{
	{Name: "fsn1", Description: "Falkenstein"},
	{Name: "nbg1", Description: "Nuremberg"},
	{Name: "hel1", Description: "Helsinki"},
}

// NodeTypes returns the node types of a provider's catalog.
func NodeTypes(providerName string) []NodeType {
	if providerName == model.ProviderHetzner {
		return hetznerNodeTypes
	}
	return nil
}

// Regions returns the regions of a provider's catalog.
func Regions(providerName string) []Region {
	if providerName == model.ProviderHetzner {
		return hetznerRegions
	}
	return nil
}

// ValidatePools checks every pool's node type and region against the
// provider catalog.
func ValidatePools(providerName string, pools []model.Pool) error {
	nodeTypes := NodeTypes(providerName)
	regions := Regions(providerName)
	if nodeTypes == nil {
		// Unknown providers fail driver selection instead.
		return nil
	}

	for _, pool := range pools {
		if !hasNodeType(nodeTypes, pool.NodeType) {
			return apperror.Newf(apperror.CodeValidation,
				"pool %s: unknown node type %q", pool.Name, pool.NodeType)
		}
		if !hasRegion(regions, pool.Region) {
			return apperror.Newf(apperror.CodeValidation,
				"pool %s: unknown region %q", pool.Name, pool.Region)
		}
	}
	return nil
}

func hasNodeType(list []NodeType, name string) bool {
	for _, nt := range list {
		if nt.Name == name {
			return true
		}
	}
	return false
}

func hasRegion(list []Region, name string) bool {
	for _, r := range list {
		if r.Name == name {
			return true
		}
	}
	return false
}
