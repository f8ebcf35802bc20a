package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/model"
)

func TestValidatePools(t *testing.T) {
	pools := []model.Pool{
		{Name: "control", NodeType: "cx22", Region: "fsn1", Count: 1, ControlPlane: true},
		{Name: "workers", NodeType: "cx32", Region: "hel1", Count: 2},
	}
	assert.NoError(t, ValidatePools(model.ProviderHetzner, pools))
}

func TestValidatePools_UnknownNodeType(t *testing.T) {
	err := ValidatePools(model.ProviderHetzner, []model.Pool{
		{Name: "workers", NodeType: "m5.large", Region: "fsn1", Count: 2},
	})
	assert.True(t, apperror.IsValidation(err))
	assert.ErrorContains(t, err, `unknown node type "m5.large"`)
}

func TestValidatePools_UnknownRegion(t *testing.T) {
	err := ValidatePools(model.ProviderHetzner, []model.Pool{
		{Name: "workers", NodeType: "cx32", Region: "us-east-1", Count: 2},
	})
	assert.ErrorContains(t, err, `unknown region "us-east-1"`)
}

func TestValidatePools_UnknownProvider(t *testing.T) {
	// Unknown providers have no catalog; driver selection rejects them.
	assert.NoError(t, ValidatePools("digitalocean", []model.Pool{
		{Name: "workers", NodeType: "whatever", Region: "ams3", Count: 1},
	}))
}

func TestCatalogLookups(t *testing.T) {
	assert.NotEmpty(t, NodeTypes(model.ProviderHetzner))
	assert.NotEmpty(t, Regions(model.ProviderHetzner))
	assert.Nil(t, NodeTypes("digitalocean"))
	assert.Nil(t, Regions("digitalocean"))
}
