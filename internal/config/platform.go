package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// PlatformConfig holds connection settings for the hosted agent platform.
// The platform owns threads, runs, model invocation and tool-call
// orchestration; this service only talks to it over HTTP.
type PlatformConfig struct {
	Endpoint   string        `env:"AGENT_PLATFORM_ENDPOINT" yaml:"endpoint" required:"true"`
	APIKey     string        `env:"AGENT_PLATFORM_API_KEY" yaml:"api_key" required:"true"`
	APIVersion string        `env:"AGENT_PLATFORM_API_VERSION" yaml:"api_version" default:"2024-07-01-preview"`
	Timeout    time.Duration `env:"AGENT_PLATFORM_TIMEOUT" yaml:"timeout" default:"120s"`
}

// Validate checks PlatformConfig for consistency
func (c *PlatformConfig) Validate() error {
	var result error

	if c.Endpoint != "" && !strings.HasPrefix(c.Endpoint, "http") {
		result = multierror.Append(result, fmt.Errorf("platform endpoint must be an http(s) URL, got %q", c.Endpoint))
	}
	if c.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("platform timeout must be greater than 0"))
	}

	return result
}

// RouterConfig holds settings for the handoff router's classifier call
type RouterConfig struct {
	Deployment string        `env:"ROUTER_MODEL_DEPLOYMENT" yaml:"deployment" required:"true"`
	MaxHistory int           `env:"ROUTER_MAX_HISTORY" yaml:"max_history" default:"10"`
	Timeout    time.Duration `env:"ROUTER_TIMEOUT" yaml:"timeout" default:"15s"`
}

// Validate checks RouterConfig for consistency
func (c *RouterConfig) Validate() error {
	var result error

	if c.MaxHistory < 1 {
		result = multierror.Append(result, fmt.Errorf("router max_history must be at least 1"))
	}
	if c.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("router timeout must be greater than 0"))
	}

	return result
}

// AgentsConfig maps each agent type to its platform agent identifier.
// All identifiers are configured in the platform's portal and are opaque here.
type AgentsConfig struct {
	CoraID             string `env:"CORA_AGENT_ID" yaml:"cora_id" required:"true"`
	InteriorDesignerID string `env:"INTERIOR_DESIGNER_AGENT_ID" yaml:"interior_designer_id" required:"true"`
	CustomerLoyaltyID  string `env:"CUSTOMER_LOYALTY_AGENT_ID" yaml:"customer_loyalty_id" required:"true"`
	InventoryID        string `env:"INVENTORY_AGENT_ID" yaml:"inventory_id" required:"true"`
}

// Validate checks that no two agent types share a platform identifier
func (c *AgentsConfig) Validate() error {
	var result error

	seen := map[string]string{}
	for agentType, id := range map[string]string{
		"cora":              c.CoraID,
		"interior_designer": c.InteriorDesignerID,
		"customer_loyalty":  c.CustomerLoyaltyID,
		"inventory_agent":   c.InventoryID,
	} {
		if id == "" {
			continue // required tags report missing values
		}
		if other, ok := seen[id]; ok {
			result = multierror.Append(result, fmt.Errorf("agent types %s and %s share platform identifier %q", other, agentType, id))
			continue
		}
		seen[id] = agentType
	}

	return result
}
