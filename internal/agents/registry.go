// Package agents wires agent descriptors, processors and the processor cache.
package agents

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/zavatech/agent-concierge/internal/config"
	"github.com/zavatech/agent-concierge/internal/router"
)

// Descriptor is the static configuration tuple for one agent type.
// Immutable after startup.
type Descriptor struct {
	Type    string // agent type label, e.g. "customer_loyalty"
	AgentID string // opaque platform agent identifier
}

// Key returns the processor cache key for this descriptor.
func (d Descriptor) Key() string {
	return d.Type + ":" + d.AgentID
}

// Directory resolves agent type labels to descriptors.
type Directory struct {
	byType map[string]Descriptor
}

// NewDirectory builds the agent directory from configuration. Every known
// agent type must have a platform identifier; validation failures are fatal
// at startup.
func NewDirectory(cfg config.AgentsConfig) (*Directory, error) {
	byType := map[string]Descriptor{
		router.AgentCora:             {Type: router.AgentCora, AgentID: cfg.CoraID},
		router.AgentInteriorDesigner: {Type: router.AgentInteriorDesigner, AgentID: cfg.InteriorDesignerID},
		router.AgentCustomerLoyalty:  {Type: router.AgentCustomerLoyalty, AgentID: cfg.CustomerLoyaltyID},
		router.AgentInventory:        {Type: router.AgentInventory, AgentID: cfg.InventoryID},
	}

	var result error
	for agentType, descriptor := range byType {
		if descriptor.AgentID == "" {
			result = multierror.Append(result, fmt.Errorf("agent type %s has no platform agent identifier", agentType))
		}
	}
	if result != nil {
		return nil, result
	}

	return &Directory{byType: byType}, nil
}

// Lookup resolves an agent type to its descriptor. Unknown types resolve to
// the default conversational agent.
func (d *Directory) Lookup(agentType string) Descriptor {
	if descriptor, ok := d.byType[agentType]; ok {
		return descriptor
	}
	return d.byType[router.DefaultAgent]
}

// All returns every configured descriptor.
func (d *Directory) All() []Descriptor {
	descriptors := make([]Descriptor, 0, len(d.byType))
	for _, descriptor := range d.byType {
		descriptors = append(descriptors, descriptor)
	}
	return descriptors
}
