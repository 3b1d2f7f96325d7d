package agents

import (
	"fmt"
	"sync"

	"github.com/zavatech/agent-concierge/internal/metrics"
	"github.com/zavatech/agent-concierge/internal/platform"
	"github.com/zavatech/agent-concierge/internal/tools"
	"github.com/zavatech/agent-concierge/pkg/logger"
)

// CacheConfig holds dependencies for the processor cache
type CacheConfig struct {
	Client   *platform.Client
	Registry *tools.Registry
	Metrics  *metrics.Metrics
	Logger   logger.Logger
}

// Cache is the process-wide mapping from (agent type, agent id) to a
// constructed processor. Entries live for the process lifetime; there is no
// eviction. Safe for concurrent sessions.
type Cache struct {
	mu         sync.Mutex
	processors map[string]*Processor

	client   *platform.Client
	registry *tools.Registry
	metrics  *metrics.Metrics
	log      logger.Logger
}

// NewCache creates an empty processor cache
func NewCache(cfg CacheConfig) (*Cache, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("platform client is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Cache{
		processors: make(map[string]*Processor),
		client:     cfg.Client,
		registry:   cfg.Registry,
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
	}, nil
}

// GetOrCreate returns the processor for a descriptor, constructing it on
// first use. Repeated lookups for the same key return the identical instance.
func (c *Cache) GetOrCreate(descriptor Descriptor) *Processor {
	key := descriptor.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if processor, ok := c.processors[key]; ok {
		return processor
	}

	toolset := c.registry.Toolset(descriptor.Type)
	processor := NewProcessor(c.client, descriptor, toolset, c.metrics, c.log)
	c.processors[key] = processor

	c.log.Info("Created agent processor",
		logger.StringField("agent_type", descriptor.Type),
		logger.StringField("agent_id", descriptor.AgentID),
		logger.IntField("tools", len(toolset)))
	return processor
}

// Len returns the number of live processors.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.processors)
}

// Close releases all cached processors. Called once on shutdown.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processors = make(map[string]*Processor)
}
