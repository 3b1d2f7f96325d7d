package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// SearchConfig holds configuration for the product search tool's index
type SearchConfig struct {
	Endpoint   string        `env:"SEARCH_ENDPOINT" yaml:"endpoint"`
	Index      string        `env:"SEARCH_INDEX" yaml:"index" default:"products"`
	APIKey     string        `env:"SEARCH_API_KEY" yaml:"-"`
	APIVersion string        `env:"SEARCH_API_VERSION" yaml:"api_version" default:"2024-07-01"`
	Timeout    time.Duration `env:"SEARCH_TIMEOUT" yaml:"timeout" default:"30s"`
}

// Enabled returns true if the search index is configured
func (c *SearchConfig) Enabled() bool {
	return c.Endpoint != "" && c.APIKey != ""
}

// Validate checks SearchConfig for consistency
func (c *SearchConfig) Validate() error {
	var result error

	if c.Endpoint != "" && c.Index == "" {
		result = multierror.Append(result, fmt.Errorf("search index name is required when a search endpoint is configured"))
	}
	if c.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("search timeout must be greater than 0"))
	}

	return result
}

// ImagesConfig holds configuration for the image generation tool
type ImagesConfig struct {
	Deployment string `env:"IMAGE_MODEL_DEPLOYMENT" yaml:"deployment" default:"dall-e-3"`
	Size       string `env:"IMAGE_SIZE" yaml:"size" default:"1024x1024"`
}
