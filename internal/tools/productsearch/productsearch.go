// Package productsearch provides the product search tool backed by the
// external search index.
package productsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/zavatech/agent-concierge/internal/tools"
	"github.com/zavatech/agent-concierge/pkg/logger"
)

// Config holds configuration for the product search tool
type Config struct {
	Endpoint   string
	Index      string
	APIKey     string
	APIVersion string
	Timeout    time.Duration
	Logger     logger.Logger
}

// searchResponse mirrors the index's search result envelope
type searchResponse struct {
	Value []struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Category    string  `json:"category"`
		Price       float64 `json:"price"`
	} `json:"value"`
}

// searchClient handles the HTTP communication with the search index
type searchClient struct {
	endpoint   string
	index      string
	apiKey     string
	apiVersion string
	timeout    time.Duration
	log        logger.Logger
}

func (c *searchClient) search(ctx context.Context, query string, top int) []tools.Record {
	if top <= 0 || top > 50 {
		top = 5
	}

	reqURL := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s",
		c.endpoint, url.PathEscape(c.index), url.QueryEscape(c.apiVersion))

	payload, err := json.Marshal(map[string]any{
		"search": query,
		"top":    top,
	})
	if err != nil {
		c.log.Warn("Failed to build search request", logger.ErrorField(err))
		return []tools.Record{}
	}

	client := &http.Client{Timeout: c.timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		c.log.Warn("Failed to create search request", logger.ErrorField(err))
		return []tools.Record{}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := client.Do(req)
	if err != nil {
		c.log.Warn("Product search request failed", logger.ErrorField(err))
		return []tools.Record{}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Warn("Failed to read search response", logger.ErrorField(err))
		return []tools.Record{}
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("Product search returned error status",
			logger.IntField("status", resp.StatusCode))
		return []tools.Record{}
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.log.Warn("Failed to parse search response", logger.ErrorField(err))
		return []tools.Record{}
	}

	records := make([]tools.Record, 0, len(parsed.Value))
	for _, doc := range parsed.Value {
		records = append(records, tools.Record{
			"id":          doc.ID,
			"name":        doc.Name,
			"description": doc.Description,
			"category":    doc.Category,
			"price":       doc.Price,
		})
	}
	return records
}

// New creates the search_products tool definition
func New(cfg Config) (tools.Definition, error) {
	if cfg.Endpoint == "" {
		return tools.Definition{}, fmt.Errorf("search endpoint is required")
	}
	if cfg.Index == "" {
		return tools.Definition{}, fmt.Errorf("search index is required")
	}
	if cfg.Logger == nil {
		return tools.Definition{}, fmt.Errorf("logger is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-07-01"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := &searchClient{
		endpoint:   cfg.Endpoint,
		index:      cfg.Index,
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		timeout:    cfg.Timeout,
		log:        cfg.Logger.WithFields(logger.StringField("tool", "search_products")),
	}

	return tools.Definition{
		Name:        "search_products",
		Description: "Search the Zava product catalog for products matching a description, style or use case.",
		Parameters: tools.ObjectSchema(map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Free-text description of the product to find",
			},
			"top": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results to return (default 5, max 50)",
			},
		}, "query"),
		Handler: func(ctx context.Context, args map[string]any) []tools.Record {
			query := tools.StringArg(args, "query")
			if query == "" {
				return []tools.Record{}
			}
			return client.search(ctx, query, int(tools.NumberArg(args, "top")))
		},
	}, nil
}
