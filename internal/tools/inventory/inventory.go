// Package inventory provides the stock lookup tool over the static Zava
// store catalog.
package inventory

import (
	"context"
	"strings"

	"github.com/zavatech/agent-concierge/internal/tools"
	"github.com/zavatech/agent-concierge/pkg/logger"
)

// item is one catalog entry with its current stock level.
type item struct {
	SKU   string
	Name  string
	Stock int
	Aisle string
	Price float64
}

// Static demo catalog. A real store would back this with the ERP system.
var catalog = []item{
	{"ZV-1001", "Zava Interior Paint - Ocean Mist", 42, "A3", 34.99},
	{"ZV-1002", "Zava Interior Paint - Desert Clay", 17, "A3", 34.99},
	{"ZV-1003", "Zava Ceiling Paint - Bright White", 63, "A4", 29.99},
	{"ZV-2001", "Zava Paint Roller Kit", 120, "B1", 18.50},
	{"ZV-2002", "Zava Premium Brush Set", 85, "B1", 24.00},
	{"ZV-3001", "Zava Laminate Flooring - Golden Oak", 8, "C2", 52.75},
	{"ZV-3002", "Zava Laminate Flooring - Smoked Ash", 0, "C2", 52.75},
	{"ZV-4001", "Zava LED Smart Bulb 4-Pack", 201, "D5", 39.99},
	{"ZV-4002", "Zava Pendant Light - Matte Black", 12, "D6", 89.00},
	{"ZV-5001", "Zava Cordless Drill 18V", 34, "E1", 129.99},
}

// New creates the lookup_inventory tool definition
func New(log logger.Logger) tools.Definition {
	log = log.WithFields(logger.StringField("tool", "lookup_inventory"))

	return tools.Definition{
		Name:        "lookup_inventory",
		Description: "Look up in-store stock levels, aisle locations and prices for Zava products by name or SKU.",
		Parameters: tools.ObjectSchema(map[string]any{
			"product": map[string]any{
				"type":        "string",
				"description": "Product name, partial name, or SKU to look up",
			},
		}, "product"),
		Handler: func(_ context.Context, args map[string]any) []tools.Record {
			query := strings.ToLower(strings.TrimSpace(tools.StringArg(args, "product")))
			if query == "" {
				return []tools.Record{}
			}

			records := []tools.Record{}
			for _, it := range catalog {
				if !strings.Contains(strings.ToLower(it.Name), query) &&
					!strings.EqualFold(it.SKU, query) {
					continue
				}
				records = append(records, tools.Record{
					"sku":      it.SKU,
					"name":     it.Name,
					"in_stock": it.Stock,
					"aisle":    it.Aisle,
					"price":    it.Price,
				})
			}

			if len(records) == 0 {
				log.Debug("No inventory match", logger.StringField("query", query))
			}
			return records
		},
	}
}
