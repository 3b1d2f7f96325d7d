// Package discount provides the loyalty discount calculation tool.
package discount

import (
	"context"
	"math"
	"strings"

	"github.com/zavatech/agent-concierge/internal/tools"
	"github.com/zavatech/agent-concierge/pkg/logger"
)

// Loyalty tiers and their discount percentages.
var tiers = []struct {
	Name    string
	Percent float64
	Perks   string
}{
	{"bronze", 5, "free paint samples"},
	{"silver", 10, "free delivery on orders over $50"},
	{"gold", 15, "free delivery and priority support"},
	{"platinum", 20, "free delivery, priority support and early sale access"},
}

// New creates the calculate_discount tool definition
func New(log logger.Logger) tools.Definition {
	log = log.WithFields(logger.StringField("tool", "calculate_discount"))

	return tools.Definition{
		Name:        "calculate_discount",
		Description: "Calculate the loyalty discount for a customer tier. Optionally applies the discount to a purchase amount in dollars.",
		Parameters: tools.ObjectSchema(map[string]any{
			"tier": map[string]any{
				"type":        "string",
				"description": "Loyalty tier: bronze, silver, gold or platinum",
			},
			"amount": map[string]any{
				"type":        "number",
				"description": "Optional purchase amount in dollars to apply the discount to",
			},
		}, "tier"),
		Handler: func(_ context.Context, args map[string]any) []tools.Record {
			tier := strings.ToLower(strings.TrimSpace(tools.StringArg(args, "tier")))
			amount := tools.NumberArg(args, "amount")

			for _, t := range tiers {
				if t.Name != tier {
					continue
				}
				record := tools.Record{
					"tier":             t.Name,
					"discount_percent": t.Percent,
					"perks":            t.Perks,
				}
				if amount > 0 {
					discounted := amount * (100 - t.Percent) / 100
					record["original_amount"] = amount
					record["discounted_amount"] = math.Round(discounted*100) / 100
				}
				return []tools.Record{record}
			}

			log.Warn("Unknown loyalty tier requested", logger.StringField("tier", tier))
			return []tools.Record{}
		},
	}
}
