package inventory

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zavatech/agent-concierge/pkg/logger"
)

func testLogger() logger.Logger {
	return logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func TestLookupInventory(t *testing.T) {
	def := New(testLogger())
	require.Equal(t, "lookup_inventory", def.Name)

	tests := []struct {
		name      string
		product   string
		wantCount int
		wantSKU   string
	}{
		{
			name:      "exact sku",
			product:   "ZV-1001",
			wantCount: 1,
			wantSKU:   "ZV-1001",
		},
		{
			name:      "lowercase sku",
			product:   "zv-5001",
			wantCount: 1,
			wantSKU:   "ZV-5001",
		},
		{
			name:      "partial name matches multiple",
			product:   "laminate flooring",
			wantCount: 2,
		},
		{
			name:      "case insensitive name",
			product:   "OCEAN MIST",
			wantCount: 1,
			wantSKU:   "ZV-1001",
		},
		{
			name:      "no match",
			product:   "garden gnome",
			wantCount: 0,
		},
		{
			name:      "empty query",
			product:   "",
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := def.Handler(context.Background(), map[string]any{"product": tt.product})
			assert.Len(t, records, tt.wantCount)
			if tt.wantSKU != "" {
				require.NotEmpty(t, records)
				assert.Equal(t, tt.wantSKU, records[0]["sku"])
			}
		})
	}
}

func TestLookupInventory_RecordShape(t *testing.T) {
	def := New(testLogger())

	records := def.Handler(context.Background(), map[string]any{"product": "ZV-2001"})
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "Zava Paint Roller Kit", record["name"])
	assert.Equal(t, 120, record["in_stock"])
	assert.Equal(t, "B1", record["aisle"])
	assert.Equal(t, 18.50, record["price"])
}

func TestLookupInventory_OutOfStockStillListed(t *testing.T) {
	def := New(testLogger())

	records := def.Handler(context.Background(), map[string]any{"product": "Smoked Ash"})
	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0]["in_stock"])
}
