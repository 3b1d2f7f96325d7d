package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zavatech/agent-concierge/pkg/logger"
)

func testLogger() logger.Logger {
	return logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

// classifierStub serves chat completion responses with a fixed label.
func classifierStub(t *testing.T, label string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%s}}]}`, mustJSON(label))
	}))
}

func mustJSON(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func newTestRouter(t *testing.T, baseURL string) *Router {
	t.Helper()
	client := openai.NewClient(option.WithBaseURL(baseURL), option.WithAPIKey("test"))
	r, err := New(Config{
		Client:     &client,
		Deployment: "gpt-4o-mini",
		MaxHistory: 4,
		Timeout:    5 * time.Second,
		Logger:     testLogger(),
	})
	require.NoError(t, err)
	return r
}

func TestNew(t *testing.T) {
	client := openai.NewClient(option.WithAPIKey("test"))

	tests := []struct {
		name        string
		cfg         Config
		expectError bool
	}{
		{
			name:        "valid",
			cfg:         Config{Client: &client, Deployment: "gpt-4o-mini", Logger: testLogger()},
			expectError: false,
		},
		{
			name:        "missing client",
			cfg:         Config{Deployment: "gpt-4o-mini", Logger: testLogger()},
			expectError: true,
		},
		{
			name:        "missing deployment",
			cfg:         Config{Client: &client, Logger: testLogger()},
			expectError: true,
		},
		{
			name:        "missing logger",
			cfg:         Config{Client: &client, Deployment: "gpt-4o-mini"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, r)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, r)
		})
	}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  string
	}{
		{name: "exact label", label: "inventory_agent", want: AgentInventory},
		{name: "uppercase label", label: "INTERIOR_DESIGNER", want: AgentInteriorDesigner},
		{name: "label with whitespace", label: "  customer_loyalty\n", want: AgentCustomerLoyalty},
		{name: "quoted label", label: `"cora"`, want: AgentCora},
		{name: "unknown label", label: "shipping_agent", want: DefaultAgent},
		{name: "empty label", label: "", want: DefaultAgent},
		{name: "prose instead of label", label: "I think the inventory agent fits best.", want: DefaultAgent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := classifierStub(t, tt.label, http.StatusOK)
			defer srv.Close()

			r := newTestRouter(t, srv.URL)
			got := r.Route(context.Background(), []Turn{{Role: "user", Content: "hello"}})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoute_ClassifierError(t *testing.T) {
	srv := classifierStub(t, "", http.StatusInternalServerError)
	defer srv.Close()

	r := newTestRouter(t, srv.URL)
	got := r.Route(context.Background(), []Turn{{Role: "user", Content: "hello"}})
	assert.Equal(t, DefaultAgent, got)
}

func TestRoute_TrimsHistory(t *testing.T) {
	var gotMessages int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []json.RawMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotMessages = len(body.Messages)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"cora"}}]}`)
	}))
	defer srv.Close()

	r := newTestRouter(t, srv.URL)

	history := make([]Turn, 12)
	for i := range history {
		history[i] = Turn{Role: "user", Content: fmt.Sprintf("message %d", i)}
	}
	got := r.Route(context.Background(), history)
	assert.Equal(t, AgentCora, got)

	// system instruction plus the 4 most recent turns
	assert.Equal(t, 5, gotMessages)
}

func TestKnownAgentTypes(t *testing.T) {
	types := KnownAgentTypes()
	assert.Len(t, types, 4)
	assert.Contains(t, types, DefaultAgent)
}
