package server

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/zavatech/agent-concierge/internal/config"
	"github.com/zavatech/agent-concierge/pkg/logger"
)

func testLogger() logger.Logger {
	return logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

// fakeBackend stands in for both the agent platform and the model endpoint.
type fakeBackend struct {
	label       string // routing label returned by the classifier
	runEvents   string // SSE payload for each run
	failRuns    bool
	failThreads bool

	// stallFirstRun makes the first run emit one fragment and then block
	// until its request context is cancelled; runCancelled is closed at
	// that point. Later runs serve runEvents as usual.
	stallFirstRun bool
	runCancelled  chan struct{}

	threadsCreated atomic.Int32
	threadsDeleted atomic.Int32
	runsStarted    atomic.Int32
}

func (f *fakeBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "chat/completions"):
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, f.label)

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/threads"):
			if f.failThreads {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			f.threadsCreated.Add(1)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"thread_test"}`)

		case r.Method == http.MethodDelete && strings.Contains(r.URL.Path, "/threads/"):
			f.threadsDeleted.Add(1)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"deleted":true}`)

		case strings.HasSuffix(r.URL.Path, "/messages"):
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"msg_1"}`)

		case strings.HasSuffix(r.URL.Path, "/runs"):
			runNumber := f.runsStarted.Add(1)
			w.Header().Set("Content-Type", "text/event-stream")
			if f.failRuns {
				fmt.Fprint(w, "event: thread.run.failed\n"+
					`data: {"id":"run_1","status":"failed","last_error":{"code":"server_error","message":"boom"}}`+"\n\n")
				return
			}
			if f.stallFirstRun && runNumber == 1 {
				fmt.Fprint(w, "event: thread.message.delta\n"+
					`data: {"delta":{"content":[{"type":"text","text":{"value":"Working on it"}}]}}`+"\n\n")
				w.(http.Flusher).Flush()
				<-r.Context().Done()
				close(f.runCancelled)
				return
			}
			fmt.Fprint(w, f.runEvents)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func testAppConfig(endpoint string) *appconfig.AppConfig {
	return &appconfig.AppConfig{
		ServiceName: "agent-concierge",
		Port:        8080,
		Platform: appconfig.PlatformConfig{
			Endpoint:   endpoint,
			APIKey:     "test-key",
			APIVersion: "2024-07-01-preview",
			Timeout:    10 * time.Second,
		},
		Router: appconfig.RouterConfig{
			Deployment: "gpt-4o-mini",
			MaxHistory: 10,
			Timeout:    5 * time.Second,
		},
		Agents: appconfig.AgentsConfig{
			CoraID:             "asst_cora",
			InteriorDesignerID: "asst_design",
			CustomerLoyaltyID:  "asst_loyalty",
			InventoryID:        "asst_inventory",
		},
		Search:   appconfig.SearchConfig{Timeout: 5 * time.Second},
		Images:   appconfig.ImagesConfig{Deployment: "dall-e-3", Size: "1024x1024"},
		Logging:  appconfig.LoggingConfig{Level: "error", Format: "json"},
		Security: appconfig.SecurityConfig{CORSAllowedOrigins: []string{"*"}},
	}
}

func dialChat(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.createRouter())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readTurn collects frames until the done frame that closes the turn.
func readTurn(t *testing.T, conn *websocket.Conn) []outboundFrame {
	t.Helper()
	var frames []outboundFrame
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var frame outboundFrame
		require.NoError(t, conn.ReadJSON(&frame))
		frames = append(frames, frame)
		if frame.Type == "done" {
			return frames
		}
	}
}

func TestChatSession_StreamsReply(t *testing.T) {
	backend := &fakeBackend{
		label: "inventory_agent",
		runEvents: "event: thread.message.delta\n" +
			`data: {"delta":{"content":[{"type":"text","text":{"value":"Aisle "}}]}}` + "\n\n" +
			"event: thread.message.delta\n" +
			`data: {"delta":{"content":[{"type":"text","text":{"value":"C2."}}]}}` + "\n\n" +
			"event: thread.run.completed\n" +
			`data: {"id":"run_1","status":"completed"}` + "\n\n",
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	s, err := New(testAppConfig(srv.URL), testLogger())
	require.NoError(t, err)

	conn := dialChat(t, s)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("where is the laminate flooring?")))

	frames := readTurn(t, conn)
	require.Len(t, frames, 3)

	var reply strings.Builder
	doneFrames := 0
	for _, frame := range frames {
		switch frame.Type {
		case "fragment":
			assert.Equal(t, "inventory_agent", frame.Agent)
			reply.WriteString(frame.Content)
		case "done":
			doneFrames++
		}
	}
	assert.Equal(t, "Aisle C2.", reply.String())
	assert.Equal(t, 1, doneFrames)
	assert.Equal(t, int32(1), backend.threadsCreated.Load())
}

func TestChatSession_MultipleTurnsOneThread(t *testing.T) {
	backend := &fakeBackend{
		label: "cora",
		runEvents: "event: thread.message.delta\n" +
			`data: {"delta":{"content":[{"type":"text","text":{"value":"Hi!"}}]}}` + "\n\n" +
			"event: thread.run.completed\n" +
			`data: {"id":"run_1","status":"completed"}` + "\n\n",
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	s, err := New(testAppConfig(srv.URL), testLogger())
	require.NoError(t, err)

	conn := dialChat(t, s)

	for turn := 0; turn < 3; turn++ {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
		frames := readTurn(t, conn)
		assert.Equal(t, "done", frames[len(frames)-1].Type)
	}

	// One thread for the whole session, one run per turn
	assert.Equal(t, int32(1), backend.threadsCreated.Load())
	assert.Equal(t, int32(3), backend.runsStarted.Load())
}

func TestChatSession_PlatformFailureSendsFallback(t *testing.T) {
	backend := &fakeBackend{label: "cora", failRuns: true}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	s, err := New(testAppConfig(srv.URL), testLogger())
	require.NoError(t, err)

	conn := dialChat(t, s)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

	frames := readTurn(t, conn)
	require.Len(t, frames, 2)
	assert.Equal(t, "error", frames[0].Type)
	assert.Equal(t, fallbackReply, frames[0].Content)
	// Raw platform errors never reach the client
	assert.NotContains(t, frames[0].Content, "boom")
	assert.Equal(t, "done", frames[1].Type)
}

func TestChatSession_ThreadCreationFailureClosesConnection(t *testing.T) {
	backend := &fakeBackend{label: "cora", failThreads: true}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	s, err := New(testAppConfig(srv.URL), testLogger())
	require.NoError(t, err)

	conn := dialChat(t, s)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, readErr := conn.ReadMessage()
	assert.Error(t, readErr)
}

func TestChatSession_DeletesThreadOnDisconnect(t *testing.T) {
	backend := &fakeBackend{
		label: "cora",
		runEvents: "event: thread.run.completed\n" +
			`data: {"id":"run_1","status":"completed"}` + "\n\n",
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	s, err := New(testAppConfig(srv.URL), testLogger())
	require.NoError(t, err)

	conn := dialChat(t, s)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	readTurn(t, conn)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return backend.threadsDeleted.Load() == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestChatSession_DisconnectMidStreamCancelsRun(t *testing.T) {
	backend := &fakeBackend{
		label:         "cora",
		stallFirstRun: true,
		runCancelled:  make(chan struct{}),
		runEvents: "event: thread.message.delta\n" +
			`data: {"delta":{"content":[{"type":"text","text":{"value":"Hi!"}}]}}` + "\n\n" +
			"event: thread.run.completed\n" +
			`data: {"id":"run_1","status":"completed"}` + "\n\n",
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	s, err := New(testAppConfig(srv.URL), testLogger())
	require.NoError(t, err)

	conn := dialChat(t, s)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("help me plan a deck")))

	// Wait for the first fragment so the run is mid-stream
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame outboundFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "fragment", frame.Type)

	// A concurrent session is unaffected by the stalled one
	conn2 := dialChat(t, s)
	require.NoError(t, conn2.WriteMessage(websocket.TextMessage, []byte("hello")))
	frames := readTurn(t, conn2)
	assert.Equal(t, "done", frames[len(frames)-1].Type)

	require.NoError(t, conn.Close())

	select {
	case <-backend.runCancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("stalled run was not cancelled after disconnect")
	}
}

func TestChatSession_DisconnectWithQueuedMessage(t *testing.T) {
	backend := &fakeBackend{
		label:         "cora",
		stallFirstRun: true,
		runCancelled:  make(chan struct{}),
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	s, err := New(testAppConfig(srv.URL), testLogger())
	require.NoError(t, err)

	conn := dialChat(t, s)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("first question")))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame outboundFrame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, "fragment", frame.Type)

	// Queue another message behind the in-flight turn, then drop the
	// connection. The read goroutine must still observe the disconnect and
	// cancel the stalled run.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("second question")))
	require.NoError(t, conn.Close())

	select {
	case <-backend.runCancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("stalled run was not cancelled after disconnect")
	}

	assert.Eventually(t, func() bool {
		return backend.threadsDeleted.Load() == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	backend := &fakeBackend{label: "cora"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	s, err := New(testAppConfig(srv.URL), testLogger())
	require.NoError(t, err)

	api := httptest.NewServer(s.createRouter())
	defer api.Close()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(api.URL + path)
		require.NoError(t, err, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		_ = resp.Body.Close()
	}
}

func TestCheckOrigin(t *testing.T) {
	backend := &fakeBackend{label: "cora"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	cfg := testAppConfig(srv.URL)
	cfg.Security.CORSAllowedOrigins = []string{"https://chat.zava.example"}

	s, err := New(cfg, testLogger())
	require.NoError(t, err)

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"", true}, // non-browser clients send no Origin
		{"https://chat.zava.example", true},
		{"https://CHAT.ZAVA.EXAMPLE", true},
		{"https://evil.example", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/ws/chat", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.allowed, s.checkOrigin(r), "origin %q", tt.origin)
	}
}

func TestToolRegistryWiring(t *testing.T) {
	backend := &fakeBackend{label: "cora"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	t.Run("search disabled without credentials", func(t *testing.T) {
		s, err := New(testAppConfig(srv.URL), testLogger())
		require.NoError(t, err)
		require.NotNil(t, s)
	})

	t.Run("search enabled with credentials", func(t *testing.T) {
		cfg := testAppConfig(srv.URL)
		cfg.Search.Endpoint = "https://search.example.com"
		cfg.Search.Index = "products"
		cfg.Search.APIKey = "search-key"

		s, err := New(cfg, testLogger())
		require.NoError(t, err)
		require.NotNil(t, s)
	})
}
