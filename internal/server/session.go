package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zavatech/agent-concierge/internal/router"
	"github.com/zavatech/agent-concierge/pkg/logger"
	"github.com/zavatech/agent-concierge/pkg/prefixed_uuid"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	threadSetupTimeout = 30 * time.Second

	// fallbackReply is sent when the platform fails mid-turn; raw errors
	// never reach the client
	fallbackReply = "Sorry, I ran into a problem answering that. Please try again."
)

// outboundFrame is one websocket message sent to the client.
type outboundFrame struct {
	Type    string `json:"type"` // "fragment" | "done" | "error"
	Agent   string `json:"agent,omitempty"`
	Content string `json:"content,omitempty"`
}

// session holds the per-connection state: one client connection paired with
// one platform thread. Owned exclusively by its connection handler.
type session struct {
	id       string
	threadID string
	conn     *websocket.Conn
	history  []router.Turn
	log      logger.Logger
}

// handleChat serves one chat session over a websocket connection. Messages
// within the session are processed sequentially; sessions run concurrently.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", logger.ErrorField(err))
		return
	}

	s.metrics.SessionOpened()
	defer s.metrics.SessionClosed()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := &session{
		id:   prefixed_uuid.New("session").String(),
		conn: conn,
	}
	sess.log = s.log.WithFields(logger.StringField("session_id", sess.id))

	setupCtx, setupCancel := context.WithTimeout(ctx, threadSetupTimeout)
	sess.threadID, err = s.platformClient.CreateThread(setupCtx)
	setupCancel()
	if err != nil {
		sess.log.Error("Failed to create platform thread", logger.ErrorField(err))
		s.metrics.PlatformError()
		_ = conn.Close()
		return
	}

	sess.log.Info("Session started", logger.StringField("thread_id", sess.threadID))
	defer s.teardownSession(sess)

	inbound := s.readLoop(sess, cancel)
	s.pingLoop(ctx, sess)

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-inbound:
			if !ok {
				return
			}
			s.handleMessage(ctx, sess, message)
		}
	}
}

// readLoop reads inbound messages on a dedicated goroutine so client
// disconnects cancel in-flight processing. The returned channel closes when
// the connection dies.
func (s *Server) readLoop(sess *session, cancel context.CancelFunc) <-chan string {
	// One slot of buffer so a message queued behind an in-flight turn does
	// not keep the read goroutine from noticing a disconnect.
	inbound := make(chan string, 1)

	_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		defer close(inbound)
		defer cancel()
		for {
			messageType, data, err := sess.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					sess.log.Warn("Websocket read failed", logger.ErrorField(err))
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			message := strings.TrimSpace(string(data))
			if message == "" {
				continue
			}
			inbound <- message
		}
	}()

	return inbound
}

// pingLoop keeps the connection alive with periodic pings.
func (s *Server) pingLoop(ctx context.Context, sess *session) {
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := sess.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()
}

// handleMessage runs one full turn: route, look up the processor, stream the
// response back, and close the turn with exactly one done frame.
func (s *Server) handleMessage(ctx context.Context, sess *session, message string) {
	s.metrics.MessageProcessed()
	sess.appendTurn(router.Turn{Role: "user", Content: message})

	agentType := s.handoff.Route(ctx, sess.history)
	s.metrics.Handoff(agentType)

	descriptor := s.directory.Lookup(agentType)
	processor := s.cache.GetOrCreate(descriptor)

	sess.log.Debug("Message routed",
		logger.StringField("agent_type", descriptor.Type),
		logger.IntField("history_len", len(sess.history)))

	var reply strings.Builder
	failed := false

	for fragment, err := range processor.Send(ctx, sess.threadID, message) {
		if err != nil {
			if ctx.Err() != nil {
				// client disconnected mid-stream
				return
			}
			sess.log.Error("Agent run failed", logger.ErrorField(err))
			s.metrics.PlatformError()
			_ = sess.writeFrame(outboundFrame{Type: "error", Agent: descriptor.Type, Content: fallbackReply})
			failed = true
			break
		}

		reply.WriteString(fragment)
		if writeErr := sess.writeFrame(outboundFrame{Type: "fragment", Agent: descriptor.Type, Content: fragment}); writeErr != nil {
			sess.log.Warn("Failed to write fragment", logger.ErrorField(writeErr))
			return
		}
	}

	if ctx.Err() != nil {
		return
	}
	_ = sess.writeFrame(outboundFrame{Type: "done", Agent: descriptor.Type})

	if failed {
		sess.appendTurn(router.Turn{Role: "assistant", Content: fallbackReply})
		return
	}
	sess.appendTurn(router.Turn{Role: "assistant", Content: reply.String()})
}

// teardownSession releases session resources. Thread deletion is best effort;
// the platform may retain thread state regardless.
func (s *Server) teardownSession(sess *session) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.platformClient.DeleteThread(ctx, sess.threadID); err != nil {
		sess.log.Warn("Failed to delete platform thread", logger.ErrorField(err))
	}
	_ = sess.conn.Close()
	sess.log.Info("Session closed")
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.Security.CORSAllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// writeFrame sends one frame to the client with a write deadline.
func (sess *session) writeFrame(frame outboundFrame) error {
	_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sess.conn.WriteJSON(frame)
}

// appendTurn records a turn, bounding history growth.
func (sess *session) appendTurn(turn router.Turn) {
	sess.history = append(sess.history, turn)
	const maxTurns = 40
	if len(sess.history) > maxTurns {
		sess.history = sess.history[len(sess.history)-maxTurns:]
	}
}
