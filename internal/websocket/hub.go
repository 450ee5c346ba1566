package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/InfinityZero3000/LexiLingo-sub001/internal/stream"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients. Each client owns exactly one
// orchestrator; no state is shared between sessions.
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	deps   stream.Deps
	cfg    stream.Config
	logger *zap.Logger
}

// NewHub creates a WebSocket hub over the orchestrator's collaborators.
func NewHub(deps stream.Deps, cfg stream.Config, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deps:       deps,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered",
				zap.String("sessionID", client.sessionID),
				zap.String("userID", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.sessionID]; ok {
				delete(h.clients, client.sessionID)
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("sessionID", client.sessionID))
		}
	}
}

// ActiveSessions returns the number of live sessions, for the health route.
func (h *Hub) ActiveSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is a middleman between one websocket connection and its session
// orchestrator.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	sessionID string
	userID    string

	orch   *stream.Orchestrator
	cancel context.CancelFunc

	logger *zap.Logger
}

// HandleWebSocket upgrades the connection and wires a new session. The caller
// has already authenticated userID.
func HandleWebSocket(hub *Hub, c echo.Context, userID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	sessionID := uuid.NewString()
	session := stream.NewSession(sessionID, userID, hub.cfg.Transcriber.Audio)
	orch := stream.NewOrchestrator(session, hub.deps, hub.cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:       hub,
		conn:      conn,
		sessionID: sessionID,
		userID:    userID,
		orch:      orch,
		cancel:    cancel,
		logger:    logger.With(zap.String("sessionID", sessionID)),
	}

	client.hub.register <- client

	go orch.Run(ctx)
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps frames from the websocket connection into the orchestrator.
// Text frames are control, binary frames audio; closing the control channel
// on exit tears the session down.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.cancel()
		close(c.orch.Control())
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			c.orch.Control() <- stream.Inbound{Payload: message}
		case websocket.BinaryMessage:
			select {
			case c.orch.AudioIn() <- stream.Inbound{Payload: message}:
			default:
				// The session is busier than the client is patient; dropping
				// an audio chunk beats blocking the read loop and stalling
				// control messages behind it.
				c.logger.Warn("audio inbox full, dropping chunk")
			}
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump drains the orchestrator's ordered outbound stream onto the
// socket. The orchestrator is the sole producer, so frame order here is
// exactly emission order.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.orch.Outbound():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			kind := websocket.TextMessage
			if frame.Binary {
				kind = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(kind, frame.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
