package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/domain/entities"
	"github.com/satriahrh/fluenty/server/usecase"
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

	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	// The app is a native client; there is no browser origin to check.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients.
type Hub struct {
	// Registered clients, keyed by connection ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	// Tracks connections until their session has finished.
	active sync.WaitGroup

	sessions *usecase.SessionFactory
	logger   *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(sessions *usecase.SessionFactory, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		sessions:   sessions,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered",
				zap.String("clientID", client.clientID),
				zap.String("mode", string(client.mode)))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			h.active.Done()
			h.logger.Info("Client unregistered", zap.String("clientID", client.clientID))
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection and waits for their sessions to end
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.RLock()
	for _, client := range h.clients {
		client.conn.Close()
	}
	h.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

type session interface {
	Run(ctx context.Context)
	Done() <-chan struct{}
}

// Client is a middleman between the websocket connection and one screen
// session. It is the session's usecase.Sink.
type Client struct {
	id       string
	hub      *Hub
	clientID string
	mode     entities.Mode

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	logger *zap.Logger

	session      session
	conversation *usecase.ConversationService
	practice     *usecase.PracticeService
}

var _ usecase.Sink = (*Client)(nil)

// HandleWebSocket opens a session for an authenticated client and upgrades
// the connection. Errors from opening the session are returned before the
// upgrade so the caller can answer with a plain HTTP error.
func (h *Hub) HandleWebSocket(c echo.Context, clientID string, mode entities.Mode) error {
	client := &Client{
		id:       uuid.NewString(),
		hub:      h,
		clientID: clientID,
		mode:     mode,
		send:     make(chan WriteData, sendBuffer),
		logger:   h.logger.With(zap.String("clientID", clientID), zap.String("mode", string(mode))),
	}

	ctx := c.Request().Context()
	switch mode {
	case entities.ModeConversation:
		svc, err := h.sessions.NewConversation(ctx, clientID, client)
		if err != nil {
			return err
		}
		client.conversation, client.session = svc, svc
	case entities.ModePractice:
		svc, err := h.sessions.NewPractice(ctx, clientID, client)
		if err != nil {
			return err
		}
		client.practice, client.session = svc, svc
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already answered the request.
		client.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return nil
	}
	client.conn = conn

	h.active.Add(1)
	h.register <- client

	sessionCtx, cancel := context.WithCancel(context.Background())
	go client.session.Run(sessionCtx)
	if client.conversation != nil {
		client.conversation.Open()
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump(cancel)

	return nil
}

// Render implements usecase.Sink
func (c *Client) Render(screen usecase.Screen) {
	c.sendJSON(CreateScreenMessage(screen))
}

// Notify implements usecase.Sink
func (c *Client) Notify(message string) {
	c.sendJSON(CreateNotificationMessage(message))
}

// Audio implements usecase.Sink
func (c *Client) Audio(chunk []byte) {
	c.enqueue(WriteData{Type: websocket.BinaryMessage, Payload: chunk})
}

func (c *Client) sendJSON(message any) {
	payload, err := json.Marshal(message)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}

// enqueue never blocks the session loop; a client that cannot keep up
// loses messages instead.
func (c *Client) enqueue(data WriteData) {
	select {
	case c.send <- data:
	default:
		c.logger.Warn("Dropping outbound message, send buffer full", zap.Int("type", data.Type))
	}
}

// readPump pumps messages from the websocket connection to the session.
// The session is torn down before the client is unregistered so nothing is
// sent on a closed channel.
func (c *Client) readPump(cancel context.CancelFunc) {
	defer func() {
		cancel()
		<-c.session.Done()
		c.hub.unregister <- c
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
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.processAudio(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the session to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
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

// processMessage turns a client command into a session intent
func (c *Client) processMessage(message []byte) {
	cmd, err := ParseCommand(c.mode, message)
	if err != nil {
		c.logger.Warn("Rejected client message", zap.Error(err))
		c.sendJSON(CreateErrorMessage("invalid_message", err.Error()))
		return
	}

	switch cmd.Type {
	case MessageTypePing:
		c.sendJSON(CreatePongMessage(cmd.Data))
	case MessageTypeStartListening:
		c.conversation.StartListening()
	case MessageTypeStopListening:
		c.conversation.StopListening()
	case MessageTypeResend:
		if c.conversation != nil {
			c.conversation.ResendLastMessage()
		} else {
			c.practice.ResendLastRecording()
		}
	case MessageTypeStartRecording:
		c.practice.StartRecording()
	case MessageTypeStopRecording:
		c.practice.StopRecording()
	case MessageTypeCancelRecording:
		c.practice.CancelRecording()
	case MessageTypePlayRecording:
		c.practice.PlayRecording(cmd.MessageID)
	case MessageTypeStopPlayback:
		c.practice.StopPlayback()
	}
}

// processAudio forwards microphone audio to the active capture
func (c *Client) processAudio(data []byte) {
	c.logger.Debug("Received binary audio chunk", zap.Int("size", len(data)))

	if c.conversation != nil {
		c.conversation.WriteAudio(data)
		return
	}
	c.practice.WriteAudio(data)
}
