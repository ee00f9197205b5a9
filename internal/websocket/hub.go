package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"plotpilot/internal/config"
	"plotpilot/internal/infrastructure"
)

// broadcastQueueSize bounds events waiting for the hub loop; Publish drops beyond it
const broadcastQueueSize = 256

type envelope struct {
	sessionID string
	msgType   string
	payload   []byte
}

// Hub tracks connected clients by dataset session and fans events out to them.
// Events for a session reach only that session's clients; events without a
// session reach everyone.
type Hub struct {
	clients  map[*Client]bool
	sessions map[string]map[*Client]bool

	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *HubMetrics
	cfg     config.WebSocketConfig

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64

	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(logger *slog.Logger, cfg config.WebSocketConfig, metrics *HubMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan envelope, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		cfg:        cfg,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run is the hub's main loop. All client channels are closed from here.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				h.removeLocked(client)
			}
			h.mu.Unlock()
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				h.removeLocked(client)
			}
			count := len(h.clients)
			h.mu.Unlock()
			if !ok {
				continue
			}

			ctx := client.context()
			h.logger.InfoContext(ctx, "client unregistered",
				slog.String("client_id", client.id),
				slog.String("session_id", client.sessionID),
				slog.Int("total_clients", count),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))
			h.metrics.recordDisconnection(ctx, time.Since(client.connectedAt))

		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true
	h.totalConnections++
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.logger.InfoContext(ctx, "client registered",
		slog.String("client_id", client.id),
		slog.String("session_id", client.sessionID),
		slog.String("remote_addr", client.remoteAddr),
		slog.Int("total_clients", count))
	h.metrics.recordConnection(ctx)

	hello, err := json.Marshal(Message{
		Type:      TypeConnection,
		SessionID: client.sessionID,
		Data: map[string]interface{}{
			"status":    "connected",
			"client_id": client.id,
		},
		Timestamp: time.Now().UTC(),
		TraceID:   client.traceID,
	})
	if err != nil {
		return
	}
	select {
	case client.send <- hello:
	default:
		h.logger.WarnContext(ctx, "client buffer full, connection message dropped",
			slog.String("client_id", client.id))
	}
}

// removeLocked drops client from every index and closes its send channel.
// h.mu must be held.
func (h *Hub) removeLocked(client *Client) {
	delete(h.clients, client)
	if subs := h.sessions[client.sessionID]; subs != nil {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.sessions, client.sessionID)
		}
	}
	close(client.send)
}

func (h *Hub) deliver(env envelope) {
	h.mu.RLock()
	var targets []*Client
	if env.sessionID == "" {
		targets = make([]*Client, 0, len(h.clients))
		for client := range h.clients {
			targets = append(targets, client)
		}
	} else {
		for client := range h.sessions[env.sessionID] {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	sent, dropped := 0, 0
	for _, client := range targets {
		select {
		case client.send <- env.payload:
			sent++
		default:
			dropped++
			h.mu.Lock()
			if h.clients[client] {
				h.removeLocked(client)
			}
			h.mu.Unlock()
			h.logger.WarnContext(client.context(), "client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}

	h.mu.Lock()
	h.messagesSent += int64(sent)
	h.mu.Unlock()

	h.logger.Debug("event delivered",
		slog.String("type", env.msgType),
		slog.String("session_id", env.sessionID),
		slog.Int("recipients", sent),
		slog.Int("dropped", dropped),
		slog.Int("payload_size", len(env.payload)))
	h.metrics.recordBroadcast(context.Background(), env.msgType, dropped)
}

// Publish queues an event for the clients of sessionID, or for every client
// when sessionID is empty. It never blocks: when the queue is full or the hub
// is stopped the event is dropped.
func (h *Hub) Publish(ctx context.Context, sessionID, eventType string, data interface{}) {
	payload, err := json.Marshal(Message{
		Type:      eventType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UTC(),
		TraceID:   infrastructure.GetTraceID(ctx),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal event",
			slog.String("type", eventType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case <-h.quit:
		return
	default:
	}

	select {
	case h.broadcast <- envelope{sessionID: sessionID, msgType: eventType, payload: payload}:
	default:
		h.mu.Lock()
		h.messagesDropped++
		h.mu.Unlock()
		h.logger.WarnContext(ctx, "broadcast queue full, event dropped",
			slog.String("type", eventType),
			slog.String("session_id", sessionID))
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionClientCount returns the number of clients subscribed to sessionID
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Stop ends the hub loop and disconnects every client
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

// HubStats is a snapshot of the hub counters
type HubStats struct {
	ActiveClients    int   `json:"active_clients"`
	ActiveSessions   int   `json:"active_sessions"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesDropped  int64 `json:"messages_dropped"`
}

// Stats returns current hub counters
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HubStats{
		ActiveClients:    len(h.clients),
		ActiveSessions:   len(h.sessions),
		TotalConnections: h.totalConnections,
		MessagesSent:     h.messagesSent,
		MessagesDropped:  h.messagesDropped,
	}
}
