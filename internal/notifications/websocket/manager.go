package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/notifications"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// ClientMessage is what an observer may send: a filter on event types.
// An empty filter receives every event.
type ClientMessage struct {
	Type       string   `json:"type"`
	EventTypes []string `json:"event_types"`
}

// Manager streams domain events to connected oversight dashboards.
type Manager struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu          sync.RWMutex
	connections map[string]*Connection
}

// Connection represents a WebSocket client connection
type Connection struct {
	ID          string
	UserID      string
	Conn        *websocket.Conn
	Send        chan notifications.Event
	ConnectedAt time.Time

	mu     sync.Mutex
	filter map[notifications.EventType]bool
}

func (c *Connection) wants(t notifications.EventType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.filter) == 0 || c.filter[t]
}

func (c *Connection) setFilter(types []string) {
	filter := make(map[notifications.EventType]bool, len(types))
	for _, t := range types {
		filter[notifications.EventType(t)] = true
	}
	c.mu.Lock()
	c.filter = filter
	c.mu.Unlock()
}

// Hub owns the connection set; only the hub goroutine closes a Send channel.
type Hub struct {
	connections map[*Connection]bool
	broadcast   chan notifications.Event
	register    chan *Connection
	unregister  chan *Connection
	stop        chan struct{}
	done        chan struct{}
}

// NewManager creates a new WebSocket manager and starts its hub.
func NewManager(logger *zap.Logger, checkOrigin func(r *http.Request) bool) *Manager {
	hub := &Hub{
		connections: make(map[*Connection]bool),
		broadcast:   make(chan notifications.Event, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}

	m := &Manager{
		hub:         hub,
		logger:      logger,
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
	go m.run()
	return m
}

// HandleConnection upgrades an already-authorized request and starts its pumps.
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request, userID string) (*Connection, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		Conn:        conn,
		Send:        make(chan notifications.Event, sendBuffer),
		ConnectedAt: time.Now(),
	}

	select {
	case m.hub.register <- connection:
	case <-m.hub.done:
		conn.Close()
		return nil, fmt.Errorf("websocket manager closed")
	}

	go m.readPump(connection)
	go m.writePump(connection)

	return connection, nil
}

// Publish queues an event for every interested connection. A full queue drops
// the event for the stream; the feed endpoint still has it.
func (m *Manager) Publish(_ context.Context, event notifications.Event) error {
	select {
	case m.hub.broadcast <- event:
		return nil
	default:
		return fmt.Errorf("broadcast channel full")
	}
}

func (m *Manager) readPump(conn *Connection) {
	defer func() {
		select {
		case m.hub.unregister <- conn:
		case <-m.hub.done:
		}
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(512)
	conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := conn.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Debug("WebSocket read failed", zap.String("connection_id", conn.ID), zap.Error(err))
			}
			return
		}
		if msg.Type == "subscribe" {
			conn.setFilter(msg.EventTypes)
		}
	}
}

func (m *Manager) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m *Manager) run() {
	h := m.hub
	defer close(h.done)

	for {
		select {
		case conn := <-h.register:
			h.connections[conn] = true
			m.track(conn, true)
			m.logger.Info("Oversight stream connected", zap.String("connection_id", conn.ID), zap.String("user_id", conn.UserID))

		case conn := <-h.unregister:
			m.drop(conn)

		case event := <-h.broadcast:
			for conn := range h.connections {
				if !conn.wants(event.Type) {
					continue
				}
				select {
				case conn.Send <- event:
				default:
					m.logger.Warn("Dropping slow oversight stream", zap.String("connection_id", conn.ID))
					m.drop(conn)
				}
			}

		case <-h.stop:
			for conn := range h.connections {
				m.drop(conn)
			}
			return
		}
	}
}

// drop must only be called from the hub goroutine.
func (m *Manager) drop(conn *Connection) {
	if _, ok := m.hub.connections[conn]; !ok {
		return
	}
	delete(m.hub.connections, conn)
	close(conn.Send)
	m.track(conn, false)
}

func (m *Manager) track(conn *Connection, add bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if add {
		m.connections[conn.ID] = conn
	} else {
		delete(m.connections, conn.ID)
	}
}

// GetConnectionCount returns the number of active connections
func (m *Manager) GetConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Close stops the hub and closes every connection.
func (m *Manager) Close() {
	select {
	case <-m.hub.stop:
		return
	default:
		close(m.hub.stop)
	}
	<-m.hub.done
}
