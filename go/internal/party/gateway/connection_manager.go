package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/partyroom/go/internal/party/events"
)

// MessageHandler consumes inbound client traffic and connection drops.
type MessageHandler interface {
	HandleMessage(conn *Connection, data []byte)
	HandleDisconnect(conn *Connection)
}

// ConnectionManager owns every live WebSocket connection and the
// room-keyed broadcast groups. Connections arrive unbound; they join a
// room group when a create/join/rejoin action binds them to a player.
type ConnectionManager struct {
	mu        sync.RWMutex
	conns     map[*Connection]bool
	roomConns map[string]map[*Connection]bool

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  MessageHandler

	broadcastCh chan BroadcastMessage
}

// Connection is one client WebSocket. PlayerID and RoomCode are set while
// the connection is bound to a room member, guarded by the manager's lock.
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	manager *ConnectionManager

	playerID string
	roomCode string

	ConnectedAt time.Time
}

// ConnectionConfig holds WebSocket tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is one event to fan out. If PlayerID is set, only that
// player's connection receives it.
type BroadcastMessage struct {
	RoomCode string
	PlayerID string
	Event    events.Event
}

// DefaultConnectionConfig returns defaults suitable for browser clients.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a manager; SetHandler must be called before
// the first upgrade.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		conns:     make(map[*Connection]bool),
		roomConns: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// SetHandler wires the inbound message handler.
func (cm *ConnectionManager) SetHandler(h MessageHandler) {
	cm.handler = h
}

// Start processes broadcast messages until the context is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket and starts its
// pumps. The connection stays unbound until a room action claims it.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		manager:     cm,
		ConnectedAt: time.Now(),
	}

	cm.mu.Lock()
	cm.conns[connection] = true
	cm.mu.Unlock()

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("conn_id", connection.ID).
		Str("remote", r.RemoteAddr).
		Msg("WebSocket connection established")

	return nil
}

// Bind attaches the connection to a player in a room's broadcast group,
// replacing any previous binding.
func (cm *ConnectionManager) Bind(conn *Connection, roomCode, playerID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.unbindLocked(conn)

	conn.roomCode = roomCode
	conn.playerID = playerID
	if cm.roomConns[roomCode] == nil {
		cm.roomConns[roomCode] = make(map[*Connection]bool)
	}
	cm.roomConns[roomCode][conn] = true

	log.Debug().
		Str("conn_id", conn.ID).
		Str("room_code", roomCode).
		Str("player_id", playerID).
		Int("room_connections", len(cm.roomConns[roomCode])).
		Msg("connection bound to room")
}

// Unbind detaches the connection from its room group, keeping the socket
// open for a later create or join.
func (cm *ConnectionManager) Unbind(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.unbindLocked(conn)
}

func (cm *ConnectionManager) unbindLocked(conn *Connection) {
	if conn.roomCode == "" {
		return
	}
	if group, ok := cm.roomConns[conn.roomCode]; ok {
		delete(group, conn)
		if len(group) == 0 {
			delete(cm.roomConns, conn.roomCode)
		}
	}
	conn.roomCode = ""
	conn.playerID = ""
}

// Binding returns the room and player the connection is currently bound to.
func (cm *ConnectionManager) Binding(conn *Connection) (roomCode, playerID string, bound bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if conn.roomCode == "" {
		return "", "", false
	}
	return conn.roomCode, conn.playerID, true
}

// BroadcastToRoom queues an event for every connection in the room.
func (cm *ConnectionManager) BroadcastToRoom(roomCode string, event events.Event) {
	select {
	case cm.broadcastCh <- BroadcastMessage{RoomCode: roomCode, Event: event}:
	default:
		log.Warn().Str("room_code", roomCode).Msg("broadcast channel full, dropping message")
	}
}

// SendToPlayer queues an event for one player's connection in the room.
func (cm *ConnectionManager) SendToPlayer(roomCode, playerID string, event events.Event) {
	select {
	case cm.broadcastCh <- BroadcastMessage{RoomCode: roomCode, PlayerID: playerID, Event: event}:
	default:
		log.Warn().
			Str("room_code", roomCode).
			Str("player_id", playerID).
			Msg("broadcast channel full, dropping player message")
	}
}

// SendToConn writes an event directly to one connection, bound or not.
// Used for errors and the room_created reply.
func (cm *ConnectionManager) SendToConn(conn *Connection, event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event")
		return
	}
	select {
	case conn.Send <- data:
	default:
		log.Warn().Str("conn_id", conn.ID).Msg("connection send buffer full, closing connection")
		cm.dropConnection(conn)
	}
}

// handleBroadcast fans one message out to its target connections.
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	group, exists := cm.roomConns[message.RoomCode]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	// Snapshot targets so the lock is not held during sends.
	var targets []*Connection
	for conn := range group {
		if message.PlayerID != "" && conn.playerID != message.PlayerID {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			log.Warn().
				Str("conn_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.dropConnection(conn)
		}
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("room_code", message.RoomCode).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// dropConnection removes a dead connection entirely.
func (cm *ConnectionManager) dropConnection(conn *Connection) {
	cm.mu.Lock()
	if _, ok := cm.conns[conn]; !ok {
		cm.mu.Unlock()
		return
	}
	cm.unbindLocked(conn)
	delete(cm.conns, conn)
	close(conn.Send)
	cm.mu.Unlock()

	conn.Conn.Close()
}

// Stats returns connection counts for the health surface.
func (cm *ConnectionManager) Stats() (totalConns, activeRooms int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.conns), len(cm.roomConns)
}

// writePump sends outbound messages and pings on one connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("conn_id", c.ID).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("conn_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump reads client messages until the socket drops, then reports the
// disconnect so the reconciler can decide the player's fate.
func (c *Connection) readPump() {
	defer func() {
		c.manager.handler.HandleDisconnect(c)
		c.manager.dropConnection(c)
	}()

	c.Conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("conn_id", c.ID).Msg("unexpected WebSocket close error")
			}
			break
		}

		c.manager.handler.HandleMessage(c, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}
