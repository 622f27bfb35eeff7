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
)

// ConnectionManager holds the live WebSocket connections, one room per
// season. Broadcasts fan out to every connection watching that season's
// draft board.
type ConnectionManager struct {
	rooms map[uuid.UUID]map[*Connection]bool
	mu    sync.RWMutex

	upgrader    websocket.Upgrader
	config      ConnectionConfig
	broadcastCh chan broadcast
}

// Connection is one client watching a season's draft.
type Connection struct {
	ID       string
	SeasonID uuid.UUID
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

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

type broadcast struct {
	SeasonID uuid.UUID
	Event    *DraftEvent
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Draft boards are league-public; tighten per deployment.
			return true
		},
	}
}

func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		rooms: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcast, 1000),
	}
}

// Start processes broadcasts until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case b := <-cm.broadcastCh:
			cm.fanOut(b)
		}
	}
}

// Upgrade turns an HTTP request into a registered season connection.
// snapshot, when non-nil, is queued before any broadcast can reach the
// client.
func (cm *ConnectionManager) Upgrade(w http.ResponseWriter, r *http.Request, seasonID uuid.UUID, snapshot *DraftEvent) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &Connection{
		ID:          uuid.New().String(),
		SeasonID:    seasonID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	if snapshot != nil {
		data, err := json.Marshal(snapshot)
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		c.Send <- data
	}

	cm.register(c)
	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("season_id", seasonID.String()).
		Msg("websocket connection established")
	return nil
}

func (cm *ConnectionManager) register(c *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.rooms[c.SeasonID] == nil {
		cm.rooms[c.SeasonID] = make(map[*Connection]bool)
	}
	cm.rooms[c.SeasonID][c] = true
}

func (cm *ConnectionManager) unregister(c *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	room, ok := cm.rooms[c.SeasonID]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.Send)
	if len(room) == 0 {
		delete(cm.rooms, c.SeasonID)
	}
	log.Debug().
		Str("connection_id", c.ID).
		Str("season_id", c.SeasonID.String()).
		Msg("connection unregistered")
}

// BroadcastToSeason queues an event for every connection in the season's
// room. Dropping under backpressure is fine: clients re-fetch state on
// any event, they never replay them.
func (cm *ConnectionManager) BroadcastToSeason(seasonID uuid.UUID, event *DraftEvent) {
	select {
	case cm.broadcastCh <- broadcast{SeasonID: seasonID, Event: event}:
	default:
		log.Warn().Str("season_id", seasonID.String()).Msg("broadcast channel full, dropping event")
	}
}

func (cm *ConnectionManager) fanOut(b broadcast) {
	cm.mu.RLock()
	room, ok := cm.rooms[b.SeasonID]
	if !ok {
		cm.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(room))
	for c := range room {
		targets = append(targets, c)
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(b.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal broadcast event")
		return
	}

	for _, c := range targets {
		select {
		case c.Send <- data:
		default:
			// Slow consumer; cut it loose and let it reconnect fresh.
			log.Warn().Str("connection_id", c.ID).Msg("send buffer full, closing connection")
			cm.unregister(c)
			c.Conn.Close()
		}
	}
}

// Stats reports active rooms and connection counts.
func (cm *ConnectionManager) Stats() map[string]any {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	total := 0
	perSeason := make(map[string]int, len(cm.rooms))
	for seasonID, room := range cm.rooms {
		total += len(room)
		perSeason[seasonID.String()] = len(room)
	}
	return map[string]any{
		"total_connections":  total,
		"active_seasons":     len(cm.rooms),
		"season_connections": perSeason,
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close")
			}
			return
		}
		// The board is read-only over WebSocket; picks go through the
		// HTTP API. Inbound frames just refresh the read deadline.
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
