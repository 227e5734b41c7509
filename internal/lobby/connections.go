// internal/lobby/connections.go
package lobby

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/netrisk/netrisk-service/internal/models"
	"github.com/netrisk/netrisk-service/internal/schema"
)

// Protocol event names on the realtime channel.
const (
	EventLobbyUpdate = "lobby:update"
	EventGameJoin    = "game:join"
	EventGameJoined  = "game:joined"
	EventError       = "error"
)

// Message is one outbound protocol frame.
type Message struct {
	Type   string            `json:"type"`
	Game   *models.GameState `json:"game,omitempty"`
	Error  string            `json:"error,omitempty"`
	Issues []schema.Issue    `json:"issues,omitempty"`
}

// LobbyUpdate frames a snapshot as a lobby:update event.
func LobbyUpdate(state models.GameState) Message {
	return Message{Type: EventLobbyUpdate, Game: &state}
}

// JoinAck frames the acknowledgement carrying the same snapshot the
// broadcast delivered.
func JoinAck(state models.GameState) Message {
	return Message{Type: EventGameJoined, Game: &state}
}

// Connection is a single observer's presence on the realtime channel.
type Connection struct {
	ID      uuid.UUID
	Cancel  func()
	OutChan chan Message
}

// Write pushes a message onto the connection's OutChan non-blockingly.
// Logs if the channel is closed or full and the message is dropped.
func (conn *Connection) Write(msg Message) {
	select {
	case conn.OutChan <- msg:
	default:
		log.Warnf("Connection %s: OutChan closed or full, dropped message type '%s'", conn.ID, msg.Type)
	}
}

// WriteError is a convenience to send a structured error frame.
func (conn *Connection) WriteError(message string, issues []schema.Issue) {
	conn.Write(Message{
		Type:   EventError,
		Error:  message,
		Issues: issues,
	})
}

// Registry tracks every live connection so reconciled snapshots can fan
// out to all observers.
type Registry struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*Connection
}

// NewRegistry returns an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[uuid.UUID]*Connection),
	}
}

// Register adds a connection to the fan-out set.
func (r *Registry) Register(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID] = conn
}

// Unregister removes a connection and cancels its context so the pump
// goroutines stop. Disconnects mutate no session state; the seat stays in
// the snapshot.
func (r *Registry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	conn, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()

	if ok && conn.Cancel != nil {
		conn.Cancel()
	}
}

// BroadcastAll sends msg to every connected observer. Writes are
// non-blocking so a slow consumer never stalls the fan-out.
func (r *Registry) BroadcastAll(msg Message) {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Write(msg)
	}
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
