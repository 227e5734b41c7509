// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/netrisk/netrisk-service/internal/lobby"
	"github.com/netrisk/netrisk-service/internal/schema"
)

// inboundMessage is the raw shape of a client frame. Only game:join
// carries a payload today.
type inboundMessage struct {
	Type     string                    `json:"type"`
	GameCode string                    `json:"gameCode"`
	Player   schema.PlayerProfileInput `json:"player"`
}

// LobbyWSHandler upgrades the realtime lobby channel. Every new connection
// receives the current snapshot privately; every successful join is
// broadcast to all observers and then acknowledged to the sender with the
// identical state.
func LobbyWSHandler(logger *logrus.Logger, coord *lobby.Coordinator, registry *lobby.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "lobby" {
			c.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := &lobby.Connection{
			ID:      uuid.New(),
			Cancel:  cancel,
			OutChan: make(chan lobby.Message, 10),
		}
		registry.Register(conn)
		logger.Infof("Observer %v (%s) connected to lobby", conn.ID, remoteAddr)

		// The connection snapshot is private: it goes to the connecting
		// client only, never broadcast.
		conn.Write(lobby.LobbyUpdate(coord.GetSnapshot(ctx)))

		go writePump(ctx, c, conn, logger)
		readPump(ctx, c, conn, coord, registry, logger)

		registry.Unregister(conn.ID)
		logger.Infof("Observer %v disconnected from lobby", conn.ID)
	}
}

// readPump consumes client frames until the connection closes. Frames are
// handled to completion in arrival order, so a join's broadcast and ack
// always precede the handling of the next frame from the same client.
func readPump(ctx context.Context, c *websocket.Conn, conn *lobby.Connection, coord *lobby.Coordinator, registry *lobby.Registry, logger *logrus.Logger) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("Observer %v: websocket closed normally", conn.ID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("Observer %v: read error: %v (CloseStatus: %d)", conn.ID, err, closeStatus)
			}
			return
		}

		if typ != websocket.MessageText {
			logger.Warnf("Observer %v: ignoring non-text message type %d", conn.ID, typ)
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Observer %v: invalid json: %v", conn.ID, err)
			conn.WriteError("Invalid JSON format", nil)
			continue
		}

		switch msg.Type {
		case lobby.EventGameJoin:
			handleJoin(ctx, msg, conn, coord, registry, logger)
		default:
			logger.Warnf("Observer %v: unknown action '%s'", conn.ID, msg.Type)
			conn.WriteError("Unknown action type: "+msg.Type, nil)
		}
	}
}

// handleJoin runs the two-phase join sequence: reconcile to completion
// first, then fan out. A validation failure rejects the request toward the
// sender only and suppresses the broadcast entirely.
func handleJoin(ctx context.Context, msg inboundMessage, conn *lobby.Connection, coord *lobby.Coordinator, registry *lobby.Registry, logger *logrus.Logger) {
	// A join is not cancellable once it begins: a connection drop during
	// processing must still let the reconciliation complete and the
	// broadcast reach everyone still connected.
	state, err := coord.RecordJoin(context.WithoutCancel(ctx), schema.JoinGameRequestInput{
		GameCode: msg.GameCode,
		Player:   msg.Player,
	})
	if err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			logger.Warnf("Observer %v: rejected join for code %q: %v", conn.ID, msg.GameCode, err)
			conn.WriteError("Invalid join request", verr.Issues)
			return
		}
		logger.Warnf("Observer %v: join failed: %v", conn.ID, err)
		conn.WriteError("Join failed", nil)
		return
	}

	summary := state.Summary()
	logger.WithFields(logrus.Fields{
		"code":    summary.Code,
		"players": summary.PlayerCount,
		"player":  msg.Player.ID,
	}).Info("Player joined lobby")

	registry.BroadcastAll(lobby.LobbyUpdate(state))
	conn.Write(lobby.JoinAck(state))
}

// writePump drains the connection's OutChan onto the wire and keeps the
// connection alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *lobby.Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("Observer %v: failed to marshal outgoing msg: %v", conn.ID, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Observer %v: failed to write to websocket: %v", conn.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Observer %v: ping failed: %v. Assuming disconnect.", conn.ID, err)
				return
			}
		}
	}
}
