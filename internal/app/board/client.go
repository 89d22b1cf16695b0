/*
Package board contains the core logic for live drawing rooms.

This file defines the Client struct, representing one authenticated WebSocket
connection. It manages the read/write pumps, the dispatch of inbound protocol
events, and the disconnect cleanup that prunes the user from every room this
connection had joined.
*/
package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"syncboard/internal/app/user"
	"syncboard/internal/pkg/errs"
	"syncboard/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	// Sized for a strokeEnd carrying a long point sequence.
	maxMessageSize = 256 * 1024

	// disconnectCleanupTimeout bounds the storage work done while pruning a
	// dropped connection from its rooms.
	disconnectCleanupTimeout = 10 * time.Second
)

// Client represents an active WebSocket connection bound to a verified user.
// The identity is set once at upgrade time and never re-derived from
// client-supplied fields.
type Client struct {
	// manager grants access to live rooms and the Store.
	manager *Manager

	// conn is the underlying WebSocket connection.
	conn *websocket.Conn

	// usr is the verified account identity bound to this connection.
	usr user.User

	// send queues frames waiting to be written to the connection.
	send chan []byte

	// rooms tracks the live rooms this connection has joined.
	rooms   map[string]*Room
	roomsMu sync.Mutex

	// ctx scopes storage calls made by this connection's handlers; it is
	// canceled when the read pump exits.
	ctx    context.Context
	cancel context.CancelFunc

	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded, authenticated connection.
func NewClient(manager *Manager, wsConn *websocket.Conn, usr user.User) *Client {
	clientLogger := logx.Logger().With().
		Str("user_id", usr.ID).
		Str("username", usr.Username).
		Logger()

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		manager: manager,
		conn:    wsConn,
		usr:     usr,
		send:    make(chan []byte, 256),
		rooms:   make(map[string]*Room),
		ctx:     ctx,
		cancel:  cancel,
		logger:  clientLogger,
	}
}

// User returns the identity bound to this connection.
func (c *Client) User() user.User {
	return c.usr
}

// ReadPump reads frames from the WebSocket connection, dispatches them to the
// protocol handlers, and performs cleanup when the connection closes. One
// inbound message is handled to completion before the next read.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			break
		}

		c.dispatch(messageBytes)
	}
}

// dispatch routes one raw inbound frame to its protocol handler.
func (c *Client) dispatch(messageBytes []byte) {
	var env Envelope
	if err := json.Unmarshal(messageBytes, &env); err != nil {
		c.logger.Warn().Err(err).
			Bytes("message_bytes", messageBytes).
			Msg("Client sent invalid JSON")
		return
	}

	switch env.Type {
	case TypeJoinRoom:
		c.handleJoinRoom(env.Payload)
	case TypeLeaveRoom:
		c.handleLeaveRoom(env.Payload)
	case TypeStrokeStart:
		c.handleStrokeStart(env.Payload)
	case TypeStrokePoint:
		c.handleStrokePoint(env.Payload)
	case TypeStrokeEnd:
		c.handleStrokeEnd(env.Payload)
	case TypeUndo:
		c.handleUndo(env.Payload)
	case TypeRedo:
		c.handleRedo(env.Payload)
	case TypeClear:
		c.handleClear(env.Payload)
	default:
		c.logger.Warn().Str("msg_type", string(env.Type)).Msg("Client sent unsupported message type")
	}
}

// cleanupOnDisconnect prunes this connection from every room it joined:
// membership removal, hub unsubscription, and a roomMembers rebroadcast to
// the remaining subscribers of each room.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), disconnectCleanupTimeout)
	defer cancel()

	c.roomsMu.Lock()
	joined := make(map[string]*Room, len(c.rooms))
	for id, room := range c.rooms {
		joined[id] = room
	}
	c.rooms = make(map[string]*Room)
	c.roomsMu.Unlock()

	store := c.manager.Store()

	for roomID, room := range joined {
		replaced := !room.IsCurrentSubscriber(c)
		room.Unsubscribe(c)

		// The user reconnected and the hub swapped the subscription to the new
		// connection. Tearing down this stale one must not touch the
		// membership the live connection still holds.
		if replaced {
			c.logger.Info().Str("room_id", roomID).Msg("User still subscribed from a newer connection, keeping membership.")
			continue
		}

		if err := store.RemoveMember(ctx, roomID, c.usr.ID); err != nil {
			c.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to remove member during disconnect cleanup")
			continue
		}

		members, err := store.ListMembers(ctx, roomID)
		if err != nil {
			c.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to list members during disconnect cleanup")
			continue
		}

		if data, err := MarshalEvent(TypeRoomMembers, members); err == nil {
			room.Broadcast(data, "")
		}
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Client connection close error")
	}
}

// WritePump writes queued frames to the WebSocket connection and keeps the
// heartbeat alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage writes one frame pulled from the send channel.
// Returns false when the write pump should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic Ping frame. Returns false on failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// SendEvent marshals an event and queues it for this connection only.
func (c *Client) SendEvent(msgType MessageType, payload any) error {
	data, err := MarshalEvent(msgType, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("msg_type", string(msgType)).Msg("Error marshaling event for client")
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message")
		return fmt.Errorf("client send queue full")
	}
}

// SendError queues a caller-scoped error event on this connection.
func (c *Client) SendError(err error) {
	var code int
	var message string

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		code = customErr.Code
		message = customErr.Message
	} else {
		code = errs.ErrUnknown
		message = fmt.Sprintf("Internal server error: %v", err)
	}

	if sendErr := c.SendEvent(TypeError, ErrorEvent{Code: code, Message: message}); sendErr != nil {
		c.logger.Error().Err(sendErr).Msg("Failed to queue error event")
	}
}

// trackRoom records a joined live room on this connection.
func (c *Client) trackRoom(room *Room) {
	c.roomsMu.Lock()
	c.rooms[room.ID] = room
	c.roomsMu.Unlock()
}

// untrackRoom forgets a joined live room and returns it, or nil.
func (c *Client) untrackRoom(roomID string) *Room {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()

	room := c.rooms[roomID]
	delete(c.rooms, roomID)
	return room
}

// joinedRoom returns the live room if this connection has joined it.
func (c *Client) joinedRoom(roomID string) (*Room, bool) {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()

	room, ok := c.rooms[roomID]
	return room, ok
}
