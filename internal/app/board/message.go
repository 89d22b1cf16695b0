/*
Package board contains the core logic for live drawing rooms: the message
contract, the per-room broadcast hub, client connections, and the server-side
stroke synchronization protocol.

This file defines the bidirectional event contract. Every frame on the wire is
an Envelope carrying a MessageType and a JSON payload.
*/
package board

import (
	"encoding/json"
	"time"

	"syncboard/internal/app/user"
)

// MessageType identifies a protocol event.
type MessageType string

// Client-to-server events.
const (
	TypeJoinRoom    MessageType = "joinRoom"
	TypeLeaveRoom   MessageType = "leaveRoom"
	TypeStrokeStart MessageType = "strokeStart"
	TypeStrokePoint MessageType = "strokePoint"
	TypeStrokeEnd   MessageType = "strokeEnd"
	TypeUndo        MessageType = "undo"
	TypeRedo        MessageType = "redo"
	TypeClear       MessageType = "clear"
)

// Server-to-client events. strokeStart, strokePoint, undo and clear are
// reused in both directions; the payload shape differs because relays carry
// the server-resolved author id.
const (
	TypeRoomInfo       MessageType = "roomInfo"
	TypeRoomHistory    MessageType = "roomHistory"
	TypeRoomMembers    MessageType = "roomMembers"
	TypeStrokeComplete MessageType = "strokeComplete"
	TypeError          MessageType = "error"
)

// Envelope is the frame exchanged over the WebSocket in both directions.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Point is a single 2D canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is the canonical persisted form of one completed drawing action:
// an ordered point sequence plus style, keyed by the client-generated
// StrokeID which is unique within its room.
type Stroke struct {
	StrokeID  string    `json:"strokeId"`
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	Color     string    `json:"color"`
	Width     float64   `json:"width"`
	Points    []Point   `json:"points"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoomInfo is the canonical room description delivered to a joiner.
type RoomInfo struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	CreatedBy string      `json:"createdBy"`
	Members   []user.User `json:"members"`
}

// --- Client-to-server payloads ---

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

type StrokeStartPayload struct {
	RoomID   string `json:"roomId"`
	StrokeID string `json:"strokeId"`
	Point    Point  `json:"point"`
}

type StrokePointPayload struct {
	RoomID    string  `json:"roomId"`
	StrokeID  string  `json:"strokeId"`
	Point     Point   `json:"point"`
	Color     string  `json:"color"`
	BrushSize float64 `json:"brushSize"`
}

type StrokeEndPayload struct {
	RoomID    string  `json:"roomId"`
	StrokeID  string  `json:"strokeId"`
	Points    []Point `json:"points"`
	Color     string  `json:"color"`
	BrushSize float64 `json:"brushSize"`
}

type UndoPayload struct {
	RoomID   string `json:"roomId"`
	StrokeID string `json:"strokeId"`
}

type RedoPayload struct {
	RoomID   string `json:"roomId"`
	StrokeID string `json:"strokeId"`
}

type ClearPayload struct {
	RoomID string `json:"roomId"`
}

// --- Server-to-client payloads ---

// StrokeStartEvent relays a stroke opening to the other room members.
// UserID is the server-verified author, never a client-supplied field.
type StrokeStartEvent struct {
	UserID   string `json:"userId"`
	StrokeID string `json:"strokeId"`
	Point    Point  `json:"point"`
}

// StrokePointEvent relays one in-flight point to the other room members.
type StrokePointEvent struct {
	UserID    string  `json:"userId"`
	StrokeID  string  `json:"strokeId"`
	Point     Point   `json:"point"`
	Color     string  `json:"color"`
	BrushSize float64 `json:"brushSize"`
}

// UndoEvent tells every member to remove the stroke from its rendered list.
type UndoEvent struct {
	StrokeID string `json:"strokeId"`
}

// RoomInfoEvent wraps the canonical room description for the joiner.
type RoomInfoEvent struct {
	Room RoomInfo `json:"room"`
}

// ErrorEvent is a recoverable, caller-scoped failure notice.
type ErrorEvent struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewEnvelope marshals payload and wraps it with the given type.
func NewEnvelope(msgType MessageType, payload any) (Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, err
		}
		raw = data
	}

	return Envelope{Type: msgType, Payload: raw}, nil
}

// MarshalEvent builds an Envelope and returns its wire bytes.
func MarshalEvent(msgType MessageType, payload any) ([]byte, error) {
	env, err := NewEnvelope(msgType, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}
