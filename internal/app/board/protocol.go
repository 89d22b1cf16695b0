/*
Package board contains the core logic for live drawing rooms.

This file implements the server side of the stroke synchronization protocol:
join/leave with history replay and member broadcasts, live relay of in-flight
stroke events, exactly-once persistence at stroke end with canonical
re-broadcast, and per-author undo/redo plus room-wide clear as idempotent
soft-delete transitions.

Handlers run on the connection's read goroutine. Each inbound message is
handled to completion, suspending only on storage calls; the room hubs never
touch storage, so one connection's I/O cannot stall another room's fan-out.
*/
package board

import (
	"encoding/json"
	"errors"

	"syncboard/internal/pkg/errs"
	"syncboard/internal/app/user"
)

// mapStoreErr converts a Store failure into its caller-facing error.
func mapStoreErr(err error) *errs.CustomError {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return errs.NewError(errs.ErrRoomNotFound)
	case errors.Is(err, ErrStrokeNotFound):
		return errs.NewError(errs.ErrStrokeNotFound)
	default:
		return errs.NewError(errs.ErrStorageFailure)
	}
}

// bindPayload unmarshals an event payload, reporting a validation error to
// the caller on failure.
func (c *Client) bindPayload(raw json.RawMessage, dst any) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid payload")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return false
	}
	return true
}

// handleJoinRoom validates the room, adds the caller to its member set,
// subscribes the connection, replies with the canonical room info and the
// non-deleted stroke history, and broadcasts the updated member list to every
// subscriber including the joiner.
func (c *Client) handleJoinRoom(raw json.RawMessage) {
	var p JoinRoomPayload
	if !c.bindPayload(raw, &p) {
		return
	}

	store := c.manager.Store()

	info, err := store.GetRoomInfo(c.ctx, p.RoomID)
	if err != nil {
		c.SendError(mapStoreErr(err))
		return
	}

	// Set-add: joining twice is a no-op.
	if err := store.AddMember(c.ctx, p.RoomID, c.usr.ID); err != nil {
		c.SendError(mapStoreErr(err))
		return
	}

	members, err := store.ListMembers(c.ctx, p.RoomID)
	if err != nil {
		c.SendError(mapStoreErr(err))
		return
	}

	room := c.manager.GetOrCreateRoom(p.RoomID)
	room.Subscribe(c)
	c.trackRoom(room)

	// The history snapshot is taken after subscribing, so a stroke committed
	// concurrently is either in the snapshot or relayed to the subscription.
	// Clients dedupe the overlap by strokeId.
	strokes, err := store.ListStrokes(c.ctx, p.RoomID)
	if err != nil {
		if r := c.untrackRoom(p.RoomID); r != nil {
			r.Unsubscribe(c)
		}
		c.SendError(mapStoreErr(err))
		return
	}
	if strokes == nil {
		strokes = []Stroke{}
	}

	info.Members = members

	if err := c.SendEvent(TypeRoomInfo, RoomInfoEvent{Room: info}); err != nil {
		return
	}
	if err := c.SendEvent(TypeRoomHistory, strokes); err != nil {
		return
	}

	if data, err := MarshalEvent(TypeRoomMembers, members); err == nil {
		room.Broadcast(data, "")
	}

	c.logger.Info().Str("room_id", p.RoomID).Int("history_len", len(strokes)).Msg("Client joined room.")
}

// handleLeaveRoom removes the caller from the room's member set,
// unsubscribes the connection, and broadcasts the updated member list to the
// remaining subscribers.
func (c *Client) handleLeaveRoom(raw json.RawMessage) {
	var p LeaveRoomPayload
	if !c.bindPayload(raw, &p) {
		return
	}

	store := c.manager.Store()

	if _, err := store.GetRoomInfo(c.ctx, p.RoomID); err != nil {
		c.SendError(mapStoreErr(err))
		return
	}

	if room := c.untrackRoom(p.RoomID); room != nil {
		room.Unsubscribe(c)
	}

	if err := store.RemoveMember(c.ctx, p.RoomID, c.usr.ID); err != nil {
		c.SendError(mapStoreErr(err))
		return
	}

	members, err := store.ListMembers(c.ctx, p.RoomID)
	if err != nil {
		c.SendError(mapStoreErr(err))
		return
	}
	if members == nil {
		members = []user.User{}
	}

	if room := c.manager.GetRoom(p.RoomID); room != nil {
		if data, err := MarshalEvent(TypeRoomMembers, members); err == nil {
			room.Broadcast(data, "")
		}
	}

	c.logger.Info().Str("room_id", p.RoomID).Msg("Client left room.")
}

// handleStrokeStart relays the opening of an in-flight stroke to the other
// room subscribers. Nothing is persisted; the author id on the relay is the
// verified connection identity.
func (c *Client) handleStrokeStart(raw json.RawMessage) {
	var p StrokeStartPayload
	if !c.bindPayload(raw, &p) {
		return
	}

	room, ok := c.joinedRoom(p.RoomID)
	if !ok {
		c.SendError(errs.NewError(errs.ErrNotInRoom))
		return
	}

	event := StrokeStartEvent{
		UserID:   c.usr.ID,
		StrokeID: p.StrokeID,
		Point:    p.Point,
	}

	if data, err := MarshalEvent(TypeStrokeStart, event); err == nil {
		room.Broadcast(data, c.usr.ID)
	}
}

// handleStrokePoint relays one in-flight point to the other room
// subscribers. Points are never persisted individually; persistence happens
// once, in bulk, at stroke end.
func (c *Client) handleStrokePoint(raw json.RawMessage) {
	var p StrokePointPayload
	if !c.bindPayload(raw, &p) {
		return
	}

	room, ok := c.joinedRoom(p.RoomID)
	if !ok {
		c.SendError(errs.NewError(errs.ErrNotInRoom))
		return
	}

	event := StrokePointEvent{
		UserID:    c.usr.ID,
		StrokeID:  p.StrokeID,
		Point:     p.Point,
		Color:     p.Color,
		BrushSize: p.BrushSize,
	}

	if data, err := MarshalEvent(TypeStrokePoint, event); err == nil {
		room.Broadcast(data, c.usr.ID)
	}
}

// handleStrokeEnd persists the completed stroke exactly once and broadcasts
// the canonical stored form to every subscriber, the author included, so each
// reducer replaces its in-flight buffer with the authoritative record.
func (c *Client) handleStrokeEnd(raw json.RawMessage) {
	var p StrokeEndPayload
	if !c.bindPayload(raw, &p) {
		return
	}

	room, ok := c.joinedRoom(p.RoomID)
	if !ok {
		c.SendError(errs.NewError(errs.ErrNotInRoom))
		return
	}

	if p.StrokeID == "" || len(p.Points) == 0 {
		c.SendError(errs.NewError(errs.ErrInvalidStroke))
		return
	}

	stroke := Stroke{
		StrokeID: p.StrokeID,
		RoomID:   p.RoomID,
		UserID:   c.usr.ID,
		Color:    p.Color,
		Width:    p.BrushSize,
		Points:   p.Points,
	}

	canonical, err := c.manager.Store().CreateStroke(c.ctx, stroke)
	if err != nil {
		c.SendError(mapStoreErr(err))
		return
	}

	if data, err := MarshalEvent(TypeStrokeComplete, canonical); err == nil {
		room.Broadcast(data, "")
	}

	c.logger.Debug().
		Str("room_id", p.RoomID).
		Str("stroke_id", p.StrokeID).
		Int("points", len(canonical.Points)).
		Msg("Stroke persisted and broadcast.")
}

// handleUndo soft-deletes one of the caller's own strokes and tells the whole
// room to drop it. Strokes authored by other users are indistinguishable from
// absent ones toward the caller.
func (c *Client) handleUndo(raw json.RawMessage) {
	var p UndoPayload
	if !c.bindPayload(raw, &p) {
		return
	}

	room, ok := c.joinedRoom(p.RoomID)
	if !ok {
		c.SendError(errs.NewError(errs.ErrNotInRoom))
		return
	}

	if _, err := c.manager.Store().SetStrokeDeleted(c.ctx, p.RoomID, p.StrokeID, c.usr.ID, true); err != nil {
		c.SendError(mapStoreErr(err))
		return
	}

	if data, err := MarshalEvent(TypeUndo, UndoEvent{StrokeID: p.StrokeID}); err == nil {
		room.Broadcast(data, "")
	}
}

// handleRedo restores a previously undone stroke of the caller and
// broadcasts the full canonical stroke to the whole room. The target is an
// explicit stroke id resolved from the caller's own undo history; the server
// never guesses "last deleted" across users.
func (c *Client) handleRedo(raw json.RawMessage) {
	var p RedoPayload
	if !c.bindPayload(raw, &p) {
		return
	}

	room, ok := c.joinedRoom(p.RoomID)
	if !ok {
		c.SendError(errs.NewError(errs.ErrNotInRoom))
		return
	}

	canonical, err := c.manager.Store().SetStrokeDeleted(c.ctx, p.RoomID, p.StrokeID, c.usr.ID, false)
	if err != nil {
		c.SendError(mapStoreErr(err))
		return
	}

	if data, err := MarshalEvent(TypeStrokeComplete, canonical); err == nil {
		room.Broadcast(data, "")
	}
}

// handleClear soft-deletes every stroke in the room and broadcasts a
// room-wide clear. There is no bulk undo of a clear.
func (c *Client) handleClear(raw json.RawMessage) {
	var p ClearPayload
	if !c.bindPayload(raw, &p) {
		return
	}

	room, ok := c.joinedRoom(p.RoomID)
	if !ok {
		c.SendError(errs.NewError(errs.ErrNotInRoom))
		return
	}

	if err := c.manager.Store().ClearStrokes(c.ctx, p.RoomID); err != nil {
		c.SendError(mapStoreErr(err))
		return
	}

	if data, err := MarshalEvent(TypeClear, nil); err == nil {
		room.Broadcast(data, "")
	}

	c.logger.Info().Str("room_id", p.RoomID).Msg("Room strokes cleared.")
}
