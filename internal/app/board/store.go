/*
Package board contains the core logic for live drawing rooms.

This file defines the Store interface through which the protocol reaches
persistent state, keeping the hub free of storage concerns and the protocol
testable against an in-memory fake.
*/
package board

import (
	"context"
	"errors"

	"syncboard/internal/app/user"
)

// Sentinel errors returned by Store implementations. The protocol maps them
// to caller-scoped error events; any other error is treated as a transient
// storage failure.
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrStrokeNotFound = errors.New("stroke not found")
)

// Store is the persistence surface the synchronization protocol depends on.
// Implementations must guarantee per-row atomicity for the flag flips and the
// membership set operations; the protocol layers no locking on top.
type Store interface {
	// GetRoomInfo returns the room's id, name and creator, without members.
	// Returns ErrRoomNotFound if the room does not exist.
	GetRoomInfo(ctx context.Context, roomID string) (RoomInfo, error)

	// AddMember adds userID to the room's member set. Adding an existing
	// member is a no-op.
	AddMember(ctx context.Context, roomID, userID string) error

	// RemoveMember removes userID from the room's member set.
	RemoveMember(ctx context.Context, roomID, userID string) error

	// ListMembers returns the resolved member list of the room.
	ListMembers(ctx context.Context, roomID string) ([]user.User, error)

	// CreateStroke persists a completed stroke and returns the canonical
	// stored form. Re-creating an existing (room, strokeId) pair returns the
	// stored stroke unchanged instead of inserting a duplicate.
	CreateStroke(ctx context.Context, stroke Stroke) (Stroke, error)

	// ListStrokes returns the room's non-deleted strokes in creation order.
	ListStrokes(ctx context.Context, roomID string) ([]Stroke, error)

	// SetStrokeDeleted flips the soft-delete flag of the stroke identified by
	// (roomID, strokeID) if and only if it is authored by authorID, and
	// returns the updated stroke. Returns ErrStrokeNotFound when no such
	// stroke exists or the author does not match.
	SetStrokeDeleted(ctx context.Context, roomID, strokeID, authorID string, deleted bool) (Stroke, error)

	// ClearStrokes soft-deletes every stroke in the room.
	ClearStrokes(ctx context.Context, roomID string) error
}
