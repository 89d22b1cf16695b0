package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"syncboard/internal/app/board"
	"syncboard/internal/app/user"
	"syncboard/internal/pkg/randx"
)

type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateRoomParams struct {
	Name      string
	CreatedBy string
}

const createRoom = `
INSERT INTO rooms (name, created_by)
VALUES ($1, $2::uuid)
RETURNING id::text, name, created_by::text, created_at
`

func (q *Queries) CreateRoom(ctx context.Context, arg CreateRoomParams) (Room, error) {
	row := q.pool.QueryRow(ctx, createRoom, arg.Name, arg.CreatedBy)
	var r Room
	err := row.Scan(&r.ID, &r.Name, &r.CreatedBy, &r.CreatedAt)
	return r, err
}

type RoomListRow struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	CreatedBy       string    `json:"createdBy"`
	CreatorUsername string    `json:"creatorUsername"`
	MemberCount     int64     `json:"memberCount"`
	CreatedAt       time.Time `json:"createdAt"`
}

const listRooms = `
SELECT r.id::text, r.name, r.created_by::text, u.username,
       (SELECT count(*) FROM room_members m WHERE m.room_id = r.id),
       r.created_at
FROM rooms r
JOIN users u ON u.id = r.created_by
ORDER BY r.created_at DESC
`

func (q *Queries) ListRooms(ctx context.Context) ([]RoomListRow, error) {
	rows, err := q.pool.Query(ctx, listRooms)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RoomListRow
	for rows.Next() {
		var r RoomListRow
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedBy, &r.CreatorUsername, &r.MemberCount, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getRoomInfo = `
SELECT id::text, name, created_by::text
FROM rooms
WHERE id = $1::uuid
`

func (q *Queries) GetRoomInfo(ctx context.Context, roomID string) (board.RoomInfo, error) {
	// A malformed id cannot name a room; reject it before the uuid cast
	// turns it into a query error.
	if !randx.IsValidID(roomID) {
		return board.RoomInfo{}, board.ErrRoomNotFound
	}
	row := q.pool.QueryRow(ctx, getRoomInfo, roomID)
	var info board.RoomInfo
	err := row.Scan(&info.ID, &info.Name, &info.CreatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return board.RoomInfo{}, board.ErrRoomNotFound
	}
	return info, err
}

const addMember = `
INSERT INTO room_members (room_id, user_id)
VALUES ($1::uuid, $2::uuid)
ON CONFLICT (room_id, user_id) DO NOTHING
`

func (q *Queries) AddMember(ctx context.Context, roomID, userID string) error {
	_, err := q.pool.Exec(ctx, addMember, roomID, userID)
	return err
}

const removeMember = `
DELETE FROM room_members
WHERE room_id = $1::uuid AND user_id = $2::uuid
`

func (q *Queries) RemoveMember(ctx context.Context, roomID, userID string) error {
	_, err := q.pool.Exec(ctx, removeMember, roomID, userID)
	return err
}

const listMembers = `
SELECT u.id::text, u.username
FROM room_members m
JOIN users u ON u.id = m.user_id
WHERE m.room_id = $1::uuid
ORDER BY m.joined_at, u.id
`

func (q *Queries) ListMembers(ctx context.Context, roomID string) ([]user.User, error) {
	rows, err := q.pool.Query(ctx, listMembers, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, err
		}
		members = append(members, u)
	}
	return members, rows.Err()
}
