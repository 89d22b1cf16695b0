package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"syncboard/internal/app/board"
)

const createStroke = `
INSERT INTO strokes (stroke_id, room_id, user_id, color, width, points)
VALUES ($1, $2::uuid, $3::uuid, $4, $5, $6)
ON CONFLICT (room_id, stroke_id) DO UPDATE SET stroke_id = strokes.stroke_id
RETURNING stroke_id, room_id::text, user_id::text, color, width, points, is_deleted, created_at
`

// CreateStroke persists a finished stroke. A repeated insert for the same
// (room, stroke id) pair leaves the stored row untouched and returns it.
func (q *Queries) CreateStroke(ctx context.Context, stroke board.Stroke) (board.Stroke, error) {
	points, err := json.Marshal(stroke.Points)
	if err != nil {
		return board.Stroke{}, fmt.Errorf("failed to encode stroke points: %w", err)
	}

	row := q.pool.QueryRow(ctx, createStroke,
		stroke.StrokeID, stroke.RoomID, stroke.UserID, stroke.Color, stroke.Width, points)
	return scanStroke(row)
}

const listStrokes = `
SELECT stroke_id, room_id::text, user_id::text, color, width, points, is_deleted, created_at
FROM strokes
WHERE room_id = $1::uuid AND NOT is_deleted
ORDER BY created_at, id
`

// ListStrokes returns the room's live strokes in creation order.
func (q *Queries) ListStrokes(ctx context.Context, roomID string) ([]board.Stroke, error) {
	rows, err := q.pool.Query(ctx, listStrokes, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var strokes []board.Stroke
	for rows.Next() {
		s, err := scanStroke(rows)
		if err != nil {
			return nil, err
		}
		strokes = append(strokes, s)
	}
	return strokes, rows.Err()
}

const setStrokeDeleted = `
UPDATE strokes
SET is_deleted = $4, updated_at = now()
WHERE room_id = $1::uuid AND stroke_id = $2 AND user_id = $3::uuid
RETURNING stroke_id, room_id::text, user_id::text, color, width, points, is_deleted, created_at
`

// SetStrokeDeleted flips the soft-delete flag on a stroke owned by authorID.
// Strokes belonging to other authors are invisible to the caller.
func (q *Queries) SetStrokeDeleted(ctx context.Context, roomID, strokeID, authorID string, deleted bool) (board.Stroke, error) {
	row := q.pool.QueryRow(ctx, setStrokeDeleted, roomID, strokeID, authorID, deleted)
	s, err := scanStroke(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return board.Stroke{}, board.ErrStrokeNotFound
	}
	return s, err
}

const clearStrokes = `
UPDATE strokes
SET is_deleted = TRUE, updated_at = now()
WHERE room_id = $1::uuid AND NOT is_deleted
`

func (q *Queries) ClearStrokes(ctx context.Context, roomID string) error {
	_, err := q.pool.Exec(ctx, clearStrokes, roomID)
	return err
}

func scanStroke(row pgx.Row) (board.Stroke, error) {
	var s board.Stroke
	var points []byte
	err := row.Scan(&s.StrokeID, &s.RoomID, &s.UserID, &s.Color, &s.Width, &points, &s.IsDeleted, &s.CreatedAt)
	if err != nil {
		return board.Stroke{}, err
	}
	if err := json.Unmarshal(points, &s.Points); err != nil {
		return board.Stroke{}, fmt.Errorf("failed to decode stroke points: %w", err)
	}
	return s, nil
}
