package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"syncboard/internal/app/board"
	"syncboard/internal/pkg/logx"
	"syncboard/internal/pkg/randx"
)

// defaultFrameInterval caps point emission at roughly one frame of a 60 Hz
// display. Points produced faster than this are coalesced: the latest point
// is held back and flushed when the interval elapses.
const defaultFrameInterval = 16 * time.Millisecond

// Client is a headless participant in a drawing room. It maintains a State
// that converges with every other member's picture, and offers the drawing
// operations a UI would bind to its input events.
type Client struct {
	conn   *websocket.Conn
	state  *State
	userID string

	frameInterval time.Duration
	onError       func(board.ErrorEvent)

	writeMu sync.Mutex

	mu         sync.Mutex
	cur        *openStroke
	lastSent   time.Time
	pending    *board.StrokePointPayload
	flushTimer *time.Timer

	done chan struct{}
}

type openStroke struct {
	roomID    string
	strokeID  string
	color     string
	brushSize float64
	points    []board.Point
}

// Option configures a Client at dial time.
type Option func(*Client)

// WithFrameInterval overrides the point emission throttle interval.
func WithFrameInterval(d time.Duration) Option {
	return func(c *Client) { c.frameInterval = d }
}

// WithErrorHandler installs a callback for server error events.
func WithErrorHandler(fn func(board.ErrorEvent)) Option {
	return func(c *Client) { c.onError = fn }
}

// Dial connects to the server's WebSocket endpoint, authenticating with the
// bearer token obtained from login. userID must be the account id the token
// was issued for; it keys the client's own strokes in the local state.
func Dial(ctx context.Context, wsURL, token, userID string, opts ...Option) (*Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	c := &Client{
		conn:          conn,
		state:         NewState(),
		userID:        userID,
		frameInterval: defaultFrameInterval,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop()
	return c, nil
}

// State exposes the client's converged picture for rendering.
func (c *Client) State() *State {
	return c.state
}

// Done is closed when the connection's read loop exits.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Join subscribes to a room. The server answers with roomInfo, the stroke
// history, and the member list, all folded into State by the read loop.
func (c *Client) Join(roomID string) error {
	return c.sendEvent(board.TypeJoinRoom, board.JoinRoomPayload{RoomID: roomID})
}

func (c *Client) Leave(roomID string) error {
	return c.sendEvent(board.TypeLeaveRoom, board.LeaveRoomPayload{RoomID: roomID})
}

// StartStroke opens a new stroke and returns its generated id. Any stroke
// still open is abandoned; it lives on only through the points already sent.
func (c *Client) StartStroke(roomID string, p board.Point, color string, brushSize float64) (string, error) {
	strokeID := randx.StrokeID()

	c.mu.Lock()
	c.stopFlushLocked()
	c.cur = &openStroke{
		roomID:    roomID,
		strokeID:  strokeID,
		color:     color,
		brushSize: brushSize,
		points:    []board.Point{p},
	}
	c.lastSent = time.Now()
	c.mu.Unlock()

	c.state.StartStroke(c.userID, strokeID, p)

	err := c.sendEvent(board.TypeStrokeStart, board.StrokeStartPayload{
		RoomID:   roomID,
		StrokeID: strokeID,
		Point:    p,
	})
	return strokeID, err
}

// AddPoint extends the open stroke. The point always lands in the local
// state and in the final point list, but its relay to the room is throttled
// to one strokePoint per frame interval, keeping only the newest point when
// input outpaces the throttle.
func (c *Client) AddPoint(p board.Point) error {
	c.mu.Lock()
	if c.cur == nil {
		c.mu.Unlock()
		return fmt.Errorf("no stroke in progress")
	}
	c.cur.points = append(c.cur.points, p)
	payload := board.StrokePointPayload{
		RoomID:    c.cur.roomID,
		StrokeID:  c.cur.strokeID,
		Point:     p,
		Color:     c.cur.color,
		BrushSize: c.cur.brushSize,
	}
	event := board.StrokePointEvent{
		UserID:    c.userID,
		StrokeID:  payload.StrokeID,
		Point:     p,
		Color:     payload.Color,
		BrushSize: payload.BrushSize,
	}

	now := time.Now()
	if now.Sub(c.lastSent) >= c.frameInterval {
		c.lastSent = now
		c.pending = nil
		c.mu.Unlock()

		c.state.AddPoint(event)
		return c.sendEvent(board.TypeStrokePoint, payload)
	}

	c.pending = &payload
	if c.flushTimer == nil {
		delay := c.frameInterval - now.Sub(c.lastSent)
		c.flushTimer = time.AfterFunc(delay, c.flushPending)
	}
	c.mu.Unlock()

	c.state.AddPoint(event)
	return nil
}

func (c *Client) flushPending() {
	c.mu.Lock()
	c.flushTimer = nil
	payload := c.pending
	c.pending = nil
	if payload != nil {
		c.lastSent = time.Now()
	}
	c.mu.Unlock()

	if payload == nil {
		return
	}
	if err := c.sendEvent(board.TypeStrokePoint, *payload); err != nil {
		logx.Warn("failed to flush throttled stroke point", "error", err.Error())
	}
}

func (c *Client) stopFlushLocked() {
	if c.flushTimer != nil {
		c.flushTimer.Stop()
		c.flushTimer = nil
	}
	c.pending = nil
}

// EndStroke finishes the open stroke, sending the complete point list so the
// persisted stroke is lossless regardless of throttling. The committed form
// arrives back as strokeComplete.
func (c *Client) EndStroke() error {
	c.mu.Lock()
	cur := c.cur
	c.cur = nil
	c.stopFlushLocked()
	c.mu.Unlock()

	if cur == nil {
		return fmt.Errorf("no stroke in progress")
	}

	return c.sendEvent(board.TypeStrokeEnd, board.StrokeEndPayload{
		RoomID:    cur.roomID,
		StrokeID:  cur.strokeID,
		Points:    cur.points,
		Color:     cur.color,
		BrushSize: cur.brushSize,
	})
}

// Undo requests removal of one of this client's strokes.
func (c *Client) Undo(roomID, strokeID string) error {
	return c.sendEvent(board.TypeUndo, board.UndoPayload{RoomID: roomID, StrokeID: strokeID})
}

// UndoLast undoes this client's most recent committed stroke and returns its
// id, or an error when the client has no strokes on the board.
func (c *Client) UndoLast(roomID string) (string, error) {
	strokeID := c.state.LastStrokeID(c.userID)
	if strokeID == "" {
		return "", fmt.Errorf("nothing to undo")
	}
	return strokeID, c.Undo(roomID, strokeID)
}

// Redo requests restoration of one of this client's undone strokes.
func (c *Client) Redo(roomID, strokeID string) error {
	return c.sendEvent(board.TypeRedo, board.RedoPayload{RoomID: roomID, StrokeID: strokeID})
}

// RedoLast restores this client's most recently undone stroke and returns
// its id, or an error when nothing has been undone.
func (c *Client) RedoLast(roomID string) (string, error) {
	strokeID := c.state.LastUndoneID(c.userID)
	if strokeID == "" {
		return "", fmt.Errorf("nothing to redo")
	}
	return strokeID, c.Redo(roomID, strokeID)
}

// Clear asks the server to wipe the room's board for everyone.
func (c *Client) Clear(roomID string) error {
	return c.sendEvent(board.TypeClear, board.ClearPayload{RoomID: roomID})
}

func (c *Client) sendEvent(msgType board.MessageType, payload any) error {
	data, err := board.MarshalEvent(msgType, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", msgType, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop() {
	defer close(c.done)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env board.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logx.Warn("dropping malformed server frame", "error", err.Error())
			continue
		}

		if env.Type == board.TypeError {
			var ev board.ErrorEvent
			if err := json.Unmarshal(env.Payload, &ev); err == nil && c.onError != nil {
				c.onError(ev)
			}
			continue
		}

		if err := c.state.Apply(env); err != nil {
			logx.Warn("dropping unusable server event", "type", string(env.Type), "error", err.Error())
		}
	}
}
