/*
Package canvas is the client-side counterpart of the drawing protocol: a
reducer that folds server events into a renderable picture, a redraw routine
over an abstract surface, and a headless WebSocket client.
*/
package canvas

import (
	"encoding/json"
	"fmt"
	"sync"

	"syncboard/internal/app/board"
)

// State holds everything needed to render the board: the committed stroke
// list, the in-flight stroke of each author, and the local stack of strokes
// undone by this client.
//
// All methods are safe for concurrent use; the read loop mutates the state
// while the application renders from it.
type State struct {
	mu      sync.Mutex
	strokes []board.Stroke
	current map[string]board.Stroke
	undone  []board.Stroke
}

func NewState() *State {
	return &State{current: make(map[string]board.Stroke)}
}

// ReplaceHistory swaps in the authoritative stroke list and resets the undo
// stack, since local undo bookkeeping is meaningless against a fresh history.
func (s *State) ReplaceHistory(strokes []board.Stroke) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strokes = append([]board.Stroke(nil), strokes...)
	s.undone = nil
}

// StartStroke opens an in-flight stroke for the given author, replacing any
// stroke the author had open.
func (s *State) StartStroke(userID, strokeID string, p board.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[userID] = board.Stroke{
		StrokeID: strokeID,
		UserID:   userID,
		Points:   []board.Point{p},
	}
}

// AddPoint extends the author's in-flight stroke. A point whose strokeId does
// not match the author's open stroke, or that arrives when the author has
// nothing open, is stale and dropped.
func (s *State) AddPoint(ev board.StrokePointEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.current[ev.UserID]
	if !ok || cur.StrokeID != ev.StrokeID {
		return
	}
	cur.Points = append(cur.Points, ev.Point)
	cur.Color = ev.Color
	cur.Width = ev.BrushSize
	s.current[ev.UserID] = cur
}

// CompleteStroke commits the canonical stored stroke, closing the author's
// matching in-flight stroke. Replayed completions for a stroke already in the
// list are ignored, and a completion for a stroke sitting on the undo stack
// is a redo: the stroke leaves the stack and rejoins the picture.
func (s *State) CompleteStroke(stroke board.Stroke) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.current[stroke.UserID]; ok && cur.StrokeID == stroke.StrokeID {
		delete(s.current, stroke.UserID)
	}

	for i, existing := range s.strokes {
		if existing.StrokeID == stroke.StrokeID {
			// Redelivered canonical form replaces the prior copy in place.
			s.strokes[i] = stroke
			return
		}
	}
	for i, un := range s.undone {
		if un.StrokeID == stroke.StrokeID {
			s.undone = append(s.undone[:i], s.undone[i+1:]...)
			break
		}
	}
	s.strokes = append(s.strokes, stroke)
}

// Undo removes the stroke from the picture and remembers it for redo.
func (s *State) Undo(strokeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, stroke := range s.strokes {
		if stroke.StrokeID == strokeID {
			s.strokes = append(s.strokes[:i], s.strokes[i+1:]...)
			s.undone = append(s.undone, stroke)
			return
		}
	}
}

// Clear wipes the committed picture, the open strokes, and the undo stack.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strokes = nil
	s.undone = nil
	s.current = make(map[string]board.Stroke)
}

// Strokes returns a snapshot of the committed stroke list in draw order.
func (s *State) Strokes() []board.Stroke {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]board.Stroke(nil), s.strokes...)
}

// InFlight returns a snapshot of the open strokes, one per drawing author.
func (s *State) InFlight() []board.Stroke {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]board.Stroke, 0, len(s.current))
	for _, stroke := range s.current {
		out = append(out, stroke)
	}
	return out
}

// LastStrokeID returns the id of the author's most recent committed stroke,
// or "" when the author has none. This is the natural undo target.
func (s *State) LastStrokeID(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.strokes) - 1; i >= 0; i-- {
		if s.strokes[i].UserID == userID {
			return s.strokes[i].StrokeID
		}
	}
	return ""
}

// LastUndoneID returns the id of the author's most recently undone stroke,
// or "" when there is nothing to redo.
func (s *State) LastUndoneID(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.undone) - 1; i >= 0; i-- {
		if s.undone[i].UserID == userID {
			return s.undone[i].StrokeID
		}
	}
	return ""
}

// Apply folds one server envelope into the state. Events that do not alter
// the picture, such as roomInfo and roomMembers, are ignored here.
func (s *State) Apply(env board.Envelope) error {
	switch env.Type {
	case board.TypeRoomHistory:
		var strokes []board.Stroke
		if err := json.Unmarshal(env.Payload, &strokes); err != nil {
			return fmt.Errorf("bad roomHistory payload: %w", err)
		}
		s.ReplaceHistory(strokes)

	case board.TypeStrokeStart:
		var ev board.StrokeStartEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return fmt.Errorf("bad strokeStart payload: %w", err)
		}
		s.StartStroke(ev.UserID, ev.StrokeID, ev.Point)

	case board.TypeStrokePoint:
		var ev board.StrokePointEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return fmt.Errorf("bad strokePoint payload: %w", err)
		}
		s.AddPoint(ev)

	case board.TypeStrokeComplete:
		var stroke board.Stroke
		if err := json.Unmarshal(env.Payload, &stroke); err != nil {
			return fmt.Errorf("bad strokeComplete payload: %w", err)
		}
		s.CompleteStroke(stroke)

	case board.TypeUndo:
		var ev board.UndoEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return fmt.Errorf("bad undo payload: %w", err)
		}
		s.Undo(ev.StrokeID)

	case board.TypeClear:
		s.Clear()
	}

	return nil
}
