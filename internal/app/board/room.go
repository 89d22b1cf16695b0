/*
Package board contains the core logic for live drawing rooms.

This file defines the Room struct, the broadcast hub for a single live room.
A Room only fans frames out to subscribed connections; it performs no storage
I/O, so no room can stall another connection's handlers.
*/
package board

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"syncboard/internal/pkg/logx"
)

const broadcastChannelBuffer = 1024

// RoomInactivityTimeout is the duration after which an empty live room shuts
// its run loop down. The persistent room record outlives the hub.
const RoomInactivityTimeout = 5 * time.Minute

// outbound is one frame queued for fan-out. ExcludeUserID, when non-empty,
// skips that author's own connection; stroke relays use it so the drawer does
// not re-render its local strokes.
type outbound struct {
	data          []byte
	excludeUserID string
}

// Room is the live broadcast hub for one drawing room.
type Room struct {
	// ID matches the persistent room record's id.
	ID string

	// subscribers maps user id to the active connection for that user.
	subscribers map[string]*Client

	// broadcast queues frames for fan-out to subscribers.
	broadcast chan outbound

	// register and unregister queue subscription changes.
	register   chan *Client
	unregister chan *Client

	// cleanupChan notifies the Manager when the run loop finishes.
	cleanupChan chan<- RoomCleanupMsg

	// stopChan terminates the run loop immediately.
	stopChan chan struct{}

	// shutdownTimer tracks room inactivity.
	shutdownTimer *time.Timer

	// mu protects access to the subscribers map.
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewRoom creates a live hub for the given room id.
func NewRoom(roomID string, cleanupChan chan<- RoomCleanupMsg) *Room {
	roomLogger := logx.Logger().With().
		Str("room_id", roomID).
		Logger()

	return &Room{
		ID:            roomID,
		subscribers:   make(map[string]*Client),
		broadcast:     make(chan outbound, broadcastChannelBuffer),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		cleanupChan:   cleanupChan,
		stopChan:      make(chan struct{}),
		shutdownTimer: time.NewTimer(RoomInactivityTimeout),
		logger:        roomLogger,
	}
}

// Stop terminates the Room's run loop immediately.
func (r *Room) Stop() {
	r.logger.Info().Msg("Received stop signal. Stopping room immediately.")

	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
}

// Run is the main event loop for the Room: subscription changes, frame
// fan-out, and inactivity shutdown.
func (r *Room) Run() {
	defer func() {
		r.logger.Info().Msg("Room run loop finished. Notifying Manager for cleanup.")

		if r.shutdownTimer != nil {
			r.shutdownTimer.Stop()
		}

		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logx.Warn("Recovered from panic during Manager cleanup notification (channel likely closed).")
				}
			}()

			select {
			case r.cleanupChan <- RoomCleanupMsg{RoomID: r.ID}:
			default:
				r.logger.Warn().Msg("Manager cleanup channel blocked/full. Skipping cleanup notification.")
			}
		}()
	}()

	timerChan := r.shutdownTimer.C

	for {
		select {
		case client := <-r.register:
			r.mu.Lock()

			if existing, ok := r.subscribers[client.usr.ID]; ok && existing != client {
				r.logger.Warn().
					Str("user_id", client.usr.ID).
					Msg("User already subscribed from another connection. Replacing subscription.")
			}

			if r.shutdownTimer.Stop() {
				select {
				case <-r.shutdownTimer.C:
				default:
				}
			}

			r.subscribers[client.usr.ID] = client
			total := len(r.subscribers)
			r.mu.Unlock()

			r.logger.Info().
				Str("user_id", client.usr.ID).
				Int("total_subscribers", total).
				Msg("Connection subscribed to room.")

		case client := <-r.unregister:
			r.mu.Lock()

			if current, ok := r.subscribers[client.usr.ID]; ok && current == client {
				delete(r.subscribers, client.usr.ID)

				r.logger.Info().
					Str("user_id", client.usr.ID).
					Int("total_subscribers", len(r.subscribers)).
					Msg("Connection unsubscribed from room.")
			} else if ok {
				r.logger.Info().
					Str("stale_user_id", client.usr.ID).
					Msg("Ignoring unsubscribe for stale connection.")
			}

			if len(r.subscribers) == 0 {
				if r.shutdownTimer.Stop() {
					select {
					case <-r.shutdownTimer.C:
					default:
					}
				}
				r.shutdownTimer.Reset(RoomInactivityTimeout)
			}

			r.mu.Unlock()

		case msg := <-r.broadcast:
			r.mu.RLock()
			for userID, client := range r.subscribers {
				if msg.excludeUserID != "" && userID == msg.excludeUserID {
					continue
				}

				select {
				case client.send <- msg.data:
				default:
					r.logger.Warn().
						Str("user_id", userID).
						Msg("Subscriber send channel full, dropping frame.")
				}
			}
			r.mu.RUnlock()

		case <-timerChan:
			r.logger.Info().Msgf("Room inactivity timeout (%s) reached. Shutting down run loop.", RoomInactivityTimeout)
			return

		case <-r.stopChan:
			r.logger.Info().Msg("Room forced stop initiated.")
			return
		}
	}
}

// Subscribe adds the client to the room's fan-out set. The send blocks until
// the run loop has accepted it, so a following Broadcast is seen by the new
// subscriber.
func (r *Room) Subscribe(client *Client) {
	select {
	case r.register <- client:
	case <-r.stopChan:
	}
}

// Unsubscribe removes the client from the room's fan-out set.
func (r *Room) Unsubscribe(client *Client) {
	select {
	case r.unregister <- client:
	case <-r.stopChan:
	}
}

// Broadcast queues a frame for every subscriber except excludeUserID.
// An empty excludeUserID reaches every subscriber, sender included.
func (r *Room) Broadcast(data []byte, excludeUserID string) {
	select {
	case r.broadcast <- outbound{data: data, excludeUserID: excludeUserID}:
	default:
		r.logger.Warn().Msg("Room broadcast channel full, dropping frame.")
	}
}

// IsCurrentSubscriber reports whether the client is the room's active
// connection for its user id. A connection replaced by a newer one for the
// same user is not current.
func (r *Room) IsCurrentSubscriber(client *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.subscribers[client.usr.ID] == client
}

// SubscriberCount returns the number of live subscribers.
func (r *Room) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subscribers)
}
