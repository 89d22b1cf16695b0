/*
Package board contains the core logic for live drawing rooms.

This file defines the Manager, which tracks every live Room hub. Hubs are
created on demand when the first connection subscribes and are removed again
once a room has been empty past its inactivity timeout. Persistent room
records are unaffected; only the in-memory broadcast state comes and goes.
*/
package board

import (
	"sync"

	"github.com/rs/zerolog"

	"syncboard/internal/pkg/logx"
)

// RoomCleanupMsg notifies the Manager that a Room finished its run loop.
type RoomCleanupMsg struct {
	RoomID string
}

// Manager coordinates all live room hubs and owns the Store handle that
// protocol handlers reach persistence through.
type Manager struct {
	// rooms maps room id to its live hub.
	rooms map[string]*Room

	// store is the persistence surface shared by all connections.
	store Store

	// mu protects concurrent access to the rooms map.
	mu sync.RWMutex

	// cleanup receives notifications from Rooms whose run loops ended.
	cleanup chan RoomCleanupMsg

	// wg waits for the cleanup goroutine during shutdown.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewManager constructs a Manager and starts its cleanup loop.
func NewManager(store Store) *Manager {
	managerLogger := logx.Logger().With().Str("component", "Manager").Logger()

	m := &Manager{
		rooms:   make(map[string]*Room),
		store:   store,
		cleanup: make(chan RoomCleanupMsg, 10),
		logger:  managerLogger,
	}

	m.wg.Add(1)

	go m.runCleanupLoop()

	return m
}

// Store returns the persistence surface bound to this Manager.
func (m *Manager) Store() Store {
	return m.store
}

// runCleanupLoop removes rooms whose run loops have finished.
func (m *Manager) runCleanupLoop() {
	defer m.wg.Done()

	m.logger.Info().Msg("Cleanup loop started.")

	for msg := range m.cleanup {
		m.deleteRoom(msg.RoomID)
	}

	m.logger.Info().Msg("Cleanup loop stopped.")
}

// deleteRoom removes the specified room hub from the rooms map.
func (m *Manager) deleteRoom(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[roomID]; ok {
		delete(m.rooms, roomID)
		m.logger.Info().Str("room_id", roomID).Msg("Live room removed.")
	}
}

// GetOrCreateRoom returns the live hub for roomID, spinning one up if absent.
func (m *Manager) GetOrCreateRoom(roomID string) *Room {
	m.mu.RLock()
	room, ok := m.rooms[roomID]
	m.mu.RUnlock()

	if ok {
		return room
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok = m.rooms[roomID]; ok {
		return room
	}

	room = NewRoom(roomID, m.cleanup)
	m.rooms[roomID] = room

	go room.Run()

	m.logger.Info().Str("room_id", roomID).Msg("Live room created and started.")
	return room
}

// GetRoom returns the live hub for roomID, or nil if none is running.
func (m *Manager) GetRoom(roomID string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil
	}
	return room
}

// Shutdown stops every live room and waits for the cleanup goroutine.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down Manager...")

	m.mu.Lock()

	for _, room := range m.rooms {
		room.Stop()
	}
	m.rooms = nil

	m.mu.Unlock()

	close(m.cleanup)
	m.wg.Wait()

	m.logger.Info().Msg("Manager shutdown complete.")
}
