/*
Package handler wires the HTTP surface: routing, middleware, authentication
endpoints, room management, and the WebSocket upgrade into the drawing
protocol.
*/
package handler

import (
	"syncboard/internal/app/board"
	"syncboard/internal/app/db"
	"syncboard/internal/configs"
)

// AppDeps aggregates the shared dependencies injected into handlers.
type AppDeps struct {
	Config  *configs.AppConfig
	DB      *db.Queries
	Manager *board.Manager
}
