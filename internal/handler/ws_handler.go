package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"syncboard/internal/app/board"
	"syncboard/internal/app/user"
	"syncboard/internal/pkg/auth/jwt"
	"syncboard/internal/pkg/errs"
	"syncboard/internal/pkg/logx"
	"syncboard/internal/pkg/resp"
)

const (
	readBufferSize  = 4096
	writeBufferSize = 4096
)

func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return &websocket.Upgrader{
		ReadBufferSize:  readBufferSize,
		WriteBufferSize: writeBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			// Non-browser clients send no Origin header.
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(allowed) == 0 {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// WSHandler authenticates the caller and upgrades the connection into the
// drawing protocol. The verified account identity is bound to the connection
// for its whole lifetime; nothing a client sends later can change it.
func (deps *AppDeps) WSHandler(upgrader *websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := jwt.BearerFromRequest(r)
		if token == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		payload, err := jwt.ParseToken(token, deps.Config.JWTSecret)
		if err != nil {
			logx.Warn("Rejected WebSocket upgrade with invalid token", "error", err.Error())
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		// The account must still exist; a token can outlive its user.
		account, err := deps.DB.GetUserByID(r.Context(), payload.ID)
		if err != nil {
			logx.Warn("Rejected WebSocket upgrade for unknown account", "user_id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			logx.Warn("WebSocket upgrade failed", "error", err.Error())
			return
		}

		client := board.NewClient(deps.Manager, conn, user.User{
			ID:       account.ID,
			Username: account.Username,
		})

		logx.Info("WebSocket connection established", "user_id", account.ID, "username", account.Username)

		go client.WritePump()
		client.ReadPump()
	}
}
