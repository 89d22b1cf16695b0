package handler

import (
	"net/http"

	"syncboard/internal/app/db"
	"syncboard/internal/pkg/auth/jwt"
	"syncboard/internal/pkg/errs"
	"syncboard/internal/pkg/logx"
	"syncboard/internal/pkg/req"
	"syncboard/internal/pkg/resp"
)

const (
	roomNameMinLen = 3
	roomNameMaxLen = 50
)

type createRoomRequest struct {
	Name string `json:"name"`
}

// CreateRoomHandler creates a named drawing room owned by the caller.
func (deps *AppDeps) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	payload := jwt.GetPayloadFromContext(r)
	if payload == nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
		return
	}

	var body createRoomRequest
	if bindErr := req.BindJSON(r, &body); bindErr != nil {
		resp.RespondError(w, r, bindErr)
		return
	}

	if len(body.Name) < roomNameMinLen || len(body.Name) > roomNameMaxLen {
		resp.RespondError(w, r, errs.NewError(errs.ErrInvalidRoomName))
		return
	}

	room, err := deps.DB.CreateRoom(r.Context(), db.CreateRoomParams{
		Name:      body.Name,
		CreatedBy: payload.ID,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNameExists))
			return
		}
		logx.Error(err, "Failed to create room", "user_id", payload.ID)
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
		return
	}

	resp.RespondSuccess(w, r, room)
}

// ListRoomsHandler returns every room with its creator and member count.
func (deps *AppDeps) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	if jwt.GetPayloadFromContext(r) == nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
		return
	}

	rooms, err := deps.DB.ListRooms(r.Context())
	if err != nil {
		logx.Error(err, "Failed to list rooms")
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
		return
	}

	if rooms == nil {
		rooms = []db.RoomListRow{}
	}
	resp.RespondSuccess(w, r, rooms)
}
