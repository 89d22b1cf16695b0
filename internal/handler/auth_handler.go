package handler

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"syncboard/internal/app/db"
	"syncboard/internal/app/user"
	"syncboard/internal/pkg/auth/jwt"
	"syncboard/internal/pkg/errs"
	"syncboard/internal/pkg/logx"
	"syncboard/internal/pkg/req"
	"syncboard/internal/pkg/resp"
)

const (
	usernameMinLen = 3
	usernameMaxLen = 30
	passwordMinLen = 6
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

// RegisterHandler creates a new account and returns a signed identity token.
func (deps *AppDeps) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if jwt.GetPayloadFromContext(r) != nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
		return
	}

	var body registerRequest
	if bindErr := req.BindJSON(r, &body); bindErr != nil {
		resp.RespondError(w, r, bindErr)
		return
	}

	if len(body.Username) < usernameMinLen || len(body.Username) > usernameMaxLen {
		resp.RespondError(w, r, errs.NewError(errs.ErrInvalidUsername))
		return
	}
	if !emailPattern.MatchString(body.Email) {
		resp.RespondError(w, r, errs.NewError(errs.ErrInvalidEmail))
		return
	}
	if len(body.Password) < passwordMinLen {
		resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		logx.Error(err, "Failed to hash password during registration")
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
		return
	}

	created, err := deps.DB.CreateUser(r.Context(), db.CreateUserParams{
		Username:     body.Username,
		Email:        body.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			resp.RespondError(w, r, errs.NewError(errs.ErrEmailAlreadyExists))
			return
		}
		logx.Error(err, "Failed to create user")
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
		return
	}

	deps.respondWithToken(w, r, created)
}

// LoginHandler verifies credentials and returns a signed identity token.
func (deps *AppDeps) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if jwt.GetPayloadFromContext(r) != nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
		return
	}

	var body loginRequest
	if bindErr := req.BindJSON(r, &body); bindErr != nil {
		resp.RespondError(w, r, bindErr)
		return
	}

	account, err := deps.DB.GetUserByEmail(r.Context(), body.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}
		logx.Error(err, "Failed to look up user by email")
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(body.Password)); err != nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
		return
	}

	deps.respondWithToken(w, r, account)
}

func (deps *AppDeps) respondWithToken(w http.ResponseWriter, r *http.Request, account db.User) {
	payload := &jwt.Payload{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
	}

	token, err := jwt.GenerateToken(payload, deps.Config.JWTSecret, jwt.UserIdentityExpiration)
	if err != nil {
		logx.Error(err, "Failed to sign identity token", "user_id", account.ID)
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
		return
	}

	resp.RespondSuccess(w, r, authResponse{
		Token: token,
		User: user.User{
			ID:       account.ID,
			Username: account.Username,
			Email:    account.Email,
		},
	})
}
