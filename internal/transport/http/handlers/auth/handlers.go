package authhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"frpops/internal/domain/auth"
	"frpops/internal/domain/directory"
	"frpops/internal/platform/store"
	"frpops/internal/transport/http/api"
	"frpops/internal/transport/http/middleware"
	"frpops/internal/transport/http/shared"
)

type Handler struct {
	Store      store.Client
	Secret     string
	SessionTTL time.Duration
}

func NewHandler(client store.Client, secret string, sessionTTL time.Duration) *Handler {
	return &Handler{Store: client, Secret: secret, SessionTTL: sessionTTL}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	NIK      string `json:"nik"`
	Jabatan  string `json:"jabatan"`
	Lokasi   string `json:"lokasi"`
	Role     string `json:"role"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("username", payload.Username, "username is required")
	v.Required("password", payload.Password, "password is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	records, err := h.Store.ListAll(r.Context(), directory.CollectionUsers)
	if err != nil {
		slog.Warn("user directory fetch failed", "err", err)
		api.Fail(w, http.StatusServiceUnavailable, "store_unavailable", "cannot reach the record store", middleware.GetRequestID(r.Context()))
		return
	}
	users := make([]directory.UserRecord, 0, len(records))
	for _, rec := range records {
		users = append(users, directory.UserFromRecord(rec))
	}

	user, err := auth.Verify(payload.Username, payload.Password, users)
	if errors.Is(err, auth.ErrUserNotFound) {
		api.Fail(w, http.StatusUnauthorized, "user_not_found", "username not found", middleware.GetRequestID(r.Context()))
		return
	}
	if errors.Is(err, auth.ErrBadPassword) {
		api.Fail(w, http.StatusUnauthorized, "bad_password", "password is incorrect", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to log in", middleware.GetRequestID(r.Context()))
		return
	}

	destination := auth.Route(user.Jabatan)
	token, err := auth.GenerateToken(h.Secret, auth.Claims{
		UserID:      user.ID,
		Username:    user.Username,
		Jabatan:     user.Jabatan,
		Destination: destination,
	}, h.SessionTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", middleware.GetRequestID(r.Context()))
		return
	}

	api.Success(w, map[string]any{
		"token":       token,
		"destination": destination,
		"user": sessionUser{
			ID:       user.ID,
			Username: user.Username,
			NIK:      user.NIK,
			Jabatan:  user.Jabatan,
			Lokasi:   user.Lokasi,
			Role:     user.Role,
		},
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	// Sessions are stateless bearer tokens; logout is the client discarding
	// its token.
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"id":          user.UserID,
		"username":    user.Username,
		"jabatan":     user.Jabatan,
		"destination": user.Destination,
	}, middleware.GetRequestID(r.Context()))
}
