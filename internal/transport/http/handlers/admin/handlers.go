package adminhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"frpops/internal/domain/auth"
	"frpops/internal/domain/directory"
	"frpops/internal/domain/reports"
	"frpops/internal/platform/store"
	"frpops/internal/transport/http/api"
	"frpops/internal/transport/http/middleware"
	"frpops/internal/transport/http/shared"
)

type Handler struct {
	Manager *directory.Manager
	Store   store.Client
}

func NewHandler(manager *directory.Manager, client store.Client) *Handler {
	return &Handler{Manager: manager, Store: client}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireDestination(auth.DestSuperAdmin))
		r.Use(middleware.Idempotency(h.Store))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.handleListUsers)
			r.Post("/", h.handleCreateUser)
			r.Put("/{recordID}", h.handleUpdateUser)
			r.Delete("/{recordID}", h.handleDeleteUser)
		})
		r.Route("/alat", func(r chi.Router) {
			r.Get("/", h.handleListEquipment)
			r.Post("/", h.handleCreateEquipment)
			r.Put("/{recordID}", h.handleUpdateEquipment)
			r.Delete("/{recordID}", h.handleDeleteEquipment)
		})
		r.Route("/locations", func(r chi.Router) {
			r.Get("/", h.handleListLocations)
			r.Post("/", h.handleCreateLocation)
			r.Put("/{recordID}", h.handleUpdateLocation)
			r.Delete("/{recordID}", h.handleDeleteLocation)
		})

		r.Get("/jabatan-options", h.handleJabatanOptions)
		r.Post("/refresh", h.handleRefresh)
		r.Get("/reports/{collection}.pdf", h.handleRosterPDF)
	})
}

type userPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	NIK      string `json:"nik"`
	Jabatan  string `json:"jabatan"`
	Lokasi   string `json:"lokasi"`
}

type equipmentPayload struct {
	NomorLambung   string `json:"nomorLambung"`
	NomorPolisi    string `json:"nomorPolisi"`
	JenisKendaraan string `json:"jenisKendaraan"`
	Lokasi         string `json:"lokasi"`
}

type locationPayload struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Manager.Users(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var payload userPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("username", payload.Username, "username is required")
	v.Required("password", payload.Password, "password is required")
	v.Required("nik", payload.NIK, "nik is required")
	v.Required("jabatan", payload.Jabatan, "jabatan is required")
	v.Required("lokasi", payload.Lokasi, "lokasi is required")
	v.Enum("jabatan", payload.Jabatan, directory.JabatanOptions, "jabatan is not a known job title")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "hash_error", "failed to process password", middleware.GetRequestID(r.Context()))
		return
	}

	rec, err := h.Manager.CreateUser(r.Context(), directory.UserInput{
		Username:     payload.Username,
		PasswordHash: hash,
		NIK:          payload.NIK,
		Jabatan:      payload.Jabatan,
		Lokasi:       payload.Lokasi,
	})
	if err != nil {
		failMutation(w, r, err)
		return
	}
	api.Created(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var payload userPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	update := directory.UserUpdate{
		Username: payload.Username,
		NIK:      payload.NIK,
		Jabatan:  payload.Jabatan,
		Lokasi:   payload.Lokasi,
	}
	// An empty password keeps the stored credential.
	if payload.Password != "" {
		hash, err := auth.HashPassword(payload.Password)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "hash_error", "failed to process password", middleware.GetRequestID(r.Context()))
			return
		}
		update.PasswordHash = hash
	}

	rec, err := h.Manager.UpdateUser(r.Context(), chi.URLParam(r, "recordID"), update)
	if err != nil {
		failMutation(w, r, err)
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.DeleteUser(r.Context(), chi.URLParam(r, "recordID")); err != nil {
		failMutation(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Manager.Equipment(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEquipment(w http.ResponseWriter, r *http.Request) {
	var payload equipmentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("nomorLambung", payload.NomorLambung, "nomorLambung is required")
	v.Required("nomorPolisi", payload.NomorPolisi, "nomorPolisi is required")
	v.Required("jenisKendaraan", payload.JenisKendaraan, "jenisKendaraan is required")
	v.Required("lokasi", payload.Lokasi, "lokasi is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	rec, err := h.Manager.CreateEquipment(r.Context(), directory.EquipmentInput{
		NomorLambung:   payload.NomorLambung,
		NomorPolisi:    payload.NomorPolisi,
		JenisKendaraan: payload.JenisKendaraan,
		Lokasi:         payload.Lokasi,
	})
	if err != nil {
		failMutation(w, r, err)
		return
	}
	api.Created(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEquipment(w http.ResponseWriter, r *http.Request) {
	var payload equipmentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	rec, err := h.Manager.UpdateEquipment(r.Context(), chi.URLParam(r, "recordID"), directory.EquipmentUpdate{
		NomorLambung:   payload.NomorLambung,
		NomorPolisi:    payload.NomorPolisi,
		JenisKendaraan: payload.JenisKendaraan,
		Lokasi:         payload.Lokasi,
	})
	if err != nil {
		failMutation(w, r, err)
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteEquipment(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.DeleteEquipment(r.Context(), chi.URLParam(r, "recordID")); err != nil {
		failMutation(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListLocations(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Manager.Locations(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	var payload locationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Coordinate("latitude", payload.Latitude, 90, "latitude must be between -90 and 90")
	v.Coordinate("longitude", payload.Longitude, 180, "longitude must be between -180 and 180")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	rec, err := h.Manager.CreateLocation(r.Context(), directory.LocationInput{
		Name:      payload.Name,
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
	})
	if err != nil {
		failMutation(w, r, err)
		return
	}
	api.Created(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	var payload locationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Coordinate("latitude", payload.Latitude, 90, "latitude must be between -90 and 90")
	v.Coordinate("longitude", payload.Longitude, 180, "longitude must be between -180 and 180")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	rec, err := h.Manager.UpdateLocation(r.Context(), chi.URLParam(r, "recordID"), directory.LocationUpdate{
		Name:      payload.Name,
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
	})
	if err != nil {
		failMutation(w, r, err)
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.DeleteLocation(r.Context(), chi.URLParam(r, "recordID")); err != nil {
		failMutation(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleJabatanOptions(w http.ResponseWriter, r *http.Request) {
	api.Success(w, directory.JabatanOptions, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.Refresh(r.Context()); err != nil {
		slog.Warn("directory refresh failed", "err", err)
		api.Fail(w, http.StatusServiceUnavailable, "store_unavailable", "cannot reach the record store", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "refreshed"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRosterPDF(w http.ResponseWriter, r *http.Request) {
	var err error
	switch chi.URLParam(r, "collection") {
	case directory.CollectionUsers:
		w.Header().Set("Content-Type", "application/pdf")
		err = reports.UserRoster(w, h.Manager.Users())
	case directory.CollectionEquipment:
		w.Header().Set("Content-Type", "application/pdf")
		err = reports.EquipmentRoster(w, h.Manager.Equipment())
	case directory.CollectionLocations:
		w.Header().Set("Content-Type", "application/pdf")
		err = reports.LocationRoster(w, h.Manager.Locations())
	default:
		api.Fail(w, http.StatusNotFound, "not_found", "unknown collection", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		slog.Warn("roster pdf render failed", "err", err)
	}
}

func failMutation(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, directory.ErrMutationInFlight):
		api.Fail(w, http.StatusConflict, "mutation_in_flight", "another change is being saved for this collection", requestID)
	case errors.Is(err, directory.ErrProtectedRecord):
		api.Fail(w, http.StatusForbidden, "protected_record", "this record cannot be deleted", requestID)
	case errors.Is(err, directory.ErrRecordNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "record not found", requestID)
	default:
		slog.Warn("store mutation failed", "err", err)
		api.Fail(w, http.StatusServiceUnavailable, "store_unavailable", "cannot reach the record store", requestID)
	}
}
