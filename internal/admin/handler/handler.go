package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"conectasat/internal/auth/models"
	authservice "conectasat/internal/auth/service"
	"conectasat/internal/auth/store"
	"conectasat/internal/platform/middleware"
)

// Service is the auth surface the admin API exposes.
type Service interface {
	Login(ctx context.Context, username, password string) (string, error)
	CreateToken(ctx context.Context, description string) (*models.APIToken, error)
	GetToken(ctx context.Context, id int64) (*models.APIToken, error)
	ListTokens(ctx context.Context, skip, limit int) ([]*models.APIToken, int64, error)
	UpdateToken(ctx context.Context, id int64, description *string, isActive *bool) (*models.APIToken, error)
	RegenerateToken(ctx context.Context, id int64) (*models.APIToken, error)
	DeleteToken(ctx context.Context, id int64) error
	CreateAdmin(ctx context.Context, username, password string) (*models.SuperAdmin, error)
	UpdateAdminPassword(ctx context.Context, username, password string) error
	DeactivateAdmin(ctx context.Context, username string) error
}

// Handler serves the admin API: login, API token lifecycle and superadmin
// management.
type Handler struct {
	logger  *slog.Logger
	service Service
	guard   middleware.AdminValidator
}

// New creates an admin handler.
func New(service Service, guard middleware.AdminValidator, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// Register mounts the admin routes. Login is open; everything else requires
// superadmin credentials or an access token.
func (h *Handler) Register(r chi.Router) {
	sub := chi.NewRouter()
	sub.Post("/login", h.handleLogin)

	sub.Group(func(g chi.Router) {
		g.Use(middleware.RequireAdmin(h.guard, h.logger))

		g.Post("/tokens", h.handleCreateToken)
		g.Get("/tokens", h.handleListTokens)
		g.Get("/tokens/{id}", h.handleGetToken)
		g.Put("/tokens/{id}", h.handleUpdateToken)
		g.Delete("/tokens/{id}", h.handleDeleteToken)
		g.Post("/tokens/{id}/regenerate", h.handleRegenerateToken)

		g.Post("/superadmins", h.handleCreateAdmin)
		g.Put("/superadmins/{username}/password", h.handleUpdateAdminPassword)
		g.Delete("/superadmins/{username}", h.handleDeactivateAdmin)
	})

	r.Mount("/admin", sub)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	token, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, authservice.ErrInvalidCredentials) {
			writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		h.internalError(w, r, "login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer"})
}

type createTokenRequest struct {
	Description string `json:"description"`
}

func (h *Handler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.service.CreateToken(ctx, req.Description)
	if err != nil {
		h.internalError(w, r, "could not create token", err)
		return
	}
	writeJSON(w, http.StatusCreated, token)
}

type listTokensResponse struct {
	Tokens []*models.APIToken `json:"tokens"`
	Total  int64              `json:"total"`
}

func (h *Handler) handleListTokens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	tokens, total, err := h.service.ListTokens(ctx, skip, limit)
	if err != nil {
		h.internalError(w, r, "could not list tokens", err)
		return
	}
	writeJSON(w, http.StatusOK, listTokensResponse{Tokens: tokens, Total: total})
}

func (h *Handler) handleGetToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := tokenID(w, r)
	if !ok {
		return
	}
	token, err := h.service.GetToken(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Token not found")
			return
		}
		h.internalError(w, r, "could not get token", err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

type updateTokenRequest struct {
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func (h *Handler) handleUpdateToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := tokenID(w, r)
	if !ok {
		return
	}

	var req updateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.service.UpdateToken(ctx, id, req.Description, req.IsActive)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Token not found")
			return
		}
		h.internalError(w, r, "could not update token", err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (h *Handler) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := tokenID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteToken(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Token not found")
			return
		}
		h.internalError(w, r, "could not delete token", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRegenerateToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := tokenID(w, r)
	if !ok {
		return
	}
	token, err := h.service.RegenerateToken(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Token not found")
			return
		}
		h.internalError(w, r, "could not regenerate token", err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

type createAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	admin, err := h.service.CreateAdmin(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeDetail(w, http.StatusConflict, "Username already exists")
			return
		}
		h.internalError(w, r, "could not create superadmin", err)
		return
	}
	writeJSON(w, http.StatusCreated, admin)
}

type updatePasswordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) handleUpdateAdminPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := chi.URLParam(r, "username")

	var req updatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "password is required")
		return
	}

	if err := h.service.UpdateAdminPassword(ctx, username, req.Password); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Superadmin not found")
			return
		}
		h.internalError(w, r, "could not update superadmin password", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "password updated"})
}

func (h *Handler) handleDeactivateAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := chi.URLParam(r, "username")

	if err := h.service.DeactivateAdmin(ctx, username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Superadmin not found")
			return
		}
		h.internalError(w, r, "could not deactivate superadmin", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"request_id", middleware.GetRequestID(r.Context()),
		"error", err.Error(),
	)
	writeDetail(w, http.StatusInternalServerError, msg)
}

func tokenID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "token id must be an integer")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
