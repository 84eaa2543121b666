package auth

import (
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/google/uuid"

	"github.com/Msocha19/SSBD-TUL-2023/internal/api"
)

// LoginRequest is the login payload.
type LoginRequest struct {
	Login    string `json:"login" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the refresh payload. The refresh token owner must name
// its login so a stolen token alone is not redeemable.
type RefreshRequest struct {
	Login        string `json:"login" validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required,uuid"`
}

// AuthResponse carries a freshly issued token pair.
type AuthResponse struct {
	JWT          string `json:"jwt"`
	RefreshToken string `json:"refreshToken"`
	Language     string `json:"language"`
}

// Handler exposes the session endpoints.
type Handler struct {
	service *Service
	log     *slog.Logger
}

// NewHandler creates an auth Handler.
func NewHandler(service *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{service: service, log: log}
}

// Login handles POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !api.Decode(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Login, req.Password, clientIP(r))
	if err != nil {
		h.handleError(w, err)
		return
	}

	api.WriteSuccess(w, http.StatusOK, toAuthResponse(result))
}

// Refresh handles POST /refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !api.Decode(w, r, &req) {
		return
	}

	value, err := uuid.Parse(req.RefreshToken)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Malformed refresh token", nil)
		return
	}

	result, err := h.service.Refresh(r.Context(), req.Login, value)
	if err != nil {
		h.handleError(w, err)
		return
	}

	api.WriteSuccess(w, http.StatusOK, toAuthResponse(result))
}

// Logout handles DELETE /logout. The call is idempotent.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	value, err := uuid.Parse(raw)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Malformed refresh token", nil)
		return
	}

	if err := h.service.Logout(r.Context(), value); err != nil {
		h.handleError(w, err)
		return
	}

	api.WriteSuccess(w, http.StatusNoContent, nil)
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrAuthentication) {
		api.WriteError(w, http.StatusUnauthorized, api.CodeAuthenticationFailed, "Invalid credentials", nil)
		return
	}
	h.log.Error("authentication request failed", "error", err)
	api.WriteError(w, http.StatusInternalServerError, api.CodeInternalError, "An unexpected error occurred", nil)
}

// clientIP strips the port so the bare address fits the login audit columns.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func toAuthResponse(result *LoginResult) AuthResponse {
	return AuthResponse{
		JWT:          result.AccessToken,
		RefreshToken: result.RefreshToken.String(),
		Language:     string(result.Language),
	}
}
