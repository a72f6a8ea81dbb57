package bookings

import (
	"log/slog"
	"net/http"

	"portal-booking/internal/auth"
	"portal-booking/internal/httpx"
	"portal-booking/internal/models"
	"portal-booking/internal/transport"
	"portal-booking/internal/validation"
)

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type userTokenRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,phone"`
}

// LoginHandler issues bearer tokens for the back office.
type LoginHandler struct {
	user         string
	passwordHash string
	manager      *auth.Manager
	val          *validation.Validator
	log          *slog.Logger
}

func NewLoginHandler(user, passwordHash string, manager *auth.Manager, val *validation.Validator, log *slog.Logger) *LoginHandler {
	return &LoginHandler{
		user:         user,
		passwordHash: passwordHash,
		manager:      manager,
		val:          val,
		log:          log,
	}
}

func (h *LoginHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	log := h.log
	var req LoginRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin login: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin login: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	if h.manager == nil || h.passwordHash == "" {
		log.Warn("admin login: not configured")
		transport.WriteError(w, http.StatusServiceUnavailable, "admin auth not configured", nil)
		return
	}

	if req.Username != h.user || auth.ComparePassword(h.passwordHash, req.Password) != nil {
		log.Warn("admin login: invalid credentials", slog.String("username", req.Username))
		transport.WriteError(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	token, err := h.manager.NewAccessToken(models.UserRoleAdmin)
	if err != nil {
		transport.WriteError(w, http.StatusInternalServerError, "token error", nil)
		return
	}
	log.Info("admin login: ok", slog.String("username", req.Username))
	h.writeToken(w, token)
}

// IssueUserToken mints a token carrying a profile, for driving pre-filled wizards.
func (h *LoginHandler) IssueUserToken(w http.ResponseWriter, r *http.Request) {
	log := h.log
	if h.manager == nil {
		transport.WriteError(w, http.StatusServiceUnavailable, "token signing not configured", nil)
		return
	}
	var req userTokenRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}
	token, err := h.manager.NewUserToken(models.Profile{Name: req.Name, Email: req.Email, Phone: req.Phone})
	if err != nil {
		transport.WriteError(w, http.StatusInternalServerError, "token error", nil)
		return
	}
	log.Info("user token: issued", slog.String("email", req.Email))
	h.writeToken(w, token)
}

func (h *LoginHandler) writeToken(w http.ResponseWriter, token string) {
	transport.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.manager.AccessTTL.Seconds()),
	})
}
