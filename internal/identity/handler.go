package identity

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/finvault/FinVault/internal/logging"
)

const refreshCookieName = "refresh_token"

// Handler exposes the auth endpoints. Refresh tokens travel in an http-only
// cookie, never in response bodies.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{service: service, logger: logger.WithComponent("identity_http")}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/verify-email", h.handleVerifyEmail)
	mux.HandleFunc("POST /api/auth/resend-code", h.handleResendCode)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/login/verify-2fa", h.handleVerifyTwoFactor)
	mux.Handle("POST /api/auth/refresh", h.service.RequireRefreshToken(http.HandlerFunc(h.handleRefresh)))
	mux.HandleFunc("POST /api/auth/password-reset/request", h.handlePasswordResetRequest)
	mux.HandleFunc("POST /api/auth/password-reset", h.handlePasswordReset)

	mux.Handle("GET /api/auth/me", h.service.RequireAccessToken(http.HandlerFunc(h.handleMe)))
	mux.Handle("POST /api/auth/password", h.service.RequireAccessToken(http.HandlerFunc(h.handleChangePassword)))
	mux.Handle("POST /api/auth/2fa/setup", h.service.RequireAccessToken(http.HandlerFunc(h.handleTwoFactorSetup)))
	mux.Handle("POST /api/auth/2fa/confirm", h.service.RequireAccessToken(http.HandlerFunc(h.handleTwoFactorConfirm)))
	mux.Handle("POST /api/auth/2fa/disable", h.service.RequireAccessToken(http.HandlerFunc(h.handleTwoFactorDisable)))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Login, req.Password)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful, check your email for the verification code.",
		"user":    user,
	})
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.service.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Account verified."})
}

func (h *Handler) handleResendCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.service.ResendVerificationCode(r.Context(), req.Email); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Verification code sent."})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmailOrLogin string `json:"emailOrLogin"`
		Password     string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := h.service.Login(r.Context(), req.EmailOrLogin, req.Password)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if !result.TwoFactorPending {
		h.setRefreshCookie(w, result.RefreshToken)
	}
	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleVerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionToken string `json:"sessionToken"`
		Code         string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := h.service.VerifyTwoFactor(r.Context(), req.SessionToken, req.Code)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.setRefreshCookie(w, result.RefreshToken)
	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Refresh token is required")
		return
	}
	result, err := h.service.Refresh(r.Context(), cookie.Value)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.setRefreshCookie(w, result.RefreshToken)
	h.respondJSON(w, http.StatusOK, map[string]string{"accessToken": result.AccessToken})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, user)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.service.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Password changed."})
}

func (h *Handler) handleTwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	uri, err := h.service.BeginTwoFactorSetup(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"otpUri": uri})
}

func (h *Handler) handleTwoFactorConfirm(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.service.ConfirmTwoFactor(r.Context(), userID, req.Code); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Two-factor auth enabled."})
}

func (h *Handler) handleTwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.service.DisableTwoFactor(r.Context(), userID, req.Code); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Two-factor auth disabled."})
}

func (h *Handler) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	// Unknown addresses get the same answer as known ones.
	err := h.service.RequestPasswordReset(r.Context(), req.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "If the account exists, a reset code has been sent."})
}

func (h *Handler) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.service.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset."})
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     "/api/auth",
		Expires:  time.Now().Add(refreshTokenDuration),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrExpiredToken),
		errors.Is(err, ErrInvalidSession):
		h.respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrUserNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrLoginTaken), errors.Is(err, ErrAlreadyVerified):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrTooManyCodeRequests):
		h.respondError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, ErrUserNotVerified):
		h.respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrInvalidLogin), errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrInvalidCode), errors.Is(err, ErrExpiredCode), errors.Is(err, ErrNoCodeIssued),
		errors.Is(err, ErrTwoFactorEnabled), errors.Is(err, ErrTwoFactorNotEnabled):
		h.respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("unexpected auth error", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": payload}); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": message})
}
