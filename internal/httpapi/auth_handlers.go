package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/polyclinic/scheduler/internal/audit"
	"github.com/polyclinic/scheduler/internal/auth"
	"github.com/polyclinic/scheduler/internal/clinic"
	"github.com/polyclinic/scheduler/internal/obs"
)

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// handleToken exchanges a username/password form for a bearer token.
func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid form body")
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	key := clientIP(r) + "|" + strings.ToLower(username)
	if a.loginLimiter != nil {
		if ok, wait := a.loginLimiter.Allow(key); !ok {
			obs.AuthEvent("login", "throttled")
			tooManyRequests(w, r, wait)
			return
		}
	}

	token, identity, err := a.auth.Login(r.Context(), username, password)
	if err != nil {
		obs.AuthEvent("login", "failure")
		_ = audit.LogEvent(r.Context(), audit.LoginFailed, map[string]any{
			"username": username,
			"reason":   err.Error(),
		})
		handleAuthError(w, r, err)
		return
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Reset(key)
	}

	obs.AuthEvent("login", "success")
	_ = audit.LogEvent(r.Context(), audit.LoginSucceeded, map[string]any{
		"user_id": identity.ID.String(),
		"role":    identity.Role.String(),
	})

	writeJSON(w, http.StatusOK, token)
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req clinic.UserInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.clinic.Register(r.Context(), req)
	if err != nil {
		handleClinicError(w, r, err, "user")
		return
	}
	_ = audit.LogEvent(r.Context(), audit.UserCreated, map[string]any{
		"id":     user.ID.String(),
		"role":   user.Role.String(),
		"source": "register",
	})
	w.Header().Set("Location", "/v1/users/"+user.ID.String())
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		writeError(w, r, http.StatusBadRequest, "email: is required")
		return
	}
	if a.resetLimiter != nil {
		if ok, wait := a.resetLimiter.Allow(email); !ok {
			obs.AuthEvent("password_reset_request", "throttled")
			tooManyRequests(w, r, wait)
			return
		}
	}

	if err := a.auth.RequestPasswordReset(r.Context(), email); err != nil {
		obs.AuthEvent("password_reset_request", "failure")
		handleAuthError(w, r, err)
		return
	}
	obs.AuthEvent("password_reset_request", "success")
	_ = audit.LogEvent(r.Context(), audit.ResetRequested, map[string]any{"email": email})
	writeJSON(w, http.StatusOK, messageResponse{Message: "Reset link sent"})
}

func (a *API) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resetConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, r, http.StatusBadRequest, msgInvalidResetToken)
		return
	}

	if err := a.auth.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		outcome := "failure"
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrTokenExpired) {
			outcome = "rejected"
		}
		obs.AuthEvent("password_reset_confirm", outcome)
		handleAuthError(w, r, err)
		return
	}
	obs.AuthEvent("password_reset_confirm", "success")
	_ = audit.LogEvent(r.Context(), audit.ResetCompleted, nil)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password updated successfully"})
}
