// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"devnote/internal/middleware"
	"devnote/internal/models"
	"devnote/internal/session"
)

// totpIssuer is shown in authenticator apps next to the account name.
const totpIssuer = "DevNote"

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	sessions SessionManager
	users    UserRepository
}

// NewAuth creates a new Auth handler group.
func NewAuth(sessions SessionManager, users UserRepository) *Auth {
	return &Auth{
		sessions: sessions,
		users:    users,
	}
}

// authResponse describes the signed-in user and what is left to do before
// the session is fully authenticated.
type authResponse struct {
	User             *models.User `json:"user"`
	TwoFARequired    bool         `json:"two_fa_required"`
	TwoFASetupNeeded bool         `json:"two_fa_setup_needed"`
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"notblank,max=100"`
}

// Register handles POST /api/auth/register. New accounts are authors and
// are signed in immediately.
func (a *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !bind(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := a.users.FindByEmail(r.Context(), email)
	if err != nil {
		slog.Error("register lookup failed", "error", err)
		writeInternal(w)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	user, err := a.users.Create(r.Context(), email, req.Password, strings.TrimSpace(req.DisplayName), models.RoleAuthor)
	if err != nil {
		slog.Error("create user failed", "error", err)
		writeInternal(w)
		return
	}

	if !a.startSession(w, r, user) {
		return
	}
	slog.Info("user registered", "user_id", user.ID)

	writeJSON(w, http.StatusCreated, authResponse{User: user})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/auth/login. Admin sessions start with 2FA
// pending; the client follows up with the 2FA endpoints.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := a.users.FindByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		writeInternal(w)
		return
	}
	if user == nil || !a.users.CheckPassword(user, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if !a.startSession(w, r, user) {
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		User:             user,
		TwoFARequired:    user.Needs2FA(),
		TwoFASetupNeeded: user.Needs2FASetup(),
	})
}

func (a *Auth) startSession(w http.ResponseWriter, r *http.Request, user *models.User) bool {
	_, err := a.sessions.Create(r.Context(), w, &session.Data{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		TwoFADone:   !user.Needs2FA(),
	})
	if err != nil {
		slog.Error("session create failed", "error", err)
		writeInternal(w)
		return false
	}
	return true
}

// Logout handles POST /api/auth/logout.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// meResponse is the current session as seen by the client.
type meResponse struct {
	User      *models.User `json:"user"`
	TwoFADone bool         `json:"two_fa_done"`
}

// Me handles GET /api/auth/me.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	user, err := a.users.FindByID(r.Context(), sess.UserID)
	if err != nil {
		slog.Error("user lookup failed", "error", err)
		writeInternal(w)
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: user, TwoFADone: sess.TwoFADone})
}

// setupResponse carries a fresh TOTP secret and its QR code.
type setupResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	QRCodePNG  string `json:"qr_code_png"` // base64
}

// TwoFASetup handles GET /api/auth/2fa/setup. It generates and stores a
// new TOTP secret. Accounts with TOTP already enabled get a 409.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	user, err := a.users.FindByID(r.Context(), sess.UserID)
	if err != nil || user == nil {
		slog.Error("user lookup for 2fa failed", "error", err)
		writeInternal(w)
		return
	}
	if user.TOTPEnabled {
		writeError(w, http.StatusConflict, "two-factor authentication already enabled")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		slog.Error("totp generate failed", "error", err)
		writeInternal(w)
		return
	}

	if err := a.users.SetTOTPSecret(r.Context(), user.ID, key.Secret()); err != nil {
		slog.Error("save totp secret failed", "error", err)
		writeInternal(w)
		return
	}

	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, setupResponse{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		QRCodePNG:  base64.StdEncoding.EncodeToString(qrPNG),
	})
}

type verifyRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// TwoFAVerify handles POST /api/auth/2fa/verify. A valid code completes
// the session and, on first use, enables TOTP for the account.
func (a *Auth) TwoFAVerify(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req verifyRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := a.users.FindByID(r.Context(), sess.UserID)
	if err != nil || user == nil {
		slog.Error("user lookup for 2fa failed", "error", err)
		writeInternal(w)
		return
	}
	if user.TOTPSecret == nil {
		writeError(w, http.StatusConflict, "two-factor setup required")
		return
	}

	if !totp.Validate(req.Code, *user.TOTPSecret) {
		writeError(w, http.StatusUnauthorized, "invalid code")
		return
	}

	if !user.TOTPEnabled {
		if err := a.users.EnableTOTP(r.Context(), user.ID); err != nil {
			slog.Error("enable totp failed", "error", err)
			writeInternal(w)
			return
		}
	}

	sess.TwoFADone = true
	if err := a.sessions.Update(r.Context(), r, sess); err != nil {
		slog.Error("session update failed", "error", err)
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"two_fa_done": true})
}
