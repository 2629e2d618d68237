package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"devnote/internal/models"
	"devnote/internal/session"
)

const testPassword = "correct horse battery"

type authEnv struct {
	users    *fakeUsers
	sessions *fakeSessions
	h        *Auth
}

func newAuthEnv() *authEnv {
	env := &authEnv{users: newFakeUsers(), sessions: &fakeSessions{}}
	env.h = NewAuth(env.sessions, env.users)
	return env
}

func (env *authEnv) addUser(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	u, err := env.users.Create(context.Background(), email, testPassword, "Someone", role)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// sessionFor returns the session a successful login for u would carry.
func sessionFor(u *models.User, twoFADone bool) *session.Data {
	return &session.Data{UserID: u.ID, Email: u.Email, Role: u.Role, TwoFADone: twoFADone}
}

func TestRegister(t *testing.T) {
	env := newAuthEnv()

	body := map[string]string{"email": "  Ada@Example.com ", "password": testPassword, "display_name": "Ada"}
	rec := httptest.NewRecorder()
	env.h.Register(rec, newJSONRequest(t, http.MethodPost, "/api/auth/register", body, nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status code: got %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	resp := decodeResponse[authResponse](t, rec)
	if resp.User.Email != "ada@example.com" || resp.User.Role != models.RoleAuthor {
		t.Errorf("user: got %+v", resp.User)
	}
	if resp.TwoFARequired || resp.TwoFASetupNeeded {
		t.Error("authors must not be asked for 2FA")
	}

	if len(env.sessions.created) != 1 || !env.sessions.created[0].TwoFADone {
		t.Fatalf("sessions: got %+v", env.sessions.created)
	}
	if c := rec.Result().Cookies(); len(c) != 1 || c[0].Name != session.CookieName {
		t.Errorf("cookies: got %v", c)
	}
}

func TestRegister_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]string
		want    int
		wantErr string
	}{
		{"duplicate email", map[string]string{"email": "taken@example.com", "password": testPassword, "display_name": "X"}, http.StatusConflict, "email already registered"},
		{"duplicate email any case", map[string]string{"email": "TAKEN@example.com", "password": testPassword, "display_name": "X"}, http.StatusConflict, "email already registered"},
		{"bad email", map[string]string{"email": "nope", "password": testPassword, "display_name": "X"}, http.StatusBadRequest, "email must be a valid email address"},
		{"short password", map[string]string{"email": "a@example.com", "password": "short", "display_name": "X"}, http.StatusBadRequest, "password is too short (min 8 characters)"},
		{"blank name", map[string]string{"email": "a@example.com", "password": testPassword, "display_name": " "}, http.StatusBadRequest, "display_name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newAuthEnv()
			env.addUser(t, "taken@example.com", models.RoleAuthor)

			rec := httptest.NewRecorder()
			env.h.Register(rec, newJSONRequest(t, http.MethodPost, "/api/auth/register", tt.body, nil))

			if rec.Code != tt.want {
				t.Fatalf("status code: got %d, want %d", rec.Code, tt.want)
			}
			if got := decodeResponse[errorResponse](t, rec).Error; got != tt.wantErr {
				t.Errorf("error: got %q, want %q", got, tt.wantErr)
			}
			if len(env.sessions.created) != 0 {
				t.Error("session created for a failed registration")
			}
		})
	}
}

func TestLogin(t *testing.T) {
	env := newAuthEnv()
	env.addUser(t, "author@example.com", models.RoleAuthor)
	env.addUser(t, "admin@example.com", models.RoleAdmin)

	tests := []struct {
		name          string
		email         string
		password      string
		want          int
		wantTwoFADone bool
		wantSetup     bool
	}{
		{"author", "author@example.com", testPassword, http.StatusOK, true, false},
		{"admin without totp", "Admin@Example.com", testPassword, http.StatusOK, false, true},
		{"wrong password", "author@example.com", "wrong password", http.StatusUnauthorized, false, false},
		{"unknown email", "ghost@example.com", testPassword, http.StatusUnauthorized, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.sessions.created = nil
			body := map[string]string{"email": tt.email, "password": tt.password}
			rec := httptest.NewRecorder()
			env.h.Login(rec, newJSONRequest(t, http.MethodPost, "/api/auth/login", body, nil))

			if rec.Code != tt.want {
				t.Fatalf("status code: got %d, want %d", rec.Code, tt.want)
			}
			if tt.want != http.StatusOK {
				if got := decodeResponse[errorResponse](t, rec).Error; got != "invalid email or password" {
					t.Errorf("error: got %q", got)
				}
				if len(env.sessions.created) != 0 {
					t.Error("session created for a failed login")
				}
				return
			}

			resp := decodeResponse[authResponse](t, rec)
			if resp.TwoFARequired == tt.wantTwoFADone || resp.TwoFASetupNeeded != tt.wantSetup {
				t.Errorf("2fa flags: required %v setup %v", resp.TwoFARequired, resp.TwoFASetupNeeded)
			}
			if got := env.sessions.created[0].TwoFADone; got != tt.wantTwoFADone {
				t.Errorf("session TwoFADone: got %v, want %v", got, tt.wantTwoFADone)
			}
		})
	}
}

func TestLogin_SessionFailure(t *testing.T) {
	env := newAuthEnv()
	env.addUser(t, "author@example.com", models.RoleAuthor)
	env.sessions.err = errFake

	body := map[string]string{"email": "author@example.com", "password": testPassword}
	rec := httptest.NewRecorder()
	env.h.Login(rec, newJSONRequest(t, http.MethodPost, "/api/auth/login", body, nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status code: got %d, want 500", rec.Code)
	}
}

func TestLogoutAndMe(t *testing.T) {
	env := newAuthEnv()
	u := env.addUser(t, "author@example.com", models.RoleAuthor)

	rec := httptest.NewRecorder()
	env.h.Me(rec, newJSONRequest(t, http.MethodGet, "/api/auth/me", nil, sessionFor(u, true)))
	if rec.Code != http.StatusOK {
		t.Fatalf("me: got %d", rec.Code)
	}
	me := decodeResponse[meResponse](t, rec)
	if me.User.ID != u.ID || !me.TwoFADone {
		t.Errorf("me: got %+v", me)
	}

	rec = httptest.NewRecorder()
	env.h.Logout(rec, newJSONRequest(t, http.MethodPost, "/api/auth/logout", nil, sessionFor(u, true)))
	if rec.Code != http.StatusNoContent || env.sessions.destroyed != 1 {
		t.Errorf("logout: got %d, destroyed %d", rec.Code, env.sessions.destroyed)
	}
}

func TestMe_DeletedUser(t *testing.T) {
	env := newAuthEnv()
	gone := &models.User{Email: "gone@example.com", Role: models.RoleAuthor}

	rec := httptest.NewRecorder()
	env.h.Me(rec, newJSONRequest(t, http.MethodGet, "/api/auth/me", nil, sessionFor(gone, true)))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status code: got %d, want 401", rec.Code)
	}
}

func TestTwoFAEnrollment(t *testing.T) {
	env := newAuthEnv()
	admin := env.addUser(t, "admin@example.com", models.RoleAdmin)
	sess := sessionFor(admin, false)

	rec := httptest.NewRecorder()
	env.h.TwoFASetup(rec, newJSONRequest(t, http.MethodGet, "/api/auth/2fa/setup", nil, sess))
	if rec.Code != http.StatusOK {
		t.Fatalf("setup: got %d (%s)", rec.Code, rec.Body.String())
	}
	setup := decodeResponse[setupResponse](t, rec)
	if setup.Secret == "" || setup.OTPAuthURL == "" {
		t.Fatalf("setup: got %+v", setup)
	}
	png, err := base64.StdEncoding.DecodeString(setup.QRCodePNG)
	if err != nil || len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Errorf("qr code is not a base64 PNG (err %v)", err)
	}

	t.Run("wrong code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.h.TwoFAVerify(rec, newJSONRequest(t, http.MethodPost, "/api/auth/2fa/verify", map[string]string{"code": "000000"}, sess))
		// A random secret yielding 000000 in the current window is possible but
		// vanishingly unlikely.
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status code: got %d, want 401", rec.Code)
		}
	})

	t.Run("malformed code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.h.TwoFAVerify(rec, newJSONRequest(t, http.MethodPost, "/api/auth/2fa/verify", map[string]string{"code": "12ab"}, sess))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status code: got %d, want 400", rec.Code)
		}
	})

	t.Run("valid code", func(t *testing.T) {
		code, err := totp.GenerateCode(setup.Secret, time.Now())
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		rec := httptest.NewRecorder()
		env.h.TwoFAVerify(rec, newJSONRequest(t, http.MethodPost, "/api/auth/2fa/verify", map[string]string{"code": code}, sess))
		if rec.Code != http.StatusOK {
			t.Fatalf("status code: got %d (%s)", rec.Code, rec.Body.String())
		}

		stored, _ := env.users.FindByID(context.Background(), admin.ID)
		if !stored.TOTPEnabled {
			t.Error("TOTP not enabled after first valid code")
		}
		if len(env.sessions.updated) != 1 || !env.sessions.updated[0].TwoFADone {
			t.Errorf("session updates: got %+v", env.sessions.updated)
		}
	})

	t.Run("setup again is refused", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.h.TwoFASetup(rec, newJSONRequest(t, http.MethodGet, "/api/auth/2fa/setup", nil, sess))
		if rec.Code != http.StatusConflict {
			t.Errorf("status code: got %d, want 409", rec.Code)
		}
	})
}

func TestTwoFAVerify_WithoutSetup(t *testing.T) {
	env := newAuthEnv()
	admin := env.addUser(t, "admin@example.com", models.RoleAdmin)

	rec := httptest.NewRecorder()
	env.h.TwoFAVerify(rec, newJSONRequest(t, http.MethodPost, "/api/auth/2fa/verify", map[string]string{"code": "123456"}, sessionFor(admin, false)))

	if rec.Code != http.StatusConflict {
		t.Errorf("status code: got %d, want 409", rec.Code)
	}
	if len(env.sessions.updated) != 0 {
		t.Error("session updated without a TOTP secret")
	}
}
