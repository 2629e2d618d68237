package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"devnote/internal/models"
	"devnote/internal/session"
)

// newTestSession creates a session.Data value suitable for testing.
func newTestSession(role models.Role, twoFADone bool) *session.Data {
	return &session.Data{
		UserID:      uuid.New(),
		Email:       "test@devnote.local",
		DisplayName: "Test User",
		Role:        role,
		TwoFADone:   twoFADone,
	}
}

// okHandler is a simple handler that records whether it was invoked.
func okHandler() (http.Handler, *bool) {
	var called bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	return h, &called
}

// fakeLoader returns a fixed session or error.
type fakeLoader struct {
	data *session.Data
	err  error
}

func (f fakeLoader) Get(context.Context, *http.Request) (*session.Data, error) {
	return f.data, f.err
}

func TestSessionFromCtx(t *testing.T) {
	sess := newTestSession(models.RoleAdmin, true)
	if got := SessionFromCtx(WithSession(context.Background(), sess)); got != sess {
		t.Errorf("got %v, want %v", got, sess)
	}
	if got := SessionFromCtx(context.Background()); got != nil {
		t.Errorf("expected nil without session, got %v", got)
	}
}

func TestLoadSession(t *testing.T) {
	tests := []struct {
		name    string
		loader  fakeLoader
		wantNil bool
	}{
		{"session present", fakeLoader{data: newTestSession(models.RoleAuthor, true)}, false},
		{"no session", fakeLoader{}, true},
		{"store error is treated as anonymous", fakeLoader{err: errors.New("valkey down")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *session.Data
			handler := LoadSession(tt.loader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = SessionFromCtx(r.Context())
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			if (got == nil) != tt.wantNil {
				t.Errorf("session nil = %v, want %v", got == nil, tt.wantNil)
			}
		})
	}
}

func TestGuards(t *testing.T) {
	tests := []struct {
		name       string
		guard      func(http.Handler) http.Handler
		sess       *session.Data
		wantStatus int
	}{
		{"auth: anonymous", RequireAuth, nil, http.StatusUnauthorized},
		{"auth: author", RequireAuth, newTestSession(models.RoleAuthor, true), http.StatusOK},
		{"2fa: pending admin", Require2FA, newTestSession(models.RoleAdmin, false), http.StatusForbidden},
		{"2fa: verified admin", Require2FA, newTestSession(models.RoleAdmin, true), http.StatusOK},
		{"2fa: anonymous passes through", Require2FA, nil, http.StatusOK},
		{"admin: anonymous", RequireAdmin, nil, http.StatusForbidden},
		{"admin: author", RequireAdmin, newTestSession(models.RoleAuthor, true), http.StatusForbidden},
		{"admin: admin", RequireAdmin, newTestSession(models.RoleAdmin, true), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, called := okHandler()
			req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
			if tt.sess != nil {
				req = req.WithContext(WithSession(req.Context(), tt.sess))
			}
			rr := httptest.NewRecorder()
			tt.guard(next).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.wantStatus)
			}
			if *called != (tt.wantStatus == http.StatusOK) {
				t.Errorf("next called = %v", *called)
			}
			if tt.wantStatus != http.StatusOK {
				if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type: got %q", ct)
				}
				var body map[string]string
				if err := json.NewDecoder(rr.Body).Decode(&body); err != nil || body["error"] == "" {
					t.Errorf("expected JSON error body, got %v (%v)", body, err)
				}
			}
		})
	}
}
