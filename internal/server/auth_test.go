package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/studygen/studygen/internal/batch"
)

type fakeUserStore struct {
	users map[string]string // email -> password hash
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]string{}}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, email, passwordHash string) error {
	if _, ok := f.users[email]; ok {
		return &pq.Error{Code: "23505"}
	}
	f.users[email] = passwordHash
	return nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (string, string, error) {
	hash, ok := f.users[email]
	if !ok {
		return "", "", context.Canceled
	}
	return "user-" + email, hash, nil
}

func newAuthServer(users *fakeUserStore) *Server {
	auth := &AuthHandler{Store: users, Secret: []byte("test-secret")}
	return New(&fakeStatusStore{}, auth, nil, nil, nil, nil, batch.DefaultConfig(), testLogger())
}

func TestSignupLoginFlow(t *testing.T) {
	users := newFakeUserStore()
	e := newAuthServer(users).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup",
		strings.NewReader(`{"email":"a@b.com","password":"longenough"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup = %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"a@b.com","password":"longenough"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rec.Code, rec.Body.String())
	}
	var tok TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tok.Token == "" {
		t.Fatal("expected token in body")
	}
	foundCookie := false
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "auth" && ck.Value == tok.Token && ck.HttpOnly {
			foundCookie = true
		}
	}
	if !foundCookie {
		t.Fatal("expected HttpOnly auth cookie")
	}

	// Token opens the protected API.
	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authed status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	users := newFakeUserStore()
	users.users["a@b.com"] = "hash"
	e := newAuthServer(users).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup",
		strings.NewReader(`{"email":"a@b.com","password":"longenough"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup = %d", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	users := newFakeUserStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("rightpassword"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	users.users["a@b.com"] = string(hash)
	e := newAuthServer(users).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"a@b.com","password":"wrongpassword"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d", rec.Code)
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	e := newAuthServer(newFakeUserStore()).Router()

	for _, path := range []string{"/api/status", "/api/needs", "/api/runs"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token = %d, want 401", path, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token = %d, want 401", rec.Code)
	}
}

func TestAuthCookieAccepted(t *testing.T) {
	e := newAuthServer(newFakeUserStore()).Router()

	signed, err := SignJWT("user-1", []byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.AddCookie(&http.Cookie{Name: "auth", Value: signed})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cookie auth = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	e := newAuthServer(newFakeUserStore()).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout = %d", rec.Code)
	}
	cleared := false
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "auth" && ck.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected auth cookie cleared")
	}
}
