package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cotovideo/client/models"
	"github.com/cotovideo/client/transport"
)

// fakeAuth implements just enough of the auth endpoint for the store tests.
type fakeAuth struct {
	users    map[string]models.User
	password map[string]string
	nextID   int64
	requests atomic.Int64
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		users:    make(map[string]models.User),
		password: make(map[string]string),
		nextID:   1,
	}
}

func (f *fakeAuth) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)

		var req struct {
			Action   string `json:"action"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Username string `json:"username"`
			Token    string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad request"})
			return
		}

		switch req.Action {
		case "register":
			if _, exists := f.users[req.Email]; exists {
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "email already registered"})
				return
			}
			user := models.User{ID: f.nextID, Email: req.Email, Username: req.Username}
			f.nextID++
			f.users[req.Email] = user
			f.password[req.Email] = req.Password
			_ = json.NewEncoder(w).Encode(map[string]any{"user": user, "token": "token-" + req.Email})
		case "login":
			user, ok := f.users[req.Email]
			if !ok || f.password[req.Email] != req.Password {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid email or password"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"user": user, "token": "token-" + req.Email})
		case "reset_request":
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "reset link sent"})
		case "reset_confirm":
			if req.Token != "tok123" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid token"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "password updated"})
		default:
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown action"})
		}
	}
}

func newTestStore(t *testing.T, auth *fakeAuth) (*Store, *MemorySlot) {
	t.Helper()
	srv := httptest.NewServer(auth.handler())
	t.Cleanup(srv.Close)

	slot := NewMemorySlot()
	store := NewStore(srv.URL, transport.New(time.Second, nil), slot, nil)
	return store, slot
}

func TestRegisterThenLogin(t *testing.T) {
	store, slot := newTestStore(t, newFakeAuth())
	ctx := context.Background()

	registered, err := store.Register(ctx, "a@b.com", "secret", "alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.ID == 0 {
		t.Fatalf("expected server-assigned id, got %+v", registered)
	}
	if !slot.Has() {
		t.Fatal("expected session persisted after register")
	}

	loggedIn, err := store.Login(ctx, "a@b.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.ID != registered.ID {
		t.Fatalf("expected same user id, register=%d login=%d", registered.ID, loggedIn.ID)
	}

	session, ok := store.Current()
	if !ok || session.User.ID != registered.ID || session.Token == "" {
		t.Fatalf("unexpected current session: %+v ok=%v", session, ok)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	auth := newFakeAuth()
	store, slot := newTestStore(t, auth)
	ctx := context.Background()

	if _, err := store.Login(ctx, "ghost@b.com", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials got %v", err)
	}
	if _, ok := store.Current(); ok {
		t.Fatal("failed login must not establish a session")
	}
	if slot.Has() {
		t.Fatal("failed login must not persist a session")
	}
}

func TestRegisterDuplicateEmailKeepsSession(t *testing.T) {
	store, _ := newTestStore(t, newFakeAuth())
	ctx := context.Background()

	first, err := store.Register(ctx, "a@b.com", "secret", "alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := store.Register(ctx, "a@b.com", "secret2", "impostor"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken got %v", err)
	}

	session, ok := store.Current()
	if !ok || session.User.ID != first.ID {
		t.Fatalf("duplicate registration must not change the session: %+v ok=%v", session, ok)
	}
}

func TestRegisterLocalValidation(t *testing.T) {
	auth := newFakeAuth()
	store, _ := newTestStore(t, auth)
	ctx := context.Background()

	if _, err := store.Register(ctx, "not-an-email", "secret", ""); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail got %v", err)
	}
	if _, err := store.Register(ctx, "a@b.com", "short", ""); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort got %v", err)
	}
	if got := auth.requests.Load(); got != 0 {
		t.Fatalf("local validation must not hit the network, saw %d requests", got)
	}
}

func TestConfirmPasswordResetValidation(t *testing.T) {
	auth := newFakeAuth()
	store, _ := newTestStore(t, auth)
	ctx := context.Background()

	if _, err := store.ConfirmPasswordReset(ctx, "tok123", "abcdef", "abcdeX"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch got %v", err)
	}
	if _, err := store.ConfirmPasswordReset(ctx, "tok123", "abc", "abc"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort got %v", err)
	}
	if got := auth.requests.Load(); got != 0 {
		t.Fatalf("validation failures must not hit the network, saw %d requests", got)
	}
}

func TestConfirmPasswordReset(t *testing.T) {
	store, _ := newTestStore(t, newFakeAuth())
	ctx := context.Background()

	message, err := store.ConfirmPasswordReset(ctx, "tok123", "abcdef", "abcdef")
	if err != nil {
		t.Fatalf("confirm reset: %v", err)
	}
	if message == "" {
		t.Fatal("expected a server message")
	}

	if _, err := store.ConfirmPasswordReset(ctx, "bogus", "abcdef", "abcdef"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}
}

func TestRequestPasswordReset(t *testing.T) {
	store, _ := newTestStore(t, newFakeAuth())

	message, err := store.RequestPasswordReset(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if message != "reset link sent" {
		t.Fatalf("unexpected message %q", message)
	}

	if _, err := store.RequestPasswordReset(context.Background(), "nope"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail got %v", err)
	}
}

func TestRestore(t *testing.T) {
	slot := NewMemorySlot()
	saved := models.Session{User: models.User{ID: 7, Email: "a@b.com"}, Token: "tok"}
	if err := slot.Save(context.Background(), saved); err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	store := NewStore("http://unused", transport.New(time.Second, nil), slot, nil)
	store.Restore(context.Background())

	session, ok := store.Current()
	if !ok || session.User.ID != 7 {
		t.Fatalf("expected restored session, got %+v ok=%v", session, ok)
	}
}

func TestRestoreMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	store := NewStore("http://unused", transport.New(time.Second, nil), NewFileSlot(path), nil)
	store.Restore(context.Background())

	if _, ok := store.Current(); ok {
		t.Fatal("malformed persisted session must restore as signed out")
	}
}

func TestLogoutIdempotent(t *testing.T) {
	store, slot := newTestStore(t, newFakeAuth())
	ctx := context.Background()

	if _, err := store.Register(ctx, "a@b.com", "secret", "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	store.Logout(ctx)
	store.Logout(ctx)

	if _, ok := store.Current(); ok {
		t.Fatal("expected signed out state")
	}
	if slot.Has() {
		t.Fatal("expected persisted session cleared")
	}
}
