package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"sync"

	"github.com/cotovideo/client/logging"
	"github.com/cotovideo/client/models"
	"github.com/cotovideo/client/transport"
)

const minPasswordLength = 6

// Store owns the process-wide authenticated identity: at most one session is current
// at a time. All auth endpoint traffic goes through it; feed state is never touched.
type Store struct {
	authURL string
	tr      *transport.Client
	slot    Slot
	logger  *slog.Logger

	mu      sync.RWMutex
	current models.Session
	active  bool
}

// NewStore constructs a Store talking to the given auth endpoint and persisting
// through the provided slot.
func NewStore(authURL string, tr *transport.Client, slot Slot, logger *slog.Logger) *Store {
	if slot == nil {
		panic("session: slot must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{authURL: authURL, tr: tr, slot: slot, logger: logger}
}

type authRequest struct {
	Action   string `json:"action"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`
}

type authResponse struct {
	User    models.User `json:"user"`
	Token   string      `json:"token"`
	Message string      `json:"message"`
}

// Restore loads the persisted session at startup. A missing or malformed slot leaves
// the session empty; Restore never fails.
func (s *Store) Restore(ctx context.Context) {
	stored, err := s.slot.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			s.logger.Warn("discarding unreadable persisted session", "error", err)
		}
		return
	}
	if stored.Empty() {
		return
	}

	s.mu.Lock()
	s.current = stored
	s.active = true
	s.mu.Unlock()
}

// Login authenticates with the auth endpoint and, on success, persists the session
// and makes it current. Failures leave existing session state untouched.
func (s *Store) Login(ctx context.Context, email, password string) (models.User, error) {
	ctx, op := logging.StartOp(ctx, "session.login")

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		err := ErrInvalidCredentials
		op.End(err)
		return models.User{}, err
	}

	var resp authResponse
	err := s.tr.PostJSON(ctx, s.authURL, authRequest{Action: "login", Email: email, Password: password}, &resp, nil)
	if err != nil {
		err = mapAuthError(err)
		op.End(err)
		return models.User{}, err
	}

	s.adopt(ctx, models.Session{User: resp.User, Token: resp.Token})
	op.End(nil)
	return resp.User, nil
}

// Register creates an account and establishes the resulting session, mirroring Login.
func (s *Store) Register(ctx context.Context, email, password, username string) (models.User, error) {
	ctx, op := logging.StartOp(ctx, "session.register")

	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		op.End(ErrInvalidEmail)
		return models.User{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		op.End(ErrPasswordTooShort)
		return models.User{}, ErrPasswordTooShort
	}
	if strings.TrimSpace(username) == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}

	var resp authResponse
	err := s.tr.PostJSON(ctx, s.authURL, authRequest{Action: "register", Email: email, Password: password, Username: username}, &resp, nil)
	if err != nil {
		err = mapAuthError(err)
		op.End(err)
		return models.User{}, err
	}

	s.adopt(ctx, models.Session{User: resp.User, Token: resp.Token})
	op.End(nil)
	return resp.User, nil
}

// RequestPasswordReset asks the server to send a reset link and returns its message.
func (s *Store) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}

	var resp authResponse
	if err := s.tr.PostJSON(ctx, s.authURL, authRequest{Action: "reset_request", Email: email}, &resp, nil); err != nil {
		return "", mapAuthError(err)
	}
	return resp.Message, nil
}

// ConfirmPasswordReset exchanges a reset token for a new password. The local checks
// run before any network call: the new password must meet the minimum length and
// match the confirmation value collected by the caller.
func (s *Store) ConfirmPasswordReset(ctx context.Context, token, password, confirm string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrPasswordTooShort
	}
	if password != confirm {
		return "", ErrPasswordMismatch
	}

	var resp authResponse
	err := s.tr.PostJSON(ctx, s.authURL, authRequest{Action: "reset_confirm", Token: token, Password: password}, &resp, nil)
	if err != nil {
		if transport.IsAPIStatus(err, http.StatusBadRequest) || transport.IsAPIStatus(err, http.StatusUnauthorized) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	return resp.Message, nil
}

// Logout clears the in-memory and persisted session unconditionally. It is idempotent;
// slot failures are logged, never returned.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.current = models.Session{}
	s.active = false
	s.mu.Unlock()

	if err := s.slot.Clear(ctx); err != nil {
		s.logger.Warn("clearing persisted session failed", "error", err)
	}
}

// Current returns the active session, if any.
func (s *Store) Current() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.active
}

// CurrentUser returns the authenticated user, if any.
func (s *Store) CurrentUser() (models.User, bool) {
	session, ok := s.Current()
	return session.User, ok
}

// InvalidateToken drops the session after the server signalled the stored token is no
// longer honoured.
func (s *Store) InvalidateToken(ctx context.Context) {
	s.logger.Warn("stored token rejected by server, clearing session")
	s.Logout(ctx)
}

func (s *Store) adopt(ctx context.Context, session models.Session) {
	s.mu.Lock()
	s.current = session
	s.active = true
	s.mu.Unlock()

	if err := s.slot.Save(ctx, session); err != nil {
		s.logger.Warn("persisting session failed", "error", err, "userId", session.User.ID)
	}
}

func mapAuthError(err error) error {
	switch {
	case transport.IsAPIStatus(err, http.StatusUnauthorized):
		return ErrInvalidCredentials
	case transport.IsAPIStatus(err, http.StatusConflict):
		return ErrEmailTaken
	default:
		return err
	}
}
