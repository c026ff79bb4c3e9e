package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"alpine_stay/internal/domain"
)

// LoginAttempts is the per-session attempt budget. It resets only on
// logout, never on a successful login.
const LoginAttempts = 3

// Session is the access-control state for one actor. It is an explicit
// value handed to each operation; there is no process-wide current user.
// One session may be shared by concurrent requests, so all state sits
// behind the mutex; login attempts on the same session serialize.
type Session struct {
	store domain.Store

	mu       sync.Mutex
	attempts int
	login    *domain.Login
	guestID  *int64
}

func NewSession(s domain.Store) *Session {
	return &Session{store: s, attempts: LoginAttempts}
}

func (s *Session) AttemptsLeft() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login != nil
}

// CurrentLogin returns a copy of the authenticated login, or nil.
func (s *Session) CurrentLogin() *domain.Login {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.login == nil {
		return nil
	}
	cp := *s.login
	return &cp
}

// GuestID returns the guest row bound to the authenticated login, or nil.
func (s *Session) GuestID() *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guestID == nil {
		return nil
	}
	id := *s.guestID
	return &id
}

// IsAdmin reports whether the session is authenticated as administrator.
func (s *Session) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login != nil && s.login.Role.Name == domain.RoleAdministrator
}

// Login consumes one attempt before checking credentials. An exhausted
// budget fails regardless of credential correctness, and a session that
// is already authenticated cannot re-login without logging out first.
func (s *Session) Login(ctx context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempts <= 0 {
		return domain.ErrNoAttemptsLeft
	}
	s.attempts--

	login, err := s.store.GetLogin(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidCredentials
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(login.PasswordHash), []byte(password)) != nil {
		return domain.ErrInvalidCredentials
	}
	if s.login != nil {
		return domain.ErrAlreadyAuthenticated
	}

	s.login = &login
	if guest, err := s.store.GetGuestOfLogin(ctx, login.ID); err == nil {
		s.guestID = &guest.ID
	}
	return nil
}

// Logout clears the identity and restores the full attempt budget.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.login = nil
	s.guestID = nil
	s.attempts = LoginAttempts
}

// Register creates Login, Guest and Address in one transaction. A taken
// username surfaces as ErrDuplicateUsername, with nothing inserted.
func (s *Session) Register(ctx context.Context, creds domain.Credentials, profile domain.GuestProfile) (int64, error) {
	if strings.TrimSpace(creds.Username) == "" {
		return 0, domain.Invalid("username", creds.Username, "must not be empty")
	}
	if len(creds.Password) < 8 {
		return 0, domain.Invalid("password", "", "must be at least 8 characters")
	}
	if err := profile.Validate(); err != nil {
		return 0, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	return s.store.Register(ctx, creds.Username, string(hash), domain.RoleRegisteredUser, profile)
}
