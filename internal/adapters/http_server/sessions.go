package httpserver

import (
	crand "crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"alpine_stay/internal/app"
	"alpine_stay/internal/domain"
)

// sessionIdleTTL is how long a token survives without being used.
// Abandoned tokens (failed logins included) expire instead of growing
// the registry without bound.
const sessionIdleTTL = 30 * time.Minute

type sessionEntry struct {
	sess    *app.Session
	expires time.Time
}

// SessionRegistry maps bearer tokens to access-control sessions. Each
// token carries its own attempt budget and identity; there is no
// process-wide current user. Every access refreshes the token's idle
// deadline; expired entries are swept whenever a session is minted.
type SessionRegistry struct {
	mu    sync.Mutex
	store domain.Store
	byTok map[string]*sessionEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewSessionRegistry(store domain.Store) *SessionRegistry {
	return &SessionRegistry{
		store: store,
		byTok: make(map[string]*sessionEntry),
		ttl:   sessionIdleTTL,
		now:   time.Now,
	}
}

// Get returns the session for a token, or nil for unknown or expired
// tokens.
func (r *SessionRegistry) Get(token string) *app.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byTok[token]
	if !ok {
		return nil
	}
	if r.now().After(e.expires) {
		delete(r.byTok, token)
		return nil
	}
	e.expires = r.now().Add(r.ttl)
	return e.sess
}

// GetOrCreate reuses the session behind a known token so failed login
// attempts accumulate; an unknown, expired or empty token gets a fresh
// session under a fresh token.
func (r *SessionRegistry) GetOrCreate(token string) (string, *app.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byTok[token]; ok && r.now().Before(e.expires) {
		e.expires = r.now().Add(r.ttl)
		return token, e.sess
	}
	r.sweep()
	tok := newToken()
	r.byTok[tok] = &sessionEntry{sess: app.NewSession(r.store), expires: r.now().Add(r.ttl)}
	return tok, r.byTok[tok].sess
}

func (r *SessionRegistry) Drop(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byTok, token)
}

// sweep removes expired entries. Called with the lock held, only on the
// minting path, which is the only way the map grows.
func (r *SessionRegistry) sweep() {
	now := r.now()
	for tok, e := range r.byTok {
		if now.After(e.expires) {
			delete(r.byTok, tok)
		}
	}
}

func newToken() string {
	var b [16]byte
	_, _ = crand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
