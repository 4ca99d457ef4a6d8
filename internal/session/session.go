// Package session resolves "who is acting" from bearer tokens and lets other
// components react to sign-in/sign-out transitions. The identity provider is
// opaque to the rest of the service: everything downstream sees only user id
// strings.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, expired or unsigned tokens.
var ErrInvalidToken = errors.New("invalid token")

type ctxKey struct{}

// WithUserID stores the authenticated user id on the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Verifier validates HS256 bearer tokens and extracts the subject user id.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier over a shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify returns the user id carried in the token's sub claim.
func (v *Verifier) Verify(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// Sign issues a token for the user id. Used by tests and local tooling; in
// production tokens come from the identity provider sharing the secret.
func (v *Verifier) Sign(userID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// ChangeListener observes auth-state transitions. signedIn is true on
// sign-in and false on sign-out.
type ChangeListener func(userID string, signedIn bool)

// Sessions tracks auth-state transitions and notifies listeners.
type Sessions struct {
	mu        sync.RWMutex
	listeners []ChangeListener
}

// NewSessions creates an empty listener registry.
func NewSessions() *Sessions {
	return &Sessions{}
}

// OnChange registers a listener for future auth-state transitions.
func (s *Sessions) OnChange(l ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// SignedIn notifies listeners that the user signed in.
func (s *Sessions) SignedIn(userID string) { s.notify(userID, true) }

// SignedOut notifies listeners that the user signed out.
func (s *Sessions) SignedOut(userID string) { s.notify(userID, false) }

func (s *Sessions) notify(userID string, signedIn bool) {
	s.mu.RLock()
	listeners := make([]ChangeListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l(userID, signedIn)
	}
}
