// Package session owns the console's persisted client-side state: the bearer
// token, the signed-in user and the rotation of already shown quotes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"academydesk/internal/dispatch"
)

const (
	keyToken       = "auth.token"
	keyUserID      = "auth.user_id"
	keyEmail       = "auth.email"
	keyRoles       = "auth.roles"
	keyShownQuotes = "quotes.shown"
)

// ErrNoCredential is the interpreter's "not signed in" sentinel, so a Session
// can be handed to it as its Credentials.
var ErrNoCredential = dispatch.ErrNoCredential

// Profile is the signed-in user as remembered locally.
type Profile struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles,omitempty"`
	// ExpiresAt is read from the token's exp claim when present.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type Session struct {
	kv   KV
	intn func(n int) int
}

// New wraps kv. Quote rotation uses math/rand unless Intn is overridden.
func New(kv KV) *Session {
	return &Session{kv: kv, intn: rand.IntN}
}

// WithIntn replaces the random source used by NextQuote.
func (s *Session) WithIntn(fn func(n int) int) *Session {
	s.intn = fn
	return s
}

// Token returns the stored bearer token or ErrNoCredential.
func (s *Session) Token(ctx context.Context) (string, error) {
	tok, err := s.kv.Get(ctx, keyToken)
	if errors.Is(err, ErrNotFound) || (err == nil && strings.TrimSpace(tok) == "") {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return tok, nil
}

// SignIn persists the credential and profile written on login.
func (s *Session) SignIn(ctx context.Context, token string, p Profile) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token required")
	}
	roles, err := json.Marshal(p.Roles)
	if err != nil {
		return err
	}
	for _, kv := range [][2]string{
		{keyToken, token},
		{keyUserID, p.UserID},
		{keyEmail, p.Email},
		{keyRoles, string(roles)},
	} {
		if err := s.kv.Set(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("store %s: %w", kv[0], err)
		}
	}
	return nil
}

// SignOut clears every auth entry. Quote rotation survives.
func (s *Session) SignOut(ctx context.Context) error {
	return s.kv.Delete(ctx, keyToken, keyUserID, keyEmail, keyRoles)
}

// Profile returns the remembered user, or ErrNoCredential when signed out.
func (s *Session) Profile(ctx context.Context) (Profile, error) {
	tok, err := s.Token(ctx)
	if err != nil {
		return Profile{}, err
	}
	var p Profile
	if p.UserID, err = s.optional(ctx, keyUserID); err != nil {
		return Profile{}, err
	}
	if p.Email, err = s.optional(ctx, keyEmail); err != nil {
		return Profile{}, err
	}
	raw, err := s.optional(ctx, keyRoles)
	if err != nil {
		return Profile{}, err
	}
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &p.Roles)
	}
	p.ExpiresAt = tokenExpiry(tok)
	return p, nil
}

// NextQuote picks a quote index in [0,total) not shown since the last reset
// and records it. Once every index has been shown the rotation starts over.
func (s *Session) NextQuote(ctx context.Context, total int) (int, error) {
	if total <= 0 {
		return 0, errors.New("no quotes to rotate")
	}
	raw, err := s.optional(ctx, keyShownQuotes)
	if err != nil {
		return 0, err
	}
	var shown []int
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &shown)
	}
	seen := make(map[int]bool, len(shown))
	for _, i := range shown {
		if i >= 0 && i < total {
			seen[i] = true
		}
	}
	available := make([]int, 0, total)
	for i := 0; i < total; i++ {
		if !seen[i] {
			available = append(available, i)
		}
	}
	if len(available) == 0 {
		shown = shown[:0]
		for i := 0; i < total; i++ {
			available = append(available, i)
		}
	}
	pick := available[s.intn(len(available))]
	shown = append(shown, pick)
	data, _ := json.Marshal(shown)
	if err := s.kv.Set(ctx, keyShownQuotes, string(data)); err != nil {
		return 0, fmt.Errorf("store shown quotes: %w", err)
	}
	return pick, nil
}

func (s *Session) optional(ctx context.Context, key string) (string, error) {
	v, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// tokenExpiry reads exp without verifying the signature; the server remains
// the authority on validity.
func tokenExpiry(token string) *time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	exp := claims.ExpiresAt.Time
	return &exp
}
