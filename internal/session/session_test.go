package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academydesk/internal/db"
	"academydesk/internal/dispatch"
	"academydesk/internal/migrate"
	"academydesk/internal/session"
)

func newSQLSession(t *testing.T) *session.Session {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return session.New(session.SQLStore{DB: conn})
}

func TestSignInSignOut(t *testing.T) {
	for name, s := range map[string]*session.Session{
		"sqlite": newSQLSession(t),
		"memory": session.New(session.NewMemoryKV()),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Token(ctx)
			require.ErrorIs(t, err, session.ErrNoCredential)

			require.NoError(t, s.SignIn(ctx, "tok-1", session.Profile{UserID: "u1", Email: "admin@academy.test", Roles: []string{"admin"}}))
			tok, err := s.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok-1", tok)

			p, err := s.Profile(ctx)
			require.NoError(t, err)
			assert.Equal(t, "admin@academy.test", p.Email)
			assert.Equal(t, []string{"admin"}, p.Roles)
			assert.Nil(t, p.ExpiresAt, "opaque token carries no expiry")

			require.NoError(t, s.SignOut(ctx))
			_, err = s.Token(ctx)
			require.ErrorIs(t, err, session.ErrNoCredential)
			_, err = s.Profile(ctx)
			require.ErrorIs(t, err, session.ErrNoCredential)
		})
	}
}

func TestProfileReadsTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	s := session.New(session.NewMemoryKV())
	ctx := context.Background()
	require.NoError(t, s.SignIn(ctx, tok, session.Profile{UserID: "u1"}))
	p, err := s.Profile(ctx)
	require.NoError(t, err)
	require.NotNil(t, p.ExpiresAt)
	assert.True(t, exp.Equal(*p.ExpiresAt))
}

func TestNextQuoteRotatesWithoutRepeats(t *testing.T) {
	s := session.New(session.NewMemoryKV()).WithIntn(func(n int) int { return n - 1 })
	ctx := context.Background()

	seen := map[int]bool{}
	for i := 0; i < 4; i++ {
		idx, err := s.NextQuote(ctx, 4)
		require.NoError(t, err)
		assert.False(t, seen[idx], "index %d repeated before exhaustion", idx)
		seen[idx] = true
	}
	assert.Len(t, seen, 4)

	// exhausted: the rotation resets and any index may come back
	idx, err := s.NextQuote(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	_, err = s.NextQuote(ctx, 0)
	require.Error(t, err)
}

func TestQuoteRotationSurvivesSignOut(t *testing.T) {
	s := session.New(session.NewMemoryKV()).WithIntn(func(int) int { return 0 })
	ctx := context.Background()
	first, err := s.NextQuote(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, s.SignOut(ctx))
	second, err := s.NextQuote(ctx, 2)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

type lockedKV struct{ *session.MemoryKV }

func (lockedKV) Get(context.Context, string) (string, error) {
	return "", errors.New("database is locked")
}

func TestTokenSeparatesSignedOutFromStorageFault(t *testing.T) {
	ctx := context.Background()
	_, err := session.New(session.NewMemoryKV()).Token(ctx)
	assert.ErrorIs(t, err, dispatch.ErrNoCredential)

	_, err = session.New(lockedKV{session.NewMemoryKV()}).Token(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, dispatch.ErrNoCredential)
	assert.Contains(t, err.Error(), "database is locked")
}
