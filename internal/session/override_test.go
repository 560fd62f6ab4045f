package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enclaveai-backend/internal/storage/memory"
)

func TestOverrideOutranksExplicitFlag(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	rec, err := s.MarkLoggedIn(ctx, "tok1", "user-1", "")
	require.NoError(t, err)
	rec.LoggedIn = false
	require.NoError(t, s.putRecord(ctx, "tok1", rec))
	require.False(t, s.IsLoggedIn(ctx, "tok1"))

	_, err = s.GrantEmergencyAccess(ctx, "tok1", "user-1")
	require.NoError(t, err)
	assert.True(t, s.IsLoggedIn(ctx, "tok1"))

	// The override branch self-heals the flag
	healed := s.Record(ctx, "tok1")
	require.NotNil(t, healed)
	assert.True(t, healed.LoggedIn)
}

func TestOverrideOutranksImplicitExpiry(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()

	_, err := s.MarkLoggedIn(ctx, "tok1", "user-1", "")
	require.NoError(t, err)

	*clock = clock.Add(9 * time.Hour)
	require.False(t, s.IsLoggedIn(ctx, "tok1"))

	// Session is gone now; the grant recreates the record for the same user
	expiresAt, err := s.GrantEmergencyAccess(ctx, "tok1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, clock.Add(OverrideWindow), expiresAt)
	assert.True(t, s.IsLoggedIn(ctx, "tok1"))
}

func TestOverrideExpiresAfterWindow(t *testing.T) {
	s, durable, clock := newTestStore(t)
	ctx := context.Background()

	rec, err := s.MarkLoggedIn(ctx, "tok1", "user-1", "")
	require.NoError(t, err)
	rec.LoggedIn = false
	require.NoError(t, s.putRecord(ctx, "tok1", rec))

	_, err = s.GrantEmergencyAccess(ctx, "tok1", "user-1")
	require.NoError(t, err)
	require.True(t, s.IsLoggedIn(ctx, "tok1"))

	// putRecord during self-heal set LoggedIn=true; flip it back to isolate
	// the override path
	rec = s.Record(ctx, "tok1")
	rec.LoggedIn = false
	require.NoError(t, s.putRecord(ctx, "tok1", rec))

	*clock = clock.Add(OverrideWindow + time.Minute)
	assert.False(t, s.IsLoggedIn(ctx, "tok1"))

	val, err := durable.Get(ctx, "override:tok1")
	require.NoError(t, err)
	assert.Empty(t, val, "expired override grant should be cleared")
}

func TestOverrideWithoutUserIDDoesNotAuthenticate(t *testing.T) {
	s, durable, _ := newTestStore(t)
	ctx := context.Background()

	// Grant written directly with no session record behind it
	g := overrideGrant{UserID: "", SetAt: s.now()}
	g.Sig = s.signGrant("", g.SetAt)
	b, err := json.Marshal(g)
	require.NoError(t, err)
	require.NoError(t, durable.Set(ctx, "override:tok1", string(b), 0))

	assert.False(t, s.IsLoggedIn(ctx, "tok1"))
}

func TestTamperedGrantBehavesAsAbsent(t *testing.T) {
	s, durable, clock := newTestStore(t)
	ctx := context.Background()

	rec, err := s.MarkLoggedIn(ctx, "tok1", "user-1", "")
	require.NoError(t, err)
	rec.LoggedIn = false
	require.NoError(t, s.putRecord(ctx, "tok1", rec))

	_, err = s.GrantEmergencyAccess(ctx, "tok1", "user-1")
	require.NoError(t, err)

	// Rewrite the grant for a different user without re-signing
	val, err := durable.Get(ctx, "override:tok1")
	require.NoError(t, err)
	var g overrideGrant
	require.NoError(t, json.Unmarshal([]byte(val), &g))
	g.UserID = "attacker"
	b, err := json.Marshal(g)
	require.NoError(t, err)
	require.NoError(t, durable.Set(ctx, "override:tok1", string(b), 0))

	assert.False(t, s.IsLoggedIn(ctx, "tok1"))

	// And replaying the grant with a shifted timestamp fails too
	g.UserID = "user-1"
	g.SetAt = clock.Add(30 * time.Minute)
	b, err = json.Marshal(g)
	require.NoError(t, err)
	require.NoError(t, durable.Set(ctx, "override:tok1", string(b), 0))
	assert.False(t, s.IsLoggedIn(ctx, "tok1"))
}

func TestGrantConflictsWithForeignSession(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.MarkLoggedIn(ctx, "tok1", "user-1", "")
	require.NoError(t, err)

	_, err = s.GrantEmergencyAccess(ctx, "tok1", "user-2")
	assert.ErrorIs(t, err, ErrSessionConflict)
	assert.True(t, s.IsLoggedIn(ctx, "tok1"), "existing session untouched")
}

func TestGrantOnFreshTokenCreatesRecord(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()

	expiresAt, err := s.GrantEmergencyAccess(ctx, "fresh", "user-9")
	require.NoError(t, err)
	assert.Equal(t, clock.Add(OverrideWindow), expiresAt)

	rec := s.Record(ctx, "fresh")
	require.NotNil(t, rec)
	assert.Equal(t, "user-9", rec.UserID)
	assert.True(t, s.IsLoggedIn(ctx, "fresh"))
}

func TestGrantSecretsAreNotInterchangeable(t *testing.T) {
	durable := memory.New()
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	a := New(Config{Durable: durable, Duration: 8 * time.Hour, OverrideSecret: []byte("secret-a")})
	a.now = func() time.Time { return clock }
	b := New(Config{Durable: durable, Duration: 8 * time.Hour, OverrideSecret: []byte("secret-b")})
	b.now = func() time.Time { return clock }

	ctx := context.Background()
	_, err := a.GrantEmergencyAccess(ctx, "tok1", "user-1")
	require.NoError(t, err)

	// Checked before a's self-heal flips the flag, so b can only pass via
	// the override path, which its secret rejects
	assert.False(t, b.IsLoggedIn(ctx, "tok1"))
	assert.True(t, a.IsLoggedIn(ctx, "tok1"))
}
