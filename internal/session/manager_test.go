package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(store Store) *Manager {
	return NewManager(store, "test-secret", time.Hour)
}

func TestManager_CreateAndResolve(t *testing.T) {
	store := NewMemoryStore()
	manager := newTestManager(store)
	ctx := context.Background()

	token, expiresAt, err := manager.Create(ctx, 7)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)
	assert.Equal(t, 1, store.Len())

	userID, err := manager.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), userID)
}

func TestManager_DestroyRevokesToken(t *testing.T) {
	store := NewMemoryStore()
	manager := newTestManager(store)
	ctx := context.Background()

	token, _, err := manager.Create(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, manager.Destroy(ctx, token))
	assert.Equal(t, 0, store.Len())

	_, err = manager.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestManager_DestroyIgnoresGarbage(t *testing.T) {
	manager := newTestManager(NewMemoryStore())

	assert.NoError(t, manager.Destroy(context.Background(), ""))
	assert.NoError(t, manager.Destroy(context.Background(), "not-a-token"))
}

func TestManager_RejectsForeignSignature(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	other := NewManager(store, "another-secret", time.Hour)
	token, _, err := other.Create(ctx, 1)
	require.NoError(t, err)

	_, err = newTestManager(store).Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestManager_RejectsExpiredToken(t *testing.T) {
	store := NewMemoryStore()
	manager := newTestManager(store)
	ctx := context.Background()

	token, _, err := manager.Create(ctx, 1)
	require.NoError(t, err)

	manager.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = manager.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestManager_RejectsTamperedSubject(t *testing.T) {
	store := NewMemoryStore()
	manager := newTestManager(store)
	ctx := context.Background()

	token, _, err := manager.Create(ctx, 1)
	require.NoError(t, err)

	claims, err := manager.parse(token)
	require.NoError(t, err)

	// Same session id, different user, signed with the right key.
	claims.Subject = "2"
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(manager.secret)
	require.NoError(t, err)

	_, err = manager.Resolve(ctx, forged)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestManager_RejectsUnsignedToken(t *testing.T) {
	manager := newTestManager(NewMemoryStore())

	claims := jwt.RegisteredClaims{
		ID:        "sid",
		Subject:   "1",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = manager.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestManager_EmptyToken(t *testing.T) {
	_, err := newTestManager(NewMemoryStore()).Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "a", 1, time.Minute))

	userID, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, uint(1), userID)

	now = now.Add(2 * time.Minute)
	_, err = store.Load(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Saving sweeps expired entries.
	require.NoError(t, store.Save(ctx, "b", 2, time.Minute))
	assert.Equal(t, 1, store.Len())
}
