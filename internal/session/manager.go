package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "todo-app"

var ErrInvalidSession = errors.New("invalid or expired session")

// Manager issues and resolves session tokens. The token is an HS256 JWT whose
// ID claim names a record in the Store, so deleting the record revokes it.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) Store() Store {
	return m.store
}

// Create starts a session for userID and returns the signed token.
func (m *Manager) Create(ctx context.Context, userID uint) (string, time.Time, error) {
	sid, err := uuid.NewV4()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := jwt.RegisteredClaims{
		ID:        sid.String(),
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	if err := m.store.Save(ctx, sid.String(), userID, m.ttl); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (m *Manager) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	if claims.ID == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// Resolve returns the user id of a live session. Store outages are returned
// as is so callers can tell them apart from a bad token.
func (m *Manager) Resolve(ctx context.Context, token string) (uint, error) {
	if token == "" {
		return 0, ErrInvalidSession
	}

	claims, err := m.parse(token)
	if err != nil {
		return 0, err
	}

	subject, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidSession
	}

	userID, err := m.store.Load(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return 0, ErrInvalidSession
		}
		return 0, err
	}

	if userID != uint(subject) {
		return 0, ErrInvalidSession
	}
	return userID, nil
}

// Destroy ends the session named by token. Unknown or invalid tokens are
// ignored.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	claims, err := m.parse(token)
	if err != nil {
		return nil
	}
	return m.store.Delete(ctx, claims.ID)
}
