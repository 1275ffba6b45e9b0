package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidAPIKey is returned for unknown, malformed or mismatched keys.
var ErrInvalidAPIKey = errors.New("invalid API key")

// APIKeyStore manages tenant-scoped service keys. Only the bcrypt hash of a
// secret is persisted; the clear secret is returned exactly once, at
// creation.
type APIKeyStore struct {
	db *sql.DB
}

// NewAPIKeyStore creates a new PostgreSQL API key store.
func NewAPIKeyStore(db *sql.DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

// Create mints a new key for the tenant and returns it in presentable
// "id.secret" form.
func (s *APIKeyStore) Create(ctx context.Context, tenant, name string) (string, error) {
	id := uuid.NewString()
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate key secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash key secret: %w", err)
	}
	query := `
		INSERT INTO api_keys (id, tenant, name, secret_hash, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	if _, err := s.db.ExecContext(ctx, query, id, tenant, name, hash); err != nil {
		return "", fmt.Errorf("failed to store API key: %w", err)
	}
	return id + "." + secret, nil
}

// Verify checks a presented key and returns the owning tenant.
func (s *APIKeyStore) Verify(ctx context.Context, presented string) (string, error) {
	parts := strings.SplitN(presented, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", ErrInvalidAPIKey
	}

	var tenant string
	var hash []byte
	query := "SELECT tenant, secret_hash FROM api_keys WHERE id = $1"
	err := s.db.QueryRowContext(ctx, query, parts[0]).Scan(&tenant, &hash)
	if err == sql.ErrNoRows {
		return "", ErrInvalidAPIKey
	}
	if err != nil {
		return "", fmt.Errorf("failed to load API key: %w", err)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(parts[1])) != nil {
		return "", ErrInvalidAPIKey
	}
	return tenant, nil
}
