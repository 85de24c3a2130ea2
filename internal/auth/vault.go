// internal/auth/vault.go
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/newthinker/zella/internal/core"
)

const (
	// DefaultCost is the bcrypt work factor for stored hashes.
	DefaultCost = 12
	// MinPasswordLength is the shortest admin password accepted on change.
	MinPasswordLength = 6
	// MaxPasswordLength is bcrypt's input limit.
	MaxPasswordLength = 72
	// DefaultPassword is used when no hash is configured.
	DefaultPassword = "admin123"
	// DefaultSessionTTL bounds the lifetime of an admin session token.
	DefaultSessionTTL = 12 * time.Hour
)

var (
	ErrEmptyPassword   = errors.New("password cannot be empty")
	ErrPasswordTooLong = fmt.Errorf("password exceeds maximum length of %d bytes", MaxPasswordLength)
)

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}
	if cost == 0 {
		cost = DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VaultConfig configures the admin credential vault.
type VaultConfig struct {
	PasswordHash string        `mapstructure:"password_hash"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	Cost         int           `mapstructure:"cost"`
}

// Vault holds the admin password hash and issued session tokens.
type Vault struct {
	mu       sync.Mutex
	hash     []byte
	cost     int
	ttl      time.Duration
	sessions map[string]time.Time
	now      func() time.Time
	logger   *zap.Logger
}

// NewVault creates a vault. Without a configured hash the default
// password is hashed and a warning is logged.
func NewVault(cfg VaultConfig, logger *zap.Logger) (*Vault, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &Vault{
		cost:     cfg.Cost,
		ttl:      cfg.SessionTTL,
		sessions: make(map[string]time.Time),
		now:      time.Now,
		logger:   logger,
	}
	if v.cost == 0 {
		v.cost = DefaultCost
	}
	if v.ttl <= 0 {
		v.ttl = DefaultSessionTTL
	}

	if cfg.PasswordHash == "" {
		logger.Warn("no admin password hash configured, using default password")
		h, err := HashPassword(DefaultPassword, v.cost)
		if err != nil {
			return nil, err
		}
		v.hash = []byte(h)
		return v, nil
	}

	if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("admin password hash: %w", err))
	}
	v.hash = []byte(cfg.PasswordHash)
	return v, nil
}

// Login verifies the admin password and issues a session token.
func (v *Vault) Login(password string) (string, time.Time, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if bcrypt.CompareHashAndPassword(v.hash, []byte(password)) != nil {
		return "", time.Time{}, core.WrapError(core.ErrUnauthorized, fmt.Errorf("invalid admin password"))
	}

	v.prune()
	token := uuid.NewString()
	expires := v.now().Add(v.ttl)
	v.sessions[token] = expires
	v.logger.Info("admin session issued", zap.Time("expires", expires))
	return token, expires, nil
}

// Valid reports whether token is a live session token.
func (v *Vault) Valid(token string) bool {
	if token == "" {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	expires, ok := v.sessions[token]
	if !ok {
		return false
	}
	if !v.now().Before(expires) {
		delete(v.sessions, token)
		return false
	}
	return true
}

// Logout revokes a session token.
func (v *Vault) Logout(token string) {
	v.mu.Lock()
	delete(v.sessions, token)
	v.mu.Unlock()
}

// ChangePassword replaces the admin password. The current password must
// match, the new one must equal its confirmation and be at least
// MinPasswordLength characters. Existing sessions are revoked.
func (v *Vault) ChangePassword(current, next, confirm string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if bcrypt.CompareHashAndPassword(v.hash, []byte(current)) != nil {
		return core.WrapError(core.ErrPasswordRejected, fmt.Errorf("current password is incorrect"))
	}
	if next != confirm {
		return core.WrapError(core.ErrPasswordRejected, fmt.Errorf("new passwords do not match"))
	}
	if len(next) < MinPasswordLength {
		return core.WrapError(core.ErrPasswordRejected,
			fmt.Errorf("password must be at least %d characters", MinPasswordLength))
	}

	h, err := HashPassword(next, v.cost)
	if err != nil {
		return core.WrapError(core.ErrPasswordRejected, err)
	}
	v.hash = []byte(h)
	v.sessions = make(map[string]time.Time)
	v.logger.Info("admin password changed")
	return nil
}

// Hash returns the current bcrypt hash, for persisting to config.
func (v *Vault) Hash() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return string(v.hash)
}

func (v *Vault) prune() {
	now := v.now()
	for tok, exp := range v.sessions {
		if !now.Before(exp) {
			delete(v.sessions, tok)
		}
	}
}
