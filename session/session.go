// Package session establishes and verifies login sessions and maps roles to
// workflow capabilities. The credential check itself is a boundary concern:
// the core consumes only the resulting capability set.
package session

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/GoCodeAlone/taskdash/config"
	"github.com/GoCodeAlone/taskdash/storage"
	"github.com/GoCodeAlone/taskdash/workflow"
)

// ErrInvalidCredentials is returned for a failed login or a bad token.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Session identifies an authenticated user and their role.
type Session struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Capabilities returns the workflow capability set for the session's role.
func (s Session) Capabilities() workflow.CapabilitySet {
	return workflow.RoleCapabilities(s.Role)
}

// Manager verifies credentials, persists the active session record under the
// "user" key, and issues signed tokens for the HTTP layer.
type Manager struct {
	users    []config.UserConfig
	kv       storage.KV
	secret   []byte
	tokenTTL time.Duration
}

// NewManager creates a session manager for the configured users.
func NewManager(users []config.UserConfig, kv storage.KV, secret string) *Manager {
	return &Manager{
		users:    users,
		kv:       kv,
		secret:   []byte(secret),
		tokenTTL: 24 * time.Hour,
	}
}

// Login verifies the credentials, stores the session record, and returns the
// session with a signed token.
func (m *Manager) Login(username, password string) (Session, string, error) {
	var found *config.UserConfig
	for i := range m.users {
		if m.users[i].Username == username {
			found = &m.users[i]
			break
		}
	}
	if found == nil || !verifyPassword(found, password) {
		return Session{}, "", ErrInvalidCredentials
	}

	sess := Session{Username: found.Username, Role: found.Role}
	record, err := json.Marshal(sess)
	if err != nil {
		return Session{}, "", fmt.Errorf("encode session: %w", err)
	}
	if err := m.kv.Set(storage.KeyUser, record); err != nil {
		return Session{}, "", fmt.Errorf("persist session: %w", err)
	}

	token, err := m.sign(sess)
	if err != nil {
		return Session{}, "", err
	}
	return sess, token, nil
}

// Logout removes the persisted session record.
func (m *Manager) Logout() error {
	if err := m.kv.Delete(storage.KeyUser); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Current returns the persisted session, if any.
func (m *Manager) Current() (Session, bool, error) {
	data, ok, err := m.kv.Get(storage.KeyUser)
	if err != nil {
		return Session{}, false, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return Session{}, false, nil
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return sess, true, nil
}

// Verify validates a token and returns the session it encodes.
func (m *Manager) Verify(token string) (Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Session{}, fmt.Errorf("verify token: %w", ErrInvalidCredentials)
	}
	c := parsed.Claims.(*claims)
	return Session{Username: c.Subject, Role: c.Role}, nil
}

// claims is the JWT payload: standard registered claims plus the role.
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (m *Manager) sign(sess Session) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: sess.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// verifyPassword checks the bcrypt hash when configured, falling back to a
// constant-time plaintext comparison for development accounts.
func verifyPassword(u *config.UserConfig, password string) bool {
	if u.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
	}
	if u.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
}

// HashPassword produces a bcrypt hash suitable for config password_hash
// values.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
