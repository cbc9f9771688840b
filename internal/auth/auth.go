// Package auth guards the admin routes with short-lived bearer tokens.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"mailaudit/internal/config"
	"mailaudit/internal/models"
)

var (
	// ErrInvalidCredentials is returned for a wrong username or password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAdminDisabled is returned when no admin credentials are configured
	ErrAdminDisabled = errors.New("admin access is not configured")
)

// Manager handles authentication for admin routes
type Manager struct {
	username    string
	password    string
	tokens      map[string]time.Time
	mu          sync.Mutex
	tokenExpiry time.Duration
	now         func() time.Time
}

// NewManager creates a new authentication manager
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		username:    cfg.AdminUsername,
		password:    cfg.AdminPassword,
		tokens:      make(map[string]time.Time),
		tokenExpiry: 24 * time.Hour,
		now:         time.Now,
	}
}

// Enabled reports whether admin credentials are configured
func (am *Manager) Enabled() bool {
	return am.username != "" && am.password != ""
}

// Authenticate validates username and password and returns a token with its expiry
func (am *Manager) Authenticate(username, password string) (string, time.Time, error) {
	if !am.Enabled() {
		return "", time.Time{}, ErrAdminDisabled
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(am.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(am.password)) == 1
	if !userOK || !passOK {
		return "", time.Time{}, ErrInvalidCredentials
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	am.mu.Lock()
	defer am.mu.Unlock()

	now := am.now()
	for t, expiry := range am.tokens {
		if now.After(expiry) {
			delete(am.tokens, t)
		}
	}
	expiresAt := now.Add(am.tokenExpiry)
	am.tokens[token] = expiresAt

	return token, expiresAt, nil
}

// ValidateToken checks if a token is valid, dropping it once expired
func (am *Manager) ValidateToken(token string) bool {
	am.mu.Lock()
	defer am.mu.Unlock()

	expiry, exists := am.tokens[token]
	if !exists {
		return false
	}
	if am.now().After(expiry) {
		delete(am.tokens, token)
		return false
	}
	return true
}

// Middleware rejects requests without a valid bearer token
func Middleware(authManager *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := strings.TrimSpace(c.Request().Header.Get("Authorization"))
			token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))

			if token == "" || !authManager.ValidateToken(token) {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error: "Unauthorized. Please login first.",
				})
			}

			c.Set("auth_token", token)
			return next(c)
		}
	}
}
