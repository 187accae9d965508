package server

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// AuthService validates opaque session tokens into usernames
type AuthService interface {
	Username(token string) (string, bool)
}

// CredentialChecker verifies a username/password pair. Credential
// storage and hashing live outside the core; the server only consumes
// the verdict.
type CredentialChecker func(username, password string) bool

// TokenAuth issues uuid session tokens with a TTL and validates them.
// Expired tokens vanish from the store on their own.
type TokenAuth struct {
	tokens *gocache.Cache
	check  CredentialChecker
	ttl    time.Duration
}

// NewTokenAuth creates a token service over the given credential
// checker
func NewTokenAuth(check CredentialChecker, ttl time.Duration) *TokenAuth {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &TokenAuth{
		tokens: gocache.New(ttl, 5*time.Minute),
		check:  check,
		ttl:    ttl,
	}
}

// Login verifies credentials and mints a session token
func (a *TokenAuth) Login(username, password string) (string, bool) {
	if a.check == nil || !a.check(username, password) {
		return "", false
	}
	token := uuid.NewString()
	a.tokens.SetDefault(token, username)
	return token, true
}

// Logout invalidates a token
func (a *TokenAuth) Logout(token string) {
	a.tokens.Delete(token)
}

// Username implements AuthService
func (a *TokenAuth) Username(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	if val, found := a.tokens.Get(token); found {
		return val.(string), true
	}
	return "", false
}

// TTL returns the token lifetime
func (a *TokenAuth) TTL() time.Duration {
	return a.ttl
}

// usersFile maps usernames to opaque secrets written by an external
// admin tool
type usersFile map[string]struct {
	Secret string `json:"secret"`
}

// NewUsersFileChecker builds a credential checker over a users file.
// Secrets are compared in constant time; producing them (hashing
// included) is the admin tool's business.
func NewUsersFileChecker(path string) (CredentialChecker, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}

	var users usersFile
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("parse users file: %w", err)
	}

	return func(username, password string) bool {
		user, ok := users[username]
		if !ok || user.Secret == "" {
			return false
		}
		return subtle.ConstantTimeCompare([]byte(user.Secret), []byte(password)) == 1
	}, nil
}
