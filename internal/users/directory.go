// Package users is a minimal user directory for deployments without an
// external identity backend. Production installs swap in their own
// authenticator behind the same interfaces.
package users

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"

	dErrors "authgate/pkg/domain-errors"
)

// InMemoryDirectory stores subjects keyed by username with bcrypt-hashed
// passwords.
type InMemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]entry
}

type entry struct {
	subject      string
	passwordHash []byte
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{users: make(map[string]entry)}
}

// Add registers a user. The password is hashed before storage.
func (d *InMemoryDirectory) Add(username, password, subject string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[username] = entry{subject: subject, passwordHash: hash}
	return nil
}

// Authenticate verifies credentials and returns the stable subject.
func (d *InMemoryDirectory) Authenticate(_ context.Context, username, password string) (string, error) {
	d.mu.RLock()
	e, ok := d.users[username]
	d.mu.RUnlock()
	if !ok {
		// Burn a comparison anyway so unknown usernames take as long as bad
		// passwords.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return "", dErrors.New(dErrors.CodeUnauthorized, "authentication failed")
	}
	if bcrypt.CompareHashAndPassword(e.passwordHash, []byte(password)) != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "authentication failed")
	}
	return e.subject, nil
}

// ResolveSubject maps a login hint (username or subject) to a known subject.
func (d *InMemoryDirectory) ResolveSubject(_ context.Context, loginHint string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.users[loginHint]; ok {
		return e.subject, nil
	}
	for _, e := range d.users {
		if e.subject == loginHint {
			return e.subject, nil
		}
	}
	return "", dErrors.New(dErrors.CodeNotFound, "unknown user")
}

var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), bcrypt.MinCost)
	return h
}()
