// Package sessions maps chat identities onto storage keys and serializes
// work for a single identity.
package sessions

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	documentPrefix = "documents/"
	stagingPrefix  = "staging/"
)

// ErrEmptyIdentity indicates an identity with no characters.
var ErrEmptyIdentity = errors.New("empty identity")

// ArtifactKey returns the storage key of the canonical document for identity.
// Identities are path-escaped so distinct identities never share a key.
func ArtifactKey(identity string) (string, error) {
	if identity == "" {
		return "", ErrEmptyIdentity
	}
	return documentPrefix + url.PathEscape(identity) + ".pdf", nil
}

// StagingKey returns a fresh storage key for an in-flight upload.
// The extension is kept so converters can sniff the type from the name.
func StagingKey(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return stagingPrefix + uuid.NewString()
	}
	return stagingPrefix + uuid.NewString() + "." + ext
}

// Locker hands out one mutex per identity. Entries are dropped when the
// last holder releases them.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock blocks until identity is free and returns the matching unlock func.
func (l *Locker) Lock(identity string) func() {
	l.mu.Lock()
	e, ok := l.locks[identity]
	if !ok {
		e = &entry{}
		l.locks[identity] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, identity)
		}
		l.mu.Unlock()
	}
}
