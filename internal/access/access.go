// Package access implements the static allow-list that gates every bot action.
package access

import (
	"errors"
	"os"
	"slices"
	"strings"
)

// ErrUnauthorized indicates an identity outside a non-empty allow-list.
var ErrUnauthorized = errors.New("unauthorized")

// Config lists the identities permitted to use the bot.
// An empty list permits everyone.
type Config struct {
	UserIDs []string `toml:"user_ids"`
}

// Env maps environment variable names for access configuration.
type Env struct {
	UserIDs string
}

// Finalize loads environment overrides and normalizes the allow-list.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		c.loadEnv(env)
	}
	c.UserIDs = normalize(c.UserIDs)
	return nil
}

// Merge replaces the allow-list when the overlay defines one.
func (c *Config) Merge(overlay *Config) {
	if overlay.UserIDs != nil {
		c.UserIDs = overlay.UserIDs
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.UserIDs == "" {
		return
	}
	if v := os.Getenv(env.UserIDs); v != "" {
		c.UserIDs = strings.Split(v, ",")
	}
}

// Guard answers authorization checks against a fixed allow-list.
type Guard struct {
	allowed []string
}

// New creates a Guard. Entries are trimmed and blanks dropped.
func New(ids []string) *Guard {
	return &Guard{allowed: normalize(ids)}
}

// Authorize reports whether identity may use the bot.
func (g *Guard) Authorize(identity string) bool {
	return Authorize(identity, g.allowed)
}

// Check returns ErrUnauthorized when identity is not permitted.
func (g *Guard) Check(identity string) error {
	if !g.Authorize(identity) {
		return ErrUnauthorized
	}
	return nil
}

// Restricted reports whether the guard enforces a non-empty allow-list.
func (g *Guard) Restricted() bool {
	return len(g.allowed) > 0
}

// Authorize is true when allowList is empty or contains identity.
func Authorize(identity string, allowList []string) bool {
	if len(allowList) == 0 {
		return true
	}
	return slices.Contains(allowList, identity)
}

func normalize(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
