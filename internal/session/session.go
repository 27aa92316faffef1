// Package session defines the conversation memory contract shared by the
// in-memory and DynamoDB stores.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"travel-assistant/internal/domain"
)

// NewSessionSentinel is the session id a caller passes to request a new
// session.
const NewSessionSentinel = "/"

// DefaultIdleTTL is how long a session stays reachable without activity.
const DefaultIdleTTL = time.Hour

const maxIDAttempts = 5

var (
	// ErrNotFound is returned for unknown and expired sessions alike.
	ErrNotFound = errors.New("session: not found")
	// ErrIDExhausted is returned when no free identifier could be generated.
	ErrIDExhausted = errors.New("session: could not generate a unique id")
	ErrClosed      = errors.New("session: store is closed")
)

// Store owns turn ordering and idle-TTL bookkeeping. Every Append, Read and
// Exists call on a live session refreshes its last activity. Expired
// sessions behave exactly like unknown ones, whether or not the backend has
// reclaimed them yet.
//
// Create and Append take several turns so one user/assistant exchange is
// written atomically. Close releases background work; calls made after it
// fail with ErrClosed.
type Store interface {
	Create(ctx context.Context, turns ...domain.ChatTurn) (string, error)
	Append(ctx context.Context, id string, turns ...domain.ChatTurn) error
	Read(ctx context.Context, id string, limit int) ([]domain.ChatTurn, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]string, error)
	Close(ctx context.Context) error
}

// NewID returns an opaque 32 character identifier backed by a random UUID.
var NewID = func() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// UniqueID draws identifiers until taken reports one as free.
func UniqueID(ctx context.Context, taken func(ctx context.Context, id string) (bool, error)) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := NewID()
		inUse, err := taken(ctx, id)
		if err != nil {
			return "", fmt.Errorf("session: check id: %w", err)
		}
		if !inUse {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

// Expired reports whether lastActivity is older than ttl at now.
func Expired(lastActivity, now time.Time, ttl time.Duration) bool {
	return now.Sub(lastActivity) > ttl
}

// ValidateTurns rejects empty batches and turns with an unknown role.
func ValidateTurns(turns []domain.ChatTurn) error {
	if len(turns) == 0 {
		return errors.New("session: at least one turn is required")
	}
	for _, t := range turns {
		if !t.Role.Valid() {
			return fmt.Errorf("session: invalid role %q", t.Role)
		}
	}
	return nil
}

// Tail returns the last limit turns, or all turns when limit <= 0.
func Tail(turns []domain.ChatTurn, limit int) []domain.ChatTurn {
	if limit <= 0 || limit >= len(turns) {
		return turns
	}
	return turns[len(turns)-limit:]
}
