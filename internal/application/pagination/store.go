// Package pagination keeps delivered paginated responses navigable for a
// bounded time by caching what is needed to solve them again.
package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Cache errors.
var (
	ErrExpired      = errors.New("interaction expired")
	ErrInvalidEntry = errors.New("invalid interaction entry")
	ErrEditFailed   = errors.New("failed to edit response")
)

// Entry is one cached interaction. Only Page changes after creation.
type Entry struct {
	ResponseID string          `json:"response_id"`
	SenderID   string          `json:"sender_id"`
	Command    string          `json:"command"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	Params     json.RawMessage `json:"params"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store persists entries keyed by response id. Get and SetPage return
// ErrExpired for entries that are missing or past ExpiresAt.
type Store interface {
	Put(ctx context.Context, e Entry) error
	Get(ctx context.Context, responseID string) (Entry, error)
	SetPage(ctx context.Context, responseID string, page int) error
}
