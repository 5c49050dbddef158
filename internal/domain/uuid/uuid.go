// Package uuid wraps google/uuid with a string-backed identifier type that
// serializes cleanly into JSON, BSON and cache entries.
package uuid

import (
	"github.com/google/uuid"
)

// UUID is a canonical textual UUID. The zero value means "no identifier".
type UUID string

// NewUUID returns a random (v4) identifier.
func NewUUID() UUID {
	return UUID(uuid.New().String())
}

// ParseUUID validates s and returns it in canonical lower-case form.
func ParseUUID(s string) (UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return UUID(id.String()), nil
}

// MustParseUUID is ParseUUID for constants and tests.
func MustParseUUID(s string) UUID {
	id, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the textual form.
func (u UUID) String() string {
	return string(u)
}

// IsZero reports whether the identifier is unset.
func (u UUID) IsZero() bool {
	return u == ""
}

// Short returns the first block of the identifier, used in human-facing text.
func (u UUID) Short() string {
	const blockLen = 8
	if len(u) < blockLen {
		return string(u)
	}
	return string(u[:blockLen])
}
