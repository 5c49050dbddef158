package testutil

import (
	"context"
	"testing"
	"time"
)

const contextTimeout = 30 * time.Second

// NewTestContext returns a context cancelled when the test ends.
func NewTestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), contextTimeout)
	t.Cleanup(cancel)
	return ctx
}
