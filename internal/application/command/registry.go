package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/lllypuk/ladder/internal/domain/request"
)

// Registry errors.
var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrDuplicateCommand = errors.New("duplicate command")
)

// Handler is the type-erased view of a Command.
type Handler interface {
	Name() string
	Paginated() bool
	Execute(ctx context.Context, req request.View) (Result, error)
	Resolve(ctx context.Context, params json.RawMessage, page int) (Resolution, error)
}

// Registry dispatches requests to commands by name.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds a registry. Names must be unique.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		if _, exists := r.handlers[h.Name()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCommand, h.Name())
		}
		r.handlers[h.Name()] = h
	}
	return r, nil
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Execute runs the command named by req.Command.
func (r *Registry) Execute(ctx context.Context, req request.View) (Result, error) {
	h, ok := r.handlers[req.Command]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownCommand, req.Command)
	}
	return h.Execute(ctx, req)
}

// Resolve re-solves a cached command at page.
func (r *Registry) Resolve(ctx context.Context, name string, params json.RawMessage, page int) (Resolution, error) {
	h, ok := r.handlers[name]
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return h.Resolve(ctx, params, page)
}
