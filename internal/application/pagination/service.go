package pagination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lllypuk/ladder/internal/application/appcore"
	"github.com/lllypuk/ladder/internal/application/describe"
	"github.com/lllypuk/ladder/internal/domain/outcome"
)

// Editor replaces the content of an already delivered response.
type Editor interface {
	Edit(ctx context.Context, responseID string, p describe.Presentation) error
}

// Navigation is one press of a page control.
type Navigation struct {
	ResponseID string
	ActorID    string
	Direction  Direction
}

// Rejection says why a navigation left the response alone.
type Rejection string

// Rejections.
const (
	RejectedExpired  Rejection = "expired"
	RejectedNotOwner Rejection = "not_owner"
)

// NavigationResult is what the actor who pressed a control should see. When
// Edited is false the presentation is a notice for the actor only and the
// original response was left alone.
type NavigationResult struct {
	Page         int
	Presentation describe.Presentation
	Edited       bool
	Rejection    Rejection
}

// Service handles navigation events on cached interactions.
type Service struct {
	cache     *Cache
	resolver  Resolver
	editor    Editor
	ownerOnly bool
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithOwnerOnly controls whether only the original requester may navigate.
func WithOwnerOnly(ownerOnly bool) Option {
	return func(s *Service) {
		s.ownerOnly = ownerOnly
	}
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a navigation service. Navigation is owner-only unless
// configured otherwise.
func NewService(cache *Cache, resolver Resolver, editor Editor, opts ...Option) *Service {
	s := &Service{
		cache:     cache,
		resolver:  resolver,
		editor:    editor,
		ownerOnly: true,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interaction loads the cached interaction behind responseID. It returns
// ErrExpired when there is none or it has expired.
func (s *Service) Interaction(ctx context.Context, responseID string) (*Interaction, error) {
	e, err := s.cache.Get(ctx, responseID)
	if err != nil {
		return nil, err
	}
	return &Interaction{entry: e, cache: s.cache, resolver: s.resolver}, nil
}

// Navigate moves a cached response to another page and edits it in place.
// Expired interactions and foreign actors get a notice instead of an error.
func (s *Service) Navigate(ctx context.Context, nav Navigation) (NavigationResult, error) {
	logger := s.logger.With(
		slog.String("response_id", nav.ResponseID),
		slog.String("direction", string(nav.Direction)),
	)

	inter, err := s.Interaction(ctx, nav.ResponseID)
	if errors.Is(err, ErrExpired) {
		return NavigationResult{Presentation: describe.Expired(), Rejection: RejectedExpired}, nil
	}
	if err != nil {
		return NavigationResult{Presentation: describe.Unknown()}, fmt.Errorf("load interaction: %w", err)
	}

	if s.ownerOnly && nav.ActorID != inter.SenderID() {
		logger.DebugContext(ctx, "navigation by non-owner rejected", slog.String("actor_id", nav.ActorID))
		return NavigationResult{Page: inter.Page(), Presentation: describe.NotOwner(), Rejection: RejectedNotOwner}, nil
	}

	target := TargetPage(nav.Direction, inter.Page(), inter.TotalPages())

	res, err := inter.SolveAgainAndDescribe(ctx, target)
	if err != nil {
		return NavigationResult{Page: inter.Page(), Presentation: res.Presentation}, err
	}
	if res.Presentation.Controls != nil {
		// Targets are computed against the cached total, so the controls must be too.
		res.Presentation.Controls = describe.Controls(outcome.Pagination{Page: target, TotalPages: inter.TotalPages()})
	}

	if err = s.editor.Edit(ctx, nav.ResponseID, res.Presentation); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to edit paginated response",
			append(appcore.LogAttrs(ctx), slog.String("error", err.Error()))...)
		return NavigationResult{Page: inter.Page(), Presentation: res.Presentation},
			fmt.Errorf("%w: %s: %w", ErrEditFailed, nav.ResponseID, err)
	}

	if err = inter.SetPage(ctx, target); err != nil {
		// The response already shows the new page.
		logger.WarnContext(ctx, "failed to record page", slog.Int("page", target), slog.String("error", err.Error()))
	}

	return NavigationResult{Page: target, Presentation: res.Presentation, Edited: true}, nil
}
