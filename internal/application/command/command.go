// Package command runs one declared business command through its pipeline:
// validate, solve, describe, reply and, for paginated results, cache.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lllypuk/ladder/internal/application/appcore"
	"github.com/lllypuk/ladder/internal/application/describe"
	"github.com/lllypuk/ladder/internal/application/validation"
	"github.com/lllypuk/ladder/internal/domain/outcome"
	"github.com/lllypuk/ladder/internal/domain/request"
)

// Pipeline errors.
var (
	ErrDefect            = errors.New("command defect")
	ErrReplyFailed       = errors.New("reply delivery failed")
	ErrInvalidDefinition = errors.New("invalid command definition")
	ErrNotPaginated      = errors.New("command does not support pagination")
)

// Validator turns a request into solver parameters. A *validation.Error
// short-circuits the pipeline to FAIL_VALIDATION; any other error is a defect.
type Validator[S any] func(ctx context.Context, req request.View) (S, error)

// Solver performs the business operation. Anticipated failures are returned as
// FAIL_* outcomes, never as panics.
type Solver[S any] func(ctx context.Context, params S) outcome.Outcome

// Replyer delivers a presentation and returns the identity of the delivered
// response.
type Replyer func(ctx context.Context, req request.View, p describe.Presentation) (string, error)

// CacheParams is what a Cacher receives after a paginated outcome was replied.
type CacheParams[S any] struct {
	ResponseID   string
	SenderID     string
	SolverParams S
	Page         int
	TotalPages   int
}

// Cacher persists navigable state for a delivered paginated response.
type Cacher[S any] func(ctx context.Context, params CacheParams[S]) error

// Definition declares a command. S must survive a JSON round trip when the
// command is cached, since navigation re-solves from the stored parameters.
type Definition[S any] struct {
	Name         string
	Validator    Validator[S]
	Solver       Solver[S]
	Descriptions describe.Table
	Replyer      Replyer
	Cacher       Cacher[S]
	// WithPage returns params with only the page replaced. Required with Cacher.
	WithPage func(params S, page int) S
}

// Result is the final state of one pipeline run.
type Result struct {
	Command      string
	ResponseID   string
	Outcome      outcome.Outcome
	Presentation describe.Presentation
	Cached       bool
}

// Resolution is an outcome re-solved for a navigation event.
type Resolution struct {
	Outcome      outcome.Outcome
	Presentation describe.Presentation
}

type options struct {
	logger *slog.Logger
}

// Option configures a Command.
type Option func(*options)

// WithLogger sets the logger for the command.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Command is an immutable, ready-to-run pipeline for one definition.
type Command[S any] struct {
	def       Definition[S]
	describer *describe.Describer
	logger    *slog.Logger
}

// New validates def and builds its pipeline.
func New[S any](def Definition[S], opts ...Option) (*Command[S], error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	switch {
	case def.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	case def.Validator == nil:
		return nil, fmt.Errorf("%w: %s: validator is required", ErrInvalidDefinition, def.Name)
	case def.Solver == nil:
		return nil, fmt.Errorf("%w: %s: solver is required", ErrInvalidDefinition, def.Name)
	case def.Replyer == nil:
		return nil, fmt.Errorf("%w: %s: replyer is required", ErrInvalidDefinition, def.Name)
	case def.Cacher != nil && def.WithPage == nil:
		return nil, fmt.Errorf("%w: %s: cacher requires WithPage", ErrInvalidDefinition, def.Name)
	}

	return &Command[S]{
		def:       def,
		describer: describe.New(def.Descriptions),
		logger:    o.logger.With(slog.String("command", def.Name)),
	}, nil
}

// Name returns the command name.
func (c *Command[S]) Name() string {
	return c.def.Name
}

// Paginated reports whether results of this command can be navigated.
func (c *Command[S]) Paginated() bool {
	return c.def.Cacher != nil
}

// Execute runs the pipeline for req. The returned Result always carries the
// outcome and presentation that were (or would have been) replied. The error
// wraps ErrReplyFailed when delivery failed and ErrDefect when a stage broke.
func (c *Command[S]) Execute(ctx context.Context, req request.View) (Result, error) {
	res := Result{Command: c.def.Name}

	params, out, defect := c.validateAndSolve(ctx, req)
	pres, err := c.describe(out)
	if err != nil && defect == nil {
		defect = fmt.Errorf("describe: %w", err)
	}
	if defect != nil {
		out = outcome.FailUnknown{}
		pres = describe.Unknown()
		c.logger.LogAttrs(ctx, slog.LevelError, "command defect",
			append(appcore.LogAttrs(ctx), slog.String("error", defect.Error()))...)
	}
	res.Outcome = out
	res.Presentation = pres

	responseID, err := c.reply(ctx, req, pres)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "failed to deliver reply",
			append(appcore.LogAttrs(ctx), slog.String("error", err.Error()))...)
		replyErr := fmt.Errorf("%w: %s: %w", ErrReplyFailed, c.def.Name, err)
		if defect != nil {
			return res, errors.Join(replyErr, fmt.Errorf("%w: %w", ErrDefect, defect))
		}
		return res, replyErr
	}
	res.ResponseID = responseID

	if defect != nil {
		return res, fmt.Errorf("%w: %s: %w", ErrDefect, c.def.Name, defect)
	}

	res.Cached = c.cache(ctx, req, params, out, responseID)

	c.logger.LogAttrs(ctx, slog.LevelDebug, "command completed",
		append(appcore.LogAttrs(ctx),
			slog.String("status", string(out.Status())),
			slog.String("response_id", responseID),
			slog.Bool("cached", res.Cached),
		)...)

	return res, nil
}

// Resolve re-solves stored parameters at page and describes the result. Only
// the page differs from the parameters the command was first solved with.
func (c *Command[S]) Resolve(ctx context.Context, raw json.RawMessage, page int) (Resolution, error) {
	if c.def.WithPage == nil {
		return Resolution{}, fmt.Errorf("%w: %s", ErrNotPaginated, c.def.Name)
	}

	var params S
	if err := json.Unmarshal(raw, &params); err != nil {
		return Resolution{}, fmt.Errorf("decode %s parameters: %w", c.def.Name, err)
	}
	params = c.def.WithPage(params, page)

	out, err := c.solve(ctx, params)
	if err == nil {
		var pres describe.Presentation
		pres, err = c.describe(out)
		if err == nil {
			return Resolution{Outcome: out, Presentation: pres}, nil
		}
	}

	c.logger.LogAttrs(ctx, slog.LevelError, "command defect while resolving page",
		append(appcore.LogAttrs(ctx), slog.Int("page", page), slog.String("error", err.Error()))...)
	return Resolution{Outcome: outcome.FailUnknown{}, Presentation: describe.Unknown()},
		fmt.Errorf("%w: %s: %w", ErrDefect, c.def.Name, err)
}

func (c *Command[S]) validateAndSolve(ctx context.Context, req request.View) (S, outcome.Outcome, error) {
	params, err := c.validate(ctx, req)
	if err != nil {
		if verr, ok := validation.AsError(err); ok {
			return params, verr.Outcome(), nil
		}
		return params, nil, fmt.Errorf("validate: %w", err)
	}

	out, err := c.solve(ctx, params)
	if err != nil {
		return params, nil, err
	}
	return params, out, nil
}

func (c *Command[S]) validate(ctx context.Context, req request.View) (params S, err error) {
	defer recoverDefect(&err)
	return c.def.Validator(ctx, req)
}

func (c *Command[S]) solve(ctx context.Context, params S) (out outcome.Outcome, err error) {
	defer recoverDefect(&err)
	out = c.def.Solver(ctx, params)
	if out == nil {
		return nil, errors.New("solver returned no outcome")
	}
	return out, nil
}

func (c *Command[S]) describe(out outcome.Outcome) (p describe.Presentation, err error) {
	defer recoverDefect(&err)
	return c.describer.Describe(out), nil
}

func (c *Command[S]) reply(ctx context.Context, req request.View, p describe.Presentation) (id string, err error) {
	defer recoverDefect(&err)
	return c.def.Replyer(ctx, req, p)
}

func (c *Command[S]) store(ctx context.Context, p CacheParams[S]) (err error) {
	defer recoverDefect(&err)
	return c.def.Cacher(ctx, p)
}

func (c *Command[S]) cache(ctx context.Context, req request.View, params S, out outcome.Outcome, responseID string) bool {
	if c.def.Cacher == nil {
		return false
	}
	info, ok := outcome.PageInfoOf(out)
	if !ok {
		return false
	}

	err := c.store(ctx, CacheParams[S]{
		ResponseID:   responseID,
		SenderID:     req.Sender.ID,
		SolverParams: params,
		Page:         info.Page,
		TotalPages:   info.TotalPages,
	})
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "failed to cache paginated interaction",
			append(appcore.LogAttrs(ctx), slog.String("response_id", responseID), slog.String("error", err.Error()))...)
		return false
	}
	return true
}

func recoverDefect(err *error) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*err = fmt.Errorf("panic: %w", e)
			return
		}
		*err = fmt.Errorf("panic: %v", r)
	}
}
