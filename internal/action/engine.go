// Package action resolves and executes named actions against externally
// supplied handlers. The lifecycle is Idle → Resolving → AwaitingConfirmation
// (only when the action declares a confirm spec) → Executing → Completed or
// Failed; cancelling a pending confirmation is the alternate terminal path.
//
// Parameters are resolved exactly once, at dispatch time, so a confirmation
// prompt always shows the values that will actually be sent. No engine lock
// is held across the confirmation wait or the handler call, which lets
// handlers re-enter the engine to trigger nested actions.
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/agentic-research/genui/api"
	"github.com/agentic-research/genui/internal/dynamic"
	"github.com/agentic-research/genui/internal/state"
)

// ErrCancelled reports that a pending confirmation was cancelled or replaced
// before the action could run. Callers of Execute must expect it for any
// action carrying a confirm spec.
var ErrCancelled = errors.New("action cancelled")

// Handler executes one named action with its resolved params. The returned
// value is addressable from onSuccess mutations as the path /result.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// PendingConfirmation suspends one resolved action until exactly one of
// Confirm or Cancel is invoked. It is handed to whatever surface renders the
// confirmation dialog.
type PendingConfirmation struct {
	Resolved api.ResolvedAction
	Spec     *api.ConfirmSpec

	once     sync.Once
	decision chan bool
}

// Confirm releases the suspended action into execution.
func (p *PendingConfirmation) Confirm() { p.resolve(true) }

// Cancel rejects the suspended action; its Execute call returns ErrCancelled.
func (p *PendingConfirmation) Cancel() { p.resolve(false) }

func (p *PendingConfirmation) resolve(ok bool) {
	p.once.Do(func() { p.decision <- ok })
}

// Engine dispatches actions by name. At most one confirmation is pending at
// a time: dispatching a second confirm-requiring action replaces the first,
// whose Execute call then fails with ErrCancelled.
type Engine struct {
	store *state.Store
	log   *slog.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	loading  map[string]bool
	pending  *PendingConfirmation
}

// NewEngine creates an action engine bound to a store. A nil logger falls
// back to slog.Default.
func NewEngine(store *state.Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:    store,
		log:      log,
		handlers: map[string]Handler{},
		loading:  map[string]bool{},
	}
}

// Register installs the handler for an action name.
func (e *Engine) Register(name string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[name] = h
}

// Loading reports whether an action with this name is currently executing.
func (e *Engine) Loading(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading[name]
}

// Pending returns the confirmation currently awaiting user input, if any.
func (e *Engine) Pending() *PendingConfirmation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// Resolve evaluates every param against the current data model. Dispatch-time
// resolution: later model writes do not change what the handler receives.
func (e *Engine) Resolve(act *api.Action) api.ResolvedAction {
	model := e.store.Snapshot()
	params := make(map[string]any, len(act.Params))
	for k, v := range act.Params {
		params[k] = dynamic.Resolve(v, model)
	}
	return api.ResolvedAction{Action: act, Params: params}
}

// Execute runs one action to completion. A missing handler is a logged no-op.
// When the action declares a confirm spec, Execute blocks until Confirm,
// Cancel, replacement by a newer confirmation, or ctx expiry.
func (e *Engine) Execute(ctx context.Context, act *api.Action) (any, error) {
	resolved := e.Resolve(act)

	e.mu.Lock()
	h, ok := e.handlers[act.Name]
	e.mu.Unlock()
	if !ok {
		e.log.Warn("no handler registered for action", "action", act.Name)
		return nil, nil
	}

	if act.Confirm != nil {
		if err := e.awaitConfirmation(ctx, resolved, act.Confirm); err != nil {
			return nil, err
		}
	}
	return e.run(ctx, act, h, resolved.Params)
}

// awaitConfirmation installs a pending record and blocks until it resolves.
// The engine lock is held only while swapping the record, never while
// waiting.
func (e *Engine) awaitConfirmation(ctx context.Context, resolved api.ResolvedAction, spec *api.ConfirmSpec) error {
	p := &PendingConfirmation{
		Resolved: resolved,
		Spec:     spec,
		decision: make(chan bool, 1),
	}

	e.mu.Lock()
	prior := e.pending
	e.pending = p
	e.mu.Unlock()
	if prior != nil {
		// Replacement policy: the newer confirmation wins, the displaced
		// action's Execute fails with ErrCancelled.
		prior.Cancel()
	}

	var confirmed, expired bool
	select {
	case confirmed = <-p.decision:
	case <-ctx.Done():
		p.resolve(false)
		expired = true
	}

	e.mu.Lock()
	if e.pending == p {
		e.pending = nil
	}
	e.mu.Unlock()

	if expired {
		return ctx.Err()
	}
	if !confirmed {
		return ErrCancelled
	}
	return nil
}

func (e *Engine) run(ctx context.Context, act *api.Action, h Handler, params map[string]any) (any, error) {
	e.mu.Lock()
	e.loading[act.Name] = true
	e.mu.Unlock()
	defer func() {
		// Cleared unconditionally, success or failure.
		e.mu.Lock()
		delete(e.loading, act.Name)
		e.mu.Unlock()
	}()

	result, err := h(ctx, params)
	if err != nil {
		e.log.Warn("action failed", "action", act.Name, "err", err)
		e.applyMutations(act.OnError, map[string]any{
			"error": map[string]any{"message": err.Error()},
		})
		return nil, fmt.Errorf("action %q: %w", act.Name, err)
	}

	e.applyMutations(act.OnSuccess, map[string]any{"result": result})
	return result, nil
}

// applyMutations writes each declared {path: value-or-ref} into the data
// model. References resolve against the current model extended with the
// outcome scope (/result on success, /error/message on failure), with the
// scope shadowing model keys of the same name.
func (e *Engine) applyMutations(muts map[string]any, scope map[string]any) {
	if len(muts) == 0 {
		return
	}
	model := e.store.Snapshot()
	for k, v := range scope {
		model[k] = v
	}
	for path, v := range muts {
		e.store.Set(path, dynamic.Resolve(v, model))
	}
}
