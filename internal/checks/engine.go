// Package checks validates data-model values against ordered lists of named
// checks. Validation failure is a normal result value, never an error: every
// check in a field's list runs — no short-circuiting — and each failing
// check contributes its message, so callers can surface all violations at
// once.
package checks

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/agentic-research/genui/api"
	"github.com/agentic-research/genui/internal/dynamic"
	"github.com/agentic-research/genui/internal/paths"
	"github.com/agentic-research/genui/internal/state"
	"github.com/go-playground/validator/v10"
)

// CheckFunc is a custom validator registered by name. It may block (remote
// lookups run under ctx). A false return or a non-nil error both count as a
// failed check.
type CheckFunc func(ctx context.Context, value any, args map[string]any, model map[string]any) (bool, error)

// FieldState tracks a registered field's lifecycle. Touched and Validated
// are independent flags: touching a field does not validate it.
type FieldState struct {
	Touched   bool
	Validated bool
	Result    *api.ValidationResult
}

// Engine runs checks against values resolved from the session store.
type Engine struct {
	store *state.Store

	mu     sync.Mutex
	fields map[string]*field
	custom map[string]CheckFunc

	// String-format built-ins (email, url, numeric) delegate to
	// go-playground/validator rather than hand-rolled regexps.
	v *validator.Validate
}

type field struct {
	checks    []api.CheckSpec
	touched   bool
	validated bool
	result    *api.ValidationResult
}

// NewEngine creates a validation engine bound to a store.
func NewEngine(store *state.Store) *Engine {
	return &Engine{
		store:  store,
		fields: map[string]*field{},
		custom: map[string]CheckFunc{},
		v:      validator.New(),
	}
}

// RegisterFunc installs a custom check under name. Built-in names can be
// shadowed deliberately.
func (e *Engine) RegisterFunc(name string, fn CheckFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.custom[name] = fn
}

// Register declares (or redeclares) the checks for a field keyed by its
// data path. Registration resets the field's validation state.
func (e *Engine) Register(path string, specs []api.CheckSpec) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fields[path] = &field{checks: specs}
}

// Touch marks a field as touched without validating it.
func (e *Engine) Touch(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f, ok := e.fields[path]; ok {
		f.touched = true
	}
}

// Clear resets a field's touched/validated flags and result.
func (e *Engine) Clear(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f, ok := e.fields[path]; ok {
		f.touched = false
		f.validated = false
		f.result = nil
	}
}

// Drop removes a field registration entirely (owning scope torn down).
func (e *Engine) Drop(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.fields, path)
}

// State reports a field's current lifecycle flags.
func (e *Engine) State(path string) (FieldState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.fields[path]
	if !ok {
		return FieldState{}, false
	}
	return FieldState{Touched: f.touched, Validated: f.validated, Result: f.result}, true
}

// Validate resolves the current value at path and runs the field's checks in
// declared order, collecting every failing message. Async custom checks are
// awaited; the aggregate result is stored on the field and returned.
func (e *Engine) Validate(ctx context.Context, path string) api.ValidationResult {
	e.mu.Lock()
	f, ok := e.fields[path]
	var specs []api.CheckSpec
	if ok {
		specs = f.checks
	}
	e.mu.Unlock()

	result := e.run(ctx, path, specs)

	e.mu.Lock()
	if f, ok := e.fields[path]; ok {
		f.validated = true
		f.result = &result
	}
	e.mu.Unlock()
	return result
}

// ValidateAll validates every registered field and reports overall pass or
// fail. It never stops at the first failing field.
func (e *Engine) ValidateAll(ctx context.Context) bool {
	e.mu.Lock()
	fieldPaths := make([]string, 0, len(e.fields))
	for p := range e.fields {
		fieldPaths = append(fieldPaths, p)
	}
	e.mu.Unlock()

	valid := true
	for _, p := range fieldPaths {
		if res := e.Validate(ctx, p); !res.Valid {
			valid = false
		}
	}
	return valid
}

func (e *Engine) run(ctx context.Context, path string, specs []api.CheckSpec) api.ValidationResult {
	model := e.store.Snapshot()
	value, _ := paths.Get(model, path)

	var errs []string
	for _, spec := range specs {
		ok := e.runCheck(ctx, spec, value, model)
		if !ok {
			errs = append(errs, messageFor(spec))
		}
	}
	return api.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func (e *Engine) runCheck(ctx context.Context, spec api.CheckSpec, value any, model map[string]any) bool {
	e.mu.Lock()
	fn, isCustom := e.custom[spec.Fn]
	e.mu.Unlock()
	if isCustom {
		ok, err := fn(ctx, value, spec.Args, model)
		return ok && err == nil
	}

	switch spec.Fn {
	case "required":
		return required(value)
	case "email":
		s, ok := value.(string)
		return ok && e.v.Var(s, "email") == nil
	case "url":
		s, ok := value.(string)
		return ok && e.v.Var(s, "url") == nil
	case "numeric":
		if _, ok := asNumber(value); ok {
			return true
		}
		s, ok := value.(string)
		return ok && e.v.Var(s, "numeric") == nil
	case "minLength":
		s, ok := value.(string)
		n, argOK := argNumber(spec.Args, "length")
		return ok && argOK && len([]rune(s)) >= int(n)
	case "maxLength":
		s, ok := value.(string)
		n, argOK := argNumber(spec.Args, "length")
		return ok && argOK && len([]rune(s)) <= int(n)
	case "pattern":
		s, ok := value.(string)
		expr, argOK := spec.Args["pattern"].(string)
		if !ok || !argOK {
			return false
		}
		re, err := regexp.Compile(expr)
		return err == nil && re.MatchString(s)
	case "min":
		v, ok := asNumber(value)
		bound, argOK := argNumber(spec.Args, "value")
		return ok && argOK && v >= bound
	case "max":
		v, ok := asNumber(value)
		bound, argOK := argNumber(spec.Args, "value")
		return ok && argOK && v <= bound
	case "matches":
		other := dynamic.Resolve(spec.Args["value"], model)
		return value == other
	default:
		// Unknown check name: fail, the declaration is wrong.
		return false
	}
}

// required is non-empty per type: nil, "", empty slices and empty maps fail.
func required(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func messageFor(spec api.CheckSpec) string {
	if spec.Message != "" {
		return spec.Message
	}
	return fmt.Sprintf("check %q failed", spec.Fn)
}

func argNumber(args map[string]any, key string) (float64, bool) {
	if args == nil {
		return 0, false
	}
	return asNumber(args[key])
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	default:
		return 0, false
	}
}
