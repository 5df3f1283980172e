// Package dynamic resolves dynamic values (literal-or-reference) and
// evaluates visibility conditions against a data-model snapshot. Everything
// here is pure: identical inputs yield identical outputs, nothing is cached,
// and no input is mutated, so it is safe to call on every render tick.
package dynamic

import (
	"reflect"

	"github.com/agentic-research/genui/api"
	"github.com/agentic-research/genui/internal/paths"
)

// AuthProvider reports the session's auth state. A nil provider means
// signed out.
type AuthProvider interface {
	SignedIn() bool
}

// Context carries everything a condition can observe.
type Context struct {
	Model map[string]any
	Auth  AuthProvider
}

// Resolve returns v itself for literals, or the data-model value at the
// referenced path. References are api.Ref values or their wire form: a
// single-key map {"path": string}. Resolution is total — an unresolvable
// path yields nil, never an error.
func Resolve(v any, model map[string]any) any {
	switch ref := v.(type) {
	case nil:
		return nil
	case api.Ref:
		out, _ := paths.Get(model, ref.Path)
		return out
	case *api.Ref:
		if ref == nil {
			return nil
		}
		out, _ := paths.Get(model, ref.Path)
		return out
	case map[string]any:
		if len(ref) == 1 {
			if p, ok := ref["path"].(string); ok {
				out, _ := paths.Get(model, p)
				return out
			}
		}
	}
	return v
}

// Eval evaluates a visibility condition. And/or short-circuit left to right;
// an empty and-list is vacuously true, an empty or-list is false. Ordered
// comparisons are false when either operand is non-numeric — they never fail.
func Eval(c *api.Condition, ctx Context) bool {
	if c == nil {
		return true
	}
	switch c.Kind() {
	case api.KindLiteral:
		return *c.Literal
	case api.KindPath:
		v, _ := paths.Get(ctx.Model, c.Path)
		return Truthy(v)
	case api.KindAuth:
		signedIn := ctx.Auth != nil && ctx.Auth.SignedIn()
		if c.Auth == api.AuthSignedOut {
			return !signedIn
		}
		return signedIn
	case api.KindAnd:
		for i := range c.And {
			if !Eval(&c.And[i], ctx) {
				return false
			}
		}
		return true
	case api.KindOr:
		for i := range c.Or {
			if Eval(&c.Or[i], ctx) {
				return true
			}
		}
		return false
	case api.KindNot:
		return !Eval(c.Not, ctx)
	case api.KindCmp:
		return evalCmp(c.Cmp, ctx)
	default:
		// Zero-value or unparsed condition: fail closed.
		return false
	}
}

func evalCmp(cmp *api.Comparison, ctx Context) bool {
	left := Resolve(cmp.Left, ctx.Model)
	right := Resolve(cmp.Right, ctx.Model)

	switch cmp.Op {
	case api.CmpEq:
		return structEqual(left, right)
	case api.CmpNeq:
		return !structEqual(left, right)
	}

	lf, lok := asNumber(left)
	rf, rok := asNumber(right)
	if !lok || !rok {
		return false
	}
	switch cmp.Op {
	case api.CmpGt:
		return lf > rf
	case api.CmpGte:
		return lf >= rf
	case api.CmpLt:
		return lf < rf
	case api.CmpLte:
		return lf <= rf
	}
	return false
}

// structEqual compares primitives by value and composites by deep structural
// equality. Numbers compare numerically so an int literal equals the float64
// the JSON decoder produced.
func structEqual(a, b any) bool {
	if af, aok := asNumber(a); aok {
		bf, bok := asNumber(b)
		return bok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

// Truthy implements standard truthiness: nil, false, numeric zero, and the
// empty string are false; everything else (including empty maps and slices)
// is true.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		if f, ok := asNumber(v); ok {
			return f != 0
		}
		return true
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
