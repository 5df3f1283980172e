package api

import (
	"encoding/json"
	"fmt"
)

// AuthState names the two auth checks a condition can make.
type AuthState string

const (
	AuthSignedIn  AuthState = "signedIn"
	AuthSignedOut AuthState = "signedOut"
)

// CmpOp is a comparison operator inside a condition.
type CmpOp string

const (
	CmpEq  CmpOp = "eq"
	CmpNeq CmpOp = "neq"
	CmpGt  CmpOp = "gt"
	CmpGte CmpOp = "gte"
	CmpLt  CmpOp = "lt"
	CmpLte CmpOp = "lte"
)

// ConditionKind tags the variant a Condition holds. The evaluator dispatches
// on this tag exhaustively; there is no duck-typing fallback.
type ConditionKind int

const (
	KindInvalid ConditionKind = iota
	KindLiteral
	KindPath
	KindAuth
	KindAnd
	KindOr
	KindNot
	KindCmp
)

// Condition is the visibility expression grammar: a boolean literal, a data
// reference, an auth check, boolean combinators, or a comparison whose
// operands are themselves dynamic values. Exactly one variant is set.
//
// Wire forms:
//
//	true                          literal
//	{"path": "/cart/open"}        data reference (truthiness)
//	{"auth": "signedIn"}          auth check
//	{"and": [c1, c2]}             conjunction (empty list is true)
//	{"or": [c1, c2]}              disjunction (empty list is false)
//	{"not": c}                    negation
//	{"eq": [a, b]}                comparison; a, b literals or {path} refs
type Condition struct {
	Literal *bool
	Path    string
	Auth    AuthState
	And     []Condition
	Or      []Condition
	Not     *Condition
	Cmp     *Comparison

	kind ConditionKind
}

// Comparison holds a comparison operator and its two dynamic operands.
type Comparison struct {
	Op    CmpOp
	Left  any
	Right any
}

// Kind returns the variant tag.
func (c *Condition) Kind() ConditionKind { return c.kind }

// Lit builds a literal condition.
func Lit(b bool) Condition { return Condition{Literal: &b, kind: KindLiteral} }

// PathCond builds a data-reference condition.
func PathCond(path string) Condition { return Condition{Path: path, kind: KindPath} }

// AuthCond builds an auth-state condition.
func AuthCond(s AuthState) Condition { return Condition{Auth: s, kind: KindAuth} }

// AndCond builds a conjunction.
func AndCond(cs ...Condition) Condition { return Condition{And: cs, kind: KindAnd} }

// OrCond builds a disjunction.
func OrCond(cs ...Condition) Condition { return Condition{Or: cs, kind: KindOr} }

// NotCond builds a negation.
func NotCond(c Condition) Condition { return Condition{Not: &c, kind: KindNot} }

// CmpCond builds a comparison condition.
func CmpCond(op CmpOp, left, right any) Condition {
	return Condition{Cmp: &Comparison{Op: op, Left: left, Right: right}, kind: KindCmp}
}

// UnmarshalJSON decodes the wire forms above. Unknown shapes are an error;
// the grammar is closed.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*c = Lit(b)
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("condition: expected bool or object: %w", err)
	}

	if raw, ok := obj["path"]; ok {
		var p string
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("condition path: %w", err)
		}
		*c = PathCond(p)
		return nil
	}
	if raw, ok := obj["auth"]; ok {
		var a AuthState
		if err := json.Unmarshal(raw, &a); err != nil {
			return fmt.Errorf("condition auth: %w", err)
		}
		*c = AuthCond(a)
		return nil
	}
	if raw, ok := obj["and"]; ok {
		var cs []Condition
		if err := json.Unmarshal(raw, &cs); err != nil {
			return fmt.Errorf("condition and: %w", err)
		}
		*c = Condition{And: cs, kind: KindAnd}
		return nil
	}
	if raw, ok := obj["or"]; ok {
		var cs []Condition
		if err := json.Unmarshal(raw, &cs); err != nil {
			return fmt.Errorf("condition or: %w", err)
		}
		*c = Condition{Or: cs, kind: KindOr}
		return nil
	}
	if raw, ok := obj["not"]; ok {
		var inner Condition
		if err := json.Unmarshal(raw, &inner); err != nil {
			return fmt.Errorf("condition not: %w", err)
		}
		*c = NotCond(inner)
		return nil
	}
	for _, op := range []CmpOp{CmpEq, CmpNeq, CmpGt, CmpGte, CmpLt, CmpLte} {
		raw, ok := obj[string(op)]
		if !ok {
			continue
		}
		var operands []any
		if err := json.Unmarshal(raw, &operands); err != nil {
			return fmt.Errorf("condition %s: %w", op, err)
		}
		if len(operands) != 2 {
			return fmt.Errorf("condition %s: want 2 operands, got %d", op, len(operands))
		}
		*c = CmpCond(op, operands[0], operands[1])
		return nil
	}

	return fmt.Errorf("condition: unrecognized shape (keys %v)", keysOf(obj))
}

// MarshalJSON emits the same wire forms UnmarshalJSON accepts.
func (c Condition) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case KindLiteral:
		return json.Marshal(*c.Literal)
	case KindPath:
		return json.Marshal(map[string]string{"path": c.Path})
	case KindAuth:
		return json.Marshal(map[string]AuthState{"auth": c.Auth})
	case KindAnd:
		return json.Marshal(map[string][]Condition{"and": nonNil(c.And)})
	case KindOr:
		return json.Marshal(map[string][]Condition{"or": nonNil(c.Or)})
	case KindNot:
		return json.Marshal(map[string]*Condition{"not": c.Not})
	case KindCmp:
		return json.Marshal(map[string][]any{string(c.Cmp.Op): {c.Cmp.Left, c.Cmp.Right}})
	default:
		return nil, fmt.Errorf("condition: marshal of invalid condition")
	}
}

func nonNil(cs []Condition) []Condition {
	if cs == nil {
		return []Condition{}
	}
	return cs
}

func keysOf(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
