// Package tree applies patches to UI tree snapshots. Apply is a pure
// reducer: untouched elements keep reference identity across snapshots so
// consumers can do shallow-equality change detection, and a patch that has
// no effect returns the input tree itself.
package tree

import (
	"encoding/json"

	"github.com/agentic-research/genui/api"
	"github.com/agentic-research/genui/internal/paths"
)

// Apply folds one patch into a tree and returns the resulting snapshot.
// Patches the reducer does not recognize — dataPath patches, absent or
// malformed paths, field patches for elements that have not arrived yet —
// leave the tree untouched and return it unchanged (same pointer).
//
// Recognized paths:
//
//	/root                     set/add/replace the root key
//	/elements/{key}           set/add/replace/remove a whole element
//	/elements/{key}/<subpath> copy-on-write field mutation
func Apply(t *api.Tree, p api.Patch) *api.Tree {
	if t == nil || p.DataPath != "" {
		return t
	}
	segs := paths.Split(p.Path)
	if len(segs) == 0 {
		return t
	}

	switch {
	case len(segs) == 1 && segs[0] == "root":
		return applyRoot(t, p)
	case segs[0] == "elements" && len(segs) == 2:
		return applyElement(t, p, segs[1])
	case segs[0] == "elements" && len(segs) > 2:
		return applyField(t, p, segs[1], segs[2], segs[3:])
	default:
		return t
	}
}

func applyRoot(t *api.Tree, p api.Patch) *api.Tree {
	if p.Op == api.OpRemove {
		return t
	}
	key, ok := p.Value.(string)
	if !ok || key == t.Root {
		return t
	}
	// No validation that the key exists: a dangling root is a normal
	// transient state during streaming.
	next := shallowClone(t)
	next.Root = key
	return next
}

func applyElement(t *api.Tree, p api.Patch, key string) *api.Tree {
	if p.Op == api.OpRemove {
		if _, exists := t.Elements[key]; !exists {
			return t
		}
		next := shallowClone(t)
		delete(next.Elements, key)
		// Children still referencing key dangle; traversal skips them.
		return next
	}

	el, err := api.ElementFromValue(p.Value)
	if err != nil {
		return t
	}
	if el.Key == "" {
		el.Key = key
	}
	next := shallowClone(t)
	next.Elements[key] = el
	return next
}

// applyField mutates one field inside an existing element, copy-on-write.
// If the element has not arrived yet the patch is dropped — this guards
// against out-of-order streams and is deliberately not retried later.
func applyField(t *api.Tree, p api.Patch, key, head string, rest []string) *api.Tree {
	old, exists := t.Elements[key]
	if !exists {
		return t
	}

	el := cloneElement(old)
	switch head {
	case "props":
		if len(rest) == 0 {
			m, ok := p.Value.(map[string]any)
			if !ok {
				if p.Op == api.OpRemove {
					el.Props = nil
					break
				}
				return t
			}
			el.Props = m
			break
		}
		if el.Props == nil {
			el.Props = map[string]any{}
		}
		sub := joinSegs(rest)
		if p.Op == api.OpRemove {
			paths.Delete(el.Props, sub)
		} else {
			paths.Set(el.Props, sub, p.Value)
		}
	case "children":
		if len(rest) > 0 {
			return t
		}
		if p.Op == api.OpRemove {
			el.Children = nil
			break
		}
		kids, ok := stringSlice(p.Value)
		if !ok {
			return t
		}
		el.Children = kids
	case "type":
		s, ok := p.Value.(string)
		if !ok || len(rest) > 0 {
			return t
		}
		el.Type = s
	case "visible":
		if len(rest) > 0 {
			return t
		}
		if p.Op == api.OpRemove {
			el.Visible = nil
			break
		}
		cond, err := conditionFromValue(p.Value)
		if err != nil {
			return t
		}
		el.Visible = cond
	default:
		return t
	}

	next := shallowClone(t)
	next.Elements[key] = el
	return next
}

// shallowClone copies the tree and its elements map; element pointers are
// shared so untouched elements keep identity.
func shallowClone(t *api.Tree) *api.Tree {
	elements := make(map[string]*api.Element, len(t.Elements))
	for k, v := range t.Elements {
		elements[k] = v
	}
	return &api.Tree{Root: t.Root, Elements: elements}
}

// cloneElement copies the element deeply enough that mutating the copy's
// props can never be observed through the old snapshot.
func cloneElement(el *api.Element) *api.Element {
	out := *el
	out.Props = deepCopyMap(el.Props)
	if el.Children != nil {
		out.Children = append([]string(nil), el.Children...)
	}
	return &out
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}

func stringSlice(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func conditionFromValue(v any) (*api.Condition, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var cond api.Condition
	if err := json.Unmarshal(raw, &cond); err != nil {
		return nil, err
	}
	return &cond, nil
}

func joinSegs(segs []string) string {
	out := ""
	for _, s := range segs {
		out += "/" + s
	}
	return out
}
