// Package paths implements slash-delimited pointer addressing over nested
// JSON-like mappings. Get never fails — absence is a normal answer — and Set
// creates intermediate mappings as it walks.
package paths

import "strings"

// Split normalizes a pointer into its segments. A leading slash is optional;
// "" and "/" address the whole model (zero segments). Empty segments from
// doubled slashes are dropped.
func Split(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	raw := strings.Split(path, "/")
	segs := raw[:0]
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Get resolves path inside model. The second return is false the moment any
// intermediate value is missing or not a mapping. Get never panics.
func Get(model map[string]any, path string) (any, bool) {
	segs := Split(path)
	if len(segs) == 0 {
		return model, model != nil
	}
	var cur any = model
	for _, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set assigns value at path inside model, creating an empty mapping at any
// missing or non-mapping intermediate segment. Setting the empty path is a
// no-op: the model root cannot be replaced, only written into.
func Set(model map[string]any, path string, value any) {
	segs := Split(path)
	if len(segs) == 0 || model == nil {
		return
	}
	cur := model
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = value
}

// Delete removes the value at path if its parent exists. Missing parents are
// ignored.
func Delete(model map[string]any, path string) {
	segs := Split(path)
	if len(segs) == 0 || model == nil {
		return
	}
	cur := model
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, segs[len(segs)-1])
}
