// Package api defines the wire types shared between the streaming engine,
// the catalog, and host applications: patches, elements, conditions, and
// actions. Everything here is JSON-shaped; one patch travels per JSONL line.
package api

import "encoding/json"

// Op is the patch operation verb.
type Op string

const (
	OpSet     Op = "set"
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpRemove  Op = "remove"
)

// Patch is one incremental instruction from the model. A patch with Path
// targets the UI tree; a patch with DataPath targets the data model instead
// and carries no tree semantics.
type Patch struct {
	Op       Op     `json:"op"`
	Path     string `json:"path,omitempty"`
	DataPath string `json:"dataPath,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// Tree is the addressable UI tree: a flat arena of elements keyed by string
// id plus a root key. During streaming, Root or any Children entry may
// reference a key that has not arrived yet — consumers must treat a missing
// lookup as "not yet renderable", never as an error.
type Tree struct {
	Root     string              `json:"root,omitempty"`
	Elements map[string]*Element `json:"elements"`
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{Elements: map[string]*Element{}}
}

// Element is one node in the arena. Children are references by key, never
// embedded objects, so forward references cost nothing. Props values are
// dynamic: either literals or {path} references resolved at render time.
type Element struct {
	Key      string         `json:"key"`
	Type     string         `json:"type"`
	Props    map[string]any `json:"props,omitempty"`
	Children []string       `json:"children,omitempty"`
	Visible  *Condition     `json:"visible,omitempty"`
}

// ElementFromValue decodes a whole-element patch value into an Element.
// The value is whatever the JSON parser produced for the patch line.
func ElementFromValue(v any) (*Element, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var el Element
	if err := json.Unmarshal(raw, &el); err != nil {
		return nil, err
	}
	return &el, nil
}

// Ref is a reference into the data model. Anywhere a dynamic value is
// accepted, {"path": "/some/path"} resolves against the current snapshot.
type Ref struct {
	Path string `json:"path"`
}
