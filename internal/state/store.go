// Package state owns the shared data model: a JSON-like nested mapping
// created once per session and mutated through a single writer path. Reads
// by the condition evaluator, the validation engine, and the action engine
// all go through consistent snapshots; writers publish the written path so
// registered consumers re-evaluate on a defined schedule instead of polling
// ambient global state.
package state

import (
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/genui/api"
	"github.com/agentic-research/genui/internal/paths"
	"github.com/google/uuid"
	"github.com/ohler55/ojg/jp"
)

// WatchFunc is invoked after a write under the watched prefix. path is the
// exact pointer written; value is the value that was set (nil for removes).
type WatchFunc func(path string, value any)

type subscriber struct {
	prefix string
	fn     WatchFunc
}

// Store is the data-model host. All mutation passes through Set/Remove;
// snapshots are deep copies so no partial or interleaved read is ever
// exposed.
type Store struct {
	// ID identifies the session owning this model.
	ID string

	mu    sync.RWMutex
	model map[string]any

	// Watcher ids are indexed per normalized prefix as roaring bitmaps so a
	// write touches only the bitmaps along its own path, not every watcher.
	subs    map[uint32]*subscriber
	byPfx   map[string]*roaring.Bitmap
	nextSub uint32
}

// NewStore creates a session store around an initial model. A nil initial
// model starts empty.
func NewStore(initial map[string]any) *Store {
	if initial == nil {
		initial = map[string]any{}
	}
	return &Store{
		ID:    uuid.NewString(),
		model: initial,
		subs:  map[uint32]*subscriber{},
		byPfx: map[string]*roaring.Bitmap{},
	}
}

// Get resolves a pointer in the current model. The returned value is shared;
// callers must not mutate it. Absence is reported via ok, never an error.
func (s *Store) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paths.Get(s.model, path)
}

// Snapshot returns a deep copy of the whole model, safe to hand to a pure
// evaluator while writers keep going.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopyMap(s.model)
}

// Set writes value at path and notifies watchers whose prefix covers it.
func (s *Store) Set(path string, value any) {
	s.mu.Lock()
	paths.Set(s.model, path, value)
	watchers := s.coveringLocked(path)
	s.mu.Unlock()

	// Callbacks run outside the lock: a watcher may re-enter the store.
	for _, fn := range watchers {
		fn(path, value)
	}
}

// Update applies fn to the current value at path (nil when absent) and
// writes the result back, as one atomic read-modify-write.
func (s *Store) Update(path string, fn func(cur any) any) {
	s.mu.Lock()
	cur, _ := paths.Get(s.model, path)
	next := fn(cur)
	paths.Set(s.model, path, next)
	watchers := s.coveringLocked(path)
	s.mu.Unlock()

	for _, w := range watchers {
		w(path, next)
	}
}

// Remove deletes the value at path and notifies watchers.
func (s *Store) Remove(path string) {
	s.mu.Lock()
	paths.Delete(s.model, path)
	watchers := s.coveringLocked(path)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(path, nil)
	}
}

// ApplyPatch routes a dataPath patch into the model. This is the sink the
// stream processor hands data patches to.
func (s *Store) ApplyPatch(p api.Patch) {
	if p.DataPath == "" {
		return
	}
	if p.Op == api.OpRemove {
		s.Remove(p.DataPath)
		return
	}
	s.Set(p.DataPath, p.Value)
}

// Watch registers fn for writes at or under prefix ("" or "/" watches
// everything). It returns an id for Unwatch.
func (s *Store) Watch(prefix string, fn WatchFunc) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	key := normalize(prefix)
	s.subs[id] = &subscriber{prefix: key, fn: fn}

	bm, ok := s.byPfx[key]
	if !ok {
		bm = roaring.New()
		s.byPfx[key] = bm
	}
	bm.Add(id)
	return id
}

// Unwatch removes a watcher. Unknown ids are ignored.
func (s *Store) Unwatch(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return
	}
	delete(s.subs, id)
	if bm, ok := s.byPfx[sub.prefix]; ok {
		bm.Remove(id)
		if bm.IsEmpty() {
			delete(s.byPfx, sub.prefix)
		}
	}
}

// coveringLocked collects the callbacks of every watcher whose prefix is a
// segment-wise prefix of path. Must be called with s.mu held.
func (s *Store) coveringLocked(path string) []WatchFunc {
	if len(s.subs) == 0 {
		return nil
	}
	segs := paths.Split(path)
	hit := roaring.New()
	prefix := ""
	if bm, ok := s.byPfx[prefix]; ok {
		hit.Or(bm)
	}
	for _, seg := range segs {
		prefix += "/" + seg
		if bm, ok := s.byPfx[prefix]; ok {
			hit.Or(bm)
		}
	}
	if hit.IsEmpty() {
		return nil
	}

	out := make([]WatchFunc, 0, hit.GetCardinality())
	it := hit.Iterator()
	for it.HasNext() {
		if sub, ok := s.subs[it.Next()]; ok {
			out = append(out, sub.fn)
		}
	}
	return out
}

// Query runs a JSONPath expression against a consistent snapshot of the
// model. Used by tooling; the engine itself addresses by pointer only.
func (s *Store) Query(expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath %q: %w", expr, err)
	}
	return x.Get(s.Snapshot()), nil
}

func normalize(prefix string) string {
	out := ""
	for _, seg := range paths.Split(prefix) {
		out += "/" + seg
	}
	return out
}

func deepCopyMap(m map[string]any) map[string]any {
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
