// Package stream turns a chunk-delimited JSONL byte stream into tree
// snapshots. Chunks arrive in order but with arbitrary boundaries — a patch
// line can be split anywhere — so the processor keeps one accumulation
// buffer across chunks and only parses complete lines. Model formatting
// noise (blank lines, // comments, unparseable JSON) is skipped silently;
// the stream never aborts because of a bad line.
package stream

import (
	"context"
	"io"
	"strings"

	"github.com/agentic-research/genui/api"
	"github.com/agentic-research/genui/internal/tree"
	"github.com/ohler55/ojg/oj"
)

// DataSink receives patches that target the data model (dataPath set)
// instead of the tree.
type DataSink func(p api.Patch)

// SnapshotFunc receives each new tree snapshot, one per applied patch.
type SnapshotFunc func(t *api.Tree)

// Options configures a Processor. Both callbacks are optional.
type Options struct {
	OnSnapshot SnapshotFunc
	OnData     DataSink
}

// Processor folds a patch stream into tree snapshots. Not safe for
// concurrent use; one goroutine owns a processor for the life of a stream.
type Processor struct {
	opts Options
	buf  strings.Builder
	tree *api.Tree
	done bool
}

// New creates a processor starting from an empty tree.
func New(opts Options) *Processor {
	return &Processor{opts: opts, tree: api.NewTree()}
}

// Tree returns the last committed snapshot.
func (p *Processor) Tree() *api.Tree { return p.tree }

// Feed appends one chunk and processes every complete line it closes. The
// trailing fragment after the last newline is held back for the next chunk.
// Once ctx is cancelled no further snapshots are emitted.
func (p *Processor) Feed(ctx context.Context, chunk string) {
	if p.done || ctx.Err() != nil {
		return
	}
	p.buf.WriteString(chunk)
	data := p.buf.String()

	idx := strings.LastIndexByte(data, '\n')
	if idx < 0 {
		return
	}
	complete, fragment := data[:idx], data[idx+1:]
	p.buf.Reset()
	p.buf.WriteString(fragment)

	for _, line := range strings.Split(complete, "\n") {
		if ctx.Err() != nil {
			p.done = true
			return
		}
		p.processLine(line)
	}
}

// Finish processes any remaining buffered fragment as a final line. The
// processor accepts no further input afterwards.
func (p *Processor) Finish(ctx context.Context) {
	if p.done {
		return
	}
	p.done = true
	if ctx.Err() != nil {
		return
	}
	if rest := p.buf.String(); rest != "" {
		p.buf.Reset()
		p.processLine(rest)
	}
}

// Run drives the processor from a reader until EOF or cancellation,
// feeding chunks exactly as the transport delivers them.
func (p *Processor) Run(ctx context.Context, r io.Reader) error {
	buf := make([]byte, 4096)
	for {
		if ctx.Err() != nil {
			p.done = true
			return ctx.Err()
		}
		n, err := r.Read(buf)
		if n > 0 {
			p.Feed(ctx, string(buf[:n]))
		}
		if err == io.EOF {
			p.Finish(ctx)
			return nil
		}
		if err != nil {
			p.done = true
			return err
		}
	}
}

func (p *Processor) processLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "//") {
		return
	}

	patch, ok := parsePatch(line)
	if !ok {
		return
	}

	if patch.DataPath != "" {
		if p.opts.OnData != nil {
			p.opts.OnData(patch)
		}
		return
	}
	if patch.Path == "" {
		return
	}

	next := tree.Apply(p.tree, patch)
	if next == p.tree {
		return
	}
	p.tree = next
	if p.opts.OnSnapshot != nil {
		p.opts.OnSnapshot(next)
	}
}

// parsePatch parses one JSONL line. Any malformed line — bad JSON, not an
// object, missing op — reports !ok and is skipped by the caller.
func parsePatch(line string) (api.Patch, bool) {
	v, err := oj.ParseString(line)
	if err != nil {
		return api.Patch{}, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return api.Patch{}, false
	}
	op, ok := m["op"].(string)
	if !ok {
		return api.Patch{}, false
	}

	patch := api.Patch{Op: api.Op(op), Value: m["value"]}
	if s, ok := m["path"].(string); ok {
		patch.Path = s
	}
	if s, ok := m["dataPath"].(string); ok {
		patch.DataPath = s
	}
	return patch, true
}
