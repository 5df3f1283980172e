// Package client drives streaming generation requests: POST a prompt, read
// the JSONL patch response incrementally, and expose the evolving tree.
//
// Send is generation-fenced: calling it again while a prior stream is in
// flight aborts the old stream first, and anything the old stream produces
// afterwards — snapshots, data patches, even its abort error — is dropped on
// the floor rather than overwriting the newer generation's state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/agentic-research/genui/api"
	"github.com/agentic-research/genui/internal/stream"
)

// Options configures a Client. All fields are optional.
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger

	// OnSnapshot observes each committed tree snapshot of the live
	// generation. OnData receives the live generation's data patches.
	OnSnapshot stream.SnapshotFunc
	OnData     stream.DataSink
}

// Client is a streaming generation client. All methods are safe for
// concurrent use.
type Client struct {
	endpoint string
	hc       *http.Client
	log      *slog.Logger
	opts     Options

	mu        sync.Mutex
	gen       uint64
	cancel    context.CancelFunc
	tree      *api.Tree
	streaming bool
	err       error
}

// New creates a client posting to endpoint.
func New(endpoint string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		hc:       hc,
		log:      log,
		opts:     opts,
		tree:     api.NewTree(),
	}
}

type request struct {
	Prompt  string         `json:"prompt"`
	Context map[string]any `json:"context,omitempty"`
}

// Send starts a new generation for prompt, aborting any stream still in
// flight. It returns once the request is underway; progress is observed via
// Tree, Streaming and Err (or the Options callbacks).
func (c *Client) Send(ctx context.Context, prompt string, contextObj map[string]any) error {
	body, err := json.Marshal(request{Prompt: prompt, Context: contextObj})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	c.cancel = cancel
	c.tree = api.NewTree()
	c.streaming = true
	c.err = nil
	c.mu.Unlock()

	c.log.Debug("starting generation", "gen", gen, "endpoint", c.endpoint)
	go c.runStream(ctx, gen, body)
	return nil
}

func (c *Client) runStream(ctx context.Context, gen uint64, body []byte) {
	p := stream.New(stream.Options{
		OnSnapshot: func(t *api.Tree) {
			if c.commitSnapshot(gen, t) && c.opts.OnSnapshot != nil {
				c.opts.OnSnapshot(t)
			}
		},
		OnData: func(patch api.Patch) {
			if c.isLive(gen) && c.opts.OnData != nil {
				c.opts.OnData(patch)
			}
		},
	})

	err := c.fetch(ctx, body, p)
	c.finish(gen, err)
}

func (c *Client) fetch(ctx context.Context, body []byte, p *stream.Processor) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("stream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream request: unexpected status %s", resp.Status)
	}
	return p.Run(ctx, resp.Body)
}

// commitSnapshot installs a snapshot if gen is still the live generation.
func (c *Client) commitSnapshot(gen uint64, t *api.Tree) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.tree = t
	return true
}

func (c *Client) isLive(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

// finish records a generation's outcome. A stale generation's outcome is
// discarded entirely; an abort of the live generation is silent.
func (c *Client) finish(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.streaming = false
	c.cancel = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		c.err = err
		c.log.Warn("stream failed", "gen", gen, "err", err)
	}
}

// Tree returns the live generation's last committed snapshot.
func (c *Client) Tree() *api.Tree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree
}

// Streaming reports whether a generation is still in flight.
func (c *Client) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Err returns the live generation's transport error, if any. Aborts are
// never reported here.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Clear aborts any in-flight stream and resets the client to an empty tree.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.tree = api.NewTree()
	c.streaming = false
	c.err = nil
}
