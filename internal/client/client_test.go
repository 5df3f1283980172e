package client

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentic-research/genui/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const script = `{"op":"set","path":"/root","value":"a"}
{"op":"add","path":"/elements/a","value":{"key":"a","type":"Card","props":{"title":"X"}}}
`

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitDone(t *testing.T, c *Client) {
	t.Helper()
	require.Eventually(t, func() bool { return !c.Streaming() },
		2*time.Second, time.Millisecond)
}

func TestClient_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt  string         `json:"prompt"`
			Context map[string]any `json:"context"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "make a card", req.Prompt)
		assert.Equal(t, map[string]any{"user": "ada"}, req.Context)

		io.WriteString(w, script)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{Logger: quiet()})
	require.NoError(t, c.Send(t.Context(), "make a card", map[string]any{"user": "ada"}))
	assert.True(t, c.Streaming())

	waitDone(t, c)
	require.NoError(t, c.Err())
	tr := c.Tree()
	assert.Equal(t, "a", tr.Root)
	require.Len(t, tr.Elements, 1)
	assert.Equal(t, "Card", tr.Elements["a"].Type)
}

func TestClient_SnapshotCallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, script)
	}))
	defer srv.Close()

	var snaps atomic.Int32
	c := New(srv.URL, Options{
		Logger:     quiet(),
		OnSnapshot: func(*api.Tree) { snaps.Add(1) },
	})
	require.NoError(t, c.Send(t.Context(), "go", nil))
	waitDone(t, c)

	assert.Equal(t, int32(2), snaps.Load(), "one snapshot per applied patch")
}

func TestClient_TransportFailureSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{Logger: quiet()})
	require.NoError(t, c.Send(t.Context(), "go", nil))
	waitDone(t, c)

	assert.Error(t, c.Err())
	assert.Empty(t, c.Tree().Root, "failed stream leaves the empty tree intact")
}

func TestClient_ResendAbortsPriorGeneration(t *testing.T) {
	var calls atomic.Int32
	firstStarted := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// First generation: emit one patch, then stall until aborted.
			io.WriteString(w, `{"op":"set","path":"/root","value":"stale"}`+"\n")
			w.(http.Flusher).Flush()
			close(firstStarted)
			<-r.Context().Done()
			return
		}
		io.WriteString(w, script)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{Logger: quiet()})
	require.NoError(t, c.Send(t.Context(), "first", nil))
	<-firstStarted
	require.Eventually(t, func() bool { return c.Tree().Root == "stale" },
		2*time.Second, time.Millisecond)

	require.NoError(t, c.Send(t.Context(), "second", nil))
	waitDone(t, c)

	assert.NoError(t, c.Err(), "the abort of the first stream is silent")
	assert.Equal(t, "a", c.Tree().Root, "the newer generation owns the tree")
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Clear(t *testing.T) {
	stalled := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"op":"set","path":"/root","value":"a"}`+"\n")
		w.(http.Flusher).Flush()
		close(stalled)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(srv.URL, Options{Logger: quiet()})
	require.NoError(t, c.Send(t.Context(), "go", nil))
	<-stalled
	require.Eventually(t, func() bool { return c.Tree().Root == "a" },
		2*time.Second, time.Millisecond)

	c.Clear()
	assert.False(t, c.Streaming())
	assert.NoError(t, c.Err())
	assert.Empty(t, c.Tree().Root)

	// The aborted stream must not resurrect its tree afterwards.
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, c.Tree().Root)
}
