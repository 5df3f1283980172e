package stream

import (
	"context"
	"strings"
	"testing"

	"github.com/agentic-research/genui/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const script = `{"op":"set","path":"/root","value":"a"}
{"op":"add","path":"/elements/a","value":{"key":"a","type":"Card","props":{"title":"X"},"children":["b"]}}
{"op":"add","path":"/elements/b","value":{"key":"b","type":"Text","props":{"content":"hi"}}}
`

func wantTree(t *testing.T, tr *api.Tree) {
	t.Helper()
	require.Equal(t, "a", tr.Root)
	require.Len(t, tr.Elements, 2)

	a := tr.Elements["a"]
	require.NotNil(t, a)
	assert.Equal(t, "Card", a.Type)
	assert.Equal(t, "X", a.Props["title"])
	assert.Equal(t, []string{"b"}, a.Children)

	b := tr.Elements["b"]
	require.NotNil(t, b)
	assert.Equal(t, "Text", b.Type)
	assert.Equal(t, "hi", b.Props["content"])
}

func TestProcessor_EndToEnd(t *testing.T) {
	p := New(Options{})
	p.Feed(context.Background(), script)
	p.Finish(context.Background())

	wantTree(t, p.Tree())
}

func TestProcessor_ArbitraryChunkBoundaries(t *testing.T) {
	// The same script split at every possible byte width must converge to
	// the same final tree as feeding it in one chunk.
	for width := 1; width <= 7; width++ {
		p := New(Options{})
		ctx := context.Background()
		for i := 0; i < len(script); i += width {
			end := i + width
			if end > len(script) {
				end = len(script)
			}
			p.Feed(ctx, script[i:end])
		}
		p.Finish(ctx)
		wantTree(t, p.Tree())
	}
}

func TestProcessor_FinalFragmentWithoutNewline(t *testing.T) {
	p := New(Options{})
	ctx := context.Background()
	p.Feed(ctx, `{"op":"set","path":"/root","value":"a"}`) // no trailing newline

	assert.Empty(t, p.Tree().Root, "incomplete line must not be parsed early")
	p.Finish(ctx)
	assert.Equal(t, "a", p.Tree().Root)
}

func TestProcessor_SkipsNoise(t *testing.T) {
	noisy := "\n// model commentary\n{not json at all\n" +
		`{"op":"set","path":"/root","value":"a"}` + "\n" +
		"[1,2,3]\n" + // valid JSON but not a patch object
		`{"path":"/elements/x","value":{}}` + "\n" // missing op

	p := New(Options{})
	p.Feed(context.Background(), noisy)
	p.Finish(context.Background())

	assert.Equal(t, "a", p.Tree().Root)
	assert.Empty(t, p.Tree().Elements)
}

func TestProcessor_EmitsOneSnapshotPerAppliedPatch(t *testing.T) {
	var snaps []*api.Tree
	p := New(Options{OnSnapshot: func(tr *api.Tree) { snaps = append(snaps, tr) }})

	p.Feed(context.Background(), script)
	p.Finish(context.Background())

	require.Len(t, snaps, 3)
	assert.Equal(t, "a", snaps[0].Root)
	assert.Len(t, snaps[0].Elements, 0)
	assert.Len(t, snaps[1].Elements, 1)
	assert.Len(t, snaps[2].Elements, 2)
	assert.Same(t, p.Tree(), snaps[2])
}

func TestProcessor_NoSnapshotForDroppedPatch(t *testing.T) {
	count := 0
	p := New(Options{OnSnapshot: func(*api.Tree) { count++ }})

	// Field patch before its element: dropped, no emission.
	p.Feed(context.Background(), `{"op":"replace","path":"/elements/x/props/title","value":"T"}`+"\n")
	assert.Zero(t, count)
}

func TestProcessor_RoutesDataPatches(t *testing.T) {
	var got []api.Patch
	p := New(Options{OnData: func(patch api.Patch) { got = append(got, patch) }})

	p.Feed(context.Background(), `{"op":"set","dataPath":"/form/name","value":"ada"}`+"\n")

	require.Len(t, got, 1)
	assert.Equal(t, "/form/name", got[0].DataPath)
	assert.Equal(t, "ada", got[0].Value)
	assert.Empty(t, p.Tree().Elements, "data patches carry no tree semantics")
}

func TestProcessor_CancelStopsEmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	p := New(Options{OnSnapshot: func(*api.Tree) { count++ }})

	p.Feed(ctx, `{"op":"set","path":"/root","value":"a"}`+"\n")
	require.Equal(t, 1, count)

	cancel()
	p.Feed(ctx, `{"op":"add","path":"/elements/a","value":{"key":"a","type":"Card"}}`+"\n")
	p.Finish(ctx)
	assert.Equal(t, 1, count, "no snapshots after cancellation")
}

func TestProcessor_Run(t *testing.T) {
	p := New(Options{})
	err := p.Run(context.Background(), strings.NewReader(script))
	require.NoError(t, err)
	wantTree(t, p.Tree())
}
