package checks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agentic-research/genui/api"
	"github.com/agentic-research/genui/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_CollectsAllFailures(t *testing.T) {
	s := state.NewStore(map[string]any{"form": map[string]any{"password": ""}})
	e := NewEngine(s)
	e.Register("/form/password", []api.CheckSpec{
		{Fn: "required", Message: "password is required"},
		{Fn: "minLength", Args: map[string]any{"length": float64(8)}, Message: "too short"},
	})

	res := e.Validate(context.Background(), "/form/password")
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"password is required", "too short"}, res.Errors,
		"both checks run, no short-circuit")
}

func TestEngine_PassingField(t *testing.T) {
	s := state.NewStore(map[string]any{"form": map[string]any{"password": "hunter2hunter2"}})
	e := NewEngine(s)
	e.Register("/form/password", []api.CheckSpec{
		{Fn: "required"},
		{Fn: "minLength", Args: map[string]any{"length": float64(8)}},
	})

	res := e.Validate(context.Background(), "/form/password")
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestEngine_BuiltinChecks(t *testing.T) {
	cases := []struct {
		name  string
		value any
		spec  api.CheckSpec
		ok    bool
	}{
		{"required nil", nil, api.CheckSpec{Fn: "required"}, false},
		{"required empty list", []any{}, api.CheckSpec{Fn: "required"}, false},
		{"required number", float64(0), api.CheckSpec{Fn: "required"}, true},
		{"email good", "ada@example.com", api.CheckSpec{Fn: "email"}, true},
		{"email bad", "not-an-email", api.CheckSpec{Fn: "email"}, false},
		{"email non-string", float64(3), api.CheckSpec{Fn: "email"}, false},
		{"url good", "https://example.com/x", api.CheckSpec{Fn: "url"}, true},
		{"url bad", "::nope", api.CheckSpec{Fn: "url"}, false},
		{"numeric number", float64(4), api.CheckSpec{Fn: "numeric"}, true},
		{"numeric string", "42", api.CheckSpec{Fn: "numeric"}, true},
		{"numeric junk", "4x2", api.CheckSpec{Fn: "numeric"}, false},
		{"minLength runes", "héllo", api.CheckSpec{Fn: "minLength", Args: map[string]any{"length": float64(5)}}, true},
		{"maxLength over", "abcdef", api.CheckSpec{Fn: "maxLength", Args: map[string]any{"length": float64(5)}}, false},
		{"pattern match", "AB-12", api.CheckSpec{Fn: "pattern", Args: map[string]any{"pattern": `^[A-Z]{2}-\d{2}$`}}, true},
		{"pattern miss", "ab-12", api.CheckSpec{Fn: "pattern", Args: map[string]any{"pattern": `^[A-Z]{2}-\d{2}$`}}, false},
		{"pattern bad regexp", "x", api.CheckSpec{Fn: "pattern", Args: map[string]any{"pattern": `(`}}, false},
		{"min ok", float64(10), api.CheckSpec{Fn: "min", Args: map[string]any{"value": float64(5)}}, true},
		{"min under", float64(3), api.CheckSpec{Fn: "min", Args: map[string]any{"value": float64(5)}}, false},
		{"max ok", float64(3), api.CheckSpec{Fn: "max", Args: map[string]any{"value": float64(5)}}, true},
		{"unknown fn", "x", api.CheckSpec{Fn: "frobnicate"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := state.NewStore(map[string]any{"v": tc.value})
			e := NewEngine(s)
			e.Register("/v", []api.CheckSpec{tc.spec})
			res := e.Validate(context.Background(), "/v")
			assert.Equal(t, tc.ok, res.Valid)
		})
	}
}

func TestEngine_MatchesOtherPath(t *testing.T) {
	s := state.NewStore(map[string]any{"form": map[string]any{
		"password": "hunter2",
		"confirm":  "hunter2",
	}})
	e := NewEngine(s)
	e.Register("/form/confirm", []api.CheckSpec{
		{Fn: "matches", Args: map[string]any{"value": map[string]any{"path": "/form/password"}}, Message: "passwords differ"},
	})

	assert.True(t, e.Validate(context.Background(), "/form/confirm").Valid)

	s.Set("/form/confirm", "hunter3")
	res := e.Validate(context.Background(), "/form/confirm")
	assert.Equal(t, []string{"passwords differ"}, res.Errors)
}

func TestEngine_CustomCheck(t *testing.T) {
	s := state.NewStore(map[string]any{"form": map[string]any{"username": "taken"}})
	e := NewEngine(s)
	e.RegisterFunc("usernameFree", func(ctx context.Context, value any, _ map[string]any, _ map[string]any) (bool, error) {
		// Stands in for a remote lookup; must respect ctx.
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(time.Millisecond):
		}
		return value != "taken", nil
	})
	e.Register("/form/username", []api.CheckSpec{
		{Fn: "usernameFree", Message: "username is taken"},
	})

	res := e.Validate(context.Background(), "/form/username")
	assert.Equal(t, []string{"username is taken"}, res.Errors)

	s.Set("/form/username", "ada")
	assert.True(t, e.Validate(context.Background(), "/form/username").Valid)
}

func TestEngine_CustomCheckErrorFails(t *testing.T) {
	s := state.NewStore(nil)
	e := NewEngine(s)
	e.RegisterFunc("flaky", func(context.Context, any, map[string]any, map[string]any) (bool, error) {
		return true, errors.New("backend down")
	})
	e.Register("/x", []api.CheckSpec{{Fn: "flaky", Message: "could not verify"}})

	res := e.Validate(context.Background(), "/x")
	assert.Equal(t, []string{"could not verify"}, res.Errors)
}

func TestEngine_DefaultMessage(t *testing.T) {
	s := state.NewStore(nil)
	e := NewEngine(s)
	e.Register("/x", []api.CheckSpec{{Fn: "required"}})

	res := e.Validate(context.Background(), "/x")
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "required")
}

func TestEngine_TouchedAndValidatedAreIndependent(t *testing.T) {
	s := state.NewStore(nil)
	e := NewEngine(s)
	e.Register("/form/name", []api.CheckSpec{{Fn: "required"}})

	st, ok := e.State("/form/name")
	require.True(t, ok)
	assert.False(t, st.Touched)
	assert.False(t, st.Validated)

	e.Touch("/form/name")
	st, _ = e.State("/form/name")
	assert.True(t, st.Touched)
	assert.False(t, st.Validated, "touch alone never validates")

	e.Validate(context.Background(), "/form/name")
	st, _ = e.State("/form/name")
	assert.True(t, st.Validated)
	require.NotNil(t, st.Result)
	assert.False(t, st.Result.Valid)

	e.Clear("/form/name")
	st, _ = e.State("/form/name")
	assert.False(t, st.Touched)
	assert.False(t, st.Validated)
	assert.Nil(t, st.Result)
}

func TestEngine_ValidateAll(t *testing.T) {
	s := state.NewStore(map[string]any{"form": map[string]any{
		"name":  "ada",
		"email": "nope",
	}})
	e := NewEngine(s)
	e.Register("/form/name", []api.CheckSpec{{Fn: "required"}})
	e.Register("/form/email", []api.CheckSpec{{Fn: "email", Message: "bad email"}})

	assert.False(t, e.ValidateAll(context.Background()))

	st, _ := e.State("/form/name")
	assert.True(t, st.Validated, "passing fields are validated too")

	s.Set("/form/email", "ada@example.com")
	assert.True(t, e.ValidateAll(context.Background()))
}

func TestEngine_UnregisteredPathIsValid(t *testing.T) {
	e := NewEngine(state.NewStore(nil))
	res := e.Validate(context.Background(), "/nowhere")
	assert.True(t, res.Valid)
}

func TestEngine_DropRemovesField(t *testing.T) {
	e := NewEngine(state.NewStore(nil))
	e.Register("/x", []api.CheckSpec{{Fn: "required"}})
	e.Drop("/x")

	_, ok := e.State("/x")
	assert.False(t, ok)
	assert.True(t, e.ValidateAll(context.Background()))
}
