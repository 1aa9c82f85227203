package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/openclaw/fleet-worker-go/internal/errors"
	"github.com/openclaw/fleet-worker-go/internal/model"
	"github.com/openclaw/fleet-worker-go/internal/session"
)

// stubAction records what the worker asked of it and answers with canned values.
type stubAction struct {
	name      string
	caps      session.Capabilities
	readiness Readiness
	result    Result
	onExecute func(rc *RunContext, c Candidate)

	executed   int
	remainders []string
	candidates []Candidate
}

func (a *stubAction) Requirements() session.Capabilities {
	return a.caps
}

func (a *stubAction) VerifyReadiness(ctx context.Context, account model.Account, rc *RunContext) Readiness {
	return a.readiness
}

func (a *stubAction) Execute(ctx context.Context, account model.Account, rc *RunContext, c Candidate) Result {
	a.executed++
	a.remainders = append(a.remainders, rc.Remainder)
	a.candidates = append(a.candidates, c)
	if a.onExecute != nil {
		a.onExecute(rc, c)
	}
	return a.result
}

func TestRegistry_Resolve(t *testing.T) {
	exact := &stubAction{name: "exact"}
	post := &stubAction{name: "post"}
	postGroup := &stubAction{name: "post-group"}

	r := NewRegistry()
	r.Register("post:special", exact)
	r.RegisterPrefix("post:group:", postGroup)
	r.RegisterPrefix("post:", post)

	tests := []struct {
		code          string
		wantAction    *stubAction
		wantRemainder string
	}{
		{code: "post:special", wantAction: exact},
		{code: "post:group:cats", wantAction: postGroup, wantRemainder: "cats"},
		{code: "post:timeline", wantAction: post, wantRemainder: "timeline"},
		{code: "post:", wantAction: post},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			action, remainder, err := r.Resolve(tt.code)
			require.NoError(t, err)
			assert.Same(t, tt.wantAction, action)
			assert.Equal(t, tt.wantRemainder, remainder)
		})
	}
}

func TestRegistry_Resolve_FirstPrefixWins(t *testing.T) {
	broad := &stubAction{name: "broad"}
	narrow := &stubAction{name: "narrow"}

	r := NewRegistry()
	r.RegisterPrefix("post:", broad)
	r.RegisterPrefix("post:group:", narrow)

	action, remainder, err := r.Resolve("post:group:cats")
	require.NoError(t, err)
	assert.Same(t, broad, action)
	assert.Equal(t, "group:cats", remainder)
}

func TestRegistry_Resolve_Unknown(t *testing.T) {
	r := NewRegistry()
	r.RegisterPrefix("post:", &stubAction{})

	_, _, err := r.Resolve("comment:x")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnknownAction))
}

func TestRegistry_Requirements(t *testing.T) {
	r := NewRegistry()
	r.Register("rest", &stubAction{})
	r.RegisterPrefix("browse:", &stubAction{caps: session.Capabilities{session.CapabilityBrowser}})
	r.RegisterPrefix("api:", &stubAction{caps: session.Capabilities{session.CapabilityNetwork}})

	caps := r.Requirements([]model.ActionKind{{Code: "rest"}, {Code: "browse:feed"}, {Code: "unknown"}})
	assert.True(t, caps.Has(session.CapabilityBrowser))
	assert.False(t, caps.Has(session.CapabilityNetwork))

	caps = r.Requirements([]model.ActionKind{{Code: "browse:feed"}, {Code: "api:poll"}})
	assert.True(t, caps.Has(session.CapabilityBrowser))
	assert.True(t, caps.Has(session.CapabilityNetwork))
}
