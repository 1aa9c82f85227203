package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	apperrors "github.com/openclaw/fleet-worker-go/internal/errors"
	"github.com/openclaw/fleet-worker-go/internal/model"
	"github.com/openclaw/fleet-worker-go/internal/session"
)

type Readiness struct {
	Ready    bool
	Reason   string
	Critical bool
}

func Ready() Readiness {
	return Readiness{Ready: true}
}

// Result is what an action reports back after Execute.
type Result struct {
	Success bool
	// ResourceID names the specific resource the action touched, if any.
	ResourceID string
	// ResourceFailed attributes the failure to ResourceID rather than the account.
	ResourceFailed bool
	Reason         string
	Detail         string
}

// RunContext carries the cycle-scoped collaborators an action may use.
type RunContext struct {
	Session session.Session
	Pool    *ResourcePool
	// Remainder is the part of the action code after a matched family prefix.
	Remainder string
	// Skip reports resources the account must not touch this cycle.
	Skip   func(resourceID string) bool
	Logger zerolog.Logger
}

// Action is implemented by every dispatchable action kind.
type Action interface {
	Requirements() session.Capabilities
	VerifyReadiness(ctx context.Context, account model.Account, rc *RunContext) Readiness
	Execute(ctx context.Context, account model.Account, rc *RunContext, candidate Candidate) Result
}

type prefixRule struct {
	prefix string
	action Action
}

// Registry resolves action codes to handlers: exact codes first, then prefix
// rules in registration order.
type Registry struct {
	exact    map[string]Action
	prefixes []prefixRule
}

func NewRegistry() *Registry {
	return &Registry{exact: make(map[string]Action)}
}

func (r *Registry) Register(code string, action Action) {
	r.exact[code] = action
}

func (r *Registry) RegisterPrefix(prefix string, action Action) {
	r.prefixes = append(r.prefixes, prefixRule{prefix: prefix, action: action})
}

// Resolve returns the handler for code and, for prefix matches, the rest of the code.
func (r *Registry) Resolve(code string) (Action, string, error) {
	if action, ok := r.exact[code]; ok {
		return action, "", nil
	}
	for _, rule := range r.prefixes {
		if remainder, ok := strings.CutPrefix(code, rule.prefix); ok {
			return rule.action, remainder, nil
		}
	}
	return nil, "", apperrors.UnknownAction(code)
}

// Requirements is the union of capabilities needed by the handlers of kinds.
func (r *Registry) Requirements(kinds []model.ActionKind) session.Capabilities {
	var caps session.Capabilities
	for _, k := range kinds {
		action, _, err := r.Resolve(k.Code)
		if err != nil {
			continue
		}
		caps = caps.Union(action.Requirements())
	}
	return caps
}
