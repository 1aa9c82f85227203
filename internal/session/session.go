// Package session defines the boundary to the external automation sessions
// a worker cycle acquires, authenticates and releases.
package session

import (
	"context"
	"slices"
)

type Capability string

const (
	CapabilityBrowser Capability = "browser"
	CapabilityNetwork Capability = "network"
)

type Capabilities []Capability

func (c Capabilities) Has(capability Capability) bool {
	return slices.Contains(c, capability)
}

// Union returns the distinct capabilities of c and other, c's order first.
func (c Capabilities) Union(other Capabilities) Capabilities {
	out := slices.Clone(c)
	for _, capability := range other {
		if !out.Has(capability) {
			out = append(out, capability)
		}
	}
	return out
}

// Session is one acquired external automation session.
type Session interface {
	ID() string
	// Closed is closed once the session is gone, whether released or torn down remotely.
	Closed() <-chan struct{}
	Release(ctx context.Context) error
}

type Provider interface {
	Acquire(ctx context.Context, accountID string, caps Capabilities) (Session, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, s Session, accountID string) error
}

// IsClosed reports whether s has already closed without blocking.
func IsClosed(s Session) bool {
	select {
	case <-s.Closed():
		return true
	default:
		return false
	}
}
