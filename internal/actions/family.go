package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/fleet-worker-go/internal/model"
	"github.com/openclaw/fleet-worker-go/internal/service"
	"github.com/openclaw/fleet-worker-go/internal/session"
)

// ErrResourceRejected marks a failure caused by the specific resource, such as
// a group that no longer accepts posts from the account.
var ErrResourceRejected = errors.New("resource rejected")

// Performer drives the remote site for one action family.
type Performer interface {
	// Discover lists resource references of class reachable from the session.
	Discover(ctx context.Context, s session.Session, class string) ([]string, error)
	// Perform acts on resourceID. Wrap ErrResourceRejected to blame the resource.
	Perform(ctx context.Context, s session.Session, verb string, resourceID string) error
}

// Family is one handler for every code under a prefix. The code remainder is
// passed to the performer as the verb.
type Family struct {
	caps      session.Capabilities
	performer Performer
}

func NewFamily(performer Performer, caps ...session.Capability) *Family {
	return &Family{caps: caps, performer: performer}
}

func (f *Family) Requirements() session.Capabilities {
	return f.caps
}

func (f *Family) VerifyReadiness(ctx context.Context, account model.Account, rc *service.RunContext) service.Readiness {
	if session.IsClosed(rc.Session) {
		return service.Readiness{Reason: "session already closed", Critical: true}
	}
	if rc.Remainder == "" {
		return service.Readiness{Reason: "action code has no verb", Critical: true}
	}
	return service.Ready()
}

func (f *Family) Execute(ctx context.Context, account model.Account, rc *service.RunContext, c service.Candidate) service.Result {
	class := c.Kind.QuotaClass
	if class == "" {
		class = rc.Remainder
	}

	resourceID := c.ResourceID
	if resourceID == "" {
		found, err := f.performer.Discover(ctx, rc.Session, class)
		if err != nil {
			return service.Result{Reason: fmt.Sprintf("discover %s: %v", class, err)}
		}
		rc.Pool.Add(class, found...)
		rc.Logger.Debug().Str("resourceClass", class).Int("found", len(found)).Msg("resources discovered")

		id, ok := rc.Pool.Pick(class, rc.Skip)
		if !ok {
			return service.Result{Reason: fmt.Sprintf("no usable %s resource", class)}
		}
		resourceID = id
	}

	err := f.performer.Perform(ctx, rc.Session, rc.Remainder, resourceID)
	switch {
	case errors.Is(err, ErrResourceRejected):
		return service.Result{ResourceID: resourceID, ResourceFailed: true, Reason: err.Error()}
	case err != nil:
		return service.Result{ResourceID: resourceID, Reason: err.Error()}
	}

	return service.Result{
		Success:    true,
		ResourceID: resourceID,
		Detail:     fmt.Sprintf("%s %s", rc.Remainder, resourceID),
	}
}

// LogPerformer is used when no remote driver is configured. It discovers one
// placeholder reference per class and logs each action instead of performing it.
type LogPerformer struct{}

func (LogPerformer) Discover(ctx context.Context, s session.Session, class string) ([]string, error) {
	return []string{"dry-run:" + class}, nil
}

func (LogPerformer) Perform(ctx context.Context, s session.Session, verb string, resourceID string) error {
	log.Info().
		Str("sessionId", s.ID()).
		Str("verb", verb).
		Str("resourceId", resourceID).
		Msg("dry run action")
	return ctx.Err()
}
