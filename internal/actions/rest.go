// Package actions holds the built-in action handlers registered at process start.
package actions

import (
	"context"
	"time"

	"github.com/openclaw/fleet-worker-go/internal/model"
	"github.com/openclaw/fleet-worker-go/internal/service"
	"github.com/openclaw/fleet-worker-go/internal/session"
)

// Rest keeps the session idle for Dwell, or returns at once when Dwell is zero.
type Rest struct {
	Dwell time.Duration
}

func (r *Rest) Requirements() session.Capabilities {
	return nil
}

func (r *Rest) VerifyReadiness(ctx context.Context, account model.Account, rc *service.RunContext) service.Readiness {
	return service.Ready()
}

func (r *Rest) Execute(ctx context.Context, account model.Account, rc *service.RunContext, c service.Candidate) service.Result {
	if r.Dwell <= 0 {
		return service.Result{Success: true, Detail: "rested"}
	}

	timer := time.NewTimer(r.Dwell)
	defer timer.Stop()

	select {
	case <-timer.C:
		return service.Result{Success: true, Detail: "rested " + r.Dwell.String()}
	case <-rc.Session.Closed():
		return service.Result{Reason: "session closed while resting"}
	case <-ctx.Done():
		return service.Result{Reason: ctx.Err().Error()}
	}
}
