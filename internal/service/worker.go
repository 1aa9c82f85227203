package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/fleet-worker-go/internal/audit"
	"github.com/openclaw/fleet-worker-go/internal/config"
	apperrors "github.com/openclaw/fleet-worker-go/internal/errors"
	"github.com/openclaw/fleet-worker-go/internal/model"
	"github.com/openclaw/fleet-worker-go/internal/repository"
	"github.com/openclaw/fleet-worker-go/internal/session"
)

// State is a step of one worker cycle.
type State string

const (
	StateIdle            State = "IDLE"
	StateSelectAccount   State = "SELECT_ACCOUNT"
	StateAcquire         State = "ACQUIRE_RESOURCES"
	StateAuthenticate    State = "AUTHENTICATE"
	StateBuildCandidates State = "BUILD_CANDIDATES"
	StateSelectAction    State = "SELECT_ACTION"
	StateDispatch        State = "DISPATCH"
	StateReschedule      State = "RESCHEDULE"
	StateRelease         State = "RELEASE_RESOURCES"
)

type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeNoCandidates   Outcome = "no_candidates"
	OutcomeAuthFailed     Outcome = "auth_failed"
	OutcomeNotReady       Outcome = "not_ready"
	OutcomeDispatchFailed Outcome = "dispatch_failed"
	OutcomeError          Outcome = "error"
)

type CycleReport struct {
	AccountID  string
	ActionCode string
	ResourceID string
	Outcome    Outcome
	States     []State
	Err        error
}

func (r *CycleReport) enter(s State) {
	r.States = append(r.States, s)
}

func (r *CycleReport) fail(o Outcome, err error) {
	r.Outcome = o
	r.Err = err
}

type WorkerDeps struct {
	Accounts    repository.AccountRepository
	Dispatches  repository.DispatchRepository
	Catalog     *model.Catalog
	Eligibility *EligibilityService
	Quotas      *QuotaService
	Blocks      *BlockManager
	Pacer       Pacer
	Pool        *ResourcePool
	Registry    *Registry
	Wheel       *Wheel
	Sessions    session.Provider
	Auth        session.Authenticator
}

type WorkerOptions struct {
	PunitivePause        time.Duration
	SessionOpTimeout     time.Duration
	KeepSessionOnFailure bool
	// DiagnosticHold bounds how long a failed session stays open when it is
	// kept for inspection. Values below PunitivePause use PunitivePause.
	DiagnosticHold time.Duration
}

// Worker runs one account through acquire, authenticate, select, dispatch,
// reschedule and release. Only one cycle runs at a time per process.
type Worker struct {
	WorkerDeps
	opts WorkerOptions
	now  func() time.Time
}

func NewWorker(deps WorkerDeps, opts WorkerOptions) *Worker {
	if deps.Pacer == nil {
		deps.Pacer = noPacer{}
	}
	return &Worker{WorkerDeps: deps, opts: opts, now: time.Now}
}

func (w *Worker) RunCycle(ctx context.Context, account model.Account) CycleReport {
	return w.run(ctx, account, w.opts.KeepSessionOnFailure)
}

// RunDiagnosticCycle keeps the session open after a failed dispatch for up to
// DiagnosticHold, so an operator can inspect it.
func (w *Worker) RunDiagnosticCycle(ctx context.Context, account model.Account) CycleReport {
	return w.run(ctx, account, true)
}

func (w *Worker) run(ctx context.Context, account model.Account, keepSession bool) (report CycleReport) {
	start := time.Now()
	report = CycleReport{AccountID: account.ID}
	logger := log.With().Str("accountId", account.ID).Logger()

	defer func() {
		report.enter(StateIdle)
		cycleDuration.WithLabelValues(string(report.Outcome)).Observe(time.Since(start).Seconds())
		event := logger.Info()
		if report.Err != nil {
			event = logger.Warn().Err(report.Err)
		}
		event.
			Str("outcome", string(report.Outcome)).
			Str("actionCode", report.ActionCode).
			Str("resourceId", report.ResourceID).
			Dur("duration", time.Since(start)).
			Msg("worker cycle finished")
	}()

	// The caller picked the account; the cycle starts from that selection.
	report.enter(StateSelectAccount)
	kinds := w.Catalog.ActiveActions()

	report.enter(StateAcquire)
	acquireCtx, cancel := context.WithTimeout(ctx, w.opts.SessionOpTimeout)
	sess, err := w.Sessions.Acquire(acquireCtx, account.ID, w.Registry.Requirements(kinds))
	cancel()
	if err != nil {
		report.fail(OutcomeError, apperrors.Session("acquire session", err))
		w.shiftWorktime(ctx, account.ID, w.opts.PunitivePause, logger)
		return report
	}
	defer w.release(sess, &report, logger)

	report.enter(StateAuthenticate)
	authCtx, cancel := context.WithTimeout(ctx, w.opts.SessionOpTimeout)
	err = w.Auth.Authenticate(authCtx, sess, account.ID)
	cancel()
	if err != nil {
		w.lockAccount(ctx, account.ID, err, &report, logger)
		return report
	}

	report.enter(StateBuildCandidates)
	candidates, records, err := w.buildCandidates(ctx, account.ID, kinds, logger)
	if err != nil {
		report.fail(OutcomeError, err)
		return report
	}

	report.enter(StateSelectAction)
	chosen, ok := w.Wheel.Select(candidates)
	if !ok {
		report.Outcome = OutcomeNoCandidates
		w.shiftIdle(ctx, account.ID, records, logger)
		return report
	}
	report.ActionCode = chosen.Code()
	logger = logger.With().Str("actionCode", chosen.Code()).Logger()

	report.enter(StateDispatch)
	w.dispatch(ctx, account, sess, chosen, keepSession, &report, logger)
	return report
}

func (w *Worker) dispatch(
	ctx context.Context,
	account model.Account,
	sess session.Session,
	chosen Candidate,
	keepSession bool,
	report *CycleReport,
	logger zerolog.Logger,
) {
	code := chosen.Code()

	action, remainder, err := w.Registry.Resolve(code)
	if err != nil {
		report.fail(OutcomeError, err)
		// Push the kind back so an unroutable code is not drawn every cycle.
		w.reschedule(ctx, account.ID, chosen.Kind, logger)
		return
	}

	blocked, err := w.Blocks.BlockedSet(ctx, account.ID)
	if err != nil {
		report.fail(OutcomeError, err)
		return
	}
	rc := &RunContext{
		Session:   sess,
		Pool:      w.Pool,
		Remainder: remainder,
		Skip:      func(id string) bool { return blocked[id] },
		Logger:    logger,
	}
	if chosen.Kind.QuotaGated() {
		if id, ok := w.Pool.Pick(chosen.Kind.QuotaClass, rc.Skip); ok {
			chosen.ResourceID = id
		}
	}

	readiness := action.VerifyReadiness(ctx, account, rc)
	if !readiness.Ready {
		if readiness.Critical {
			audit.Log(audit.Event{
				Type:       audit.EventDispatchAborted,
				AccountID:  account.ID,
				ActionCode: code,
				Reason:     readiness.Reason,
			})
			report.fail(OutcomeNotReady, apperrors.NotReady(code, readiness.Reason))
			return
		}
		logger.Warn().Str("reason", readiness.Reason).Msg("action not ready, dispatching anyway")
	}

	if session.IsClosed(sess) {
		report.fail(OutcomeError, apperrors.Session("session closed before dispatch", nil))
		return
	}

	result := action.Execute(ctx, account, rc, chosen)
	resourceID := result.ResourceID
	if resourceID == "" {
		resourceID = chosen.ResourceID
	}
	report.ResourceID = resourceID
	w.recordDispatch(ctx, account.ID, chosen.Kind, resourceID, result, logger)

	if !result.Success {
		dispatchCount.WithLabelValues(code, "failure").Inc()
		audit.Log(audit.Event{
			Type:       audit.EventDispatchFailed,
			AccountID:  account.ID,
			ActionCode: code,
			ResourceID: resourceID,
			Reason:     result.Reason,
		})
		if result.ResourceFailed && resourceID != "" {
			w.blockResource(ctx, account.ID, chosen.Kind, resourceID, result.Reason, logger)
		}

		report.enter(StateReschedule)
		w.reschedule(ctx, account.ID, chosen.Kind, logger)
		report.fail(OutcomeDispatchFailed, apperrors.ActionFailed(code, result.Reason))

		w.shiftWorktime(ctx, account.ID, w.opts.PunitivePause, logger)
		w.punitivePause(ctx, sess, keepSession, logger)
		return
	}

	dispatchCount.WithLabelValues(code, "success").Inc()
	if chosen.Kind.Invasive {
		w.Pacer.Mark(ctx, account.ID)
	}

	report.enter(StateReschedule)
	if err := w.reschedule(ctx, account.ID, chosen.Kind, logger); err != nil {
		report.fail(OutcomeError, err)
		return
	}
	report.Outcome = OutcomeSuccess
}

func (w *Worker) buildCandidates(
	ctx context.Context,
	accountID string,
	kinds []model.ActionKind,
	logger zerolog.Logger,
) ([]Candidate, map[string]model.EligibilityRecord, error) {
	if err := w.Quotas.SeedDefaults(ctx, accountID, w.Catalog.Quotas); err != nil {
		return nil, nil, err
	}

	records, err := w.Eligibility.Snapshot(ctx, accountID, kinds)
	if err != nil {
		return nil, nil, err
	}

	filter := CandidateFilter{
		Eligible:     w.Eligibility.EligibleNow(records),
		QuotaAllowed: make(map[string]bool),
	}

	invasiveEligible := false
	for _, k := range kinds {
		if !filter.Eligible[k.Code] {
			continue
		}
		if k.Invasive {
			invasiveEligible = true
		}
		if !k.QuotaGated() {
			continue
		}
		if _, seen := filter.QuotaAllowed[k.QuotaClass]; seen {
			continue
		}
		status, err := w.Quotas.CanConsume(ctx, accountID, k.QuotaClass)
		if err != nil {
			return nil, nil, err
		}
		filter.QuotaAllowed[k.QuotaClass] = status.Allowed
		logger.Debug().
			Str("resourceClass", k.QuotaClass).
			Int("remainingInWindow", status.RemainingInWindow).
			Int("availableThisCycle", status.AvailableThisCycle).
			Msg("quota checked")
	}
	if invasiveEligible {
		filter.InvasivePaced = w.Pacer.Paced(ctx, accountID)
	}

	last, err := w.Dispatches.FindRecentByAccountID(ctx, accountID, 1)
	if err != nil {
		return nil, nil, err
	}
	if len(last) == 1 && last[0].Success {
		filter.LastSucceeded = last[0].ActionCode
	}

	return BuildCandidates(kinds, filter), records, nil
}

func (w *Worker) recordDispatch(
	ctx context.Context,
	accountID string,
	kind model.ActionKind,
	resourceID string,
	result Result,
	logger zerolog.Logger,
) {
	params := model.CreateDispatchParams{
		AccountID:  accountID,
		ActionCode: kind.Code,
		Success:    result.Success,
		Detail:     result.Detail,
	}
	if kind.QuotaGated() {
		class := kind.QuotaClass
		params.ResourceClass = &class
	}
	if resourceID != "" {
		params.ResourceID = &resourceID
	}
	if params.Detail == "" && !result.Success {
		params.Detail = result.Reason
	}
	if err := w.Dispatches.Create(ctx, params); err != nil {
		logger.Error().Err(err).Msg("failed to append dispatch record")
	}
}

func (w *Worker) blockResource(
	ctx context.Context,
	accountID string,
	kind model.ActionKind,
	resourceID string,
	reason string,
	logger zerolog.Logger,
) {
	block, err := w.Blocks.RecordFailure(ctx, accountID, resourceID, reason)
	if err != nil {
		logger.Error().Err(err).Str("resourceId", resourceID).Msg("failed to record resource block")
		return
	}
	audit.Log(audit.Event{
		Type:       audit.EventResourceBlocked,
		AccountID:  accountID,
		ActionCode: kind.Code,
		ResourceID: resourceID,
		Reason:     reason,
		Details: map[string]interface{}{
			"blockCount":   block.BlockCount,
			"blockedUntil": block.BlockedUntil,
		},
	})
	if kind.QuotaGated() {
		w.Pool.Remove(kind.QuotaClass, resourceID)
	}
}

func (w *Worker) reschedule(
	ctx context.Context,
	accountID string,
	kind model.ActionKind,
	logger zerolog.Logger,
) error {
	next, err := w.Eligibility.Reschedule(ctx, accountID, kind)
	if err != nil {
		logger.Error().Err(err).Msg("failed to reschedule action")
		return err
	}
	logger.Debug().Time("nextEligibleAt", next).Msg("action rescheduled")
	return nil
}

func (w *Worker) lockAccount(ctx context.Context, accountID string, cause error, report *CycleReport, logger zerolog.Logger) {
	report.fail(OutcomeAuthFailed, apperrors.AuthFailed(cause))
	if err := w.Accounts.Lock(ctx, accountID, model.LockReasonAuthFailed); err != nil {
		logger.Error().Err(err).Msg("failed to lock account")
		return
	}
	accountsLocked.Inc()
	audit.Log(audit.Event{
		Type:      audit.EventAccountLocked,
		AccountID: accountID,
		Reason:    cause.Error(),
	})
}

// shiftIdle pushes the account's worktime to its earliest upcoming cooldown end.
func (w *Worker) shiftIdle(ctx context.Context, accountID string, records map[string]model.EligibilityRecord, logger zerolog.Logger) {
	delay := config.IdleShiftMax
	if next, ok := w.Eligibility.NextEligibleAt(records); ok {
		delay = min(max(next.Sub(w.now()), config.IdleShiftMin), config.IdleShiftMax)
	}
	w.shiftWorktime(ctx, accountID, delay, logger)
}

func (w *Worker) shiftWorktime(ctx context.Context, accountID string, delay time.Duration, logger zerolog.Logger) {
	at := w.now().Add(delay)
	if err := w.Accounts.SetNextWorktime(ctx, accountID, at); err != nil {
		logger.Error().Err(err).Msg("failed to shift account worktime")
		return
	}
	logger.Debug().Time("nextWorktime", at).Msg("account worktime shifted")
}

// punitivePause blocks until the pause elapses or the session closes,
// whichever comes first. With keepSession the bound is the diagnostic hold.
func (w *Worker) punitivePause(ctx context.Context, sess session.Session, keepSession bool, logger zerolog.Logger) {
	bound := w.pauseBound(keepSession)
	timer := time.NewTimer(bound)
	defer timer.Stop()

	start := time.Now()
	var endedBy string
	select {
	case <-timer.C:
		endedBy = "timeout"
	case <-sess.Closed():
		endedBy = "session_closed"
	case <-ctx.Done():
		endedBy = "cancelled"
	}
	logger.Info().
		Str("endedBy", endedBy).
		Bool("keepSession", keepSession).
		Dur("bound", bound).
		Dur("waited", time.Since(start)).
		Msg("punitive pause finished")
}

func (w *Worker) pauseBound(keepSession bool) time.Duration {
	if keepSession {
		return max(w.opts.DiagnosticHold, w.opts.PunitivePause)
	}
	return w.opts.PunitivePause
}

func (w *Worker) release(sess session.Session, report *CycleReport, logger zerolog.Logger) {
	report.enter(StateRelease)
	ctx, cancel := context.WithTimeout(context.Background(), w.opts.SessionOpTimeout)
	defer cancel()
	if err := sess.Release(ctx); err != nil {
		logger.Warn().Err(err).Str("sessionId", sess.ID()).Msg("failed to release session")
	}
}

type noPacer struct{}

func (noPacer) Paced(ctx context.Context, accountID string) bool { return false }
func (noPacer) Mark(ctx context.Context, accountID string)        {}
