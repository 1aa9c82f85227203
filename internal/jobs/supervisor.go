package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/fleet-worker-go/internal/audit"
	"github.com/openclaw/fleet-worker-go/internal/config"
	apperrors "github.com/openclaw/fleet-worker-go/internal/errors"
	"github.com/openclaw/fleet-worker-go/internal/model"
	"github.com/openclaw/fleet-worker-go/internal/repository"
	"github.com/openclaw/fleet-worker-go/internal/service"
)

// CycleRunner runs worker cycles for the supervisor.
type CycleRunner interface {
	RunCycle(ctx context.Context, account model.Account) service.CycleReport
	RunDiagnosticCycle(ctx context.Context, account model.Account) service.CycleReport
}

type TickResult string

const (
	TickCycle           TickResult = "cycle"
	TickIdle            TickResult = "idle"
	TickCommand         TickResult = "command"
	TickPaused          TickResult = "paused"
	TickVersionMismatch TickResult = "version_mismatch"
	TickError           TickResult = "error"
)

type SupervisorDeps struct {
	Accounts   repository.AccountRepository
	Heartbeats repository.HeartbeatRepository
	Commands   repository.AdminCommandRepository
	Settings   repository.SettingsRepository
	Worker     CycleRunner
}

type SupervisorConfig struct {
	HostID     string
	InstanceID string
	Version    string
	Interval   time.Duration
}

// Supervisor is the host's single control loop. Each tick beats, handles at
// most one admin command, checks the published version and otherwise runs one
// worker cycle for the next due account.
type Supervisor struct {
	SupervisorDeps
	cfg  SupervisorConfig
	exit func(code int)
	now  func() time.Time

	pausedUntil time.Time

	mu          sync.Mutex
	lastAccount *string
	lastAction  *string

	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
}

func NewSupervisor(deps SupervisorDeps, cfg SupervisorConfig) *Supervisor {
	return &Supervisor{
		SupervisorDeps: deps,
		cfg:            cfg,
		exit:           os.Exit,
		now:            time.Now,
		done:           make(chan struct{}),
		stopped:        make(chan struct{}),
	}
}

func (s *Supervisor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)
	log.Info().
		Str("hostId", s.cfg.HostID).
		Str("version", s.cfg.Version).
		Dur("interval", s.cfg.Interval).
		Msg("supervisor started")
}

// Stop cancels the running cycle and waits for the loop to return.
func (s *Supervisor) Stop() {
	close(s.done)
	if s.cancel != nil {
		s.cancel()
	}
	<-s.stopped
	log.Info().Msg("supervisor stopped")
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.stopped)

	for {
		s.Tick(ctx)

		timer := time.NewTimer(s.cfg.Interval)
		select {
		case <-s.done:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Supervisor) Tick(ctx context.Context) TickResult {
	result := s.tick(ctx)
	supervisorTicks.WithLabelValues(string(result)).Inc()
	return result
}

func (s *Supervisor) tick(ctx context.Context) TickResult {
	s.beat(ctx)

	cmd, err := s.Commands.FindPending(ctx, s.cfg.HostID)
	if err != nil {
		log.Error().Err(err).Msg("failed to poll admin commands")
		return TickError
	}
	if cmd != nil {
		s.processCommand(ctx, *cmd)
		return TickCommand
	}

	if s.versionMismatch(ctx) {
		return TickVersionMismatch
	}

	now := s.now()
	if now.Before(s.pausedUntil) {
		log.Debug().Time("pausedUntil", s.pausedUntil).Msg("scheduling paused")
		return TickPaused
	}

	account, err := s.Accounts.FindNextDue(ctx, s.cfg.HostID, now)
	if err != nil {
		log.Error().Err(err).Msg("failed to select next account")
		return TickError
	}
	if account == nil {
		log.Debug().Str("hostId", s.cfg.HostID).Msg("no account due")
		return TickIdle
	}

	s.setCurrent(account.ID, "")
	report := s.Worker.RunCycle(ctx, *account)
	s.setCurrent(account.ID, report.ActionCode)
	return TickCycle
}

func (s *Supervisor) beat(ctx context.Context) {
	s.mu.Lock()
	hb := model.Heartbeat{
		HostID:     s.cfg.HostID,
		InstanceID: s.cfg.InstanceID,
		Version:    s.cfg.Version,
		AccountID:  s.lastAccount,
		ActionCode: s.lastAction,
		BeatAt:     s.now(),
	}
	s.mu.Unlock()

	if err := s.Heartbeats.Upsert(ctx, hb); err != nil {
		log.Warn().Err(err).Str("hostId", s.cfg.HostID).Msg("failed to write heartbeat")
	}
}

func (s *Supervisor) setCurrent(accountID, actionCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccount = &accountID
	if actionCode == "" {
		s.lastAction = nil
	} else {
		s.lastAction = &actionCode
	}
}

// versionMismatch exits the process when the store publishes a different
// version. An unset published version disables the check.
func (s *Supervisor) versionMismatch(ctx context.Context) bool {
	published, err := s.Settings.Get(ctx, model.SettingPublishedVersion)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read published version")
		return false
	}
	if published == nil || *published == "" || *published == s.cfg.Version {
		return false
	}

	audit.Log(audit.Event{
		Type:   audit.EventVersionMismatch,
		HostID: s.cfg.HostID,
		Reason: apperrors.VersionMismatch(s.cfg.Version, *published).Error(),
		Details: map[string]interface{}{
			"localVersion":     s.cfg.Version,
			"publishedVersion": *published,
		},
	})
	log.Error().
		Str("localVersion", s.cfg.Version).
		Str("publishedVersion", *published).
		Msg("version mismatch, exiting for redeploy")
	s.exit(config.ExitVersionMismatch)
	return true
}

func (s *Supervisor) processCommand(ctx context.Context, cmd model.AdminCommand) {
	logger := log.With().Str("commandId", cmd.ID).Str("commandType", string(cmd.Type)).Logger()

	if err := s.Commands.MarkAccepted(ctx, cmd.ID); err != nil {
		logger.Error().Err(err).Msg("failed to accept admin command")
		return
	}

	result, err := s.executeCommand(ctx, cmd)
	if err != nil {
		logger.Warn().Err(err).Msg("admin command failed")
		result = "error: " + err.Error()
	}

	completeErr := s.Commands.MarkCompleted(ctx, cmd.ID, result)
	if completeErr != nil {
		logger.Error().Err(completeErr).Msg("failed to complete admin command")
	}

	audit.Log(audit.Event{
		Type:    audit.EventCommandProcessed,
		HostID:  s.cfg.HostID,
		Reason:  result,
		Details: map[string]interface{}{"commandId": cmd.ID, "commandType": string(cmd.Type)},
	})

	// A restart left pending would be picked up again by the next process.
	if cmd.Type == model.CommandRestart && err == nil {
		if completeErr != nil {
			logger.Warn().Msg("restart not persisted as completed, staying up")
			return
		}
		logger.Info().Msg("restart requested by operator")
		s.exit(config.ExitOperatorRestart)
	}
}

func (s *Supervisor) executeCommand(ctx context.Context, cmd model.AdminCommand) (string, error) {
	switch cmd.Type {
	case model.CommandPause:
		var payload model.PausePayload
		if err := decodePayload(cmd.Payload, &payload); err != nil {
			return "", err
		}
		if payload.Minutes <= 0 {
			return "", apperrors.ValidationError("pause minutes must be positive")
		}
		s.pausedUntil = s.now().Add(time.Duration(payload.Minutes) * time.Minute)
		return fmt.Sprintf("paused until %s", s.pausedUntil.Format(time.RFC3339)), nil

	case model.CommandRestart:
		return "restarting", nil

	case model.CommandRunAccount:
		var payload model.RunAccountPayload
		if err := decodePayload(cmd.Payload, &payload); err != nil {
			return "", err
		}
		account, err := s.Accounts.FindByID(ctx, payload.AccountID)
		if err != nil {
			return "", err
		}
		if account == nil {
			return "", apperrors.NotFound("account")
		}
		if account.Locked {
			return "", apperrors.ValidationError("account is locked")
		}
		s.setCurrent(account.ID, "")
		report := s.Worker.RunDiagnosticCycle(ctx, *account)
		s.setCurrent(account.ID, report.ActionCode)
		if report.Err != nil {
			return fmt.Sprintf("outcome=%s action=%s: %v", report.Outcome, report.ActionCode, report.Err), nil
		}
		return fmt.Sprintf("outcome=%s action=%s", report.Outcome, report.ActionCode), nil

	default:
		return "", apperrors.ValidationError(fmt.Sprintf("unknown command type %q", cmd.Type))
	}
}

func decodePayload(raw *json.RawMessage, v any) error {
	if raw == nil {
		return apperrors.ValidationError("command payload is required")
	}
	if err := json.Unmarshal(*raw, v); err != nil {
		return apperrors.ValidationError("invalid command payload").WithCause(err)
	}
	return nil
}
