package audit

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventAccountLocked    EventType = "account_locked"
	EventResourceBlocked  EventType = "resource_blocked"
	EventDispatchFailed   EventType = "dispatch_failed"
	EventDispatchAborted  EventType = "dispatch_aborted"
	EventCommandProcessed EventType = "command_processed"
	EventCommandQueued    EventType = "command_queued"
	EventVersionMismatch  EventType = "version_mismatch"
)

type Event struct {
	Type       EventType
	HostID     string
	AccountID  string
	ActionCode string
	ResourceID string
	Reason     string
	Details    map[string]interface{}
}

func Log(event Event) {
	logger := log.With().
		Str("audit", "scheduler").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.HostID != "" {
		logger = logger.With().Str("hostId", event.HostID).Logger()
	}
	if event.AccountID != "" {
		logger = logger.With().Str("accountId", event.AccountID).Logger()
	}
	if event.ActionCode != "" {
		logger = logger.With().Str("actionCode", event.ActionCode).Logger()
	}
	if event.ResourceID != "" {
		logger = logger.With().Str("resourceId", event.ResourceID).Logger()
	}
	if event.Reason != "" {
		logger = logger.With().Str("reason", event.Reason).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("scheduler audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	case time.Time:
		return e.Time(key, v)
	case time.Duration:
		return e.Dur(key, v)
	default:
		return e.Interface(key, v)
	}
}
