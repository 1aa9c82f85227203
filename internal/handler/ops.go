package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/fleet-worker-go/internal/audit"
	apperrors "github.com/openclaw/fleet-worker-go/internal/errors"
	"github.com/openclaw/fleet-worker-go/internal/model"
	"github.com/openclaw/fleet-worker-go/internal/repository"
	"github.com/openclaw/fleet-worker-go/internal/util"
)

const maxCommandBodyBytes = 64 << 10

var commandTypes = []string{
	string(model.CommandPause),
	string(model.CommandRestart),
	string(model.CommandRunAccount),
}

// OpsHandler is the operator API: read-only views of fleet state plus queuing
// admin commands for a host's supervisor to pick up.
type OpsHandler struct {
	accounts   repository.AccountRepository
	dispatches repository.DispatchRepository
	heartbeats repository.HeartbeatRepository
	commands   repository.AdminCommandRepository
	auth       func(http.Handler) http.Handler
}

func NewOpsHandler(
	accounts repository.AccountRepository,
	dispatches repository.DispatchRepository,
	heartbeats repository.HeartbeatRepository,
	commands repository.AdminCommandRepository,
	auth func(http.Handler) http.Handler,
) *OpsHandler {
	return &OpsHandler{
		accounts:   accounts,
		dispatches: dispatches,
		heartbeats: heartbeats,
		commands:   commands,
		auth:       auth,
	}
}

func (h *OpsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.auth)

	r.Get("/hosts/{hostID}/heartbeat", h.GetHeartbeat)
	r.Post("/hosts/{hostID}/commands", h.CreateCommand)
	r.Get("/accounts/{accountID}", h.GetAccount)
	r.Get("/accounts/{accountID}/dispatches", h.ListDispatches)

	return r
}

func (h *OpsHandler) GetHeartbeat(w http.ResponseWriter, r *http.Request) {
	hostID := chi.URLParam(r, "hostID")

	hb, err := h.heartbeats.FindByHostID(r.Context(), hostID)
	if err != nil {
		log.Error().Err(err).Str("hostId", hostID).Msg("failed to get heartbeat")
		writeError(w, apperrors.Database(err))
		return
	}
	if hb == nil {
		writeError(w, apperrors.NotFound("heartbeat"))
		return
	}

	writeJSON(w, http.StatusOK, hb)
}

func (h *OpsHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	account, err := h.accounts.FindByID(r.Context(), accountID)
	if err != nil {
		log.Error().Err(err).Str("accountId", accountID).Msg("failed to get account")
		writeError(w, apperrors.Database(err))
		return
	}
	if account == nil {
		writeError(w, apperrors.NotFound("account"))
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (h *OpsHandler) ListDispatches(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	limit := ParseLimit(r)

	records, err := h.dispatches.FindRecentByAccountID(r.Context(), accountID, limit)
	if err != nil {
		log.Error().Err(err).Str("accountId", accountID).Msg("failed to list dispatches")
		writeError(w, apperrors.Database(err))
		return
	}
	if records == nil {
		records = []model.DispatchRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": records,
		"total": len(records),
	})
}

func (h *OpsHandler) CreateCommand(w http.ResponseWriter, r *http.Request) {
	hostID := chi.URLParam(r, "hostID")

	var req struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxCommandBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if !util.IsValidEnum(req.Type, commandTypes) {
		writeError(w, apperrors.ValidationError("unknown command type").WithDetails(map[string]any{
			"type":    req.Type,
			"allowed": commandTypes,
		}))
		return
	}

	if err := validatePayload(model.CommandType(req.Type), req.Payload); err != nil {
		writeError(w, err)
		return
	}

	cmd, err := h.commands.Create(r.Context(), model.CreateAdminCommandParams{
		HostID:  hostID,
		Type:    model.CommandType(req.Type),
		Payload: req.Payload,
	})
	if err != nil {
		log.Error().Err(err).Str("hostId", hostID).Msg("failed to create admin command")
		writeError(w, apperrors.Database(err))
		return
	}

	audit.Log(audit.Event{
		Type:    audit.EventCommandQueued,
		HostID:  hostID,
		Details: map[string]interface{}{"commandId": cmd.ID, "commandType": req.Type},
	})

	writeJSON(w, http.StatusCreated, cmd)
}

func validatePayload(typ model.CommandType, raw json.RawMessage) error {
	switch typ {
	case model.CommandPause:
		var p model.PausePayload
		if len(raw) == 0 || json.Unmarshal(raw, &p) != nil || p.Minutes <= 0 {
			return apperrors.ValidationError("pause requires a positive minutes value")
		}
	case model.CommandRunAccount:
		var p model.RunAccountPayload
		if len(raw) == 0 || json.Unmarshal(raw, &p) != nil || p.AccountID == "" {
			return apperrors.ValidationError("run_account requires accountId")
		}
	}
	return nil
}
