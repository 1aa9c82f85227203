package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/openclaw/fleet-worker-go/internal/redis"
)

// Pacer enforces the short global cooldown after an invasive action.
type Pacer interface {
	Paced(ctx context.Context, accountID string) bool
	Mark(ctx context.Context, accountID string)
}

// InvasivePacer keeps the cooldown in Redis so every host sees it.
type InvasivePacer struct {
	client   *redis.Client
	cooldown time.Duration
}

func NewInvasivePacer(client *redis.Client, cooldown time.Duration) *InvasivePacer {
	return &InvasivePacer{client: client, cooldown: cooldown}
}

// Paced reports true while the cooldown runs. A Redis failure counts as paced.
func (p *InvasivePacer) Paced(ctx context.Context, accountID string) bool {
	if p.cooldown <= 0 {
		return false
	}
	n, err := p.client.Exists(ctx, redisclient.InvasiveCooldownKey(accountID)).Result()
	if err != nil {
		log.Warn().
			Err(err).
			Str("accountId", accountID).
			Msg("invasive cooldown check failed, pacing account for safety")
		return true
	}
	return n > 0
}

func (p *InvasivePacer) Mark(ctx context.Context, accountID string) {
	if p.cooldown <= 0 {
		return
	}
	err := p.client.Set(ctx, redisclient.InvasiveCooldownKey(accountID), time.Now().Unix(), p.cooldown).Err()
	if err != nil {
		log.Warn().Err(err).Str("accountId", accountID).Msg("failed to start invasive cooldown")
	}
}
