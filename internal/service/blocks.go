package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/fleet-worker-go/internal/model"
	"github.com/openclaw/fleet-worker-go/internal/repository"
)

type BlockResult struct {
	BlockCount   int
	BlockedUntil time.Time
}

// BlockManager penalizes (account, resource) pairs with exponentially growing blocks.
type BlockManager struct {
	repo     repository.BlockRepository
	baseDays int
	maxDays  int
	now      func() time.Time
}

func NewBlockManager(repo repository.BlockRepository, baseDays, maxDays int) *BlockManager {
	return &BlockManager{repo: repo, baseDays: baseDays, maxDays: maxDays, now: time.Now}
}

// BlockDays is min(baseDays * 2^priorCount, maxDays).
func BlockDays(priorCount, baseDays, maxDays int) int {
	days := baseDays
	for i := 0; i < priorCount && days < maxDays; i++ {
		days *= 2
	}
	return min(days, maxDays)
}

func (m *BlockManager) RecordFailure(ctx context.Context, accountID, resourceID, reason string) (BlockResult, error) {
	existing, err := m.repo.Find(ctx, accountID, resourceID)
	if err != nil {
		return BlockResult{}, fmt.Errorf("load block %s: %w", resourceID, err)
	}

	prior := 0
	if existing != nil {
		prior = existing.BlockCount
	}

	days := BlockDays(prior, m.baseDays, m.maxDays)
	until := m.now().Add(time.Duration(days) * 24 * time.Hour)
	if existing != nil && existing.BlockedUntil != nil && existing.BlockedUntil.After(until) {
		until = *existing.BlockedUntil
	}

	result := BlockResult{BlockCount: prior + 1, BlockedUntil: until}
	err = m.repo.Upsert(ctx, model.UpsertBlockParams{
		AccountID:    accountID,
		ResourceID:   resourceID,
		BlockedUntil: result.BlockedUntil,
		BlockCount:   result.BlockCount,
		Reason:       reason,
	})
	if err != nil {
		return BlockResult{}, fmt.Errorf("save block %s: %w", resourceID, err)
	}

	blocksRecorded.Inc()
	log.Warn().
		Str("accountId", accountID).
		Str("resourceId", resourceID).
		Str("reason", reason).
		Int("blockCount", result.BlockCount).
		Int("days", days).
		Time("blockedUntil", result.BlockedUntil).
		Msg("resource blocked for account")

	return result, nil
}

func (m *BlockManager) IsBlocked(ctx context.Context, accountID, resourceID string) (bool, error) {
	block, err := m.repo.Find(ctx, accountID, resourceID)
	if err != nil {
		return false, err
	}
	return block != nil && block.BlockedAt(m.now()), nil
}

// BlockedSet returns the resource ids currently blocked for the account.
func (m *BlockManager) BlockedSet(ctx context.Context, accountID string) (map[string]bool, error) {
	blocks, err := m.repo.FindActiveByAccountID(ctx, accountID, m.now())
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		set[b.ResourceID] = true
	}
	return set, nil
}
