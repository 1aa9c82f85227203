package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

func TestBlockDays_Sequence(t *testing.T) {
	want := []int{5, 10, 20, 40, 80, 160, 180, 180, 180}
	for prior, days := range want {
		assert.Equal(t, days, BlockDays(prior, 5, 180), "prior=%d", prior)
	}
	assert.Equal(t, 180, BlockDays(1000, 5, 180))
}

func TestBlockDays_NonDecreasing(t *testing.T) {
	for _, base := range []int{1, 2, 5, 7} {
		for _, maxDays := range []int{base, 30, 180, 365} {
			last := 0
			for prior := 0; prior < 64; prior++ {
				days := BlockDays(prior, base, maxDays)
				assert.GreaterOrEqual(t, days, last)
				assert.LessOrEqual(t, days, maxDays)
				last = days
			}
		}
	}
}

func newTestBlockManager(clock *fakeClock) (*BlockManager, fakeBlockRepo) {
	repo := fakeBlockRepo{newFakeStore(clock)}
	m := NewBlockManager(repo, 5, 180)
	m.now = clock.Now
	return m, repo
}

func TestBlockManager_RecordFailure_Escalates(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	m, _ := newTestBlockManager(clock)

	start := clock.Now()
	wantDays := []int{5, 10, 20, 40, 80, 160, 180, 180}
	for i, days := range wantDays {
		res, err := m.RecordFailure(ctx, "acc-1", "group-1", "post rejected")
		require.NoError(t, err)
		assert.Equal(t, i+1, res.BlockCount)
		// Repeated failures at the same instant keep the longest block.
		assert.Equal(t, start.Add(time.Duration(days)*day), res.BlockedUntil)
	}
}

func TestBlockManager_SecondFailureAfterExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	m, repo := newTestBlockManager(clock)

	first, err := m.RecordFailure(ctx, "acc-1", "group-1", "post rejected")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(5*day), first.BlockedUntil)

	blocked, err := m.IsBlocked(ctx, "acc-1", "group-1")
	require.NoError(t, err)
	assert.True(t, blocked)

	clock.Advance(5*day + time.Second)
	blocked, err = m.IsBlocked(ctx, "acc-1", "group-1")
	require.NoError(t, err)
	assert.False(t, blocked)

	cleared, err := repo.ClearExpired(ctx, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)

	second, err := m.RecordFailure(ctx, "acc-1", "group-1", "post rejected again")
	require.NoError(t, err)
	assert.Equal(t, 2, second.BlockCount)
	assert.Equal(t, clock.Now().Add(10*day), second.BlockedUntil)
}

func TestBlockManager_PairsAreIndependent(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	m, _ := newTestBlockManager(clock)

	_, err := m.RecordFailure(ctx, "acc-1", "group-1", "rejected")
	require.NoError(t, err)

	for _, pair := range [][2]string{{"acc-1", "group-2"}, {"acc-2", "group-1"}} {
		blocked, err := m.IsBlocked(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.False(t, blocked, "%v", pair)
	}

	set, err := m.BlockedSet(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"group-1": true}, set)
}
