package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourcePool_PickRotates(t *testing.T) {
	pool := NewResourcePool(16, time.Hour)
	pool.Add("group_post", "g1", "g2", "g3")
	pool.Add("comment", "c1")

	var picked []string
	for i := 0; i < 4; i++ {
		id, ok := pool.Pick("group_post", nil)
		require.True(t, ok)
		picked = append(picked, id)
	}
	assert.Equal(t, []string{"g1", "g2", "g3", "g1"}, picked)
	assert.Equal(t, 3, pool.Len("group_post"))
	assert.Equal(t, 1, pool.Len("comment"))
}

func TestResourcePool_PickSkips(t *testing.T) {
	pool := NewResourcePool(16, time.Hour)
	pool.Add("group_post", "g1", "g2")

	skip := func(id string) bool { return id == "g1" }
	id, ok := pool.Pick("group_post", skip)
	require.True(t, ok)
	assert.Equal(t, "g2", id)

	_, ok = pool.Pick("group_post", func(string) bool { return true })
	assert.False(t, ok)

	_, ok = pool.Pick("unknown", nil)
	assert.False(t, ok)
}

func TestResourcePool_AddIsIdempotent(t *testing.T) {
	pool := NewResourcePool(16, time.Hour)
	pool.Add("group_post", "g1", "g2", "")
	pool.Add("group_post", "g1")

	assert.Equal(t, 2, pool.Len("group_post"))

	id, ok := pool.Pick("group_post", nil)
	require.True(t, ok)
	assert.Equal(t, "g1", id)
}

func TestResourcePool_Remove(t *testing.T) {
	pool := NewResourcePool(16, time.Hour)
	pool.Add("group_post", "g1", "g2")
	pool.Remove("group_post", "g1")

	id, ok := pool.Pick("group_post", nil)
	require.True(t, ok)
	assert.Equal(t, "g2", id)
	assert.Equal(t, 1, pool.Len("group_post"))
}
