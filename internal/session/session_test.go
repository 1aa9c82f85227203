package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilities(t *testing.T) {
	caps := Capabilities{CapabilityBrowser}
	assert.True(t, caps.Has(CapabilityBrowser))
	assert.False(t, caps.Has(CapabilityNetwork))

	union := caps.Union(Capabilities{CapabilityNetwork, CapabilityBrowser})
	assert.Equal(t, Capabilities{CapabilityBrowser, CapabilityNetwork}, union)
	assert.Equal(t, Capabilities{CapabilityBrowser}, caps)
}

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("release closes the session once", func(t *testing.T) {
		p := NewLocalProvider()
		s, err := p.Acquire(ctx, "acct-1", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Open())
		assert.False(t, IsClosed(s))

		require.NoError(t, s.Release(ctx))
		require.NoError(t, s.Release(ctx))

		assert.True(t, IsClosed(s))
		assert.Equal(t, 0, p.Open())
		assert.Equal(t, 2, s.(*LocalSession).Releases())
	})

	t.Run("terminate signals closed without release", func(t *testing.T) {
		p := NewLocalProvider()
		s, err := p.Acquire(ctx, "acct-1", nil)
		require.NoError(t, err)

		s.(*LocalSession).Terminate()

		assert.True(t, IsClosed(s))
		assert.Equal(t, 0, s.(*LocalSession).Releases())
	})

	t.Run("acquire honours cancelled context", func(t *testing.T) {
		p := NewLocalProvider()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := p.Acquire(cctx, "acct-1", nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
