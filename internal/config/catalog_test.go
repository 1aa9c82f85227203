package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCatalog = `
actions:
  - code: rest
    weight: 5
    interval: {min: 30, max: 90}
    rest: true
  - code: post:group
    weight: 40
    interval: {min: 60, max: 180}
    invasive: true
    quotaClass: group_post
  - code: explore
    weight: 20
    interval: {min: 10, max: 20}
    active: false
quotas:
  - class: group_post
    maxUses: 9
    windowHours: 24
`

func TestParseCatalog(t *testing.T) {
	t.Run("parses a valid catalog", func(t *testing.T) {
		catalog, err := ParseCatalog([]byte(validCatalog))
		require.NoError(t, err)

		require.Len(t, catalog.Actions, 3)
		require.Len(t, catalog.Quotas, 1)

		post, ok := catalog.Find("post:group")
		require.True(t, ok)
		assert.Equal(t, 40.0, post.Weight)
		assert.True(t, post.Invasive)
		assert.True(t, post.QuotaGated())
		assert.Equal(t, 60, post.Interval.Min)
		assert.Equal(t, 180, post.Interval.Max)

		rest, ok := catalog.Find("rest")
		require.True(t, ok)
		assert.True(t, rest.Rest)
		assert.True(t, rest.IsActive())
	})

	t.Run("active flag defaults to true", func(t *testing.T) {
		catalog, err := ParseCatalog([]byte(validCatalog))
		require.NoError(t, err)

		active := catalog.ActiveActions()
		require.Len(t, active, 2)
		assert.Equal(t, "rest", active[0].Code)
		assert.Equal(t, "post:group", active[1].Code)
	})

	tests := []struct {
		name    string
		catalog string
		errMsg  string
	}{
		{
			name:    "zero window hours",
			catalog: "actions:\n  - code: a\n    weight: 1\n    quotaClass: x\nquotas:\n  - class: x\n    maxUses: 3\n    windowHours: 0\n",
			errMsg:  "windowHours must be positive",
		},
		{
			name:    "negative weight",
			catalog: "actions:\n  - code: a\n    weight: -1\n",
			errMsg:  "weight must not be negative",
		},
		{
			name:    "inverted interval",
			catalog: "actions:\n  - code: a\n    weight: 1\n    interval: {min: 10, max: 5}\n",
			errMsg:  "invalid interval",
		},
		{
			name:    "duplicate code",
			catalog: "actions:\n  - code: a\n    weight: 1\n  - code: a\n    weight: 2\n",
			errMsg:  "duplicate action code",
		},
		{
			name:    "unknown quota class",
			catalog: "actions:\n  - code: a\n    weight: 1\n    quotaClass: nope\n",
			errMsg:  "unknown quota class",
		},
		{
			name:    "no actions",
			catalog: "quotas: []\n",
			errMsg:  "no actions",
		},
		{
			name:    "empty code",
			catalog: "actions:\n  - weight: 1\n",
			errMsg:  "must not be empty",
		},
	}

	for _, tc := range tests {
		t.Run("rejects "+tc.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tc.catalog))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	t.Run("reads from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		require.NoError(t, os.WriteFile(path, []byte(validCatalog), 0o600))

		catalog, err := LoadCatalog(path)
		require.NoError(t, err)
		assert.Len(t, catalog.Actions, 3)
	})

	t.Run("fails on missing file", func(t *testing.T) {
		_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
