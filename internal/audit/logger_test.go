package audit

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	original := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = original }()

	Log(Event{
		Type:       EventResourceBlocked,
		AccountID:  "acct-1",
		ActionCode: "post:group",
		ResourceID: "group-9",
		Reason:     "membership rejected",
		Details: map[string]interface{}{
			"blockCount": 2,
			"duration":   10 * 24 * time.Hour,
		},
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "scheduler", entry["audit"])
	assert.Equal(t, "resource_blocked", entry["event_type"])
	assert.Equal(t, "acct-1", entry["accountId"])
	assert.Equal(t, "post:group", entry["actionCode"])
	assert.Equal(t, "group-9", entry["resourceId"])
	assert.Equal(t, "membership rejected", entry["reason"])
	assert.Equal(t, float64(2), entry["blockCount"])
	assert.NotContains(t, entry, "hostId")
}
