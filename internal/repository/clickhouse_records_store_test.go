package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applogger "VitalPulse/pkg/logger"
)

func TestParseLocation(t *testing.T) {
	l := applogger.Nop()

	assert.Nil(t, parseLocation("", "u1", l))
	assert.Nil(t, parseLocation("Mars/Olympus", "u1", l))

	loc := parseLocation("UTC", "u1", l)
	require.NotNil(t, loc)
	assert.Equal(t, "UTC", loc.String())
}

func TestClickHouseSchemaCoversRecordTables(t *testing.T) {
	joined := strings.Join(ClickHouseSchema, "\n")
	for _, table := range []string{"observations", "activity_daily", "sleep_sessions", "medication_doses", "device_syncs", "user_profiles"} {
		assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
}
