package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	require.Error(t, err)
}

func TestFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf).With(User("u1"))

	l.Warn("check failed", Metric("hrv"), Float64("value", 42.5), Error(errors.New("boom")), Bool("partial", true))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "check failed", line["message"])
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, "hrv", line["metric"])
	assert.Equal(t, 42.5, line["value"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, true, line["partial"])
}

func TestNopDiscards(t *testing.T) {
	Nop().Error("ignored", String("k", "v"))
}
