package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfoHourly(t *testing.T) {
	ref := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	info, err := GetTriggerInfo("0 * * * *", ref)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), info.Last)
	assert.Equal(t, time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, 30*time.Minute, info.TimeSinceLast)
	assert.Equal(t, 30*time.Minute, info.TimeUntilNext)
}

func TestGetTriggerInfoDescriptor(t *testing.T) {
	ref := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	info, err := GetTriggerInfo("@daily", ref)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), info.Last)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), info.Next)
}

func TestGetTriggerInfoInvalid(t *testing.T) {
	_, err := GetTriggerInfo("not a cron", time.Now())
	assert.Error(t, err)
}
