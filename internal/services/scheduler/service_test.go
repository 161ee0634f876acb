package scheduler

import (
	"testing"

	"github.com/fieldreach/fieldreach/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestNewService_RejectsInvalidSchedule(t *testing.T) {
	_, err := NewService(nil, &common.SchedulerConfig{SessionSweepSchedule: "not a cron line"}, arbor.NewLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session sweep schedule")
}

func TestNewService_DefaultsEmptySchedule(t *testing.T) {
	svc, err := NewService(nil, &common.SchedulerConfig{}, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, "*/15 * * * *", svc.schedule)
}
