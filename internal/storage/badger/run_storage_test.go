package badger

import (
	"context"
	"testing"
	"time"

	"github.com/fieldreach/fieldreach/internal/common"
	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStorage_SaveAndGet(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	run := &models.Run{
		ID:         common.NewRunID(),
		SessionID:  common.NewSessionID(),
		Status:     models.RunStatusQueued,
		TotalCount: 3,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, mgr.RunStorage().SaveRun(ctx, run))

	got, err := mgr.RunStorage().GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusQueued, got.Status)
	assert.Equal(t, 3, got.TotalCount)
}

func TestRunStorage_GetRunItemsOrderedBySeq(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	runID := common.NewRunID()
	items := []*models.RunItem{
		{ID: common.NewRunItemID(), RunID: runID, PropertyID: "prp_c", Seq: 2, Status: models.RunItemStatusQueued},
		{ID: common.NewRunItemID(), RunID: runID, PropertyID: "prp_a", Seq: 0, Status: models.RunItemStatusQueued},
		{ID: common.NewRunItemID(), RunID: runID, PropertyID: "prp_b", Seq: 1, Status: models.RunItemStatusQueued},
	}
	require.NoError(t, mgr.RunStorage().SaveRunItems(ctx, items))

	// An item from a different run must not leak in
	other := &models.RunItem{ID: common.NewRunItemID(), RunID: common.NewRunID(), PropertyID: "prp_x", Seq: 0, Status: models.RunItemStatusQueued}
	require.NoError(t, mgr.RunStorage().SaveRunItem(ctx, other))

	got, err := mgr.RunStorage().GetRunItems(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "prp_a", got[0].PropertyID)
	assert.Equal(t, "prp_b", got[1].PropertyID)
	assert.Equal(t, "prp_c", got[2].PropertyID)
}
