// -----------------------------------------------------------------------
// Run Orchestrator - Sequential item processing with fail-fast abort
// -----------------------------------------------------------------------

package runs

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldreach/fieldreach/internal/models"
)

// skippedAfterSessionFailure marks items never attempted because the shared
// session died earlier in the batch.
const skippedAfterSessionFailure = "skipped after shared session failure"

// ProcessRun executes a running run to completion. Items are worked in Seq
// order against the run's single shared session. An address-level failure
// (field not found, no data) marks that item failed and moves on; a
// session-level failure marks the current item failed, fails every
// remaining queued item with a skip marker, and aborts the run, because the
// session is known-bad for the rest of the batch and each further attempt
// would be a wasted portal round trip.
func (s *Service) ProcessRun(ctx context.Context, runID string) error {
	run, err := s.storage.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status != models.RunStatusRunning {
		return fmt.Errorf("run %s is %s, only running runs can be processed", runID, run.Status)
	}

	items, err := s.storage.GetRunItems(ctx, runID)
	if err != nil {
		return err
	}

	session, err := s.sessions.GetSession(ctx, run.SessionID)
	if err != nil {
		return s.failRunBeforeWork(ctx, run, items, err)
	}
	snapshot, err := s.sessions.OpenSnapshot(ctx, session)
	if err != nil {
		return s.failRunBeforeWork(ctx, run, items, err)
	}

	for idx, item := range items {
		if item.Status != models.RunItemStatusQueued {
			continue
		}

		itemErr := s.processItem(ctx, snapshot, item)

		run.ProcessedCount++
		if itemErr == nil {
			run.SuccessCount++
			item.Status = models.RunItemStatusSucceeded
		} else {
			run.FailureCount++
			item.Status = models.RunItemStatusFailed
			item.Error = itemErr.Error()
		}

		if err := s.storage.SaveRunItem(ctx, item); err != nil {
			return err
		}
		if err := s.storage.SaveRun(ctx, run); err != nil {
			return err
		}

		if itemErr != nil && models.IsSessionFailure(itemErr) {
			s.logger.Warn().
				Str("run_id", runID).
				Str("item_id", item.ID).
				Str("reason", itemErr.Error()).
				Int("remaining", len(items)-idx-1).
				Msg("Shared session failed mid-batch, aborting remaining items")

			if err := s.skipRemaining(ctx, run, items[idx+1:]); err != nil {
				return err
			}

			run.MarkFailed(itemErr.Error())
			return s.storage.SaveRun(ctx, run)
		}

		if itemErr != nil {
			s.logger.Debug().
				Str("run_id", runID).
				Str("item_id", item.ID).
				Str("reason", itemErr.Error()).
				Msg("Item failed, batch continues")
		}
	}

	if run.FailureCount > 0 {
		run.MarkFailed(fmt.Sprintf("%d of %d items failed", run.FailureCount, run.TotalCount))
	} else {
		run.MarkSucceeded()
	}
	if err := s.storage.SaveRun(ctx, run); err != nil {
		return err
	}

	s.logger.Info().
		Str("run_id", runID).
		Str("status", string(run.Status)).
		Int("succeeded", run.SuccessCount).
		Int("failed", run.FailureCount).
		Msg("Run finished")

	return nil
}

// processItem extracts customer data for one property and writes the result
// onto the property record.
func (s *Service) processItem(ctx context.Context, snapshot *models.SessionSnapshot, item *models.RunItem) error {
	property, err := s.properties.GetProperty(ctx, item.PropertyID)
	if err != nil {
		return err
	}

	data, err := s.automation.ExtractCustomerData(ctx, snapshot, property)
	if err != nil {
		return err
	}

	property.ApplyExtraction(data)
	if err := s.properties.SaveProperty(ctx, property); err != nil {
		return err
	}

	item.UpdatedAt = time.Now()
	return nil
}

// skipRemaining fails every still-queued item with the skip marker and
// counts them into the run's totals so the terminal invariants hold.
func (s *Service) skipRemaining(ctx context.Context, run *models.Run, remaining []*models.RunItem) error {
	for _, item := range remaining {
		if item.Status != models.RunItemStatusQueued {
			continue
		}
		item.Status = models.RunItemStatusFailed
		item.Error = skippedAfterSessionFailure
		item.UpdatedAt = time.Now()

		run.ProcessedCount++
		run.FailureCount++

		if err := s.storage.SaveRunItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// failRunBeforeWork handles failures that occur before any item is
// attempted, like an unreadable session: every item fails with the skip
// marker and the run terminates failed.
func (s *Service) failRunBeforeWork(ctx context.Context, run *models.Run, items []*models.RunItem, cause error) error {
	if err := s.skipRemaining(ctx, run, items); err != nil {
		return err
	}
	run.MarkFailed(cause.Error())
	if err := s.storage.SaveRun(ctx, run); err != nil {
		return err
	}

	s.logger.Warn().
		Str("run_id", run.ID).
		Str("reason", cause.Error()).
		Msg("Run failed before processing any item")

	return nil
}
