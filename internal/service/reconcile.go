package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Reconcile repairs the store after partial writes: result rows missing
// their detail row get it rebuilt from the stored sub-score details, and
// detail rows whose result is gone are deleted.
func (s *QCService) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	orphans, err := s.storage.FindOrphanedResults(ctx, 0)
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	report.Orphaned = len(orphans)

	for _, o := range orphans {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.storage.RestoreDetail(ctx, o.ResultID, o.SubScores); err != nil {
			report.Failed++
			s.logger.Warn("failed to restore detail row",
				zap.Int64("result_id", o.ResultID),
				zap.Error(err))
			continue
		}
		report.Restored++
	}

	n, err := s.storage.DeleteDanglingDetails(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	report.DanglingRemoved = n

	s.logger.Info("reconciliation finished",
		zap.Int("orphaned", report.Orphaned),
		zap.Int("restored", report.Restored),
		zap.Int("failed", report.Failed),
		zap.Int64("dangling_removed", report.DanglingRemoved))
	return report, nil
}
