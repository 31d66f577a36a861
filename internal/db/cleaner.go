package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartCleaner purges expired rows on an interval: soft-deleted entries past
// the retention window and crash reports past the crash retention window.
func StartCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	entryRetention time.Duration,
	crashRetention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				entryCutoff := time.Now().Add(-entryRetention).Unix()
				res, err := db.ExecContext(ctx, `
                    DELETE FROM entries
                     WHERE deleted = true
                       AND version < $1
                `, entryCutoff)
				if err != nil {
					log.Error("failed to clean soft-deleted entries", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned soft-deleted entries", zap.Int64("removed", rows))
				}

				crashCutoff := time.Now().Add(-crashRetention).UnixMilli()
				res, err = db.ExecContext(ctx, `
                    DELETE FROM crash_reports
                     WHERE created_at < $1
                `, crashCutoff)
				if err != nil {
					log.Error("failed to clean crash reports", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned crash reports", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
