// Package audit records one LogRecord per attempted action and keeps each
// project's trail under a fixed cap by evicting the oldest entries.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clouddock-systems/clouddock/internal/metrics"
	"github.com/clouddock-systems/clouddock/internal/models"
)

// Store is the slice of the repository the logger needs.
type Store interface {
	InsertLogRecord(ctx context.Context, rec *models.LogRecord) error
	EvictOldestLogRecords(ctx context.Context, projectID string, keepMax int) (int64, error)
}

// Logger is the single entry point every privileged operation reports
// through. Appending is authoritative: an insert failure propagates to the
// caller. Eviction is best-effort: its failure is logged and suppressed so it
// can never make an already-completed operation appear to fail.
type Logger struct {
	store      Store
	maxEntries int
}

func NewLogger(store Store, maxEntries int) *Logger {
	return &Logger{
		store:      store,
		maxEntries: maxEntries,
	}
}

// LogAction appends one record describing an action's outcome and, for
// project-scoped records, trims the project's trail back to the cap.
// Records without a project scope are exempt from the cap.
func (l *Logger) LogAction(ctx context.Context, action, details, status string, projectID *string, userID string) (*models.LogRecord, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("invalid log status %q", status)
	}

	if status == models.StatusFailed {
		slog.Error("action failed",
			slog.String("action", action),
			slog.String("details", details),
			slog.String("user_id", userID),
		)
	} else {
		slog.Info("action completed",
			slog.String("action", action),
			slog.String("details", details),
			slog.String("user_id", userID),
		)
	}

	rec := &models.LogRecord{
		Action:    action,
		Details:   details,
		Status:    status,
		ProjectID: projectID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	if err := l.store.InsertLogRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to append audit record: %w", err)
	}
	metrics.RecordsWritten.WithLabelValues(action, status).Inc()

	if projectID != nil {
		evicted, err := l.store.EvictOldestLogRecords(ctx, *projectID, l.maxEntries)
		if err != nil {
			// The audited operation already returned its result to the
			// caller; a failed cleanup must not surface as its failure.
			metrics.EvictionErrors.Inc()
			slog.Error("failed to evict old audit records",
				slog.String("project_id", *projectID),
				slog.String("error", err.Error()),
			)
		} else if evicted > 0 {
			metrics.RecordsEvicted.Add(float64(evicted))
			slog.Debug("evicted old audit records",
				slog.String("project_id", *projectID),
				slog.Int64("evicted", evicted),
			)
		}
	}

	return rec, nil
}
