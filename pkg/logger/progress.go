package logger

import (
	"time"
)

// OperationTimer logs the start and the outcome of a bounded operation such as
// loading one source table or rebuilding the dataset.
type OperationTimer struct {
	logger    Logger
	operation string
	startTime time.Time
}

// StartOperation logs the start of an operation and returns its timer
func StartOperation(log Logger, operation string, fields Fields) *OperationTimer {
	if log == nil {
		log = GetGlobalLogger()
	}

	timer := &OperationTimer{
		logger:    log.WithField("operation", operation),
		operation: operation,
		startTime: time.Now(),
	}

	timer.logger.WithFields(fields).Debug("Starting operation")
	return timer
}

// Elapsed returns the time since the operation started
func (t *OperationTimer) Elapsed() time.Duration {
	return time.Since(t.startTime)
}

// Complete logs the successful end of the operation with the number of rows handled
func (t *OperationTimer) Complete(rows int, fields Fields) {
	t.logger.WithFields(fields).WithFields(Fields{
		"rows":     rows,
		"duration": t.Elapsed().String(),
	}).Info("Operation completed")
}

// CompleteWithError logs the failed end of the operation
func (t *OperationTimer) CompleteWithError(err error) {
	t.logger.WithError(err).WithField("duration", t.Elapsed().String()).Error("Operation failed")
}
