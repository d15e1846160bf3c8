// Package report provides the default error-reporter implementation: a
// structured-log sink. Applications embedding the cart can substitute
// their own notification surface.
package report

import "go.uber.org/zap"

// LogReporter writes reported failures to a zap logger.
type LogReporter struct {
	log *zap.Logger
}

// NewLogReporter creates a reporter. logger may be nil.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{log: logger}
}

// HandleStorageError logs a storage failure.
func (r *LogReporter) HandleStorageError(err error, context string) {
	r.log.Error("storage error reported",
		zap.String("context", context),
		zap.Error(err))
}

// HandleValidationError logs a validation failure.
func (r *LogReporter) HandleValidationError(err error, context string) {
	r.log.Warn("validation error reported",
		zap.String("context", context),
		zap.Error(err))
}
