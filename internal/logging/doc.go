// Package logging provides structured logging for scribe runs.
//
// It wraps log/slog with a JSON handler and carries persistent attributes
// (run id, agent, section, phase) on child loggers so every line written
// during a generation run can be correlated after the fact.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(outputDir, "INFO")
//	if err != nil {
//		return err
//	}
//	defer logger.Close()
//
//	runLog := logger.WithRun(runID)
//	runLog.WithAgent("writer").Info("round complete", "round", 2)
//
// Pass [NopLogger] when logging is disabled or in tests.
package logging
