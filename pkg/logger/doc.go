// Package logger wraps zerolog behind a small Logger interface.
//
// Console output goes to stderr with colored levels; setting Format to
// "json" emits raw zerolog lines instead, and File tees every event into
// an append-only log file. Child loggers created with WithField carry
// their fields into every event:
//
//	log, err := logger.New(&cfg.Logging)
//	log = log.WithFields(map[string]interface{}{"run_id": id, "command": "comments"})
//	log.Info("Pipeline started")
//
// NewTestLogger captures events in memory for assertions in tests.
package logger
