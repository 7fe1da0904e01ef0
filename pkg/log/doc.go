// Package log provides the logging abstraction used by stationd components.
//
// The connection core never talks to a logging library directly. It logs
// through the Logger interface, which carries a message and a list of typed
// key/value fields. The zerolog adapter is what the daemon uses; the no-op
// logger is the library default and what most tests use.
//
// # Usage
//
//	logger := log.NewZerologAdapter(zerolog.InfoLevel)
//	orch := logger.With(log.String("component", "orchestrator"))
//	orch.Info("attempt started", log.Int("retry", 3))
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package log
