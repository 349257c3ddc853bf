package hexary

import "github.com/ethereum/go-ethereum/log"

// Logger is the narrow logging surface the repair core depends on. It mirrors
// ludicroustrie.Logger: callers inject a real logger in production and a
// fake/no-op one in tests, and hot paths guard the call with IsTrace so the
// variadic ctx slice is never built when tracing is disabled.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	IsTrace() bool
	IsDebug() bool
}

// rootLogger adapts the process-wide go-ethereum logger.
type rootLogger struct{}

func (rootLogger) Trace(msg string, ctx ...interface{}) { log.Trace(msg, ctx...) }
func (rootLogger) Debug(msg string, ctx ...interface{}) { log.Debug(msg, ctx...) }
func (rootLogger) IsTrace() bool                         { return log.Root().Enabled(nil, log.LevelTrace) }
func (rootLogger) IsDebug() bool                         { return log.Root().Enabled(nil, log.LevelDebug) }

// NewLogger returns the default production logger, backed by go-ethereum's
// structured logger.
func NewLogger() Logger { return rootLogger{} }

// NoopLogger discards everything; used by tests and by callers that have not
// wired up logging.
type NoopLogger struct{}

func (NoopLogger) Trace(string, ...interface{}) {}
func (NoopLogger) Debug(string, ...interface{}) {}
func (NoopLogger) IsTrace() bool                { return false }
func (NoopLogger) IsDebug() bool                { return false }
