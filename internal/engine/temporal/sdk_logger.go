package temporal

import (
	"fmt"

	"github.com/rs/zerolog"
)

// sdkLogger adapts zerolog to the Temporal SDK log.Logger interface.
type sdkLogger struct {
	logger zerolog.Logger
}

func newSDKLogger(logger zerolog.Logger) *sdkLogger {
	return &sdkLogger{logger: logger.With().Str("source", "temporal-sdk").Logger()}
}

// Debug intentionally no-ops to keep Temporal SDK logs at INFO+.
func (l *sdkLogger) Debug(msg string, keyvals ...interface{}) {}

func (l *sdkLogger) Info(msg string, keyvals ...interface{}) {
	l.log(l.logger.Info(), msg, keyvals...)
}

func (l *sdkLogger) Warn(msg string, keyvals ...interface{}) {
	l.log(l.logger.Warn(), msg, keyvals...)
}

func (l *sdkLogger) Error(msg string, keyvals ...interface{}) {
	l.log(l.logger.Error(), msg, keyvals...)
}

func (l *sdkLogger) log(ev *zerolog.Event, msg string, keyvals ...interface{}) {
	for i := 0; i+1 < len(keyvals); i += 2 {
		ev = ev.Str(fmt.Sprint(keyvals[i]), fmt.Sprint(keyvals[i+1]))
	}
	ev.Msg(msg)
}
