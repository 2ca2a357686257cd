package logging

import "github.com/rs/zerolog"

// Leveled adapts Logger to the key/value LeveledLogger interface expected
// by hashicorp/go-retryablehttp.
type Leveled struct {
	l *Logger
}

func (l *Logger) Leveled() *Leveled { return &Leveled{l: l} }

func (a *Leveled) Error(msg string, keysAndValues ...interface{}) {
	a.emit(a.l.logger.Error(), msg, keysAndValues)
}

func (a *Leveled) Warn(msg string, keysAndValues ...interface{}) {
	a.emit(a.l.logger.Warn(), msg, keysAndValues)
}

func (a *Leveled) Info(msg string, keysAndValues ...interface{}) {
	a.emit(a.l.logger.Debug(), msg, keysAndValues)
}

func (a *Leveled) Debug(msg string, keysAndValues ...interface{}) {
	a.emit(a.l.logger.Debug(), msg, keysAndValues)
}

func (a *Leveled) emit(ev *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
