package logx

import (
	"fmt"

	"github.com/rs/zerolog"
)

// CronLogger adapts Logger to robfig/cron's Logger interface.
// Info records are logged at DEBUG; cron is chatty.
type CronLogger struct {
	Log Logger
}

func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.Log.Debug(msg, kvFields(keysAndValues)...)
}

func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.Log.Error(msg, append([]Field{Err(err)}, kvFields(keysAndValues)...)...)
}

func kvFields(kv []interface{}) []Field {
	out := make([]Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			out = append(out, String(key, "(missing)"))
			break
		}
		v := kv[i+1]
		out = append(out, func(e *zerolog.Event) { e.Interface(key, v) })
	}
	return out
}
