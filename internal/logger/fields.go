package logger

// With returns a Logger that prepends fields to every call on l.
func With(l Logger, fields ...interface{}) Logger {
	if l == nil {
		l = NoOpLogger{}
	}
	if len(fields) == 0 {
		return l
	}
	if fl, ok := l.(*fieldLogger); ok {
		return &fieldLogger{inner: fl.inner, fields: concat(fl.fields, fields)}
	}
	return &fieldLogger{inner: l, fields: fields}
}

type fieldLogger struct {
	inner  Logger
	fields []interface{}
}

func (l *fieldLogger) Debug(msg string, fields ...interface{}) {
	l.inner.Debug(msg, concat(l.fields, fields)...)
}

func (l *fieldLogger) Info(msg string, fields ...interface{}) {
	l.inner.Info(msg, concat(l.fields, fields)...)
}

func (l *fieldLogger) Warn(msg string, fields ...interface{}) {
	l.inner.Warn(msg, concat(l.fields, fields)...)
}

func (l *fieldLogger) Error(msg string, err error, fields ...interface{}) {
	l.inner.Error(msg, err, concat(l.fields, fields)...)
}

func concat(a, b []interface{}) []interface{} {
	out := make([]interface{}, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
