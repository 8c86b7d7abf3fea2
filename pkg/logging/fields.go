package logging

import (
	"fmt"
	"reflect"

	"go.llib.dev/rowstream/pkg/errorkit"
)

// Detail is a logging detail that enrich the logging message with additional contextual detail.
type Detail interface {
	addTo(l *Logger, e entry)
}

// Field creates a single key value pair based logging detail.
// It will enrich the log entry with a value in the key you gave.
func Field(key string, value any) Detail {
	return field{Key: key, Value: value}
}

type field struct {
	Key   string
	Value any
}

func (f field) addTo(l *Logger, e entry) {
	val, ok := l.toFieldValue(f.Value)
	if !ok {
		return
	}
	e[l.formatKey(f.Key)] = val
}

// LazyDetail lets you add logging details that aren’t evaluated until the log is actually created.
type LazyDetail func() Detail

func (df LazyDetail) addTo(l *Logger, e entry) {
	if df == nil {
		return
	}
	if d := df(); d != nil {
		d.addTo(l, e)
	}
}

// Fields is a collection of field that you can add to your loggig record.
type Fields map[string]any

func (fields Fields) addTo(l *Logger, e entry) {
	for k, v := range fields {
		Field(k, v).addTo(l, e)
	}
}

// ErrField adds the error under the "error" key.
func ErrField(err error) Detail {
	if err == nil {
		return nullLoggingDetail{}
	}
	details := Fields{
		"message": err.Error(),
	}
	if detail, ok := errorkit.LookupDetail(err); ok {
		details["detail"] = detail
	}
	return Field("error", details)
}

type entry map[string]any

func (l *Logger) toFieldValue(val any) (any, bool) {
	switch val := val.(type) {
	case nil:
		return nil, true
	case nullLoggingDetail:
		return nil, false
	case Detail:
		e := make(entry)
		val.addTo(l, e)
		return map[string]any(e), true
	case error:
		return val.Error(), true
	case fmt.Stringer:
		return val.String(), true
	}
	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		vs := map[string]any{}
		for _, key := range rv.MapKeys() {
			if v, ok := l.toFieldValue(rv.MapIndex(key).Interface()); ok {
				vs[l.formatKey(key.String())] = v
			}
		}
		return vs, true
	}
	return val, true
}

type nullLoggingDetail struct{}

func (nullLoggingDetail) addTo(*Logger, entry) {}
