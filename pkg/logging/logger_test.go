package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.llib.dev/rowstream/pkg/errorkit"
	"go.llib.dev/rowstream/pkg/logging"
	"go.llib.dev/testcase/assert"
	"go.llib.dev/testcase/clock/timecop"
	"go.llib.dev/testcase/random"
)

func Test_smoke(t *testing.T) {
	ctx := context.Background()
	l, buf := logging.Stub(t)

	ctx = logging.ContextWith(ctx, logging.Fields{
		"foo": "bar",
		"baz": "qux",
	})

	l.Info(ctx, "foo", logging.Fields{
		"userID":    42,
		"accountID": 24,
	})

	assert.Contain(t, buf.String(), `"foo":"bar"`)
	assert.Contain(t, buf.String(), `"userID":42`)
}

func TestLogger_smoke(t *testing.T) {
	now := time.Now()
	timecop.Travel(t, now, timecop.Freeze)
	rnd := random.New(random.CryptoSeed{})

	t.Run("log methods accept nil context", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := logging.Logger{Out: buf, Level: logging.LevelDebug}
		l.Debug(nil, "Debug")
		l.Info(nil, "Info")
		l.Warn(nil, "Warn")
		l.Error(nil, "Error")
		l.Fatal(nil, "Fatal")
		assert.Contain(t, buf.String(), "Debug")
		assert.Contain(t, buf.String(), "Info")
		assert.Contain(t, buf.String(), "Warn")
		assert.Contain(t, buf.String(), "Error")
		assert.Contain(t, buf.String(), "Fatal")
	})

	t.Run("output is a valid JSON by default", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := logging.Logger{Out: buf}

		expected := rnd.Repeat(3, 7, func() {
			l.Info(context.Background(), rnd.String())
		})

		dec := json.NewDecoder(buf)
		var got int
		for dec.More() {
			got++
			msg := logging.Fields{}
			assert.NoError(t, dec.Decode(&msg))
			assert.NotEmpty(t, msg)
			assert.Equal[any](t, "info", msg["level"])
			assert.Equal[any](t, now.Format(time.RFC3339), msg["timestamp"])
		}
		assert.Equal(t, expected, got)
	})

	t.Run("log entries split by the separator", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := logging.Logger{Out: buf, Separator: "|"}
		expected := rnd.Repeat(3, 7, func() {
			l.Info(context.Background(), rnd.UUID())
		})
		gotEntries := strings.Split(strings.TrimSuffix(buf.String(), "|"), "|")
		assert.Equal(t, expected, len(gotEntries))
	})

	t.Run("levels below the configured one are skipped", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := logging.Logger{Out: buf, Level: logging.LevelWarn}
		l.Debug(nil, "debug-msg")
		l.Info(nil, "info-msg")
		l.Warn(nil, "warn-msg")
		assert.NotContain(t, buf.String(), "debug-msg")
		assert.NotContain(t, buf.String(), "info-msg")
		assert.Contain(t, buf.String(), "warn-msg")
	})

	t.Run("keys can be renamed", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := logging.Logger{Out: buf, MessageKey: "msg", LevelKey: "lvl", KeyFormatter: strings.ToUpper}
		l.Info(nil, "hello", logging.Field("user_id", 7))
		assert.Contain(t, buf.String(), `"MSG":"hello"`)
		assert.Contain(t, buf.String(), `"LVL":"info"`)
		assert.Contain(t, buf.String(), `"USER_ID":7`)
	})
}

func TestLogger_detailPrecedence(t *testing.T) {
	l, buf := logging.Stub(t)
	ctx := logging.ContextWith(context.Background(), logging.Field("query", "SELECT 1"), logging.Field("attempt", 0))
	l.Warn(ctx, "swallowed", logging.Field("attempt", 1))

	var e map[string]any
	assert.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &e))
	assert.Equal[any](t, "warn", e["level"])
	assert.Equal[any](t, "swallowed", e["message"])
	assert.Equal[any](t, "SELECT 1", e["query"])
	assert.Equal[any](t, float64(1), e["attempt"])
}

func TestContextWith(t *testing.T) {
	l, buf := logging.Stub(t)
	ctx := logging.ContextWith(context.Background(), logging.Field("a", 1), logging.Field("b", 1))
	ctx = logging.ContextWith(ctx, logging.Field("b", 2))
	l.Info(ctx, "msg", logging.Field("c", 3))

	var e map[string]any
	assert.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &e))
	assert.Equal[any](t, float64(1), e["a"])
	assert.Equal[any](t, float64(2), e["b"])
	assert.Equal[any](t, float64(3), e["c"])

	assert.Equal(t, ctx, logging.ContextWith(ctx))
}

func TestErrField(t *testing.T) {
	const ErrBoom errorkit.Error = "boom"
	l, buf := logging.Stub(t)

	l.Error(nil, "failed", logging.ErrField(errorkit.WithDetail(ErrBoom.Wrap(errors.New("cause")), "more info")))
	assert.Contain(t, buf.String(), `"error":{`)
	assert.Contain(t, buf.String(), `"detail":"more info"`)
	assert.Contain(t, buf.String(), "[boom] cause")

	t.Run("nil error adds nothing", func(t *testing.T) {
		l, buf := logging.Stub(t)
		l.Info(nil, "ok", logging.ErrField(nil))
		assert.NotContain(t, buf.String(), `"error"`)
	})
}

func TestParseLevel(t *testing.T) {
	for raw, exp := range map[string]logging.Level{
		"debug":   logging.LevelDebug,
		"INFO":    logging.LevelInfo,
		" warn ":  logging.LevelWarn,
		"warning": logging.LevelWarn,
		"Error":   logging.LevelError,
		"fatal":   logging.LevelFatal,
	} {
		got, ok := logging.ParseLevel(raw)
		assert.True(t, ok)
		assert.Equal(t, exp, got)
	}
	_, ok := logging.ParseLevel("verbose")
	assert.False(t, ok)
}
