package logging

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Default is the process wide Logger that the package level functions use.
var Default Logger

func Debug(ctx context.Context, msg string, ds ...Detail) {
	Default.Debug(ctx, msg, ds...)
}

func Info(ctx context.Context, msg string, ds ...Detail) {
	Default.Info(ctx, msg, ds...)
}

func Warn(ctx context.Context, msg string, ds ...Detail) {
	Default.Warn(ctx, msg, ds...)
}

func Error(ctx context.Context, msg string, ds ...Detail) {
	Default.Error(ctx, msg, ds...)
}

func Fatal(ctx context.Context, msg string, ds ...Detail) {
	Default.Fatal(ctx, msg, ds...)
}

// Stub returns a debug level Logger that records its output,
// so tests can assert on what was logged.
func Stub(tb testingTB) (*Logger, StubOutput) {
	buf := &stubOutput{}
	l := &Logger{
		TestingTB: tb,
		Level:     LevelDebug,
		Out:       buf,
	}
	return l, buf
}

type StubOutput interface {
	io.Reader
	String() string
	Bytes() []byte
}

type stubOutput struct {
	m   sync.Mutex
	buf bytes.Buffer
}

func (o *stubOutput) Read(p []byte) (n int, err error) {
	o.m.Lock()
	defer o.m.Unlock()
	return o.buf.Read(p)
}

func (o *stubOutput) Write(p []byte) (n int, err error) {
	o.m.Lock()
	defer o.m.Unlock()
	return o.buf.Write(p)
}

func (o *stubOutput) String() string {
	o.m.Lock()
	defer o.m.Unlock()
	return o.buf.String()
}

func (o *stubOutput) Bytes() []byte {
	o.m.Lock()
	defer o.m.Unlock()
	return o.buf.Bytes()
}
