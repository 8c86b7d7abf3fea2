package rowiter

import (
	"context"
	"io"

	"go.llib.dev/rowstream/pkg/errorkit"
	"go.llib.dev/rowstream/pkg/logging"
)

// Guard owns a bundle of resources and releases them at most once.
// The bundle is closed in reverse acquisition order,
// so a cursor is closed before its statement, and the statement before its connection.
//
// The zero value is an empty, active Guard.
type Guard struct {
	// Logger receives the close errors that Release swallows.
	//
	// default: logging.Default
	Logger *logging.Logger

	ctx    context.Context
	bundle []io.Closer
	closed bool
}

// NewGuard returns an active Guard owning the given resources.
// The context is only used for logging.
func NewGuard(ctx context.Context, bundle ...io.Closer) *Guard {
	g := &Guard{ctx: ctx}
	for _, c := range bundle {
		g.Add(c)
	}
	return g
}

// Add hands over a newly acquired resource to the Guard.
// A resource handed to an already released Guard is released immediately.
func (g *Guard) Add(c io.Closer) {
	if c == nil {
		return
	}
	if g.closed {
		g.logCloseErr(c.Close())
		return
	}
	g.bundle = append(g.bundle, c)
}

func (g *Guard) State() State {
	if g.closed {
		return Closed
	}
	return Active
}

func (g *Guard) IsClosed() bool { return g.closed }

// Release closes the bundle unless it is already closed.
// Close errors are logged and never returned,
// so they can't mask the failure that triggered the cleanup.
func (g *Guard) Release() {
	g.logCloseErr(g.release())
}

// Close closes the bundle unless it is already closed.
// The call that closes the bundle returns the merged close errors, later calls return nil.
func (g *Guard) Close() error {
	return g.release()
}

func (g *Guard) release() error {
	if g.closed {
		return nil
	}
	g.closed = true
	var errs []error
	for i := len(g.bundle) - 1; 0 <= i; i-- {
		errs = append(errs, g.bundle[i].Close())
	}
	g.bundle = nil
	return errorkit.Merge(errs...)
}

func (g *Guard) logCloseErr(err error) {
	if err == nil {
		return
	}
	g.logger().Warn(g.ctx, "error while releasing resources; continuing", logging.ErrField(err))
}

func (g *Guard) logger() *logging.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return &logging.Default
}

// CloserFunc allows an ordinary function to be used as an io.Closer in a resource bundle.
type CloserFunc func() error

func (fn CloserFunc) Close() error { return fn() }
