package logging

import "context"

type ctxKeyDetails struct{}

// ContextWith returns a context whose log entries carry the given details
// on top of the ones already attached to ctx.
func ContextWith(ctx context.Context, ds ...Detail) context.Context {
	if len(ds) == 0 {
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}
	prev := contextDetails(ctx)
	next := make([]Detail, 0, len(prev)+len(ds))
	next = append(append(next, prev...), ds...)
	return context.WithValue(ctx, ctxKeyDetails{}, next)
}

func contextDetails(ctx context.Context) []Detail {
	if ctx == nil {
		return nil
	}
	ds, _ := ctx.Value(ctxKeyDetails{}).([]Detail)
	return ds
}
