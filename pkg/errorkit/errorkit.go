// Package errorkit holds the error primitives shared across rowstream:
// constant error kinds, wrapping that keeps both the kind and the cause visible to errors.Is,
// and merging for cleanup paths where more than one thing can fail.
package errorkit

// Finish is a helper function that can be used from a deferred context.
//
// Usage:
//
//	defer errorkit.Finish(&returnError, rows.Close)
func Finish(returnErr *error, blk func() error) {
	*returnErr = Merge(*returnErr, blk())
}
