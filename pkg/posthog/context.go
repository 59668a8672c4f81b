// context.go propagates the distinct id of the current actor through
// context.Context so panic hooks can attribute exceptions.

package posthog

import "context"

type distinctIDKey struct{}

// WithDistinctID returns a context carrying distinctID. Panics captured with
// this context are attributed to distinctID instead of the client's default.
func WithDistinctID(ctx context.Context, distinctID string) context.Context {
	return context.WithValue(ctx, distinctIDKey{}, distinctID)
}

// DistinctIDFromContext extracts the distinct id from ctx.
// Returns empty string and false if not set or if the id is empty.
func DistinctIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(distinctIDKey{}).(string)
	return id, ok && id != ""
}
