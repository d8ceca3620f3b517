package logging

import "context"

type ctxArgsKey struct{}

// ContextWith returns a copy of ctx carrying key–value pairs that every
// Logger call made with that context adds to its entry. Pairs accumulate
// across nested calls.
func ContextWith(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(ctxArgsKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(append(merged, prev...), args...)
	return context.WithValue(ctx, ctxArgsKey{}, merged)
}

// withContextArgs prepends the pairs stored by ContextWith to args.
func withContextArgs(ctx context.Context, args []any) []any {
	if ctx == nil {
		return args
	}
	extra, _ := ctx.Value(ctxArgsKey{}).([]any)
	if len(extra) == 0 {
		return args
	}
	out := make([]any, 0, len(extra)+len(args))
	return append(append(out, extra...), args...)
}
