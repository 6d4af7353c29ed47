package search

import "context"

// step is one strategy in a cascade.
type step[T any] func(ctx context.Context) (T, error)

// firstSuccess runs steps in order and returns the first result accepted by ok. Step errors
// advance the cascade. When nothing is accepted the last successful result is returned with
// false. Only context cancellation is reported as an error.
func firstSuccess[T any](ctx context.Context, steps []step[T], ok func(T) bool) (T, bool, error) {
	var last T
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return last, false, err
		}
		result, err := s(ctx)
		if err != nil {
			continue
		}
		last = result
		if ok(result) {
			return result, true, nil
		}
	}
	return last, false, ctx.Err()
}
