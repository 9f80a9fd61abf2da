package resilience

import "golang.org/x/sync/singleflight"

// Flight collapses concurrent loads of the same key into one call and hands
// every waiter the same typed result.
type Flight[T any] struct {
	group singleflight.Group
}

func (f *Flight[T]) Do(key string, fn func() (T, error)) (T, error, bool) {
	out, err, shared := f.group.Do(key, func() (any, error) {
		return fn()
	})
	value, _ := out.(T)
	return value, err, shared
}
