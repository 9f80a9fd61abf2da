package resilience

import "sync/atomic"

// Gate admits one holder at a time. Unlike Flight, callers that find it
// held are turned away instead of waiting for the result.
type Gate struct {
	held atomic.Bool
}

func (g *Gate) TryEnter() bool {
	return g.held.CompareAndSwap(false, true)
}

func (g *Gate) Leave() {
	g.held.Store(false)
}

func (g *Gate) Held() bool {
	return g.held.Load()
}
