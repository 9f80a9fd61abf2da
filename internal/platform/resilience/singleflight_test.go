package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFlight_Do_SharesOneCall(t *testing.T) {
	t.Parallel()

	var f Flight[[]byte]
	var counter int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			body, err, _ := f.Do("/v4/competitions/PL/matches", func() ([]byte, error) {
				atomic.AddInt32(&counter, 1)
				time.Sleep(20 * time.Millisecond)
				return []byte(`{"matches":[]}`), nil
			})
			if err != nil {
				t.Errorf("flight call failed: %v", err)
			}
			if string(body) != `{"matches":[]}` {
				t.Errorf("unexpected body: %s", body)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&counter); got != 1 {
		t.Fatalf("unexpected calls: got=%d want=1", got)
	}
}
