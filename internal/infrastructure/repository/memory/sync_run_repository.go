package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/prediction-pool/internal/domain/syncrun"
)

const syncRunHistory = 50

type SyncRunRepository struct {
	mu   sync.RWMutex
	runs []syncrun.Run
}

func NewSyncRunRepository() *SyncRunRepository {
	return &SyncRunRepository{}
}

func (r *SyncRunRepository) Save(_ context.Context, run syncrun.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run.Diagnostics = append([]string(nil), run.Diagnostics...)
	r.runs = append(r.runs, run)
	if len(r.runs) > syncRunHistory {
		r.runs = append([]syncrun.Run(nil), r.runs[len(r.runs)-syncRunHistory:]...)
	}
	return nil
}

func (r *SyncRunRepository) Latest(_ context.Context) (syncrun.Run, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.runs) == 0 {
		return syncrun.Run{}, false, nil
	}
	return r.runs[len(r.runs)-1], true, nil
}
