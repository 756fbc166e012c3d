package service

import (
	"context"
	"sort"
	"sync"
)

// Pinger is implemented by every store repository.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessService pings every store concurrently.
type ReadinessService struct {
	stores map[string]Pinger
}

// NewReadinessService constructs the service from store name to pinger.
func NewReadinessService(stores map[string]Pinger) *ReadinessService {
	return &ReadinessService{stores: stores}
}

// StoreStatus is the probe outcome of one store.
type StoreStatus struct {
	Store  string `json:"store"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Check returns one status per store and whether all of them answered.
func (s *ReadinessService) Check(ctx context.Context) ([]StoreStatus, bool) {
	statuses := make([]StoreStatus, 0, len(s.stores))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	ready := true
	for name, store := range s.stores {
		wg.Add(1)
		go func(name string, store Pinger) {
			defer wg.Done()
			status := StoreStatus{Store: name, Status: "up"}
			if err := store.Ping(ctx); err != nil {
				status.Status = "down"
				status.Error = err.Error()
			}
			mu.Lock()
			if status.Status != "up" {
				ready = false
			}
			statuses = append(statuses, status)
			mu.Unlock()
		}(name, store)
	}
	wg.Wait()
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Store < statuses[j].Store })
	return statuses, ready
}
