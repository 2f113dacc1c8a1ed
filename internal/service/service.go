// Package service manages long-running parts of the server process.
package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Service is a long-running task which stops when passed context is done.
type Service interface {
	Run(ctx context.Context) error
}

// Manager runs a collection of services and stops them together.
type Manager struct {
	mu       sync.Mutex
	services []Service
}

func NewManager() *Manager {
	return &Manager{}
}

// Register adds services to run. Must be called before Run.
func (m *Manager) Register(s ...Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, s...)
}

// Run starts every registered service and blocks until all of them return.
// The first error cancels the shared context, so the remaining services
// shut down too.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	services := make([]Service, len(m.services))
	copy(services, m.services)
	m.mu.Unlock()

	if len(services) == 0 {
		return nil
	}

	group, ctx := errgroup.WithContext(ctx)
	for _, s := range services {
		group.Go(func() error {
			return s.Run(ctx)
		})
	}
	return group.Wait()
}
