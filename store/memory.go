// Package store provides storage implementations for the catalog.
package store

import (
	"context"
	"errors"
	"farmstock/domain"
	"fmt"
	"sync"
)

// InMemoryStore is a thread-safe in-memory domain.ProductStore
type InMemoryStore struct {
	mu  sync.RWMutex
	cat *catalog
}

// NewInMemoryStore constructs a new InMemoryStore
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{cat: newCatalog()}
}

// compile-time assertion that InMemoryStore implements domain.ProductStore
var _ domain.ProductStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) Create(ctx context.Context, product domain.Product) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := validateNew(product); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cat.create(product)
}

func (s *InMemoryStore) Get(ctx context.Context, id string) (domain.Product, error) {
	select {
	case <-ctx.Done():
		return domain.Product{}, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.get(id)
}

func (s *InMemoryStore) Update(ctx context.Context, id string, product domain.Product) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := domain.ValidateProduct(product); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cat.update(id, product)
}

func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cat.delete(id)
}

func (s *InMemoryStore) List(ctx context.Context, filter domain.ListFilter) ([]domain.Product, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.list(filter), nil
}

func (s *InMemoryStore) Snapshot(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.snapshot(), nil
}

func (s *InMemoryStore) AdjustStock(ctx context.Context, deltas map[string]int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cat.adjust(deltas)
}

func (s *InMemoryStore) BulkImport(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	const maxWorkers = 10
	if len(products) == 0 {
		return nil
	}

	type result struct {
		id  string
		err error
	}

	jobs := make(chan domain.Product)
	results := make(chan result, len(products))

	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-jobs:
				if !ok {
					return
				}
				if err := s.Create(ctx, p); err != nil {
					results <- result{id: p.ID, err: fmt.Errorf("id=%s: %w", p.ID, err)}
				} else {
					results <- result{id: p.ID}
				}
			}
		}
	}

	nWorkers := maxWorkers
	if len(products) < nWorkers {
		nWorkers = len(products)
	}

	wg.Add(nWorkers)
	for i := 0; i < nWorkers; i++ {
		go worker()
	}

	go func() {
		defer close(jobs)
		for _, p := range products {
			select {
			case <-ctx.Done():
				return
			case jobs <- p:
			}
		}
	}()

	var collected error
	received := 0
	for received < len(products) {
		select {
		case <-ctx.Done():
			// wait for workers to stop then return context error
			wg.Wait()
			return ctx.Err()
		case res := <-results:
			received++
			if res.err != nil {
				collected = errors.Join(collected, res.err)
			}
		}
	}

	wg.Wait()
	return collected
}
