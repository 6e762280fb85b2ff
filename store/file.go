package store

import (
	"context"
	"encoding/json"
	"errors"
	"farmstock/domain"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is a JSON file-backed implementation of domain.ProductStore.
// The whole catalog is rewritten on every mutation.
type FileStore struct {
	mu   sync.RWMutex
	cat  *catalog
	path string
}

// compile-time assertion
var _ domain.ProductStore = (*FileStore)(nil)

// NewFileStore constructs a FileStore at the given path. If the file exists it will be loaded.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		cat:  newCatalog(),
		path: path,
	}
	if err := s.loadFromFile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) loadFromFile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(b) == 0 {
		return nil
	}
	var list []domain.Product
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	for _, p := range list {
		if err := s.cat.create(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileStore) saveToFile() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	// snapshot is sorted by id, which keeps the file deterministic
	b, err := json.MarshalIndent(s.cat.snapshot(), "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Create(ctx context.Context, product domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateNew(product); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cat.create(product); err != nil {
		return err
	}
	return s.saveToFile()
}

func (s *FileStore) Get(ctx context.Context, id string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.get(id)
}

func (s *FileStore) Update(ctx context.Context, id string, product domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := domain.ValidateProduct(product); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cat.update(id, product); err != nil {
		return err
	}
	return s.saveToFile()
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cat.delete(id); err != nil {
		return err
	}
	return s.saveToFile()
}

func (s *FileStore) List(ctx context.Context, filter domain.ListFilter) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.list(filter), nil
}

func (s *FileStore) Snapshot(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.snapshot(), nil
}

func (s *FileStore) AdjustStock(ctx context.Context, deltas map[string]int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cat.adjust(deltas); err != nil {
		return err
	}
	if err := s.saveToFile(); err != nil {
		undo := make(map[string]int, len(deltas))
		for id, d := range deltas {
			undo[id] = -d
		}
		// reverting a just-applied adjustment cannot fail validation
		_ = s.cat.adjust(undo)
		return err
	}
	return nil
}

func (s *FileStore) BulkImport(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	const maxWorkers = 10
	jobs := make(chan domain.Product)
	errs := make(chan error, len(products))

	var addMu sync.Mutex
	toAdd := make(map[string]domain.Product)

	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for p := range jobs {
			if err := ctx.Err(); err != nil {
				errs <- err
				return
			}
			if err := validateNew(p); err != nil {
				errs <- err
				continue
			}
			addMu.Lock()
			if _, exists := toAdd[p.ID]; exists {
				addMu.Unlock()
				errs <- domain.NewDuplicateProductError(p.ID)
				continue
			}
			toAdd[p.ID] = p
			addMu.Unlock()
		}
	}

	nWorkers := maxWorkers
	if len(products) < nWorkers {
		nWorkers = len(products)
	}
	if nWorkers == 0 {
		return nil
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

	wg.Wait()
	close(errs)

	var collected error
	for e := range errs {
		collected = errors.Join(collected, e)
	}

	// merge under the store lock; catalog.create rejects ids already present
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range toAdd {
		if err := s.cat.create(p); err != nil {
			collected = errors.Join(collected, err)
		}
	}
	if err := s.saveToFile(); err != nil {
		return errors.Join(collected, err)
	}
	return collected
}
