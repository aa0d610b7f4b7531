package memoryDB

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/akolanti/ExamAPI/internal/rag/vectorDB"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
)

const pointsFile = "points.json"

type collection struct {
	Dimension int              `json:"dimension"`
	Points    []vectorDB.Point `json:"points"`
	index     map[string]int
}

// Store keeps every collection in memory and mirrors each one to
// <dir>/<collection>/points.json after every write. An empty dir disables persistence.
type Store struct {
	mu          sync.RWMutex
	dir         string
	collections map[string]*collection
	logger      *logger_i.Logger
}

func New(dir string) (*Store, error) {
	s := &Store{
		dir:         dir,
		collections: make(map[string]*collection),
		logger:      logger_i.NewLogger("memory_vector_db"),
	}
	if dir == "" {
		return s, nil
	}
	if err := s.loadAll(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadAll() error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading vector store dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, e.Name(), pointsFile))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		var c collection
		if err := json.Unmarshal(raw, &c); err != nil {
			return fmt.Errorf("decoding collection %s: %w", e.Name(), err)
		}
		c.reindex()
		s.collections[e.Name()] = &c
		s.logger.Debug("Loaded collection", "collection", e.Name(), "points", len(c.Points))
	}
	return nil
}

func (c *collection) reindex() {
	c.index = make(map[string]int, len(c.Points))
	for i, p := range c.Points {
		c.index[p.Id] = i
	}
}

func (s *Store) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *Store) CreateCollection(_ context.Context, name string, dimension int) error {
	if name == "" {
		return errors.New("empty collection name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return nil
	}
	c := &collection{Dimension: dimension, index: make(map[string]int)}
	s.collections[name] = c
	return s.persist(name, c)
}

func (s *Store) UpsertBatch(_ context.Context, name string, points []vectorDB.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return vectorDB.ErrCollectionNotFound
	}
	for _, p := range points {
		if c.Dimension > 0 && len(p.Vector) != c.Dimension {
			return fmt.Errorf("point %s has dimension %d, collection %s expects %d", p.Id, len(p.Vector), name, c.Dimension)
		}
		if i, ok := c.index[p.Id]; ok {
			c.Points[i] = p
			continue
		}
		c.index[p.Id] = len(c.Points)
		c.Points = append(c.Points, p)
	}
	return s.persist(name, c)
}

func (s *Store) Search(_ context.Context, name string, vector []float32, k int, filter vectorDB.Filter) ([]vectorDB.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, vectorDB.ErrCollectionNotFound
	}

	hits := make([]vectorDB.Hit, 0, len(c.Points))
	for _, p := range c.Points {
		if !filter.Matches(p.Payload) {
			continue
		}
		hits = append(hits, vectorDB.Hit{Id: p.Id, Score: cosine(vector, p.Vector), Payload: p.Payload})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *Store) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return 0, vectorDB.ErrCollectionNotFound
	}
	return len(c.Points), nil
}

// persist writes through a temp file so a crash never leaves half a collection on disk.
func (s *Store) persist(name string, c *collection) error {
	if s.dir == "" {
		return nil
	}
	dir := filepath.Join(s.dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, pointsFile+".tmp")
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, pointsFile))
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
