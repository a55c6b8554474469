package exporter

import (
	"sync"

	"github.com/exvulsec/permafrost/chunk"
	"github.com/exvulsec/permafrost/model"
)

// MemorySink retains finished tables for programmatic consumers instead of
// writing them to disk.
type MemorySink struct {
	mu     sync.Mutex
	tables map[string]*model.Table
}

func NewMemorySink() *MemorySink {
	return &MemorySink{tables: map[string]*model.Table{}}
}

func memoryKey(dataset string, ch chunk.Chunk) string {
	return dataset + "/" + ch.Label()
}

func (s *MemorySink) Write(dataset string, ch chunk.Chunk, table *model.Table) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memoryKey(dataset, ch)
	s.tables[key] = table
	return key, nil
}

func (s *MemorySink) Completed(string, chunk.Chunk) bool {
	return false
}

// Tables hands out everything collected so far, keyed by dataset/chunk.
func (s *MemorySink) Tables() map[string]*model.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*model.Table, len(s.tables))
	for k, v := range s.tables {
		out[k] = v
	}
	return out
}
