package history

import (
	"context"
	"sync"
	"time"

	"github.com/clustersweep-io/clustersweep/pkg/types"
)

// MemoryStore is an in-process Store used by tests and by runs that want
// de-duplication within a single invocation only.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Key]map[types.Severity]time.Time

	// now is swappable so tests can drive TTL expiry.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[Key]map[types.Severity]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) HasBeenNotified(_ context.Context, namespace, name string, severity types.Severity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	severities, ok := s.records[Key{Namespace: namespace, Name: name}]
	if !ok {
		return false, nil
	}
	expiry, ok := severities[severity]
	if !ok {
		return false, nil
	}
	if s.now().After(expiry) {
		delete(severities, severity)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) MarkNotified(_ context.Context, namespace, name string, severity types.Severity, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := Key{Namespace: namespace, Name: name}
	if s.records[k] == nil {
		s.records[k] = make(map[types.Severity]time.Time)
	}
	s.records[k][severity] = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) ClearHistory(_ context.Context, namespace, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, Key{Namespace: namespace, Name: name})
	return nil
}

func (s *MemoryStore) AllNotified(_ context.Context) ([]Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var keys []Key
	for k, severities := range s.records {
		for severity, expiry := range severities {
			if now.After(expiry) {
				delete(severities, severity)
			}
		}
		if len(severities) > 0 {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
