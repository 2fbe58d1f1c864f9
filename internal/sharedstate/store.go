// Package sharedstate holds the run-scoped key/value store that bridges the
// indexing step and every later generation step.
package sharedstate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Reader is the read-only view of a Store handed to tasks.
type Reader interface {
	Get(key string, def any) any
	Lookup(key string) (any, bool)
	Decode(key string, dst any) (bool, error)
	Keys() []string
	Summary() string
}

// Store is a concurrency-safe map of JSON-serializable values.
// The zero value is not usable; call New.
type Store struct {
	mu   sync.RWMutex
	data map[string]any
}

// New returns an empty store.
func New() *Store {
	return &Store{data: make(map[string]any)}
}

// Set stores value under key, replacing any prior value.
// Values that cannot be encoded as JSON are rejected and nothing is stored.
func (s *Store) Set(key string, value any) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("sharedstate: empty key")
	}
	if _, err := json.Marshal(value); err != nil {
		return fmt.Errorf("sharedstate: value for %q is not JSON-serializable: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// Get returns the value stored under key, or def when absent.
func (s *Store) Get(key string, def any) any {
	if v, ok := s.Lookup(key); ok {
		return v
	}
	return def
}

// Lookup returns the value stored under key and whether it was present.
func (s *Store) Lookup(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Decode copies the value stored under key into dst through a JSON round
// trip. It reports false with a nil error when the key is absent.
func (s *Store) Decode(key string, dst any) (bool, error) {
	v, ok := s.Lookup(key)
	if !ok {
		return false, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return true, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return true, fmt.Errorf("sharedstate: decoding %q: %w", key, err)
	}
	return true, nil
}

// Delete removes key if present.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]any)
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Summary describes each entry by type and size, one line per key.
func (s *Store) Summary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf strings.Builder
	buf.WriteString("Shared state:\n")
	if len(keys) == 0 {
		buf.WriteString("  (empty)\n")
		return buf.String()
	}
	for _, k := range keys {
		buf.WriteString(fmt.Sprintf("  %s: %s\n", k, describe(s.data[k])))
	}
	return buf.String()
}

func describe(v any) string {
	switch t := v.(type) {
	case string:
		return fmt.Sprintf("%d chars", len(t))
	case []string:
		return fmt.Sprintf("list with %d items", len(t))
	case []any:
		return fmt.Sprintf("list with %d items", len(t))
	case map[string]string:
		return fmt.Sprintf("map with %d items", len(t))
	case map[string]int:
		return fmt.Sprintf("map with %d items", len(t))
	case map[string][]string:
		return fmt.Sprintf("map with %d items", len(t))
	case map[string]any:
		return fmt.Sprintf("map with %d items", len(t))
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// MarshalJSON encodes a snapshot of the store.
func (s *Store) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s.data)
}

// Restore replaces the store's contents with a snapshot produced by
// MarshalJSON. Restored values are generic JSON values (maps, slices,
// strings, float64s); use Decode to get typed values back.
func (s *Store) Restore(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("sharedstate: restoring snapshot: %w", err)
	}
	if m == nil {
		m = make(map[string]any)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = m
	return nil
}
