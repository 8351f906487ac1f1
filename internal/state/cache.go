package state

import (
	"maps"
	"sync"
)

// FragmentCache memoizes static provider fragments per message and requested
// provider set. Callers own its lifetime; typically one per conversation.
type FragmentCache struct {
	mu      sync.Mutex
	entries map[cacheKey]Fragment
}

type cacheKey struct {
	message  string
	set      string
	provider string
}

// NewFragmentCache creates an empty cache.
func NewFragmentCache() *FragmentCache {
	return &FragmentCache{entries: map[cacheKey]Fragment{}}
}

// Len returns the number of cached fragments.
func (fc *FragmentCache) Len() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return len(fc.entries)
}

// Forget drops every fragment computed for messageID.
func (fc *FragmentCache) Forget(messageID string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for k := range fc.entries {
		if k.message == messageID {
			delete(fc.entries, k)
		}
	}
}

func (fc *FragmentCache) get(messageID, set, provider string) (Fragment, bool) {
	if messageID == "" {
		return Fragment{}, false
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	f, ok := fc.entries[cacheKey{messageID, set, provider}]
	if !ok {
		return Fragment{}, false
	}
	return cloneFragment(f), true
}

func (fc *FragmentCache) put(messageID, set, provider string, f Fragment) {
	if messageID == "" {
		return
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.entries[cacheKey{messageID, set, provider}] = cloneFragment(f)
}

func cloneFragment(f Fragment) Fragment {
	return Fragment{Text: f.Text, Values: maps.Clone(f.Values), Data: maps.Clone(f.Data)}
}
