package priorityindex

import (
	"context"
	"sync"

	"github.com/google/btree"
	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
)

const degree = 32

func less(a, b orderbookv1.Entry) bool {
	if a.Rank != b.Rank {
		return a.Rank.Less(b.Rank)
	}
	return a.MemberID < b.MemberID
}

type set struct {
	tree    *btree.BTreeG[orderbookv1.Entry]
	members map[string]orderbookv1.Rank
}

func newSet() *set {
	return &set{
		tree:    btree.NewG(degree, less),
		members: make(map[string]orderbookv1.Rank),
	}
}

// Index is an in-process PriorityIndex. Each key is a B-tree ordered by rank
// plus a member map, so every operation is O(log n). It is safe for
// concurrent use; its contents do not survive a restart.
type Index struct {
	mu   sync.RWMutex
	sets map[string]*set
}

var _ orderbookv1.PriorityIndex = (*Index)(nil)

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{sets: make(map[string]*set)}
}

// Upsert inserts memberID or replaces its previous rank.
func (i *Index) Upsert(_ context.Context, key, memberID string, rank orderbookv1.Rank) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	s, ok := i.sets[key]
	if !ok {
		s = newSet()
		i.sets[key] = s
	}

	if prev, ok := s.members[memberID]; ok {
		s.tree.Delete(orderbookv1.Entry{MemberID: memberID, Rank: prev})
	}
	s.members[memberID] = rank
	s.tree.ReplaceOrInsert(orderbookv1.Entry{MemberID: memberID, Rank: rank})

	return nil
}

// Remove deletes memberID and reports whether it was present.
func (i *Index) Remove(_ context.Context, key, memberID string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	s, ok := i.sets[key]
	if !ok {
		return false, nil
	}

	rank, ok := s.members[memberID]
	if !ok {
		return false, nil
	}

	delete(s.members, memberID)
	s.tree.Delete(orderbookv1.Entry{MemberID: memberID, Rank: rank})
	if len(s.members) == 0 {
		delete(i.sets, key)
	}

	return true, nil
}

// Lookup returns the entry for memberID if present.
func (i *Index) Lookup(_ context.Context, key, memberID string) (orderbookv1.Entry, bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	s, ok := i.sets[key]
	if !ok {
		return orderbookv1.Entry{}, false, nil
	}

	rank, ok := s.members[memberID]
	if !ok {
		return orderbookv1.Entry{}, false, nil
	}
	return orderbookv1.Entry{MemberID: memberID, Rank: rank}, true, nil
}

// PeekLowest returns the entry with the smallest rank.
func (i *Index) PeekLowest(_ context.Context, key string) (orderbookv1.Entry, bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	s, ok := i.sets[key]
	if !ok {
		return orderbookv1.Entry{}, false, nil
	}

	entry, found := s.tree.Min()
	return entry, found, nil
}

// PeekHighest returns the entry with the largest rank.
func (i *Index) PeekHighest(_ context.Context, key string) (orderbookv1.Entry, bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	s, ok := i.sets[key]
	if !ok {
		return orderbookv1.Entry{}, false, nil
	}

	entry, found := s.tree.Max()
	return entry, found, nil
}

// Len returns the number of members under key.
func (i *Index) Len(key string) int {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if s, ok := i.sets[key]; ok {
		return len(s.members)
	}
	return 0
}
