package orderbookv1

import "context"

// Rank orders entries inside one index. Ranks compare by Price, then Time,
// then Seq. Seq is unique per book so no two entries share a rank.
type Rank struct {
	Price int64
	Time  int64
	Seq   uint64
}

// Less reports whether r sorts before other.
func (r Rank) Less(other Rank) bool {
	if r.Price != other.Price {
		return r.Price < other.Price
	}
	if r.Time != other.Time {
		return r.Time < other.Time
	}
	return r.Seq < other.Seq
}

// Entry is one member of a priority index.
type Entry struct {
	MemberID string
	Rank     Rank
}

// PriorityIndex is a set of members keyed by name, each with a rank, that can
// return its lowest or highest ranked member.
//
//go:generate mockgen -source index.go -destination=mock/index_mock.go -package=orderbookv1_mock
type PriorityIndex interface {
	// Upsert inserts memberID or replaces its previous rank.
	Upsert(ctx context.Context, key, memberID string, rank Rank) error
	// Remove deletes memberID and reports whether it was present.
	Remove(ctx context.Context, key, memberID string) (bool, error)
	// Lookup returns the entry for memberID if present.
	Lookup(ctx context.Context, key, memberID string) (Entry, bool, error)
	PeekLowest(ctx context.Context, key string) (Entry, bool, error)
	PeekHighest(ctx context.Context, key string) (Entry, bool, error)
}
