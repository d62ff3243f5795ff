package priorityindex

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"

	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_PeekOrdering(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()

	require.NoError(t, idx.Upsert(ctx, "k", "b", orderbookv1.Rank{Price: 100, Time: 2, Seq: 2}))
	require.NoError(t, idx.Upsert(ctx, "k", "a", orderbookv1.Rank{Price: 100, Time: 1, Seq: 1}))
	require.NoError(t, idx.Upsert(ctx, "k", "c", orderbookv1.Rank{Price: 99, Time: 3, Seq: 3}))
	require.NoError(t, idx.Upsert(ctx, "k", "d", orderbookv1.Rank{Price: 101, Time: 0, Seq: 4}))

	lowest, found, err := idx.PeekLowest(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "c", lowest.MemberID)

	highest, found, err := idx.PeekHighest(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "d", highest.MemberID)

	removed, err := idx.Remove(ctx, "k", "c")
	require.NoError(t, err)
	assert.True(t, removed)

	lowest, _, err = idx.PeekLowest(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "a", lowest.MemberID)
}

func TestIndex_UpsertReplacesRank(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()

	require.NoError(t, idx.Upsert(ctx, "k", "a", orderbookv1.Rank{Price: 1}))
	require.NoError(t, idx.Upsert(ctx, "k", "b", orderbookv1.Rank{Price: 2}))
	require.NoError(t, idx.Upsert(ctx, "k", "a", orderbookv1.Rank{Price: 3}))

	assert.Equal(t, 2, idx.Len("k"))

	lowest, _, err := idx.PeekLowest(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "b", lowest.MemberID)

	entry, found, err := idx.Lookup(ctx, "k", "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(3), entry.Rank.Price)
}

func TestIndex_Empty(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()

	_, found, err := idx.PeekLowest(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = idx.PeekHighest(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	removed, err := idx.Remove(ctx, "missing", "a")
	require.NoError(t, err)
	assert.False(t, removed)

	_, found, err = idx.Lookup(ctx, "missing", "a")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIndex_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()

	require.NoError(t, idx.Upsert(ctx, "asks", "a", orderbookv1.Rank{Price: 5}))
	require.NoError(t, idx.Upsert(ctx, "bids", "a", orderbookv1.Rank{Price: 1}))

	removed, err := idx.Remove(ctx, "asks", "a")
	require.NoError(t, err)
	assert.True(t, removed)

	entry, found, err := idx.PeekHighest(ctx, "bids")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a", entry.MemberID)
}

func TestIndex_MatchesSortedOrder(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()
	rng := rand.New(rand.NewPCG(1, 2))

	var entries []orderbookv1.Entry
	for n := 0; n < 500; n++ {
		e := orderbookv1.Entry{
			MemberID: fmt.Sprintf("o-%d", n),
			Rank:     orderbookv1.Rank{Price: rng.Int64N(20), Time: rng.Int64N(5), Seq: uint64(n)},
		}
		entries = append(entries, e)
		require.NoError(t, idx.Upsert(ctx, "k", e.MemberID, e.Rank))
	}

	sort.Slice(entries, func(a, b int) bool { return entries[a].Rank.Less(entries[b].Rank) })

	for _, want := range entries {
		got, found, err := idx.PeekLowest(ctx, "k")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, want, got)

		_, err = idx.Remove(ctx, "k", got.MemberID)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, idx.Len("k"))
}

func TestIndex_ConcurrentKeys(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()

	var wg sync.WaitGroup
	for k := 0; k < 8; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", k)
			for n := 0; n < 200; n++ {
				_ = idx.Upsert(ctx, key, fmt.Sprintf("m-%d", n), orderbookv1.Rank{Price: int64(n), Seq: uint64(n)})
			}
			for n := 0; n < 100; n++ {
				_, _ = idx.Remove(ctx, key, fmt.Sprintf("m-%d", n))
			}
		}(k)
	}
	wg.Wait()

	for k := 0; k < 8; k++ {
		key := fmt.Sprintf("key-%d", k)
		assert.Equal(t, 100, idx.Len(key))
		lowest, found, err := idx.PeekLowest(ctx, key)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "m-100", lowest.MemberID)
	}
}
