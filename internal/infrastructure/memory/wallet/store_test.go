package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_UpsertGetList(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.Upsert(ctx, "bob", "BTC", 5))
	require.NoError(t, s.Upsert(ctx, "alice", "BTC", 10))
	require.NoError(t, s.Upsert(ctx, "alice", "ETH", 1))
	require.NoError(t, s.Upsert(ctx, "bob", "BTC", 7))

	w, err := s.Get(ctx, "bob", "BTC")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, int64(7), w.Balance)
	assert.Equal(t, int64(1), w.ID)

	missing, err := s.Get(ctx, "carol", "BTC")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := s.List(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].UserID)
	assert.Equal(t, "bob", list[1].UserID)

	err = s.Upsert(ctx, "bob", "BTC", -1)
	assert.True(t, errors.ErrorCodeEquals(err, errors.InvalidAmount))
}

func TestStore_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Upsert(ctx, "alice", "BTC", 10))

	txCtx, err := s.Begin(ctx)
	require.NoError(t, err)
	w, err := s.FindForUpdate(txCtx, "alice", "BTC")
	require.NoError(t, err)
	w.Balance = 3
	require.NoError(t, s.Save(txCtx, w))

	// Pending writes are visible inside the transaction only.
	again, err := s.FindForUpdate(txCtx, "alice", "BTC")
	require.NoError(t, err)
	assert.Equal(t, int64(3), again.Balance)
	committed, _ := s.Get(ctx, "alice", "BTC")
	assert.Equal(t, int64(10), committed.Balance)

	require.NoError(t, s.Rollback(txCtx))
	committed, _ = s.Get(ctx, "alice", "BTC")
	assert.Equal(t, int64(10), committed.Balance)

	txCtx, err = s.Begin(ctx)
	require.NoError(t, err)
	w, err = s.FindForUpdate(txCtx, "alice", "BTC")
	require.NoError(t, err)
	w.Balance = 4
	require.NoError(t, s.Save(txCtx, w))
	require.NoError(t, s.Commit(txCtx))
	require.NoError(t, s.Rollback(txCtx))

	committed, _ = s.Get(ctx, "alice", "BTC")
	assert.Equal(t, int64(4), committed.Balance)
}

func TestStore_FindForUpdateMissingWallet(t *testing.T) {
	s := NewStore()
	txCtx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer s.Rollback(txCtx)

	w, err := s.FindForUpdate(txCtx, "nobody", "BTC")
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestStore_LockBlocksUntilRelease(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Upsert(ctx, "alice", "BTC", 10))

	holder, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = s.FindForUpdate(holder, "alice", "BTC")
	require.NoError(t, err)

	acquired := make(chan int64)
	go func() {
		waiter, _ := s.Begin(ctx)
		defer s.Rollback(waiter)
		w, err := s.FindForUpdate(waiter, "alice", "BTC")
		if err != nil {
			acquired <- -1
			return
		}
		acquired <- w.Balance
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired while held by another transaction")
	case <-time.After(50 * time.Millisecond):
	}

	held, err := s.FindForUpdate(holder, "alice", "BTC")
	require.NoError(t, err)
	held.Balance = 8
	require.NoError(t, s.Save(holder, held))
	require.NoError(t, s.Commit(holder))

	select {
	case balance := <-acquired:
		assert.Equal(t, int64(8), balance)
	case <-time.After(time.Second):
		t.Fatal("lock was not handed over after commit")
	}
}

func TestStore_LockTimeout(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Upsert(ctx, "alice", "BTC", 10))

	holder, err := s.Begin(ctx)
	require.NoError(t, err)
	defer s.Rollback(holder)
	_, err = s.FindForUpdate(holder, "alice", "BTC")
	require.NoError(t, err)

	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	waiter, err := s.Begin(timeoutCtx)
	require.NoError(t, err)

	_, err = s.FindForUpdate(waiter, "alice", "BTC")
	assert.True(t, errors.ErrorCodeEquals(err, errors.LockTimeout), "got %v", err)
	require.NoError(t, s.Rollback(waiter))
}

func TestStore_SaveRules(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Upsert(ctx, "alice", "BTC", 10))

	_, err := s.FindForUpdate(ctx, "alice", "BTC")
	assert.True(t, errors.ErrorCodeEquals(err, errors.GeneralRepositoryError))

	txCtx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer s.Rollback(txCtx)

	w, err := s.Get(ctx, "alice", "BTC")
	require.NoError(t, err)
	assert.Error(t, s.Save(txCtx, w), "save without lock")

	locked, err := s.FindForUpdate(txCtx, "alice", "BTC")
	require.NoError(t, err)
	locked.Balance = -1
	assert.Error(t, s.Save(txCtx, locked), "negative balance")
}
