package wallet

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	walletv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/wallet/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	pkgerrors "github.com/pkg/errors"
)

type walletKey struct {
	userID   string
	currency string
}

type txContextKey struct{}

// Store keeps wallets in process memory with row locks that block like
// SELECT ... FOR UPDATE. A lock is held from FindForUpdate until the
// transaction commits or rolls back. Waiting for a lock ends with LockTimeout
// when the context deadline passes.
type Store struct {
	mu      sync.Mutex
	wallets map[walletKey]*walletv1.Wallet
	locks   map[walletKey]chan struct{}
	nextID  int64
	now     func() time.Time
}

var (
	_ walletv1.Transactor = (*Store)(nil)
	_ walletv1.Repository = (*Store)(nil)
	_ walletv1.Store      = (*Store)(nil)
)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		wallets: make(map[walletKey]*walletv1.Wallet),
		locks:   make(map[walletKey]chan struct{}),
		now:     time.Now,
	}
}

type transaction struct {
	mu     sync.Mutex
	held   map[walletKey]struct{}
	writes map[walletKey]walletv1.Wallet
	done   bool
}

// Begin starts a transaction carried by the returned context.
func (s *Store) Begin(ctx context.Context) (context.Context, error) {
	tx := &transaction{
		held:   make(map[walletKey]struct{}),
		writes: make(map[walletKey]walletv1.Wallet),
	}
	return context.WithValue(ctx, txContextKey{}, tx), nil
}

// Commit applies the transaction's writes and releases its locks.
func (s *Store) Commit(ctx context.Context) error {
	tx, err := txFrom(ctx)
	if err != nil {
		return err
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return errors.NewErrorDetails("transaction already closed", string(errors.GeneralRepositoryError), "")
	}

	s.mu.Lock()
	now := s.now()
	for key, w := range tx.writes {
		stored, ok := s.wallets[key]
		if !ok {
			continue
		}
		stored.Balance = w.Balance
		stored.UpdatedAt = now
	}
	s.mu.Unlock()

	s.release(tx)
	return nil
}

// Rollback discards the transaction's writes and releases its locks. It is a
// no-op once the transaction is closed.
func (s *Store) Rollback(ctx context.Context) error {
	tx, err := txFrom(ctx)
	if err != nil {
		return err
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return nil
	}

	s.release(tx)
	return nil
}

// release frees every lock tx holds. tx.mu must be held.
func (s *Store) release(tx *transaction) {
	for key := range tx.held {
		<-s.lockFor(key)
	}
	tx.held = nil
	tx.writes = nil
	tx.done = true
}

// FindForUpdate locks the wallet for the transaction in ctx and returns a copy
// of it, with the transaction's own pending writes applied.
func (s *Store) FindForUpdate(ctx context.Context, userID, currency string) (*walletv1.Wallet, error) {
	tx, err := txFrom(ctx)
	if err != nil {
		return nil, err
	}

	key := walletKey{userID: userID, currency: currency}
	if err := s.acquire(ctx, tx, key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	stored, ok := s.wallets[key]
	var w walletv1.Wallet
	if ok {
		w = *stored
	}
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	tx.mu.Lock()
	if pending, written := tx.writes[key]; written {
		w.Balance = pending.Balance
	}
	tx.mu.Unlock()

	return &w, nil
}

// Save stages the wallet's balance in the transaction. The wallet must have
// been locked with FindForUpdate.
func (s *Store) Save(ctx context.Context, wallet *walletv1.Wallet) error {
	tx, err := txFrom(ctx)
	if err != nil {
		return err
	}
	if wallet.Balance < 0 {
		return errors.NewErrorDetailsWithObject("wallet balance cannot be negative", string(errors.GeneralRepositoryError), "balance", wallet)
	}

	key := walletKey{userID: wallet.UserID, currency: wallet.Currency}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return errors.NewErrorDetails("transaction already closed", string(errors.GeneralRepositoryError), "")
	}
	if _, ok := tx.held[key]; !ok {
		return errors.NewErrorDetails(
			fmt.Sprintf("wallet %s/%s saved without a lock", wallet.UserID, wallet.Currency),
			string(errors.GeneralRepositoryError),
			"userId",
		)
	}
	tx.writes[key] = *wallet
	return nil
}

func (s *Store) acquire(ctx context.Context, tx *transaction, key walletKey) error {
	tx.mu.Lock()
	if tx.done {
		tx.mu.Unlock()
		return errors.NewErrorDetails("transaction already closed", string(errors.GeneralRepositoryError), "")
	}
	_, held := tx.held[key]
	tx.mu.Unlock()
	if held {
		return nil
	}

	select {
	case s.lockFor(key) <- struct{}{}:
	case <-ctx.Done():
		return lockError(ctx, key)
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		<-s.lockFor(key)
		return errors.NewErrorDetails("transaction already closed", string(errors.GeneralRepositoryError), "")
	}
	tx.held[key] = struct{}{}
	return nil
}

func (s *Store) lockFor(key walletKey) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = make(chan struct{}, 1)
		s.locks[key] = lock
	}
	return lock
}

func lockError(ctx context.Context, key walletKey) error {
	if pkgerrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewErrorDetails(
			fmt.Sprintf("timed out waiting for wallet %s/%s", key.userID, key.currency),
			string(errors.LockTimeout),
			"userId",
		)
	}
	return errors.TracerFromError(ctx.Err())
}

func txFrom(ctx context.Context) (*transaction, error) {
	tx, ok := ctx.Value(txContextKey{}).(*transaction)
	if !ok {
		return nil, errors.NewErrorDetails("no transaction found in context", string(errors.GeneralRepositoryError), "")
	}
	return tx, nil
}

// Upsert creates the wallet or overwrites its balance. It waits for any
// transaction holding the wallet.
func (s *Store) Upsert(ctx context.Context, userID, currency string, balance int64) error {
	if balance < 0 {
		return errors.NewErrorDetails("wallet balance cannot be negative", string(errors.InvalidAmount), "balance")
	}

	key := walletKey{userID: userID, currency: currency}
	lock := s.lockFor(key)
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return lockError(ctx, key)
	}
	defer func() { <-lock }()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if w, ok := s.wallets[key]; ok {
		w.Balance = balance
		w.UpdatedAt = now
		return nil
	}

	s.nextID++
	s.wallets[key] = &walletv1.Wallet{
		ID:        s.nextID,
		UserID:    userID,
		Currency:  currency,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// Get returns the committed wallet or nil when it does not exist.
func (s *Store) Get(_ context.Context, userID, currency string) (*walletv1.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[walletKey{userID: userID, currency: currency}]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

// List returns the committed wallets of currency ordered by user id.
func (s *Store) List(_ context.Context, currency string) ([]*walletv1.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var wallets []*walletv1.Wallet
	for key, w := range s.wallets {
		if key.currency != currency {
			continue
		}
		cp := *w
		wallets = append(wallets, &cp)
	}
	sort.Slice(wallets, func(i, j int) bool {
		return wallets[i].UserID < wallets[j].UserID
	})
	return wallets, nil
}
