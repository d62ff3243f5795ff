package wallet

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/muhammadchandra19/rtcrypto-exchange/internal/usecase/settlement"
	pkgerrors "github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/postgresql"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	suite.Suite
	helper *postgresql.TestHelper
	repo   *Repository
	log    logger.Interface
	ctx    context.Context
}

// SetupSuite runs once before all tests
func (suite *RepositoryTestSuite) SetupSuite() {
	suite.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../migrations")
	require.NoError(suite.T(), err)

	config := &postgresql.TestContainerConfig{
		Image:            "postgres:15-alpine",
		Database:         "wallet_test_db",
		Username:         "wallet_test_user",
		Password:         "wallet_test_pass",
		MigrationsPath:   migrationsPath,
		MigrationPattern: "*.up.sql",
		StartupTimeout:   3 * time.Minute,
	}
	suite.helper = postgresql.NewTestHelperWithConfig(suite.T(), config)

	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.ErrorLevel))
	require.NoError(suite.T(), err)
	suite.log = log
	suite.repo = NewRepository(suite.helper.GetClient(), log, 200*time.Millisecond)
}

// SetupTest runs before each test
func (suite *RepositoryTestSuite) SetupTest() {
	suite.helper.CleanupTables()
}

func (suite *RepositoryTestSuite) TestUpsertGetList() {
	suite.Require().NoError(suite.repo.Upsert(suite.ctx, "bob", "BTC", 5))
	suite.Require().NoError(suite.repo.Upsert(suite.ctx, "alice", "BTC", 10))
	suite.Require().NoError(suite.repo.Upsert(suite.ctx, "bob", "BTC", 7))

	w, err := suite.repo.Get(suite.ctx, "bob", "BTC")
	suite.Require().NoError(err)
	suite.Require().NotNil(w)
	suite.Equal(int64(7), w.Balance)

	missing, err := suite.repo.Get(suite.ctx, "carol", "BTC")
	suite.Require().NoError(err)
	suite.Nil(missing)

	list, err := suite.repo.List(suite.ctx, "BTC")
	suite.Require().NoError(err)
	suite.Require().Len(list, 2)
	suite.Equal("alice", list[0].UserID)
}

func (suite *RepositoryTestSuite) TestLedgerScenario() {
	suite.Require().NoError(suite.repo.Upsert(suite.ctx, "seller", "X", 1_000_000_000))
	suite.Require().NoError(suite.repo.Upsert(suite.ctx, "buyer", "X", 0))

	ledger := settlement.NewLedger(suite.repo, suite.repo, suite.log)
	suite.Require().NoError(ledger.Transfer(suite.ctx, "seller", "buyer", "X", 100_000_000))

	seller, err := suite.repo.Get(suite.ctx, "seller", "X")
	suite.Require().NoError(err)
	buyer, err := suite.repo.Get(suite.ctx, "buyer", "X")
	suite.Require().NoError(err)
	suite.Equal(int64(900_000_000), seller.Balance)
	suite.Equal(int64(100_000_000), buyer.Balance)

	err = ledger.Transfer(suite.ctx, "buyer", "seller", "X", 100_000_001)
	suite.True(pkgerrors.ErrorCodeEquals(err, pkgerrors.InsufficientFunds))

	err = ledger.Transfer(suite.ctx, "seller", "ghost", "X", 1)
	suite.True(pkgerrors.ErrorCodeEquals(err, pkgerrors.WalletNotFound))
}

func (suite *RepositoryTestSuite) TestConcurrentOppositeTransfers() {
	suite.Require().NoError(suite.repo.Upsert(suite.ctx, "A", "X", 1_000))
	suite.Require().NoError(suite.repo.Upsert(suite.ctx, "B", "X", 1_000))

	// Without a lock timeout the ledger would block rather than fail.
	repo := NewRepository(suite.helper.GetClient(), suite.log, 0)
	ledger := settlement.NewLedger(repo, repo, suite.log)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			suite.NoError(ledger.Transfer(suite.ctx, "A", "B", "X", 3))
		}()
		go func() {
			defer wg.Done()
			suite.NoError(ledger.Transfer(suite.ctx, "B", "A", "X", 5))
		}()
	}
	wg.Wait()

	a, err := repo.Get(suite.ctx, "A", "X")
	suite.Require().NoError(err)
	b, err := repo.Get(suite.ctx, "B", "X")
	suite.Require().NoError(err)
	suite.Equal(int64(2_000), a.Balance+b.Balance)
	suite.Equal(int64(1_040), a.Balance)
}

func (suite *RepositoryTestSuite) TestLockTimeout() {
	suite.Require().NoError(suite.repo.Upsert(suite.ctx, "alice", "BTC", 10))

	holder, err := suite.repo.Begin(suite.ctx)
	suite.Require().NoError(err)
	defer suite.repo.Rollback(holder)
	_, err = suite.repo.FindForUpdate(holder, "alice", "BTC")
	suite.Require().NoError(err)

	waiter, err := suite.repo.Begin(suite.ctx)
	suite.Require().NoError(err)
	defer suite.repo.Rollback(waiter)

	_, err = suite.repo.FindForUpdate(waiter, "alice", "BTC")
	suite.True(pkgerrors.ErrorCodeEquals(err, pkgerrors.LockTimeout), "got %v", err)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
