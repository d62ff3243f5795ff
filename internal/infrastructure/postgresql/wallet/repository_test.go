package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	walletv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/wallet/v1"
	pkgerrors "github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	mockLogger "github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger/mock"
	mockPg "github.com/muhammadchandra19/rtcrypto-exchange/pkg/postgresql/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx stands in for a live pgx transaction; only its presence in the
// context matters to the repository.
type fakeTx struct {
	pgx.Tx
}

func scanAny() []interface{} {
	return []interface{}{gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()}
}

func beginTx(t *testing.T, repo *Repository, mockpg *mockPg.MockPostgreSQLClient) context.Context {
	t.Helper()
	mockpg.EXPECT().Begin(gomock.Any()).Return(&fakeTx{}, nil)
	ctx, err := repo.Begin(context.Background())
	require.NoError(t, err)
	return ctx
}

func TestRepository_FindForUpdate(t *testing.T) {
	query := `SELECT id, user_id, currency, balance, created_at, updated_at FROM wallets WHERE user_id = $1 AND currency = $2 FOR UPDATE`
	now := time.Now()

	testCases := []struct {
		name     string
		mockFn   func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface)
		assertFn func(t *testing.T, w *walletv1.Wallet, err error)
	}{
		{
			name: "success",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().Exec(gomock.Any(), "SET LOCAL lock_timeout = '250ms'").Return(pgconn.NewCommandTag("SET"), nil)
				mockpg.EXPECT().QueryRow(gomock.Any(), query, "alice", "BTC").Return(row)
				row.EXPECT().Scan(scanAny()...).DoAndReturn(func(dest ...any) error {
					*dest[0].(*int64) = 7
					*dest[1].(*string) = "alice"
					*dest[2].(*string) = "BTC"
					*dest[3].(*int64) = 1_000
					*dest[4].(*time.Time) = now
					*dest[5].(*time.Time) = now
					return nil
				})
			},
			assertFn: func(t *testing.T, w *walletv1.Wallet, err error) {
				require.NoError(t, err)
				assert.Equal(t, &walletv1.Wallet{ID: 7, UserID: "alice", Currency: "BTC", Balance: 1_000, CreatedAt: now, UpdatedAt: now}, w)
			},
		},
		{
			name: "missing wallet",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().Exec(gomock.Any(), gomock.Any()).Return(pgconn.NewCommandTag("SET"), nil)
				mockpg.EXPECT().QueryRow(gomock.Any(), query, "alice", "BTC").Return(row)
				row.EXPECT().Scan(scanAny()...).Return(pgx.ErrNoRows)
			},
			assertFn: func(t *testing.T, w *walletv1.Wallet, err error) {
				assert.NoError(t, err)
				assert.Nil(t, w)
			},
		},
		{
			name: "lock not available",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().Exec(gomock.Any(), gomock.Any()).Return(pgconn.NewCommandTag("SET"), nil)
				mockpg.EXPECT().QueryRow(gomock.Any(), query, "alice", "BTC").Return(row)
				row.EXPECT().Scan(scanAny()...).Return(&pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"})
			},
			assertFn: func(t *testing.T, w *walletv1.Wallet, err error) {
				assert.Nil(t, w)
				assert.True(t, pkgerrors.ErrorCodeEquals(err, pkgerrors.LockTimeout))
			},
		},
		{
			name: "setting lock timeout fails",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().Exec(gomock.Any(), gomock.Any()).Return(pgconn.CommandTag{}, errors.New("conn closed"))
			},
			assertFn: func(t *testing.T, w *walletv1.Wallet, err error) {
				assert.Nil(t, w)
				assert.EqualError(t, err, "conn closed")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockpg := mockPg.NewMockPostgreSQLClient(ctrl)
			row := mockPg.NewMockRowsInterface(ctrl)
			repo := NewRepository(mockpg, mockLogger.NewMockInterface(ctrl), 250*time.Millisecond)

			ctx := beginTx(t, repo, mockpg)
			tc.mockFn(mockpg, row)

			w, err := repo.FindForUpdate(ctx, "alice", "BTC")
			tc.assertFn(t, w, err)
		})
	}
}

func TestRepository_FindForUpdateNeedsTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := NewRepository(mockPg.NewMockPostgreSQLClient(ctrl), mockLogger.NewMockInterface(ctrl), 0)
	_, err := repo.FindForUpdate(context.Background(), "alice", "BTC")
	assert.True(t, pkgerrors.ErrorCodeEquals(err, pkgerrors.GeneralRepositoryError))
}

func TestRepository_Save(t *testing.T) {
	ctx := context.Background()
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`
	wallet := &walletv1.Wallet{ID: 3, UserID: "bob", Currency: "BTC", Balance: 40}

	testCases := []struct {
		name     string
		mockFn   func(mockpg *mockPg.MockPostgreSQLClient)
		assertFn func(t *testing.T, err error)
	}{
		{
			name: "success",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient) {
				mockpg.EXPECT().Exec(ctx, query, int64(40), int64(3)).Return(pgconn.NewCommandTag("UPDATE 1"), nil)
			},
			assertFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "row vanished",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient) {
				mockpg.EXPECT().Exec(ctx, query, int64(40), int64(3)).Return(pgconn.NewCommandTag("UPDATE 0"), nil)
			},
			assertFn: func(t *testing.T, err error) {
				assert.True(t, pkgerrors.ErrorCodeEquals(err, pkgerrors.WalletNotFound))
			},
		},
		{
			name: "check constraint",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient) {
				mockpg.EXPECT().Exec(ctx, query, int64(40), int64(3)).Return(pgconn.CommandTag{}, &pgconn.PgError{Code: "23514"})
			},
			assertFn: func(t *testing.T, err error) {
				assert.True(t, pkgerrors.ErrorCodeEquals(err, pkgerrors.GeneralRepositoryError))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockpg := mockPg.NewMockPostgreSQLClient(ctrl)
			tc.mockFn(mockpg)

			repo := NewRepository(mockpg, mockLogger.NewMockInterface(ctrl), 0)
			tc.assertFn(t, repo.Save(ctx, wallet))
		})
	}
}

func TestRepository_Upsert(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockpg := mockPg.NewMockPostgreSQLClient(ctrl)
	log := mockLogger.NewMockInterface(ctrl)
	repo := NewRepository(mockpg, log, 0)

	mockpg.EXPECT().Exec(ctx, gomock.Any(), "alice", "BTC", int64(10)).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
	log.EXPECT().Debug("Upserted wallet", gomock.Any(), gomock.Any(), gomock.Any())
	require.NoError(t, repo.Upsert(ctx, "alice", "BTC", 10))

	err := repo.Upsert(ctx, "alice", "BTC", -1)
	assert.True(t, pkgerrors.ErrorCodeEquals(err, pkgerrors.InvalidAmount))
}

func TestRepository_List(t *testing.T) {
	ctx := context.Background()
	query := `SELECT id, user_id, currency, balance, created_at, updated_at FROM wallets WHERE currency = $1 ORDER BY user_id`

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockpg := mockPg.NewMockPostgreSQLClient(ctrl)
	rows := mockPg.NewMockRowsInterface(ctrl)
	repo := NewRepository(mockpg, mockLogger.NewMockInterface(ctrl), 0)

	users := []string{"alice", "bob"}
	i := 0
	mockpg.EXPECT().Query(ctx, query, "BTC").Return(rows, nil)
	rows.EXPECT().Next().Return(true).Times(2)
	rows.EXPECT().Next().Return(false)
	rows.EXPECT().Scan(scanAny()...).DoAndReturn(func(dest ...any) error {
		*dest[1].(*string) = users[i]
		*dest[2].(*string) = "BTC"
		i++
		return nil
	}).Times(2)
	rows.EXPECT().Err().Return(nil)
	rows.EXPECT().Close()

	wallets, err := repo.List(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, "alice", wallets[0].UserID)
	assert.Equal(t, "bob", wallets[1].UserID)
}
