package main

import (
	"context"
	"flag"
	"os"

	"github.com/muhammadchandra19/rtcrypto-exchange/internal/app/seed"
	pgwallet "github.com/muhammadchandra19/rtcrypto-exchange/internal/infrastructure/postgresql/wallet"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/config"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/postgresql"
)

func main() {
	var (
		verify   = flag.Bool("verify", false, "Check balances after the demo simulation instead of seeding")
		currency = flag.String("currency", "", "Wallet currency (defaults to the first configured symbol)")
	)
	flag.Parse()

	os.Exit(run(*verify, *currency))
}

func run(verify bool, currency string) int {
	ctx := context.Background()

	log, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	cfg := &config.Config{}
	if err := config.Load(cfg); err != nil {
		log.Error(err, logger.NewField("action", "load_config"))
		return 1
	}
	if currency == "" {
		currency = cfg.App.Symbols[0]
	}

	db, err := postgresql.NewClient(ctx, cfg.Postgres)
	if err != nil {
		log.Error(err, logger.NewField("action", "connect_postgres"))
		return 1
	}
	defer db.Close()

	store := pgwallet.NewRepository(db, log, cfg.Settlement.LockTimeout)

	if !verify {
		if err := seed.Seed(ctx, store, seed.DefaultWallets(currency), log); err != nil {
			log.Error(err, logger.NewField("action", "seed_wallets"))
			return 1
		}
		log.Info("Seeding complete", logger.NewField("currency", currency))
		return 0
	}

	if err := seed.Verify(ctx, store, seed.ExpectedAfterSimulation(currency)); err != nil {
		var base *errors.BaseError
		if errors.As(err, &base) {
			for _, d := range base.GetDetails() {
				log.Warn(d.Message, logger.NewField("userId", d.Field))
			}
		}
		log.Error(err, logger.NewField("action", "verify_balances"))
		return 1
	}

	log.Info("Verification succeeded, balances match the expected state", logger.NewField("currency", currency))
	return 0
}
