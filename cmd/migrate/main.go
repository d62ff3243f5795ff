package main

import (
	"context"
	"flag"

	"github.com/muhammadchandra19/rtcrypto-exchange/internal/infrastructure/postgresql/migrations"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/config"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/migration"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/postgresql"
)

func main() {
	var (
		direction = flag.String("direction", "up", "Migration direction: up or down")
		steps     = flag.Int("steps", 0, "Number of steps to migrate (0 = all, down requires > 0)")
	)
	flag.Parse()

	ctx := context.Background()

	log, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	cfg := &config.Config{}
	if err := config.Load(cfg); err != nil {
		log.Error(err, logger.NewField("action", "load_config"))
		return
	}

	pgClient, err := postgresql.NewClient(ctx, cfg.Postgres)
	if err != nil {
		log.Error(err, logger.NewField("action", "connect_postgres"))
		return
	}
	defer pgClient.Close()

	runner := migration.NewRunner(pgClient, log, migrations.FS, migration.Config{
		Schema:    "public",
		TableName: "schema_migrations",
	})

	if err := runner.EnsureMigrationTable(ctx); err != nil {
		log.Error(err, logger.NewField("action", "create_migration_table"))
		return
	}

	switch *direction {
	case "up":
		err = runner.MigrateUp(ctx, *steps)
	case "down":
		err = runner.MigrateDown(ctx, *steps)
	default:
		log.Warn("Invalid direction, use 'up' or 'down'", logger.NewField("direction", *direction))
		return
	}
	if err != nil {
		log.Error(err, logger.NewField("action", "migrate_"+*direction))
		return
	}

	log.Info("Migration completed successfully", logger.NewField("direction", *direction))
}
