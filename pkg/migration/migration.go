package migration

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/postgresql"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// Migration represents a database migration
type Migration struct {
	ID      string
	Name    string
	UpSQL   string
	DownSQL string
}

// Runner applies and reverts SQL migrations against PostgreSQL and records
// them in a tracking table.
type Runner struct {
	client    postgresql.PostgreSQLClient
	logger    logger.Interface
	source    fs.FS
	dir       string
	schema    string
	tableName string
}

// Config for migration runner
type Config struct {
	// Dir is the directory inside Source holding NNN_name.up.sql / NNN_name.down.sql pairs.
	Dir       string
	Schema    string // default: "public"
	TableName string // default: "schema_migrations"
}

// NewRunner creates a new migration runner reading files from source.
func NewRunner(client postgresql.PostgreSQLClient, log logger.Interface, source fs.FS, config Config) *Runner {
	if config.Dir == "" {
		config.Dir = "."
	}
	if config.Schema == "" {
		config.Schema = "public"
	}
	if config.TableName == "" {
		config.TableName = "schema_migrations"
	}

	return &Runner{
		client:    client,
		logger:    log,
		source:    source,
		dir:       config.Dir,
		schema:    config.Schema,
		tableName: config.TableName,
	}
}

func (r *Runner) table() string {
	return r.schema + "." + r.tableName
}

// EnsureMigrationTable creates the tracking table if it doesn't exist
func (r *Runner) EnsureMigrationTable(ctx context.Context) error {
	_, err := r.client.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`, r.table()))
	if err != nil {
		return errors.NewTracer("failed to create migration table").Wrap(err)
	}
	return nil
}

// AppliedMigrations returns the set of applied migration IDs
func (r *Runner) AppliedMigrations(ctx context.Context) (map[string]bool, error) {
	applied := make(map[string]bool)

	rows, err := r.client.Query(ctx, fmt.Sprintf("SELECT id FROM %s", r.table()))
	if err != nil {
		return nil, errors.TracerFromError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.TracerFromError(err)
		}
		applied[id] = true
	}

	return applied, rows.Err()
}

// LoadMigrations reads all migrations from the source, ordered by ID.
func (r *Runner) LoadMigrations() ([]Migration, error) {
	upFiles, err := fs.Glob(r.source, path.Join(r.dir, "*"+upSuffix))
	if err != nil {
		return nil, errors.TracerFromError(err)
	}
	sort.Strings(upFiles)

	migrations := make([]Migration, 0, len(upFiles))
	for _, upFile := range upFiles {
		m, err := r.parseMigration(upFile)
		if err != nil {
			return nil, errors.NewTracer(fmt.Sprintf("failed to parse migration %s", upFile)).Wrap(err)
		}
		migrations = append(migrations, m)
	}

	return migrations, nil
}

func (r *Runner) parseMigration(upFile string) (Migration, error) {
	upContent, err := fs.ReadFile(r.source, upFile)
	if err != nil {
		return Migration{}, err
	}

	id := strings.TrimSuffix(path.Base(upFile), upSuffix)
	name := id
	if parts := strings.SplitN(id, "_", 2); len(parts) == 2 {
		name = parts[1]
	}

	m := Migration{
		ID:    id,
		Name:  name,
		UpSQL: strings.TrimSpace(string(upContent)),
	}

	downFile := strings.TrimSuffix(upFile, upSuffix) + downSuffix
	if downContent, err := fs.ReadFile(r.source, downFile); err == nil {
		m.DownSQL = strings.TrimSpace(string(downContent))
	}

	return m, nil
}

// MigrateUp applies pending migrations. steps <= 0 applies all of them.
func (r *Runner) MigrateUp(ctx context.Context, steps int) error {
	migrations, err := r.LoadMigrations()
	if err != nil {
		return err
	}

	applied, err := r.AppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var toApply []Migration
	for _, m := range migrations {
		if !applied[m.ID] {
			toApply = append(toApply, m)
		}
	}

	if steps > 0 && len(toApply) > steps {
		toApply = toApply[:steps]
	}

	for _, m := range toApply {
		if m.UpSQL == "" {
			r.logger.Warn("Skipping empty migration", logger.Field{Key: "migration", Value: m.ID})
			continue
		}

		err := postgresql.WithTx(ctx, r.client, func(txCtx context.Context) error {
			if _, err := r.client.Exec(txCtx, m.UpSQL); err != nil {
				return err
			}

			_, err := r.client.Exec(txCtx,
				fmt.Sprintf("INSERT INTO %s (id, name, applied_at) VALUES ($1, $2, NOW())", r.table()),
				m.ID, m.Name,
			)
			return err
		})
		if err != nil {
			return errors.NewTracer(fmt.Sprintf("failed to apply migration %s", m.ID)).Wrap(err)
		}

		r.logger.Info("Applied migration", logger.Field{Key: "migration", Value: m.ID})
	}

	return nil
}

// MigrateDown reverts the last steps applied migrations.
func (r *Runner) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		return errors.NewTracer("steps must be greater than 0 for down migrations")
	}

	migrations, err := r.LoadMigrations()
	if err != nil {
		return err
	}

	applied, err := r.AppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var toRevert []Migration
	for i := len(migrations) - 1; i >= 0 && len(toRevert) < steps; i-- {
		if applied[migrations[i].ID] {
			toRevert = append(toRevert, migrations[i])
		}
	}

	for _, m := range toRevert {
		if m.DownSQL == "" {
			return errors.NewTracer(fmt.Sprintf("no down migration for %s", m.ID))
		}

		err := postgresql.WithTx(ctx, r.client, func(txCtx context.Context) error {
			if _, err := r.client.Exec(txCtx, m.DownSQL); err != nil {
				return err
			}

			_, err := r.client.Exec(txCtx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table()), m.ID)
			return err
		})
		if err != nil {
			return errors.NewTracer(fmt.Sprintf("failed to revert migration %s", m.ID)).Wrap(err)
		}

		r.logger.Info("Reverted migration", logger.Field{Key: "migration", Value: m.ID})
	}

	return nil
}
