package postgresql

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestContainer wraps a PostgreSQL testcontainer with utilities
type TestContainer struct {
	Container testcontainers.Container
	Client    PostgreSQLClient
	ConnStr   string
	ctx       context.Context
}

// TestContainerConfig holds configuration for the test container
type TestContainerConfig struct {
	Image            string
	Database         string
	Username         string
	Password         string
	MigrationsPath   string
	MigrationPattern string
	StartupTimeout   time.Duration
}

// DefaultTestContainerConfig returns a default configuration
func DefaultTestContainerConfig() *TestContainerConfig {
	return &TestContainerConfig{
		Image:            "postgres:15-alpine",
		Database:         "test_db",
		Username:         "test_user",
		Password:         "test_pass",
		MigrationPattern: "*.up.sql",
		StartupTimeout:   3 * time.Minute,
	}
}

// NewTestContainer creates and starts a new PostgreSQL test container
func NewTestContainer(ctx context.Context, config *TestContainerConfig) (*TestContainer, error) {
	if config == nil {
		config = DefaultTestContainerConfig()
	}

	container, err := postgres.Run(ctx, config.Image,
		postgres.WithDatabase(config.Database),
		postgres.WithUsername(config.Username),
		postgres.WithPassword(config.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(config.StartupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	tc := &TestContainer{
		Container: container,
		Client: &Client{
			pool:   pool,
			config: Config{Database: config.Database},
		},
		ConnStr: connStr,
		ctx:     ctx,
	}

	if config.MigrationsPath != "" {
		if err := tc.RunMigrations(config.MigrationsPath, config.MigrationPattern); err != nil {
			_ = tc.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return tc, nil
}

// Close closes the connection and terminates the container
func (tc *TestContainer) Close() error {
	if tc.Client != nil {
		tc.Client.Close()
	}

	if tc.Container != nil {
		if err := tc.Container.Terminate(tc.ctx); err != nil {
			return fmt.Errorf("failed to terminate container: %w", err)
		}
	}

	return nil
}

// RunMigrations applies every file in migrationsPath matching pattern, in name order.
func (tc *TestContainer) RunMigrations(migrationsPath, pattern string) error {
	if pattern == "" {
		pattern = "*.up.sql"
	}

	files, err := filepath.Glob(filepath.Join(migrationsPath, pattern))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no migration files found in %s with pattern %s", migrationsPath, pattern)
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		sql := strings.TrimSpace(string(content))
		if sql == "" {
			continue
		}

		// Simple protocol executes multi-statement files in one round trip.
		if _, err := tc.Client.Exec(tc.ctx, sql); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", filepath.Base(file), err)
		}
	}

	return nil
}

// TruncateAllTables truncates all tables in the public schema
func (tc *TestContainer) TruncateAllTables() error {
	rows, err := tc.Client.Query(tc.ctx, `
		SELECT tablename
		FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename <> 'schema_migrations'
	`)
	if err != nil {
		return fmt.Errorf("failed to get table names: %w", err)
	}

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	rows.Close()

	for _, table := range tables {
		if _, err := tc.Client.Exec(tc.ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// ExecuteSQL executes arbitrary SQL (useful for test setup)
func (tc *TestContainer) ExecuteSQL(sql string, args ...any) error {
	_, err := tc.Client.Exec(tc.ctx, sql, args...)
	return err
}
