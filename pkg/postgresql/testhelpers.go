package postgresql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestHelper provides common testing utilities
type TestHelper struct {
	Container *TestContainer
	T         *testing.T
}

// NewTestHelperWithConfig starts a container for the test and terminates it on cleanup.
// Integration tests are skipped under -short.
func NewTestHelperWithConfig(t *testing.T, config *TestContainerConfig) *TestHelper {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	container, err := NewTestContainer(context.Background(), config)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Close(); err != nil {
			t.Logf("Failed to close test container: %v", err)
		}
	})

	return &TestHelper{
		Container: container,
		T:         t,
	}
}

// NewTestHelperWithMigrations creates a test helper and runs migrations from the specified path
func NewTestHelperWithMigrations(t *testing.T, migrationsPath string) *TestHelper {
	config := DefaultTestContainerConfig()
	config.MigrationsPath = migrationsPath
	return NewTestHelperWithConfig(t, config)
}

// CleanupTables truncates all tables between tests
func (h *TestHelper) CleanupTables() {
	require.NoError(h.T, h.Container.TruncateAllTables())
}

// ExecuteSQL executes SQL and fails test on error
func (h *TestHelper) ExecuteSQL(sql string, args ...any) {
	require.NoError(h.T, h.Container.ExecuteSQL(sql, args...))
}

// GetClient returns the PostgreSQL client
func (h *TestHelper) GetClient() PostgreSQLClient {
	return h.Container.Client
}
