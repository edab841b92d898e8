//go:build integration

package repositories

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ignitedata-ai/catalog-engine/pkg/database"
	"github.com/ignitedata-ai/catalog-engine/pkg/models"
	"github.com/ignitedata-ai/catalog-engine/pkg/testhelpers"
)

var dataSourceSeq atomic.Int64

// tenantContext returns a context carrying a tenant-scoped connection.
func tenantContext(t *testing.T, tenantID uuid.UUID) context.Context {
	t.Helper()

	testDB := testhelpers.GetTestDB(t)
	scope, err := testDB.DB.WithTenant(context.Background(), tenantID)
	require.NoError(t, err)
	t.Cleanup(scope.Close)

	ctx := database.SetTenantScope(context.Background(), scope)
	return database.SetTenantID(ctx, tenantID)
}

// createTestDataSource inserts a data source row to hang assets and runs off.
func createTestDataSource(t *testing.T, ctx context.Context, tenantID uuid.UUID) *models.DataSource {
	t.Helper()

	ds := &models.DataSource{
		TenantID:      tenantID,
		Name:          fmt.Sprintf("test-source-%d", dataSourceSeq.Add(1)),
		ConnectorType: "mysql",
		Config:        map[string]any{"host": "db.internal", "database": "sales"},
	}
	require.NoError(t, NewDataSourceRepository().Create(ctx, ds, "encrypted-blob"))
	return ds
}
