package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ignitedata-ai/catalog-engine/pkg/apperrors"
	"github.com/ignitedata-ai/catalog-engine/pkg/crypto"
)

func newDataSourceFixture(t *testing.T, extractor *fakeExtractor) (DataSourceService, *fakeDataSourceRepo) {
	t.Helper()
	encryptor, err := crypto.NewCredentialEncryptor("datasource-test-passphrase")
	require.NoError(t, err)
	repo := &fakeDataSourceRepo{}
	svc := NewDataSourceService(repo, &fakeFactory{extractor: extractor}, encryptor, zap.NewNop())
	return svc, repo
}

func TestDataSourceCreateEncryptsCredentials(t *testing.T) {
	svc, repo := newDataSourceFixture(t, &fakeExtractor{})

	ds, err := svc.Create(context.Background(), uuid.New(), "sales-mysql", "mysql",
		map[string]any{"host": "db.internal", "database": "sales"},
		map[string]any{"username": "reporting", "password": "hunter2"})
	require.NoError(t, err)
	require.NotNil(t, ds)

	assert.NotEqual(t, uuid.Nil, ds.ID)
	assert.NotEmpty(t, repo.encrypted)
	assert.NotContains(t, repo.encrypted, "hunter2")
	assert.Nil(t, ds.Credentials)
}

func TestDataSourceCreateRequiresName(t *testing.T) {
	svc, _ := newDataSourceFixture(t, &fakeExtractor{})

	_, err := svc.Create(context.Background(), uuid.New(), "", "mysql", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestDataSourceCreateRejectsUnknownConnector(t *testing.T) {
	encryptor, err := crypto.NewCredentialEncryptor("datasource-test-passphrase")
	require.NoError(t, err)
	svc := NewDataSourceService(&fakeDataSourceRepo{}, &fakeFactory{err: apperrors.ErrUnsupportedConnector}, encryptor, zap.NewNop())

	_, err = svc.Create(context.Background(), uuid.New(), "bad", "oracle", nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedConnector)
}

func TestDataSourceGetOmitsCredentials(t *testing.T) {
	svc, _ := newDataSourceFixture(t, &fakeExtractor{})

	created, err := svc.Create(context.Background(), uuid.New(), "sales-mysql", "mysql",
		map[string]any{"host": "db.internal"}, map[string]any{"password": "hunter2"})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "sales-mysql", got.Name)
	assert.Nil(t, got.Credentials)
}

func TestDataSourceTestConnection(t *testing.T) {
	extractor := &fakeExtractor{connectOK: false, connectReason: "access denied"}
	svc, _ := newDataSourceFixture(t, extractor)

	created, err := svc.Create(context.Background(), uuid.New(), "sales-mysql", "mysql",
		map[string]any{"host": "db.internal"}, map[string]any{"password": "hunter2"})
	require.NoError(t, err)

	ok, reason, err := svc.TestConnection(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "access denied", reason)
	assert.True(t, extractor.closed)
}

func TestDataSourceUpdateConfigKeepsCredentials(t *testing.T) {
	svc, repo := newDataSourceFixture(t, &fakeExtractor{})

	created, err := svc.Create(context.Background(), uuid.New(), "sales-mysql", "mysql",
		map[string]any{"host": "db.internal"}, map[string]any{"password": "hunter2"})
	require.NoError(t, err)
	before := repo.encrypted

	err = svc.UpdateConfig(context.Background(), created.ID, map[string]any{"host": "db2.internal"}, nil)
	require.NoError(t, err)

	assert.Equal(t, before, repo.encrypted)
	assert.Equal(t, "db2.internal", repo.ds.Config["host"])
}

func TestDataSourceDelete(t *testing.T) {
	svc, _ := newDataSourceFixture(t, &fakeExtractor{})

	created, err := svc.Create(context.Background(), uuid.New(), "sales-mysql", "mysql", nil, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), created.ID))

	_, err = svc.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
