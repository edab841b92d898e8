package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ignitedata-ai/catalog-engine/pkg/crypto"
	"github.com/ignitedata-ai/catalog-engine/pkg/extractors"
	"github.com/ignitedata-ai/catalog-engine/pkg/models"
	"github.com/ignitedata-ai/catalog-engine/pkg/repositories"
)

// DataSourceService manages data source registrations. Credentials are
// encrypted before they reach the repository and never returned to callers.
type DataSourceService interface {
	// Create registers a new data source after validating that an extractor
	// exists for its connector type and that the config parses.
	Create(ctx context.Context, tenantID uuid.UUID, name, connectorType string, config, credentials map[string]any) (*models.DataSource, error)

	// Get retrieves a data source by ID without credentials.
	Get(ctx context.Context, id uuid.UUID) (*models.DataSource, error)

	// List retrieves all data sources for the current tenant without
	// credentials.
	List(ctx context.Context) ([]*models.DataSource, error)

	// UpdateConfig replaces the config and, when credentials is non-nil, the
	// stored credentials.
	UpdateConfig(ctx context.Context, id uuid.UUID, config, credentials map[string]any) error

	// Delete removes a data source and all of its cataloged assets.
	Delete(ctx context.Context, id uuid.UUID) error

	// TestConnection checks connectivity for a stored data source. The
	// returned string describes the failure when ok is false.
	TestConnection(ctx context.Context, id uuid.UUID) (bool, string, error)

	// ListConnectorTypes returns the registered connector types.
	ListConnectorTypes() []extractors.ExtractorInfo
}

type dataSourceService struct {
	repo      repositories.DataSourceRepository
	factory   extractors.ExtractorFactory
	encryptor *crypto.CredentialEncryptor
	logger    *zap.Logger
}

// NewDataSourceService creates a new DataSourceService.
func NewDataSourceService(
	repo repositories.DataSourceRepository,
	factory extractors.ExtractorFactory,
	encryptor *crypto.CredentialEncryptor,
	logger *zap.Logger,
) DataSourceService {
	return &dataSourceService{
		repo:      repo,
		factory:   factory,
		encryptor: encryptor,
		logger:    logger,
	}
}

func (s *dataSourceService) Create(ctx context.Context, tenantID uuid.UUID, name, connectorType string, config, credentials map[string]any) (*models.DataSource, error) {
	if name == "" {
		return nil, fmt.Errorf("data source name is required")
	}
	if config == nil {
		config = make(map[string]any)
	}

	// Constructing an extractor validates the connector type and config
	// shape without touching the source.
	extractor, err := s.factory.NewExtractor(connectorType, config, credentials)
	if err != nil {
		return nil, err
	}
	_ = extractor.Close()

	encrypted, err := s.encryptor.EncryptMap(credentials)
	if err != nil {
		return nil, fmt.Errorf("encrypt credentials: %w", err)
	}

	ds := &models.DataSource{
		TenantID:      tenantID,
		Name:          name,
		ConnectorType: connectorType,
		Config:        config,
	}
	if err := s.repo.Create(ctx, ds, encrypted); err != nil {
		return nil, err
	}

	s.logger.Info("data source created",
		zap.String("data_source_id", ds.ID.String()),
		zap.String("connector_type", connectorType))
	return ds, nil
}

func (s *dataSourceService) Get(ctx context.Context, id uuid.UUID) (*models.DataSource, error) {
	ds, _, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *dataSourceService) List(ctx context.Context) ([]*models.DataSource, error) {
	return s.repo.List(ctx)
}

func (s *dataSourceService) UpdateConfig(ctx context.Context, id uuid.UUID, config, credentials map[string]any) error {
	ds, encrypted, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if config == nil {
		config = ds.Config
	}
	if credentials != nil {
		encrypted, err = s.encryptor.EncryptMap(credentials)
		if err != nil {
			return fmt.Errorf("encrypt credentials: %w", err)
		}
	} else {
		// Revalidate the new config against the stored credentials.
		credentials, err = s.encryptor.DecryptMap(encrypted)
		if err != nil {
			return fmt.Errorf("decrypt credentials: %w", err)
		}
	}

	extractor, err := s.factory.NewExtractor(ds.ConnectorType, config, credentials)
	if err != nil {
		return err
	}
	_ = extractor.Close()

	return s.repo.UpdateConfig(ctx, id, config, encrypted)
}

func (s *dataSourceService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("data source deleted", zap.String("data_source_id", id.String()))
	return nil
}

func (s *dataSourceService) TestConnection(ctx context.Context, id uuid.UUID) (bool, string, error) {
	ds, encrypted, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, "", err
	}
	credentials, err := s.encryptor.DecryptMap(encrypted)
	if err != nil {
		return false, "", fmt.Errorf("decrypt credentials: %w", err)
	}

	extractor, err := s.factory.NewExtractor(ds.ConnectorType, ds.Config, credentials)
	if err != nil {
		return false, "", err
	}
	defer extractor.Close()

	ok, reason := extractor.TestConnection(ctx)
	return ok, reason, nil
}

func (s *dataSourceService) ListConnectorTypes() []extractors.ExtractorInfo {
	return s.factory.ListTypes()
}
