package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ignitedata-ai/catalog-engine/pkg/config"
	"github.com/ignitedata-ai/catalog-engine/pkg/crypto"
	"github.com/ignitedata-ai/catalog-engine/pkg/extractors"
	"github.com/ignitedata-ai/catalog-engine/pkg/logging"
	"github.com/ignitedata-ai/catalog-engine/pkg/models"
	"github.com/ignitedata-ai/catalog-engine/pkg/repositories"
)

// TenantScoper establishes a tenant-scoped database session on the context.
// Satisfied by database.TenantScopeProvider.
type TenantScoper interface {
	WithTenantScope(ctx context.Context, tenantID uuid.UUID) (context.Context, func(), error)
}

// SyncService orchestrates metadata sync runs: it drives a connector run
// through its lifecycle and hands the extracted metadata to the reconciler.
type SyncService interface {
	// RunMetadataSync performs one metadata sync for a data source and
	// returns the run in its terminal state. Pass uuid.Nil as runID to create
	// a new run, or the ID of an existing pending run to adopt it.
	//
	// Source-side failures (unreachable host, bad credentials) are recorded
	// on the run, which is returned with a nil error. A non-nil error means
	// the sync could not be attempted at all: unknown data source, a run
	// already in flight, or an unusable run ID.
	RunMetadataSync(ctx context.Context, dataSourceID, tenantID, runID uuid.UUID) (*models.ConnectorRun, error)
}

type syncService struct {
	dataSources repositories.DataSourceRepository
	runs        repositories.ConnectorRunRepository
	reconciler  ReconcilerService
	factory     extractors.ExtractorFactory
	encryptor   *crypto.CredentialEncryptor
	gate        *RunGate
	scopes      TenantScoper
	cfg         config.SyncConfig
	logger      *zap.Logger
}

// NewSyncService creates a new SyncService.
func NewSyncService(
	dataSources repositories.DataSourceRepository,
	runs repositories.ConnectorRunRepository,
	reconciler ReconcilerService,
	factory extractors.ExtractorFactory,
	encryptor *crypto.CredentialEncryptor,
	gate *RunGate,
	scopes TenantScoper,
	cfg config.SyncConfig,
	logger *zap.Logger,
) SyncService {
	return &syncService{
		dataSources: dataSources,
		runs:        runs,
		reconciler:  reconciler,
		factory:     factory,
		encryptor:   encryptor,
		gate:        gate,
		scopes:      scopes,
		cfg:         cfg,
		logger:      logger,
	}
}

func (s *syncService) RunMetadataSync(ctx context.Context, dataSourceID, tenantID, runID uuid.UUID) (*models.ConnectorRun, error) {
	ctx, cleanup, err := s.scopes.WithTenantScope(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("acquire tenant scope: %w", err)
	}
	defer cleanup()

	ds, encryptedCredentials, err := s.dataSources.GetByID(ctx, dataSourceID)
	if err != nil {
		return nil, fmt.Errorf("load data source: %w", err)
	}

	run, err := s.obtainRun(ctx, dataSourceID, tenantID, runID)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(
		zap.String("data_source_id", dataSourceID.String()),
		zap.String("run_id", run.ID.String()),
		zap.String("connector_type", ds.ConnectorType))

	release, err := s.gate.Acquire(dataSourceID)
	if err != nil {
		s.failRun(ctx, run, 0, 0, "a sync run is already in progress for this data source", logger)
		return run, err
	}
	defer release()

	started := time.Now()

	credentials, err := s.encryptor.DecryptMap(encryptedCredentials)
	if err != nil {
		s.failRun(ctx, run, 0, 0, "stored credentials could not be decrypted", logger)
		return run, nil
	}

	extractor, err := s.factory.NewExtractor(ds.ConnectorType, s.extractorConfig(ds.Config), credentials)
	if err != nil {
		s.failRun(ctx, run, 0, 0, logging.SanitizeError(err), logger)
		return run, nil
	}
	defer extractor.Close()

	// connecting
	if err := s.advance(ctx, run, models.RunConnecting); err != nil {
		s.failRun(ctx, run, 0, 0, "run could not be advanced: "+logging.SanitizeError(err), logger)
		return run, err
	}
	connCtx, cancelConn := context.WithTimeout(ctx, s.cfg.ConnectTimeout())
	ok, reason := extractor.TestConnection(connCtx)
	cancelConn()
	if !ok {
		logger.Warn("connection test failed", zap.String("reason", reason))
		s.failRun(ctx, run, 0, 1, "connection test failed: "+reason, logger)
		return run, nil
	}

	// extracting
	if err := s.advance(ctx, run, models.RunExtracting); err != nil {
		s.failRun(ctx, run, 0, 0, "run could not be advanced: "+logging.SanitizeError(err), logger)
		return run, err
	}
	extractCtx, cancelExtract := context.WithTimeout(ctx, s.cfg.ExtractTimeout())
	result, err := extractor.ExtractMetadata(extractCtx)
	cancelExtract()
	if err != nil {
		s.failRun(ctx, run, 0, 1, logging.SanitizeError(err), logger)
		return run, nil
	}

	entityCount := result.EntityCount()
	errorCount := len(result.Errors)

	if result.Status == models.ExtractionFailed {
		logger.Warn("extraction produced no entities",
			zap.Int("error_count", errorCount))
		s.failRun(ctx, run, entityCount, errorCount, extractionErrorSummary(result), logger)
		return run, nil
	}

	// persisting
	if err := s.advance(ctx, run, models.RunPersisting); err != nil {
		s.failRun(ctx, run, entityCount, errorCount, "run could not be advanced: "+logging.SanitizeError(err), logger)
		return run, err
	}
	summary, err := s.reconciler.Persist(ctx, dataSourceID, tenantID, result, extractor.SupportedAssetTypes())
	if err != nil {
		logger.Error("persistence failed", zap.String("error", logging.SanitizeError(err)))
		s.failRun(ctx, run, entityCount, errorCount, logging.SanitizeError(err), logger)
		return run, nil
	}

	status := models.RunSucceeded
	var message *string
	if result.Status == models.ExtractionPartial {
		status = models.RunPartial
		msg := extractionErrorSummary(result)
		message = &msg
	}
	if err := s.runs.Complete(ctx, run.ID, status, entityCount, errorCount, message); err != nil {
		return run, fmt.Errorf("complete run: %w", err)
	}
	run.Status = status
	run.EntityCount = entityCount
	run.ErrorCount = errorCount
	run.ErrorMessage = message

	logger.Info("metadata sync finished",
		zap.String("status", string(status)),
		zap.Int("entity_count", entityCount),
		zap.Int("error_count", errorCount),
		zap.Int("assets_deactivated", summary.AssetsDeactivated),
		zap.Duration("duration", time.Since(started)))

	return run, nil
}

// extractorConfig copies the stored connector config and fills in the
// service-level query timeout when the data source does not set its own.
func (s *syncService) extractorConfig(cfg map[string]any) map[string]any {
	if _, ok := cfg["query_timeout"]; ok {
		return cfg
	}
	merged := make(map[string]any, len(cfg)+1)
	for k, v := range cfg {
		merged[k] = v
	}
	merged["query_timeout"] = s.cfg.QueryTimeoutSeconds
	return merged
}

// obtainRun creates a fresh pending run, or adopts a pre-created one when
// runID is set.
func (s *syncService) obtainRun(ctx context.Context, dataSourceID, tenantID, runID uuid.UUID) (*models.ConnectorRun, error) {
	if runID != uuid.Nil {
		run, err := s.runs.GetByID(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("load run: %w", err)
		}
		if run.Status != models.RunPending {
			return nil, fmt.Errorf("run %s is %s, expected %s", runID, run.Status, models.RunPending)
		}
		if run.DataSourceID != dataSourceID {
			return nil, fmt.Errorf("run %s belongs to a different data source", runID)
		}
		return run, nil
	}

	run := &models.ConnectorRun{
		TenantID:     tenantID,
		DataSourceID: dataSourceID,
		RunType:      models.RunTypeMetadata,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

func (s *syncService) advance(ctx context.Context, run *models.ConnectorRun, status models.RunStatus) error {
	if err := s.runs.Advance(ctx, run.ID, status); err != nil {
		return fmt.Errorf("advance run to %s: %w", status, err)
	}
	run.Status = status
	return nil
}

// failRun records a terminal failure on the run. Errors updating the row are
// logged but not propagated so the original failure stays visible.
func (s *syncService) failRun(ctx context.Context, run *models.ConnectorRun, entityCount, errorCount int, message string, logger *zap.Logger) {
	if err := s.runs.Complete(ctx, run.ID, models.RunFailed, entityCount, errorCount, &message); err != nil {
		logger.Error("failed to mark run as failed", zap.Error(err))
		return
	}
	run.Status = models.RunFailed
	run.EntityCount = entityCount
	run.ErrorCount = errorCount
	run.ErrorMessage = &message
}

func extractionErrorSummary(result *models.ExtractionResult) string {
	n := len(result.Errors)
	if n == 0 {
		return ""
	}
	first := result.Errors[0]
	if n == 1 {
		return fmt.Sprintf("%s %s: %s", first.EntityType, first.QualifiedName, first.Message)
	}
	return fmt.Sprintf("%d extraction errors; first: %s %s: %s", n, first.EntityType, first.QualifiedName, first.Message)
}
