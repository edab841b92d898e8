package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignitedata-ai/catalog-engine/pkg/apperrors"
	"github.com/ignitedata-ai/catalog-engine/pkg/extractors"
	"github.com/ignitedata-ai/catalog-engine/pkg/models"
	"github.com/ignitedata-ai/catalog-engine/pkg/repositories"
)

// fakeAssetRepo is an in-memory AssetRepository. InTx snapshots the store
// and restores it when fn fails, mimicking a rollback.
type fakeAssetRepo struct {
	mu     sync.Mutex
	assets map[string]*models.Asset                   // keyed by qualified name
	fields map[uuid.UUID]map[string]*models.AssetField // keyed by asset ID, field name

	failUpsertQN string // upserting this qualified name returns an error
}

func newFakeAssetRepo() *fakeAssetRepo {
	return &fakeAssetRepo{
		assets: make(map[string]*models.Asset),
		fields: make(map[uuid.UUID]map[string]*models.AssetField),
	}
}

var _ repositories.AssetRepository = (*fakeAssetRepo)(nil)

func typeIn(t models.AssetType, types []models.AssetType) bool {
	if len(types) == 0 {
		return true
	}
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func (r *fakeAssetRepo) ListActiveByDataSource(ctx context.Context, dataSourceID uuid.UUID, types []models.AssetType) ([]*models.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Asset
	for _, a := range r.assets {
		if a.DataSourceID == dataSourceID && a.IsActive && typeIn(a.AssetType, types) {
			copied := *a
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName < out[j].QualifiedName })
	return out, nil
}

func (r *fakeAssetRepo) ListFieldsByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.AssetField, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AssetField
	for _, f := range r.fields[assetID] {
		if f.IsActive {
			copied := *f
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrdinalPosition < out[j].OrdinalPosition })
	return out, nil
}

func (r *fakeAssetRepo) GetByQualifiedName(ctx context.Context, dataSourceID uuid.UUID, qualifiedName string) (*models.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[qualifiedName]
	if !ok || !a.IsActive || a.DataSourceID != dataSourceID {
		return nil, apperrors.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAssetRepo) UpsertAsset(ctx context.Context, asset *models.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if asset.QualifiedName == r.failUpsertQN && r.failUpsertQN != "" {
		return fmt.Errorf("injected upsert failure for %s", asset.QualifiedName)
	}
	now := time.Now()
	if existing, ok := r.assets[asset.QualifiedName]; ok {
		asset.ID = existing.ID
		asset.CreatedAt = existing.CreatedAt
	} else {
		asset.ID = uuid.New()
		asset.CreatedAt = now
	}
	asset.IsActive = true
	asset.LastSyncedAt = &now
	asset.UpdatedAt = now
	copied := *asset
	r.assets[asset.QualifiedName] = &copied
	return nil
}

func (r *fakeAssetRepo) UpsertField(ctx context.Context, field *models.AssetField) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byName, ok := r.fields[field.AssetID]
	if !ok {
		byName = make(map[string]*models.AssetField)
		r.fields[field.AssetID] = byName
	}
	if existing, ok := byName[field.Name]; ok {
		field.ID = existing.ID
	} else {
		field.ID = uuid.New()
	}
	field.IsActive = true
	copied := *field
	byName[field.Name] = &copied
	return nil
}

func (r *fakeAssetRepo) SoftDeleteRemovedAssets(ctx context.Context, dataSourceID uuid.UUID, types []models.AssetType, activeQualifiedNames []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keep := make(map[string]struct{}, len(activeQualifiedNames))
	for _, qn := range activeQualifiedNames {
		keep[qn] = struct{}{}
	}
	var n int64
	for qn, a := range r.assets {
		if a.DataSourceID != dataSourceID || !a.IsActive || !typeIn(a.AssetType, types) {
			continue
		}
		if _, ok := keep[qn]; !ok {
			a.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *fakeAssetRepo) SoftDeleteRemovedFields(ctx context.Context, assetID uuid.UUID, activeNames []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keep := make(map[string]struct{}, len(activeNames))
	for _, name := range activeNames {
		keep[name] = struct{}{}
	}
	var n int64
	for name, f := range r.fields[assetID] {
		if !f.IsActive {
			continue
		}
		if _, ok := keep[name]; !ok {
			f.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *fakeAssetRepo) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	assetSnap := make(map[string]*models.Asset, len(r.assets))
	for k, v := range r.assets {
		copied := *v
		assetSnap[k] = &copied
	}
	fieldSnap := make(map[uuid.UUID]map[string]*models.AssetField, len(r.fields))
	for id, byName := range r.fields {
		inner := make(map[string]*models.AssetField, len(byName))
		for k, v := range byName {
			copied := *v
			inner[k] = &copied
		}
		fieldSnap[id] = inner
	}
	r.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.assets = assetSnap
		r.fields = fieldSnap
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *fakeAssetRepo) activeQualifiedNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for qn, a := range r.assets {
		if a.IsActive {
			out = append(out, qn)
		}
	}
	sort.Strings(out)
	return out
}

// fakeRunRepo is an in-memory ConnectorRunRepository that records every
// status a run passes through.
type fakeRunRepo struct {
	mu      sync.Mutex
	runs    map[uuid.UUID]*models.ConnectorRun
	history map[uuid.UUID][]models.RunStatus

	failAdvanceTo models.RunStatus // advancing to this status returns an error
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{
		runs:    make(map[uuid.UUID]*models.ConnectorRun),
		history: make(map[uuid.UUID][]models.RunStatus),
	}
}

var _ repositories.ConnectorRunRepository = (*fakeRunRepo)(nil)

func (r *fakeRunRepo) Create(ctx context.Context, run *models.ConnectorRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.RunType == "" {
		run.RunType = models.RunTypeMetadata
	}
	run.Status = models.RunPending
	run.StartedAt = time.Now()
	copied := *run
	r.runs[run.ID] = &copied
	r.history[run.ID] = []models.RunStatus{models.RunPending}
	return nil
}

func (r *fakeRunRepo) GetByID(ctx context.Context, runID uuid.UUID) (*models.ConnectorRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *run
	return &copied, nil
}

func (r *fakeRunRepo) ListByDataSource(ctx context.Context, dataSourceID uuid.UUID, limit int) ([]*models.ConnectorRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ConnectorRun
	for _, run := range r.runs {
		if run.DataSourceID == dataSourceID {
			copied := *run
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRunRepo) Advance(ctx context.Context, runID uuid.UUID, status models.RunStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if run.Status.IsTerminal() {
		return apperrors.ErrRunTerminal
	}
	if r.failAdvanceTo != "" && status == r.failAdvanceTo {
		return fmt.Errorf("injected advance failure at %s", status)
	}
	run.Status = status
	r.history[runID] = append(r.history[runID], status)
	return nil
}

func (r *fakeRunRepo) Complete(ctx context.Context, runID uuid.UUID, status models.RunStatus, entityCount, errorCount int, errorMessage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if run.Status.IsTerminal() {
		return apperrors.ErrRunTerminal
	}
	now := time.Now()
	run.Status = status
	run.EntityCount = entityCount
	run.ErrorCount = errorCount
	run.ErrorMessage = errorMessage
	run.FinishedAt = &now
	r.history[runID] = append(r.history[runID], status)
	return nil
}

func (r *fakeRunRepo) statuses(runID uuid.UUID) []models.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.RunStatus(nil), r.history[runID]...)
}

// fakeDataSourceRepo serves a single data source.
type fakeDataSourceRepo struct {
	ds        *models.DataSource
	encrypted string
}

var _ repositories.DataSourceRepository = (*fakeDataSourceRepo)(nil)

func (r *fakeDataSourceRepo) Create(ctx context.Context, ds *models.DataSource, encryptedCredentials string) error {
	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}
	copied := *ds
	r.ds = &copied
	r.encrypted = encryptedCredentials
	return nil
}

func (r *fakeDataSourceRepo) GetByID(ctx context.Context, dataSourceID uuid.UUID) (*models.DataSource, string, error) {
	if r.ds == nil || r.ds.ID != dataSourceID {
		return nil, "", apperrors.ErrNotFound
	}
	copied := *r.ds
	return &copied, r.encrypted, nil
}

func (r *fakeDataSourceRepo) List(ctx context.Context) ([]*models.DataSource, error) {
	if r.ds == nil {
		return nil, nil
	}
	copied := *r.ds
	return []*models.DataSource{&copied}, nil
}

func (r *fakeDataSourceRepo) UpdateConfig(ctx context.Context, dataSourceID uuid.UUID, config map[string]any, encryptedCredentials string) error {
	if r.ds == nil || r.ds.ID != dataSourceID {
		return apperrors.ErrNotFound
	}
	r.ds.Config = config
	r.encrypted = encryptedCredentials
	return nil
}

func (r *fakeDataSourceRepo) Delete(ctx context.Context, dataSourceID uuid.UUID) error {
	if r.ds == nil || r.ds.ID != dataSourceID {
		return apperrors.ErrNotFound
	}
	r.ds = nil
	r.encrypted = ""
	return nil
}

// fakeExtractor returns scripted results.
type fakeExtractor struct {
	types         []models.AssetType
	connectOK     bool
	connectReason string
	result        *models.ExtractionResult
	extractErr    error

	consumed      bool
	extractCalled bool
	closed        bool
}

var _ extractors.MetadataExtractor = (*fakeExtractor)(nil)

func (e *fakeExtractor) SupportedAssetTypes() []models.AssetType {
	if e.types != nil {
		return e.types
	}
	return []models.AssetType{models.AssetTypeDatabase, models.AssetTypeSchema, models.AssetTypeTable, models.AssetTypeView}
}

func (e *fakeExtractor) TestConnection(ctx context.Context) (bool, string) {
	return e.connectOK, e.connectReason
}

func (e *fakeExtractor) ExtractMetadata(ctx context.Context) (*models.ExtractionResult, error) {
	if e.consumed {
		return nil, apperrors.ErrExtractorConsumed
	}
	e.consumed = true
	e.extractCalled = true
	if e.extractErr != nil {
		return nil, e.extractErr
	}
	e.result.ResolveStatus()
	return e.result, nil
}

func (e *fakeExtractor) Close() error {
	e.closed = true
	return nil
}

// fakeFactory hands out a prepared extractor regardless of type.
type fakeFactory struct {
	extractor *fakeExtractor
	err       error

	gotConfig map[string]any // config passed to the last NewExtractor call
}

var _ extractors.ExtractorFactory = (*fakeFactory)(nil)

func (f *fakeFactory) NewExtractor(connectorType string, config map[string]any, credentials map[string]any) (extractors.MetadataExtractor, error) {
	f.gotConfig = config
	if f.err != nil {
		return nil, f.err
	}
	return f.extractor, nil
}

func (f *fakeFactory) ListTypes() []extractors.ExtractorInfo {
	return []extractors.ExtractorInfo{{Type: "fake", DisplayName: "Fake"}}
}

// passthroughScoper satisfies TenantScoper without a database.
type passthroughScoper struct{}

func (passthroughScoper) WithTenantScope(ctx context.Context, tenantID uuid.UUID) (context.Context, func(), error) {
	return ctx, func() {}, nil
}
