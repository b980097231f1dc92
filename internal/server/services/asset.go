package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/server/blobstore"
	"github.com/dmitrijs2005/gophgallery/internal/server/config"
	"github.com/dmitrijs2005/gophgallery/internal/server/metrics"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/repomanager"
)

// maxParallelBlobWrites bounds the blob writes of one batch upload.
const maxParallelBlobWrites = 4

// Upload is one file of an ingestion request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AssetService coordinates the blob store and the metadata store. Blobs are
// always written before metadata and deleted before metadata, so a record
// never points at a blob that was never stored.
type AssetService struct {
	repomanager    repomanager.RepositoryManager
	blobs          blobstore.Store
	maxBatchFiles  int
	maxUploadBytes int64
	logger         logging.Logger
	metrics        *metrics.Collector
	now            func() time.Time
}

func NewAssetService(m repomanager.RepositoryManager, blobs blobstore.Store, cfg *config.Config, logger logging.Logger, mc *metrics.Collector) *AssetService {
	return &AssetService{
		repomanager:    m,
		blobs:          blobs,
		maxBatchFiles:  cfg.MaxBatchFiles,
		maxUploadBytes: cfg.MaxUploadBytes,
		logger:         logger.With("module", "assets"),
		metrics:        mc,
		now:            time.Now,
	}
}

// NormalizeCategory maps a blank category to common.DefaultCategory and
// lowercases anything else.
func NormalizeCategory(category string) string {
	if strings.TrimSpace(category) == "" {
		return common.DefaultCategory
	}
	return strings.ToLower(category)
}

func (s *AssetService) validate(f Upload) error {
	if len(f.Data) == 0 {
		return common.ErrNoFileProvided
	}
	if s.maxUploadBytes > 0 && int64(len(f.Data)) > s.maxUploadBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", common.ErrFileTooLarge, len(f.Data), s.maxUploadBytes)
	}
	if _, _, err := blobstore.NormalizeContentType(f.ContentType); err != nil {
		return err
	}
	return nil
}

func (s *AssetService) putBlob(ctx context.Context, f Upload) (blobstore.Blob, error) {
	blob, err := s.blobs.Put(ctx, f.Data, f.ContentType)
	s.metrics.RecordBlobOperation(string(s.blobs.Kind()), "put", err)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			return blobstore.Blob{}, err
		}
		return blobstore.Blob{}, fmt.Errorf("%w: %v", common.ErrBlobWriteFailed, err)
	}
	return blob, nil
}

// Ingest stores one file and its metadata record. When the metadata write
// fails the blob stays behind as an orphan and is only logged.
func (s *AssetService) Ingest(ctx context.Context, ownerID string, f Upload, category, description string) (*models.Asset, error) {
	a, err := s.ingest(ctx, ownerID, f, category, description)
	s.metrics.RecordAssetOperation("ingest", err, 1)
	return a, err
}

func (s *AssetService) ingest(ctx context.Context, ownerID string, f Upload, category, description string) (*models.Asset, error) {
	if ownerID == "" {
		return nil, common.ErrMissingOwner
	}
	if err := s.validate(f); err != nil {
		return nil, err
	}

	blob, err := s.putBlob(ctx, f)
	if err != nil {
		return nil, err
	}

	a := &models.Asset{
		OwnerID:       ownerID,
		BlobLocator:   blob.Locator,
		BlobDeleteKey: blob.DeleteKey,
		Category:      NormalizeCategory(category),
		Description:   description,
		CreatedAt:     s.now().UTC(),
	}

	if err := s.repomanager.Assets().Insert(ctx, a); err != nil {
		s.logger.Warn(ctx, "metadata write failed, blob left orphaned", "locator", blob.Locator, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrMetadataWriteFailed, err)
	}

	s.logger.Info(ctx, "asset stored", "asset_id", a.ID, "owner_id", ownerID)
	return a, nil
}

// IngestMany stores a batch sharing one category, description and group id.
// Every file is validated before the first blob write. Blobs are written
// concurrently, then all records are inserted at once.
func (s *AssetService) IngestMany(ctx context.Context, ownerID string, files []Upload, category, description string) ([]*models.Asset, error) {
	res, err := s.ingestMany(ctx, ownerID, files, category, description)
	s.metrics.RecordAssetOperation("ingest_many", err, max(len(files), 1))
	return res, err
}

func (s *AssetService) ingestMany(ctx context.Context, ownerID string, files []Upload, category, description string) ([]*models.Asset, error) {
	if ownerID == "" {
		return nil, common.ErrMissingOwner
	}
	if len(files) == 0 {
		return nil, common.ErrNoFilesProvided
	}
	if s.maxBatchFiles > 0 && len(files) > s.maxBatchFiles {
		return nil, fmt.Errorf("%w: %d files, limit %d", common.ErrTooManyFiles, len(files), s.maxBatchFiles)
	}
	for i, f := range files {
		if err := s.validate(f); err != nil {
			return nil, fmt.Errorf("file %d: %w", i, err)
		}
	}

	blobs := make([]blobstore.Blob, len(files))
	var g errgroup.Group
	g.SetLimit(maxParallelBlobWrites)
	for i, f := range files {
		g.Go(func() error {
			b, err := s.putBlob(ctx, f)
			if err != nil {
				return err
			}
			blobs[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, b := range blobs {
			if b.Locator != "" {
				s.logger.Warn(ctx, "batch aborted, blob left orphaned", "locator", b.Locator)
			}
		}
		return nil, err
	}

	groupID := uuid.NewString()
	cat := NormalizeCategory(category)
	now := s.now().UTC()

	batch := make([]*models.Asset, len(files))
	for i, b := range blobs {
		batch[i] = &models.Asset{
			OwnerID:       ownerID,
			BlobLocator:   b.Locator,
			BlobDeleteKey: b.DeleteKey,
			Category:      cat,
			Description:   description,
			GroupID:       groupID,
			CreatedAt:     now,
		}
	}

	if err := s.repomanager.Assets().InsertMany(ctx, batch); err != nil {
		s.logger.Warn(ctx, "metadata batch write failed, blobs left orphaned", "group_id", groupID, "count", len(batch), "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrMetadataWriteFailed, err)
	}

	s.logger.Info(ctx, "asset batch stored", "group_id", groupID, "owner_id", ownerID, "count", len(batch))
	return batch, nil
}

// Delete removes an asset owned by ownerID: first the blob, then the record.
// A remote blob that cannot be deleted keeps the record in place. A local
// blob that is already gone is not an error.
func (s *AssetService) Delete(ctx context.Context, ownerID, assetID string) error {
	err := s.delete(ctx, ownerID, assetID)
	s.metrics.RecordAssetOperation("delete", err, 1)
	return err
}

func (s *AssetService) delete(ctx context.Context, ownerID, assetID string) error {
	repo := s.repomanager.Assets()
	a, err := repo.FindByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error finding asset: %w", err)
	}

	if ownerID == "" || a.OwnerID != ownerID {
		return common.ErrorForbidden
	}

	err = s.blobs.Delete(ctx, a.BlobLocator, a.BlobDeleteKey)
	s.metrics.RecordBlobOperation(string(s.blobs.Kind()), "delete", err)
	if err != nil {
		local := s.blobs.Kind() == blobstore.KindLocal
		if !local || !errors.Is(err, common.ErrBlobNotFound) {
			s.logger.Error(ctx, "blob delete failed, record kept", "asset_id", a.ID, "locator", a.BlobLocator, "error", err)
			return fmt.Errorf("%w: %v", common.ErrBlobDeleteFailed, err)
		}
		s.logger.Debug(ctx, "local blob already gone", "asset_id", a.ID, "locator", a.BlobLocator)
	}

	if err := repo.DeleteByID(ctx, a.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error deleting asset: %w", err)
	}

	s.logger.Info(ctx, "asset deleted", "asset_id", a.ID, "owner_id", ownerID)
	return nil
}

// ListByOwner returns the assets of ownerID, oldest first. The result is
// never nil.
func (s *AssetService) ListByOwner(ctx context.Context, ownerID string) ([]*models.Asset, error) {
	if ownerID == "" {
		return nil, common.ErrMissingOwner
	}
	list, err := s.repomanager.Assets().FindAllByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing assets: %w", err)
	}
	if list == nil {
		list = []*models.Asset{}
	}
	return list, nil
}

// ListCategories returns the distinct categories in use, lowercased and
// deduplicated. Rows written before normalization may differ in case only.
func (s *AssetService) ListCategories(ctx context.Context) ([]string, error) {
	raw, err := s.repomanager.Assets().DistinctCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}

	seen := make(map[string]struct{}, len(raw))
	result := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.ToLower(c)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		result = append(result, c)
	}
	sort.Strings(result)
	return result, nil
}
