package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/server/blobstore"
	"github.com/dmitrijs2005/gophgallery/internal/server/metrics"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/repomanager"
)

// SweepReport summarizes one reconciliation pass.
type SweepReport struct {
	// Checked is the number of records inspected.
	Checked int `json:"checked"`
	// Removed is the number of dangling records deleted.
	Removed int `json:"removed"`
	// Unowned counts legacy records without an owner.
	Unowned int `json:"unowned"`
}

// SweepService deletes metadata records whose local blob no longer exists.
// It never touches the blob store, so running it twice is harmless.
type SweepService struct {
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
	logger      logging.Logger
	metrics     *metrics.Collector
}

func NewSweepService(m repomanager.RepositoryManager, blobs blobstore.Store, logger logging.Logger, mc *metrics.Collector) *SweepService {
	return &SweepService{
		repomanager: m,
		blobs:       blobs,
		logger:      logger.With("module", "sweep"),
		metrics:     mc,
	}
}

// Sweep checks every record, across all owners. Records whose blob cannot be
// checked or deleted are skipped and reported in the returned error; the
// pass still covers the rest.
func (s *SweepService) Sweep(ctx context.Context) (*SweepReport, error) {
	if s.blobs.Kind() != blobstore.KindLocal {
		return nil, common.ErrSweepUnsupported
	}

	repo := s.repomanager.Assets()
	all, err := repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing assets: %w", err)
	}

	report := &SweepReport{}
	var errs []error
	for _, a := range all {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report.Checked++
		if !a.Owned() {
			report.Unowned++
		}

		ok, err := s.blobs.Exists(ctx, a.BlobLocator)
		if err != nil {
			errs = append(errs, fmt.Errorf("asset %s: %w", a.ID, err))
			continue
		}
		if ok {
			continue
		}

		if err := repo.DeleteByID(ctx, a.ID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				s.logger.Warn(ctx, "dangling record matched no row on delete", "asset_id", a.ID, "locator", a.BlobLocator)
				continue
			}
			errs = append(errs, fmt.Errorf("asset %s: %w", a.ID, err))
			continue
		}
		report.Removed++
		s.logger.Info(ctx, "removed dangling record", "asset_id", a.ID, "locator", a.BlobLocator)
	}

	s.metrics.RecordSweepRemoved(report.Removed)
	s.logger.Info(ctx, "sweep finished", "checked", report.Checked, "removed", report.Removed, "unowned", report.Unowned)
	return report, errors.Join(errs...)
}
