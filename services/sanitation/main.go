package sanitation

import (
	"context"
	"fmt"
	"time"

	"gohan/vcf/models"
	esRepo "gohan/vcf/repositories/elasticsearch"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

type (
	// Store is what the cleanup job needs from the document store.
	Store interface {
		GetSourceFileIds(ctx context.Context) ([]string, error)
		GetVariantsBucketsByKeyword(ctx context.Context, keyword string) ([]esRepo.Bucket, error)
		DeleteVariantsByFileId(ctx context.Context, fileId string) (int, error)
		DeleteVariantsWithoutSamples(ctx context.Context) (int, error)
	}

	SanitationService struct {
		Initialized bool
		Store       Store
		Config      *models.Config
		Logger      *zap.Logger

		scheduler *gocron.Scheduler
	}

	Report struct {
		OrphanedFileIds  []string
		DeletedByFile    int
		DeletedNoSamples int
	}
)

func NewSanitationService(store Store, cfg *models.Config, logger *zap.Logger) *SanitationService {
	if logger == nil {
		logger = zap.NewNop()
	}

	ss := &SanitationService{
		Initialized: false,
		Store:       store,
		Config:      cfg,
		Logger:      logger,
	}

	return ss
}

// Init schedules the daily cleanup, in UTC, at Sanitation.RunAt.
func (ss *SanitationService) Init() error {
	if ss.Initialized {
		return nil
	}

	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(1).Days().At(ss.Config.Sanitation.RunAt).Do(func() {
		ss.Logger.Info("running variant documents cleanup")
		if _, err := ss.Run(context.Background()); err != nil {
			ss.Logger.Error("variant documents cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sanitation at %s: %w", ss.Config.Sanitation.RunAt, err)
	}

	s.StartAsync()

	ss.scheduler = s
	ss.Initialized = true
	ss.Logger.Info("sanitation service initialized", zap.String("runAt", ss.Config.Sanitation.RunAt))
	return nil
}

func (ss *SanitationService) Stop() {
	if ss.scheduler != nil {
		ss.scheduler.Stop()
	}
}

// Run deletes variants whose source file no longer exists, then
// variants left without samples by an interrupted sample removal.
func (ss *SanitationService) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	fileIds, err := ss.Store.GetSourceFileIds(ctx)
	if err != nil {
		return nil, fmt.Errorf("get source files: %w", err)
	}

	buckets, err := ss.Store.GetVariantsBucketsByKeyword(ctx, "fileId")
	if err != nil {
		return nil, fmt.Errorf("get variant file ids: %w", err)
	}
	variantFileIds := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		variantFileIds = append(variantFileIds, fmt.Sprint(bucket.Key))
	}

	// obtain set-difference between variant file IDs and file IDs
	report.OrphanedFileIds = setDifference(fileIds, variantFileIds)
	for _, fileId := range report.OrphanedFileIds {
		deleted, err := ss.Store.DeleteVariantsByFileId(ctx, fileId)
		if err != nil {
			return report, fmt.Errorf("delete variants of file %s: %w", fileId, err)
		}
		ss.Logger.Info("deleted variants of missing file", zap.String("fileId", fileId), zap.Int("deleted", deleted))
		report.DeletedByFile += deleted
	}

	report.DeletedNoSamples, err = ss.Store.DeleteVariantsWithoutSamples(ctx)
	if err != nil {
		return report, fmt.Errorf("delete variants without samples: %w", err)
	}

	ss.Logger.Info("variant documents cleanup done",
		zap.Int("deletedByFile", report.DeletedByFile),
		zap.Int("deletedWithoutSamples", report.DeletedNoSamples))
	return report, nil
}

// setDifference returns the items of b missing from a.
func setDifference(a, b []string) (c []string) {
	m := make(map[string]bool)

	for _, item := range a {
		m[item] = true
	}

	for _, item := range b {
		if _, ok := m[item]; !ok {
			c = append(c, item)
		}
	}
	return
}
