package variantsService

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	s "gohan/vcf/models/constants/sort"
	"gohan/vcf/models/indexes"
	"gohan/vcf/models/query"
	esRepo "gohan/vcf/repositories/elasticsearch"
	"gohan/vcf/services/metrics"
	"gohan/vcf/services/vcf"

	"go.uber.org/zap"
)

var ErrMissingSampleId = errors.New("a sample id is required")

type (
	// VariantStore is the read and maintenance side of the document store.
	VariantStore interface {
		SearchVariants(ctx context.Context, q query.VariantQuery) ([]indexes.Variant, error)
		CountVariants(ctx context.Context, q query.VariantQuery) (int, error)
		GetVariantsBucketsByKeyword(ctx context.Context, keyword string) ([]esRepo.Bucket, error)
		GetSourceFile(ctx context.Context, fileId string) (*indexes.SourceFile, error)
		RemoveSampleFromVariants(ctx context.Context, sampleId string) (int, error)
		DeleteVariantsWithoutSamples(ctx context.Context) (int, error)
	}

	VariantService struct {
		Store       VariantStore
		Synthesizer *vcf.Synthesizer
		Metrics     *metrics.IngestionMetrics
		Logger      *zap.Logger
	}
)

func NewVariantService(store VariantStore, logger *zap.Logger, m *metrics.IngestionMetrics) *VariantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New(nil)
	}

	vs := &VariantService{
		Store:       store,
		Synthesizer: vcf.NewSynthesizer(store),
		Metrics:     m,
		Logger:      logger,
	}

	return vs
}

func (vs *VariantService) GetVariants(ctx context.Context, q query.VariantQuery) ([]indexes.Variant, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return vs.Store.SearchVariants(ctx, q)
}

func (vs *VariantService) CountVariants(ctx context.Context, q query.VariantQuery) (int, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	return vs.Store.CountVariants(ctx, q)
}

// SynthesizeBySampleId writes the VCF of q.SampleId built from the
// variants matching q, in ascending position order. The header block
// is taken from the file of the first variant.
func (vs *VariantService) SynthesizeBySampleId(ctx context.Context, w io.Writer, q query.VariantQuery) error {
	if q.SampleId == "" {
		return ErrMissingSampleId
	}

	// Force ascending sort order
	q.SortByPosition = s.Ascending
	q.IncludeSamples = true

	variants, err := vs.GetVariants(ctx, q)
	if err != nil {
		return err
	}
	if len(variants) == 0 {
		return fmt.Errorf("sample %s: %w", q.SampleId, vcf.ErrNoVariants)
	}

	fileId := variants[0].FileId
	vs.Logger.Info("synthesizing vcf",
		zap.String("sampleId", q.SampleId),
		zap.String("fileId", fileId),
		zap.Int("variants", len(variants)))

	return vs.Synthesizer.Synthesize(ctx, w, q.SampleId, fileId, variants)
}

// RemoveSample takes the sample out of every variant, then deletes
// the variants left without any sample. The two steps are not atomic;
// running DeleteVariantsWithoutSamples again finishes an interrupted
// removal.
func (vs *VariantService) RemoveSample(ctx context.Context, sampleId string) (updated int, deleted int, err error) {
	if sampleId == "" {
		return 0, 0, ErrMissingSampleId
	}

	updated, err = vs.Store.RemoveSampleFromVariants(ctx, sampleId)
	if err != nil {
		return 0, 0, fmt.Errorf("remove sample %s: %w", sampleId, err)
	}

	deleted, err = vs.DeleteVariantsWithoutSamples(ctx)
	if err != nil {
		return updated, 0, fmt.Errorf("remove sample %s: %w", sampleId, err)
	}

	vs.Metrics.OnSampleRemoval(updated, deleted)
	vs.Logger.Info("removed sample",
		zap.String("sampleId", sampleId),
		zap.Int("updated", updated),
		zap.Int("deleted", deleted))

	return updated, deleted, nil
}

func (vs *VariantService) DeleteVariantsWithoutSamples(ctx context.Context) (int, error) {
	return vs.Store.DeleteVariantsWithoutSamples(ctx)
}

func (vs *VariantService) GetVariantsOverview(ctx context.Context) map[string]interface{} {
	resultsMap := map[string]interface{}{}
	resultsMux := sync.RWMutex{}

	var wg sync.WaitGroup
	callGetBucketsByKeyword := func(key string, keyword string, _wg *sync.WaitGroup) {
		defer _wg.Done()

		buckets, bucketsError := vs.Store.GetVariantsBucketsByKeyword(ctx, keyword)
		if bucketsError != nil {
			vs.Logger.Error("failed to get buckets", zap.String("keyword", keyword), zap.Error(bucketsError))

			resultsMux.Lock()
			defer resultsMux.Unlock()

			resultsMap[key] = map[string]interface{}{
				"error": "Something went wrong. Please contact the administrator!",
			}
			return
		}

		individualKeyMap := map[string]interface{}{}
		for _, bucket := range buckets {
			// ensure strings and numbers are expressed as strings
			individualKeyMap[fmt.Sprint(bucket.Key)] = bucket.DocCount
		}

		resultsMux.Lock()
		resultsMap[key] = individualKeyMap
		resultsMux.Unlock()
	}

	for key, keyword := range map[string]string{
		"chromosomes": "chrom",
		"variantIDs":  "id",
		"sampleIDs":   "samples.sampleId",
		"fileIDs":     "fileId",
	} {
		wg.Add(1)
		go callGetBucketsByKeyword(key, keyword, &wg)
	}

	wg.Wait()

	return resultsMap
}
