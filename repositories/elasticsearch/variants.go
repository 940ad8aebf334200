package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	s "gohan/vcf/models/constants/sort"
	"gohan/vcf/models/indexes"
	"gohan/vcf/models/query"

	"github.com/Jeffail/gabs"
	"github.com/elastic/go-elasticsearch/v7/esutil"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const removeSampleScript = "if (ctx._source.samples != null) { ctx._source.samples.removeIf(s -> s.sampleId == params.sampleId) }"

type (
	BulkItemFailure struct {
		Index  int
		Status int
		Reason string
	}

	BulkResult struct {
		Indexed  uint64
		Failures []BulkItemFailure
	}

	Bucket struct {
		Key      interface{} `mapstructure:"key"`
		DocCount int         `mapstructure:"doc_count"`
	}

	compositeBucket struct {
		Key      map[string]interface{} `mapstructure:"key"`
		DocCount int                    `mapstructure:"doc_count"`
	}

	searchResponse struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source indexes.Variant `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
)

// BuildVariantsQuery translates a VariantQuery into a search body.
func BuildVariantsQuery(q query.VariantQuery) map[string]interface{} {
	query := map[string]interface{}{
		"query": filterClause(q),
		"size":  q.Size,
	}

	// exclude samples from result?
	excludesSlice := make([]string, 0)
	if !q.IncludeSamples {
		excludesSlice = append(excludesSlice, "samples")
	}
	query["_source"] = map[string]interface{}{
		"includes": [1]string{"*"}, // include every field except those that may be specified in the 'excludesSlice'
		"excludes": excludesSlice,
	}

	if q.SortByPosition != s.Undefined {
		query["sort"] = map[string]string{
			"pos": string(q.SortByPosition),
		}
	}

	return query
}

func filterClause(q query.VariantQuery) map[string]interface{} {
	mustMap := []map[string]interface{}{}

	if q.Chromosome != nil {
		mustMap = append(mustMap, map[string]interface{}{
			"term": map[string]interface{}{"chrom": *q.Chromosome},
		})
	}

	if q.VariantId != "" {
		mustMap = append(mustMap, map[string]interface{}{
			"term": map[string]interface{}{"id": q.VariantId},
		})
	}

	if q.SampleId != "" {
		mustMap = append(mustMap, map[string]interface{}{
			"term": map[string]interface{}{"samples.sampleId": q.SampleId},
		})
	}

	if q.HasBounds() {
		mustMap = append(mustMap, map[string]interface{}{
			"range": map[string]interface{}{
				"pos": map[string]interface{}{
					"gte": *q.LowerBound,
					"lte": *q.UpperBound,
				},
			},
		})
	}

	return map[string]interface{}{
		"bool": map[string]interface{}{
			"filter": []map[string]interface{}{{
				"bool": map[string]interface{}{
					"must": mustMap,
				}},
			},
		},
	}
}

func (r *Repository) SearchVariants(ctx context.Context, q query.VariantQuery) ([]indexes.Variant, error) {
	buf, err := r.encode(BuildVariantsQuery(q))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := r.Client.Search(
		r.Client.Search.WithContext(ctx),
		r.Client.Search.WithIndex(r.VariantsIndex),
		r.Client.Search.WithBody(buf),
		r.Client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: search variants: %v", ErrStoreUnavailable, err)
	}

	body, err := r.readResult(res, "search variants")
	if err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	variants := make([]indexes.Variant, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		variants = append(variants, hit.Source)
	}

	r.Logger.Debug("searched variants",
		zap.Int("hits", len(variants)),
		zap.Int("total", result.Hits.Total.Value),
		zap.Duration("took", time.Since(start)))

	return variants, nil
}

func (r *Repository) CountVariants(ctx context.Context, q query.VariantQuery) (int, error) {
	buf, err := r.encode(map[string]interface{}{"query": filterClause(q)})
	if err != nil {
		return 0, err
	}

	res, err := r.Client.Count(
		r.Client.Count.WithContext(ctx),
		r.Client.Count.WithIndex(r.VariantsIndex),
		r.Client.Count.WithBody(buf),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: count variants: %v", ErrStoreUnavailable, err)
	}

	body, err := r.readResult(res, "count variants")
	if err != nil {
		return 0, err
	}

	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	count, ok := parsed.Path("count").Data().(float64)
	if !ok {
		return 0, fmt.Errorf("decode count response: no count in %s", body)
	}
	return int(count), nil
}

// GetVariantsBucketsByKeyword returns the distinct values of a field
// with their variant counts, ordered by value. Buckets are paged
// through with a composite aggregation so none are cut off.
func (r *Repository) GetVariantsBucketsByKeyword(ctx context.Context, keyword string) ([]Bucket, error) {
	buckets := []Bucket{}
	var after interface{}
	for {
		composite := map[string]interface{}{
			"size": r.PageSize,
			"sources": []map[string]interface{}{{
				"key": map[string]interface{}{
					"terms": map[string]interface{}{
						"field": keyword,
						"order": "asc",
					},
				},
			}},
		}
		if after != nil {
			composite["after"] = after
		}

		parsed, err := r.search(ctx, r.VariantsIndex, map[string]interface{}{
			"size": 0,
			"aggs": map[string]interface{}{
				"items": map[string]interface{}{"composite": composite},
			},
		}, "get buckets by keyword "+keyword)
		if err != nil {
			return nil, err
		}

		var page []compositeBucket
		if raw := parsed.Path("aggregations.items.buckets").Data(); raw != nil {
			if err := mapstructure.Decode(raw, &page); err != nil {
				return nil, fmt.Errorf("decode buckets: %w", err)
			}
		}
		for _, b := range page {
			buckets = append(buckets, Bucket{Key: b.Key["key"], DocCount: b.DocCount})
		}

		after = parsed.Path("aggregations.items.after_key").Data()
		if len(page) < r.PageSize || after == nil {
			return buckets, nil
		}
	}
}

// BulkIndexVariants writes one batch. Items the store rejects are
// reported in the result. When a bulk request fails as a whole, every
// item it carried is reported as failed and ErrStoreUnavailable is
// returned, even if other requests of the batch went through.
func (r *Repository) BulkIndexVariants(ctx context.Context, variants []indexes.Variant) (*BulkResult, error) {
	result := &BulkResult{}
	if len(variants) == 0 {
		return result, nil
	}

	var (
		resultMux sync.Mutex
		flushErr  error

		// items the store answered for, either way
		acknowledged = make([]bool, len(variants))
	)

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:      r.VariantsIndex,
		Client:     r.Client,
		NumWorkers: r.BulkWorkers,
		OnError: func(ctx context.Context, err error) {
			resultMux.Lock()
			defer resultMux.Unlock()
			if flushErr == nil {
				flushErr = err
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bulk indexer: %w", err)
	}

	for i := range variants {
		index := i

		// Prepare the data payload: encode variant to JSON
		variantData, err := json.Marshal(&variants[i])
		if err != nil {
			resultMux.Lock()
			acknowledged[index] = true
			result.Failures = append(result.Failures, BulkItemFailure{Index: index, Reason: err.Error()})
			resultMux.Unlock()
			continue
		}

		// Add an item to the BulkIndexer
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action: "index",
			Body:   bytes.NewReader(variantData),

			OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
				resultMux.Lock()
				acknowledged[index] = true
				result.Indexed++
				resultMux.Unlock()
			},

			// OnFailure is called for each failed operation
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				failure := BulkItemFailure{Index: index, Status: res.Status}
				if err != nil {
					failure.Reason = err.Error()
				} else {
					failure.Reason = fmt.Sprintf("%s: %s", res.Error.Type, res.Error.Reason)
				}

				resultMux.Lock()
				acknowledged[index] = true
				result.Failures = append(result.Failures, failure)
				resultMux.Unlock()
			},
		})
		if err != nil {
			bi.Close(ctx)
			return nil, fmt.Errorf("%w: bulk add: %v", ErrStoreUnavailable, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return nil, fmt.Errorf("%w: bulk close: %v", ErrStoreUnavailable, err)
	}

	if flushErr == nil {
		return result, nil
	}

	// a failed request never reaches the per-item callbacks
	for index, ok := range acknowledged {
		if !ok {
			result.Failures = append(result.Failures, BulkItemFailure{Index: index, Reason: flushErr.Error()})
		}
	}
	sort.Slice(result.Failures, func(a, b int) bool {
		return result.Failures[a].Index < result.Failures[b].Index
	})
	return result, fmt.Errorf("%w: bulk flush: %v", ErrStoreUnavailable, flushErr)
}

// RemoveSampleFromVariants drops the sample from every variant that
// carries it and returns the number of variants updated. Variants
// left without samples are not deleted here.
func (r *Repository) RemoveSampleFromVariants(ctx context.Context, sampleId string) (int, error) {
	buf, err := r.encode(map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"samples.sampleId": sampleId},
		},
		"script": map[string]interface{}{
			"source": removeSampleScript,
			"lang":   "painless",
			"params": map[string]interface{}{"sampleId": sampleId},
		},
	})
	if err != nil {
		return 0, err
	}

	res, err := r.Client.UpdateByQuery(
		[]string{r.VariantsIndex},
		r.Client.UpdateByQuery.WithContext(ctx),
		r.Client.UpdateByQuery.WithBody(buf),
		r.Client.UpdateByQuery.WithConflicts("proceed"),
		r.Client.UpdateByQuery.WithRefresh(true),
		r.Client.UpdateByQuery.WithWaitForCompletion(true),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: remove sample %s: %v", ErrStoreUnavailable, sampleId, err)
	}

	body, err := r.readResult(res, "remove sample "+sampleId)
	if err != nil {
		return 0, err
	}
	return byQueryCount(body, "updated")
}

// DeleteVariantsWithoutSamples deletes every variant whose sample set
// is empty and returns how many were deleted.
func (r *Repository) DeleteVariantsWithoutSamples(ctx context.Context) (int, error) {
	return r.deleteVariantsByQuery(ctx, "delete variants without samples", map[string]interface{}{
		"bool": map[string]interface{}{
			"must_not": []map[string]interface{}{{
				"exists": map[string]interface{}{"field": "samples.sampleId"},
			}},
		},
	})
}

// DeleteVariantsByFileId deletes every variant ingested from the file.
func (r *Repository) DeleteVariantsByFileId(ctx context.Context, fileId string) (int, error) {
	return r.deleteVariantsByQuery(ctx, "delete variants of file "+fileId, map[string]interface{}{
		"term": map[string]interface{}{"fileId": fileId},
	})
}

func (r *Repository) deleteVariantsByQuery(ctx context.Context, action string, query map[string]interface{}) (int, error) {
	buf, err := r.encode(map[string]interface{}{"query": query})
	if err != nil {
		return 0, err
	}

	res, err := r.Client.DeleteByQuery(
		[]string{r.VariantsIndex},
		buf,
		r.Client.DeleteByQuery.WithContext(ctx),
		r.Client.DeleteByQuery.WithConflicts("proceed"),
		r.Client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, action, err)
	}

	body, err := r.readResult(res, action)
	if err != nil {
		return 0, err
	}
	return byQueryCount(body, "deleted")
}

func byQueryCount(body []byte, field string) (int, error) {
	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return 0, fmt.Errorf("decode by-query response: %w", err)
	}

	if failures, ok := parsed.Path("failures").Data().([]interface{}); ok && len(failures) > 0 {
		return 0, fmt.Errorf("%w: %d by-query failures: %v", ErrStoreUnavailable, len(failures), failures[0])
	}

	count, _ := parsed.Path(field).Data().(float64)
	return int(count), nil
}
