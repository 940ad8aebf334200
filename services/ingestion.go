package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gohan/vcf/models"
	"gohan/vcf/models/indexes"
	"gohan/vcf/models/ingest"
	es "gohan/vcf/repositories/elasticsearch"
	"gohan/vcf/services/metrics"
	"gohan/vcf/services/vcf"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrAlreadyRunning = errors.New("file is already being ingested")

type (
	// VariantWriter is the write side of the document store.
	VariantWriter interface {
		CreateSourceFile(ctx context.Context, file *indexes.SourceFile) error
		SetArchiveKey(ctx context.Context, fileId string, key string) error
		BulkIndexVariants(ctx context.Context, variants []indexes.Variant) (*es.BulkResult, error)
	}

	// Archiver keeps a copy of a raw source file and returns its key.
	Archiver interface {
		Archive(ctx context.Context, fileId string, path string) (string, error)
	}

	IngestionService struct {
		Initialized         bool
		IngestRequestChan   chan *ingest.IngestRequest
		IngestRequestMap    map[string]*ingest.IngestRequest
		IngestRequestMapMux sync.RWMutex

		// bounds how many files are ingested at once, across all callers
		ConcurrentFileIngestionQueue chan bool

		BulkIndexingCapacity           int
		LineProcessingConcurrencyLevel int
		ColumnProcessingConcurrency    int

		Store    VariantWriter
		Archiver Archiver
		Metrics  *metrics.IngestionMetrics
		Logger   *zap.Logger

		stats ingestStats
	}

	FileResult struct {
		Path  string
		Stats *ingest.FileStats
		Err   error
	}

	ingestStats struct {
		added   uint64
		flushed uint64
		failed  uint64
		indexed uint64
		files   uint64
	}
)

func NewIngestionService(store VariantWriter, cfg *models.Config, logger *zap.Logger, m *metrics.IngestionMetrics) *IngestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New(nil)
	}

	iz := &IngestionService{
		Initialized:                    false,
		IngestRequestChan:              make(chan *ingest.IngestRequest),
		IngestRequestMap:               map[string]*ingest.IngestRequest{},
		ConcurrentFileIngestionQueue:   make(chan bool, cfg.FileConcurrency()),
		BulkIndexingCapacity:           cfg.BulkCapacity(),
		LineProcessingConcurrencyLevel: cfg.LineConcurrency(),
		ColumnProcessingConcurrency:    cfg.ColumnConcurrency(),
		Store:                          store,
		Metrics:                        m,
		Logger:                         logger,
	}

	iz.Init()

	return iz
}

func (i *IngestionService) Init() {
	// safeguard to prevent multiple initilizations
	if !i.Initialized {
		// spin up a go routine acting as a listener for ingest request updates
		go func() {
			for ingestionRequest := range i.IngestRequestChan {
				if ingestionRequest.State == ingest.Queued {
					i.Logger.Info("queueing a new variant ingestion request", zap.String("file", ingestionRequest.Filename))
				}

				ingestionRequest.UpdatedAt = time.Now().String()
				i.IngestRequestMapMux.Lock()
				i.IngestRequestMap[ingestionRequest.Id.String()] = ingestionRequest
				i.IngestRequestMapMux.Unlock()
			}
		}()

		i.Initialized = true
	}
}

// QueueFiles registers one request per file and ingests them in the
// background. Files with a request still queued or running, or named
// twice in paths, are rejected.
func (i *IngestionService) QueueFiles(paths []string) ([]*ingest.IngestRequest, error) {
	requests, err := i.register(paths)
	if err != nil {
		return nil, err
	}
	for _, r := range requests {
		i.publish(r)
	}

	go func() {
		var wg sync.WaitGroup
		for idx, p := range paths {
			wg.Add(1)
			go func(request ingest.IngestRequest, path string) {
				defer wg.Done()

				i.ConcurrentFileIngestionQueue <- true
				defer func() { <-i.ConcurrentFileIngestionQueue }()

				request.State = ingest.Running
				i.publish(&request)

				stats, err := i.ProcessVcf(context.Background(), path)
				if stats != nil {
					request.FileId = stats.FileId
				}
				if err != nil {
					request.State = ingest.Error
					request.Message = err.Error()
				} else {
					request.State = ingest.Done
					request.Message = fmt.Sprintf("ingested %d variants (%d rows, %d rejected)",
						stats.Indexed, stats.Rows, stats.BulkItemFailures)
				}
				i.publish(&request)
			}(*requests[idx], p)
		}
		wg.Wait()
	}()

	return requests, nil
}

// ProcessFiles ingests every file and waits for all of them. A failing
// file does not stop the others.
func (i *IngestionService) ProcessFiles(ctx context.Context, paths []string) []FileResult {
	results := make([]FileResult, len(paths))

	var g errgroup.Group
	for idx, p := range paths {
		idx, p := idx, p
		g.Go(func() error {
			i.ConcurrentFileIngestionQueue <- true
			defer func() { <-i.ConcurrentFileIngestionQueue }()

			stats, err := i.ProcessVcf(ctx, p)
			results[idx] = FileResult{Path: p, Stats: stats, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// ProcessVcf ingests one file: its header block becomes a source file,
// every data line a variant. Nothing is written for a file without a
// column header.
func (i *IngestionService) ProcessVcf(ctx context.Context, path string) (*ingest.FileStats, error) {
	filename := filepath.Base(path)
	logger := i.Logger.With(zap.String("file", filename))

	r, err := vcf.Open(path)
	if err != nil {
		i.Metrics.OnFile(metrics.StatusError)
		return nil, err
	}
	defer r.Close()

	scanner := vcf.NewLineScanner(r)
	block, err := vcf.ExtractHeaderBlock(scanner)
	if err != nil {
		logger.Warn("skipping file", zap.Error(err))
		i.Metrics.OnFile(metrics.StatusSkipped)
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	file, err := vcf.NewSourceFile(filename, block)
	if err != nil {
		i.Metrics.OnFile(metrics.StatusError)
		return nil, err
	}
	if err := i.Store.CreateSourceFile(ctx, file); err != nil {
		i.Metrics.OnFile(metrics.StatusError)
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	logger = logger.With(zap.String("fileId", file.Id))

	stats := &ingest.FileStats{Filename: filename, FileId: file.Id}

	if i.Archiver != nil {
		i.archive(ctx, logger, file.Id, path)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// parsed variants flow to a single writer that batches them
	queue := make(chan indexes.Variant, i.BulkIndexingCapacity)
	writerDone := make(chan error, 1)
	go func() {
		writerDone <- i.writeBatches(ctx, logger, queue, stats, cancel)
	}()

	var (
		rows             int64
		skippedGenotypes int64
		columnErrors     int64
	)
	parser := vcf.NewRowParser(block.Columns, file.Id, i.ColumnProcessingConcurrency)

	var lines errgroup.Group
	lines.SetLimit(i.LineProcessingConcurrencyLevel)

	lineNumber := block.Line
	for ctx.Err() == nil && scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		n := lineNumber
		lines.Go(func() error {
			row := parser.Parse(n, line)
			for _, colErr := range row.Errors {
				logger.Warn("column not stored", zap.Error(colErr))
			}

			atomic.AddInt64(&rows, 1)
			atomic.AddInt64(&skippedGenotypes, int64(row.SkippedGenotypes))
			atomic.AddInt64(&columnErrors, int64(len(row.Errors)))
			atomic.AddUint64(&i.stats.added, 1)
			i.Metrics.OnRow(row.SkippedGenotypes, len(row.Errors))

			select {
			case queue <- row.Variant:
			case <-ctx.Done():
			}
			return nil
		})
	}
	_ = lines.Wait()
	close(queue)

	writeErr := <-writerDone

	stats.Rows = int(rows)
	stats.SkippedGenotypes = int(skippedGenotypes)
	stats.ColumnErrors = int(columnErrors)

	if err := scanner.Err(); err != nil {
		i.Metrics.OnFile(metrics.StatusError)
		return stats, fmt.Errorf("%s: read line %d: %w", filename, lineNumber+1, err)
	}
	if writeErr != nil {
		i.Metrics.OnFile(metrics.StatusError)
		return stats, fmt.Errorf("%s: %w", filename, writeErr)
	}

	atomic.AddUint64(&i.stats.files, 1)
	i.Metrics.OnFile(metrics.StatusDone)
	logger.Info("ingested file",
		zap.Int("rows", stats.Rows),
		zap.Int("indexed", stats.Indexed),
		zap.Int("skippedGenotypes", stats.SkippedGenotypes),
		zap.Int("bulkItemFailures", stats.BulkItemFailures))

	return stats, nil
}

// writeBatches drains the queue, flushing every BulkIndexingCapacity
// variants and once more when the queue closes. A failed flush stops
// the file.
func (i *IngestionService) writeBatches(ctx context.Context, logger *zap.Logger, queue <-chan indexes.Variant, stats *ingest.FileStats, stop context.CancelFunc) error {
	var (
		batch    = make([]indexes.Variant, 0, i.BulkIndexingCapacity)
		firstErr error
	)

	flush := func() {
		if len(batch) == 0 || firstErr != nil {
			batch = batch[:0]
			return
		}

		start := time.Now()
		result, err := i.Store.BulkIndexVariants(ctx, batch)
		if result != nil {
			for _, failure := range result.Failures {
				v := batch[failure.Index]
				logger.Warn("variant not indexed",
					zap.Int("chrom", v.Chrom),
					zap.Int("pos", v.Pos),
					zap.String("id", v.Id),
					zap.Int("status", failure.Status),
					zap.String("reason", failure.Reason))
			}

			stats.Flushes++
			stats.Indexed += int(result.Indexed)
			stats.BulkItemFailures += len(result.Failures)
			atomic.AddUint64(&i.stats.flushed, uint64(len(batch)))
			atomic.AddUint64(&i.stats.indexed, result.Indexed)
			atomic.AddUint64(&i.stats.failed, uint64(len(result.Failures)))
			i.Metrics.OnFlush(time.Since(start), len(result.Failures))
		}

		if err != nil {
			firstErr = err
			logger.Error("bulk write failed", zap.Int("batch", len(batch)), zap.Error(err))
			stop()
		}

		batch = make([]indexes.Variant, 0, i.BulkIndexingCapacity)
	}

	for v := range queue {
		batch = append(batch, v)
		if len(batch) >= i.BulkIndexingCapacity {
			flush()
		}
	}
	flush()

	return firstErr
}

func (i *IngestionService) archive(ctx context.Context, logger *zap.Logger, fileId string, path string) {
	key, err := i.Archiver.Archive(ctx, fileId, path)
	if err != nil {
		logger.Warn("failed to archive source file", zap.Error(err))
		return
	}
	if err := i.Store.SetArchiveKey(ctx, fileId, key); err != nil {
		logger.Warn("failed to record archive key", zap.String("key", key), zap.Error(err))
	}
}

// register checks and records the queued requests under a single lock
// so concurrent callers cannot queue the same file twice.
func (i *IngestionService) register(paths []string) ([]*ingest.IngestRequest, error) {
	i.IngestRequestMapMux.Lock()
	defer i.IngestRequestMapMux.Unlock()

	active := map[string]bool{}
	for _, r := range i.IngestRequestMap {
		if r.State == ingest.Queued || r.State == ingest.Running {
			active[r.Filename] = true
		}
	}

	for _, p := range paths {
		filename := filepath.Base(p)
		if active[filename] {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, filename)
		}
		active[filename] = true
	}

	now := time.Now().String()
	requests := make([]*ingest.IngestRequest, len(paths))
	for idx, p := range paths {
		requests[idx] = &ingest.IngestRequest{
			Id:        uuid.New(),
			Filename:  filepath.Base(p),
			State:     ingest.Queued,
			CreatedAt: now,
			UpdatedAt: now,
		}
		copied := *requests[idx]
		i.IngestRequestMap[copied.Id.String()] = &copied
	}
	return requests, nil
}

// publish hands a state change to the listener.
func (i *IngestionService) publish(request *ingest.IngestRequest) {
	copied := *request
	i.IngestRequestChan <- &copied
}

func (i *IngestionService) GetRequests() []ingest.IngestRequest {
	i.IngestRequestMapMux.RLock()
	defer i.IngestRequestMapMux.RUnlock()

	requests := make([]ingest.IngestRequest, 0, len(i.IngestRequestMap))
	for _, r := range i.IngestRequestMap {
		requests = append(requests, *r)
	}
	return requests
}

func (i *IngestionService) GetStats() ingest.IngestStatsDTO {
	return ingest.IngestStatsDTO{
		NumAdded:   atomic.LoadUint64(&i.stats.added),
		NumFlushed: atomic.LoadUint64(&i.stats.flushed),
		NumFailed:  atomic.LoadUint64(&i.stats.failed),
		NumIndexed: atomic.LoadUint64(&i.stats.indexed),
		NumFiles:   atomic.LoadUint64(&i.stats.files),
	}
}
