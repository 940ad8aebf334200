package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gohan/vcf/models"
	"gohan/vcf/models/indexes"
	"gohan/vcf/models/ingest"
	es "gohan/vcf/repositories/elasticsearch"
	"gohan/vcf/services/vcf"

	"github.com/ahmetb/go-linq"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mux sync.Mutex

	// "file:<id>" and "bulk:<n>" in call order
	calls       []string
	files       []*indexes.SourceFile
	variants    []indexes.Variant
	archiveKeys map[string]string

	rejectId string
	bulkErr  error

	// returned along with a partial result
	partialErr error

	// holds CreateSourceFile until closed
	gate chan struct{}
}

func (f *fakeWriter) CreateSourceFile(_ context.Context, file *indexes.SourceFile) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mux.Lock()
	defer f.mux.Unlock()
	f.calls = append(f.calls, "file:"+file.Id)
	f.files = append(f.files, file)
	return nil
}

func (f *fakeWriter) SetArchiveKey(_ context.Context, fileId string, key string) error {
	f.mux.Lock()
	defer f.mux.Unlock()
	if f.archiveKeys == nil {
		f.archiveKeys = map[string]string{}
	}
	f.archiveKeys[fileId] = key
	return nil
}

func (f *fakeWriter) BulkIndexVariants(_ context.Context, variants []indexes.Variant) (*es.BulkResult, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("bulk:%d", len(variants)))
	if f.bulkErr != nil {
		return nil, f.bulkErr
	}

	result := &es.BulkResult{}
	for idx, v := range variants {
		if v.Id == f.rejectId {
			result.Failures = append(result.Failures, es.BulkItemFailure{Index: idx, Status: 400, Reason: "rejected"})
			continue
		}
		f.variants = append(f.variants, v)
		result.Indexed++
	}
	return result, f.partialErr
}

type fakeArchiver struct {
	err error
}

func (a *fakeArchiver) Archive(_ context.Context, fileId string, path string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	return fileId + "/" + filepath.Base(path), nil
}

const ingestionVcf = "##fileformat=VCFv4.2\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\tS2\n" +
	"22\t100\trs1\tA\tT\t50\tPASS\t.\tGT\t0|0\t0|1\n" +
	"22\t200\trs2\tG\tC\t.\tPASS\t.\tGT\t1|1\t0|0\n" +
	"22\t300\trs3\tG\tC\t10\tPASS\t.\tGT\t1|0\t1|1\n" +
	"\n" +
	"22\t400\trs4\tG\tC\t10\tPASS\t.\tGT\t1|0\t1|1\n" +
	"22\t500\trs5\tG\tC\t10\tPASS\t.\tGT\t0|0\t0|0\n"

func newTestIngestionService(store VariantWriter, bulkCap int) *IngestionService {
	cfg := &models.Config{}
	cfg.Api.BulkIndexingCap = bulkCap
	cfg.Api.FileProcessingConcurrencyLevel = 2
	cfg.Api.LineProcessingConcurrencyLevel = 3
	cfg.Api.ColumnProcessingConcurrencyLevel = 2
	return NewIngestionService(store, cfg, nil, nil)
}

func writeVcf(t *testing.T, name string, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessVcf(t *testing.T) {
	ctx := context.Background()

	t.Run("should flush full batches and the remainder", func(t *testing.T) {
		store := &fakeWriter{}
		iz := newTestIngestionService(store, 2)

		stats, err := iz.ProcessVcf(ctx, writeVcf(t, "a.vcf", ingestionVcf))
		require.NoError(t, err)

		assert.Equal(t, 5, stats.Rows)
		assert.Equal(t, 5, stats.Indexed)
		assert.Equal(t, 3, stats.Flushes)
		assert.Equal(t, 4, stats.SkippedGenotypes)
		assert.Zero(t, stats.ColumnErrors)

		// the source file exists before any variant
		require.Len(t, store.files, 1)
		assert.Equal(t, "file:"+store.files[0].Id, store.calls[0])
		assert.Equal(t, []string{"bulk:2", "bulk:2", "bulk:1"}, store.calls[1:])

		header, err := vcf.DecompressHeaderBlock(store.files[0].CompressedHeaderBlock)
		require.NoError(t, err)
		assert.Equal(t, "##fileformat=VCFv4.2\n", header)
		assert.Equal(t, "a.vcf", store.files[0].Filename)

		assert.True(t, linq.From(store.variants).AllT(func(v indexes.Variant) bool {
			return v.FileId == stats.FileId
		}))

		var rs5 indexes.Variant
		for _, v := range store.variants {
			if v.Id == "rs5" {
				rs5 = v
			}
		}
		assert.Equal(t, 500, rs5.Pos)
		assert.Empty(t, rs5.Samples)

		assert.Equal(t, uint64(5), iz.GetStats().NumIndexed)
		assert.Equal(t, uint64(1), iz.GetStats().NumFiles)
	})

	t.Run("should skip a file without a column header", func(t *testing.T) {
		store := &fakeWriter{}
		iz := newTestIngestionService(store, 2)

		_, err := iz.ProcessVcf(ctx, writeVcf(t, "bad.vcf", "##fileformat=VCFv4.2\n22\t100\trs1\tA\tT\n"))
		assert.ErrorIs(t, err, vcf.ErrMissingColumnHeader)
		assert.Empty(t, store.calls)
	})

	t.Run("should log rejected variants and carry on", func(t *testing.T) {
		store := &fakeWriter{rejectId: "rs3"}
		iz := newTestIngestionService(store, 10)

		stats, err := iz.ProcessVcf(ctx, writeVcf(t, "a.vcf", ingestionVcf))
		require.NoError(t, err)
		assert.Equal(t, 4, stats.Indexed)
		assert.Equal(t, 1, stats.BulkItemFailures)
		assert.Equal(t, uint64(1), iz.GetStats().NumFailed)
	})

	t.Run("should surface an unavailable store", func(t *testing.T) {
		store := &fakeWriter{bulkErr: es.ErrStoreUnavailable}
		iz := newTestIngestionService(store, 1)

		_, err := iz.ProcessVcf(ctx, writeVcf(t, "a.vcf", ingestionVcf))
		assert.ErrorIs(t, err, es.ErrStoreUnavailable)
	})

	t.Run("should account for a partly failed flush before stopping", func(t *testing.T) {
		store := &fakeWriter{rejectId: "rs2", partialErr: es.ErrStoreUnavailable}
		iz := newTestIngestionService(store, 10)

		stats, err := iz.ProcessVcf(ctx, writeVcf(t, "a.vcf", ingestionVcf))
		assert.ErrorIs(t, err, es.ErrStoreUnavailable)
		require.NotNil(t, stats)
		assert.Equal(t, 4, stats.Indexed)
		assert.Equal(t, 1, stats.BulkItemFailures)
		assert.Equal(t, uint64(1), iz.GetStats().NumFailed)
		assert.Zero(t, iz.GetStats().NumFiles)
	})

	t.Run("should archive the raw file", func(t *testing.T) {
		store := &fakeWriter{}
		iz := newTestIngestionService(store, 10)
		iz.Archiver = &fakeArchiver{}

		stats, err := iz.ProcessVcf(ctx, writeVcf(t, "a.vcf", ingestionVcf))
		require.NoError(t, err)
		assert.Equal(t, stats.FileId+"/a.vcf", store.archiveKeys[stats.FileId])
	})

	t.Run("should ingest even when archiving fails", func(t *testing.T) {
		store := &fakeWriter{}
		iz := newTestIngestionService(store, 10)
		iz.Archiver = &fakeArchiver{err: errors.New("bucket missing")}

		stats, err := iz.ProcessVcf(ctx, writeVcf(t, "a.vcf", ingestionVcf))
		require.NoError(t, err)
		assert.Equal(t, 5, stats.Indexed)
		assert.Empty(t, store.archiveKeys)
	})
}

func TestProcessFiles(t *testing.T) {
	store := &fakeWriter{}
	iz := newTestIngestionService(store, 100)

	paths := []string{
		writeVcf(t, "a.vcf", ingestionVcf),
		writeVcf(t, "bad.vcf", "no header\n"),
		writeVcf(t, "c.vcf", ingestionVcf),
	}
	results := iz.ProcessFiles(context.Background(), paths)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, vcf.ErrMissingColumnHeader)
	assert.NoError(t, results[2].Err)
	assert.NotEqual(t, results[0].Stats.FileId, results[2].Stats.FileId)

	assert.Len(t, store.files, 2)
	assert.Len(t, store.variants, 10)
}

func TestQueueFiles(t *testing.T) {
	t.Run("should track a request through to done", func(t *testing.T) {
		store := &fakeWriter{}
		iz := newTestIngestionService(store, 100)

		requests, err := iz.QueueFiles([]string{writeVcf(t, "a.vcf", ingestionVcf)})
		require.NoError(t, err)
		require.Len(t, requests, 1)
		assert.Equal(t, ingest.Queued, requests[0].State)

		assert.Eventually(t, func() bool {
			for _, r := range iz.GetRequests() {
				if r.Id == requests[0].Id && r.State == ingest.Done {
					return r.FileId != "" && strings.Contains(r.Message, "5 variants")
				}
			}
			return false
		}, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("should report a failed file", func(t *testing.T) {
		iz := newTestIngestionService(&fakeWriter{}, 100)

		requests, err := iz.QueueFiles([]string{writeVcf(t, "bad.vcf", "no header\n")})
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			for _, r := range iz.GetRequests() {
				if r.Id == requests[0].Id {
					return r.State == ingest.Error && strings.Contains(r.Message, "#CHROM")
				}
			}
			return false
		}, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("should reject a file that is already running", func(t *testing.T) {
		iz := newTestIngestionService(&fakeWriter{}, 100)
		id := uuid.New()
		iz.IngestRequestMap[id.String()] = &ingest.IngestRequest{Id: id, Filename: "a.vcf", State: ingest.Running}

		_, err := iz.QueueFiles([]string{filepath.Join(t.TempDir(), "a.vcf")})
		assert.ErrorIs(t, err, ErrAlreadyRunning)
	})

	t.Run("should reject a file named twice in one call", func(t *testing.T) {
		store := &fakeWriter{}
		iz := newTestIngestionService(store, 100)
		path := writeVcf(t, "a.vcf", ingestionVcf)

		requests, err := iz.QueueFiles([]string{path, path})
		assert.ErrorIs(t, err, ErrAlreadyRunning)
		assert.Nil(t, requests)
		assert.Empty(t, iz.GetRequests())
	})

	t.Run("should queue a file once across concurrent calls", func(t *testing.T) {
		store := &fakeWriter{gate: make(chan struct{})}
		iz := newTestIngestionService(store, 100)
		path := writeVcf(t, "a.vcf", ingestionVcf)

		var (
			wg       sync.WaitGroup
			accepted int32
			rejected int32
		)
		for n := 0; n < 8; n++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := iz.QueueFiles([]string{path}); err != nil {
					assert.ErrorIs(t, err, ErrAlreadyRunning)
					atomic.AddInt32(&rejected, 1)
					return
				}
				atomic.AddInt32(&accepted, 1)
			}()
		}
		wg.Wait()
		close(store.gate)

		assert.Equal(t, int32(1), accepted)
		assert.Equal(t, int32(7), rejected)
		assert.Eventually(t, func() bool {
			store.mux.Lock()
			defer store.mux.Unlock()
			return len(store.variants) == 5 && len(store.files) == 1
		}, 5*time.Second, 10*time.Millisecond)
	})
}
