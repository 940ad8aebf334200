package sanitation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gohan/vcf/models"
	esRepo "gohan/vcf/repositories/elasticsearch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mux sync.Mutex

	fileIds        []string
	variantFileIds map[string]int
	withoutSamples int
	deletedFiles   []string

	deleteErr error
}

func (f *fakeStore) GetSourceFileIds(_ context.Context) ([]string, error) {
	return f.fileIds, nil
}

func (f *fakeStore) GetVariantsBucketsByKeyword(_ context.Context, keyword string) ([]esRepo.Bucket, error) {
	var buckets []esRepo.Bucket
	for id, count := range f.variantFileIds {
		buckets = append(buckets, esRepo.Bucket{Key: id, DocCount: count})
	}
	return buckets, nil
}

func (f *fakeStore) DeleteVariantsByFileId(_ context.Context, fileId string) (int, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deletedFiles = append(f.deletedFiles, fileId)
	return f.variantFileIds[fileId], nil
}

func (f *fakeStore) DeleteVariantsWithoutSamples(_ context.Context) (int, error) {
	return f.withoutSamples, nil
}

func newTestConfig() *models.Config {
	cfg := &models.Config{}
	cfg.Sanitation.RunAt = "04:00:00"
	return cfg
}

func TestRun(t *testing.T) {
	t.Run("should delete variants of missing files and sample-less variants", func(t *testing.T) {
		store := &fakeStore{
			fileIds:        []string{"file-1", "file-2"},
			variantFileIds: map[string]int{"file-1": 10, "file-3": 4},
			withoutSamples: 2,
		}
		ss := NewSanitationService(store, newTestConfig(), nil)

		report, err := ss.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"file-3"}, report.OrphanedFileIds)
		assert.Equal(t, []string{"file-3"}, store.deletedFiles)
		assert.Equal(t, 4, report.DeletedByFile)
		assert.Equal(t, 2, report.DeletedNoSamples)
	})

	t.Run("should stop on a failed delete", func(t *testing.T) {
		store := &fakeStore{
			variantFileIds: map[string]int{"file-3": 4},
			deleteErr:      errors.New("down"),
		}
		ss := NewSanitationService(store, newTestConfig(), nil)

		_, err := ss.Run(context.Background())
		assert.Error(t, err)
	})
}

func TestInit(t *testing.T) {
	ss := NewSanitationService(&fakeStore{}, newTestConfig(), nil)
	require.NoError(t, ss.Init())
	defer ss.Stop()
	assert.True(t, ss.Initialized)

	bad := newTestConfig()
	bad.Sanitation.RunAt = "25:99"
	assert.Error(t, NewSanitationService(&fakeStore{}, bad, nil).Init())
}

func TestSetDifference(t *testing.T) {
	assert.Equal(t, []string{"c"}, setDifference([]string{"a", "b"}, []string{"a", "c"}))
	assert.Nil(t, setDifference([]string{"a"}, []string{"a"}))
}
