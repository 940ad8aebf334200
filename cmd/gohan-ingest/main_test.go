package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"gohan/vcf/models"
	ingestModels "gohan/vcf/models/ingest"
	"gohan/vcf/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlags(t *testing.T) {
	var (
		captured *models.Config
		args     []string
	)
	app := newApp(func(cfg *models.Config, paths []string, out io.Writer) error {
		captured = cfg
		args = paths
		return nil
	})

	t.Setenv("GOHAN_ES_USERNAME", "elastic")

	err := app.Run([]string{"gohan-ingest", "--es-url", "http://es:9200", "--bulk-cap", "500", "--line-concurrency", "3", "a.vcf", "dir"})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, []string{"a.vcf", "dir"}, args)
	assert.Equal(t, "http://es:9200", captured.Elasticsearch.Url)
	assert.Equal(t, "elastic", captured.Elasticsearch.Username)
	assert.Equal(t, "variants", captured.Elasticsearch.VariantsIndex)
	assert.Equal(t, 500, captured.BulkCapacity())
	assert.Equal(t, 3, captured.LineConcurrency())
	assert.Empty(t, captured.ObjectStore.Endpoint)
}

func TestPrintResults(t *testing.T) {
	var out bytes.Buffer
	failed := printResults(&out, []services.FileResult{
		{Path: "a.vcf", Stats: &ingestModels.FileStats{FileId: "f-1", Rows: 5, Indexed: 5, SkippedGenotypes: 4}},
		{Path: "bad.vcf", Err: errors.New("missing #CHROM")},
	})

	assert.Equal(t, 1, failed)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "FILE"))
	assert.Contains(t, lines[1], "f-1")
	assert.True(t, strings.HasSuffix(lines[1], "ok"))
	assert.Contains(t, lines[2], "missing #CHROM")
}
