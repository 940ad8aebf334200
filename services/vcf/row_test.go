package vcf

import (
	"strings"
	"testing"

	"gohan/vcf/models/constants/columns"
	"gohan/vcf/models/indexes"

	"github.com/ahmetb/go-linq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testColumns = ColumnKeys("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\tS2")

func TestRowParser(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		parser := NewRowParser(testColumns, "file-1", concurrency)

		t.Run("should build a sparse variant", func(t *testing.T) {
			row := parser.Parse(5, "22\t100\trs1\tA\tT\t50\tPASS\t.\tGT\t0|0\t0|1")
			require.Empty(t, row.Errors)

			v := row.Variant
			assert.Equal(t, 22, v.Chrom)
			assert.Equal(t, 100, v.Pos)
			assert.Equal(t, "rs1", v.Id)
			assert.Equal(t, "A", v.Ref)
			assert.Equal(t, "T", v.Alt)
			assert.Equal(t, 50, v.Qual)
			assert.Equal(t, "PASS", v.Filter)
			assert.Equal(t, ".", v.Info)
			assert.Equal(t, "GT", v.Format)
			assert.Equal(t, "file-1", v.FileId)
			assert.Equal(t, []indexes.Sample{{SampleId: "S2", Variation: "0|1"}}, v.Samples)
			assert.Equal(t, 1, row.SkippedGenotypes)
		})

		t.Run("should store non-numeric numbers as no value", func(t *testing.T) {
			row := parser.Parse(6, "X\t.\trs2\tG\tC\t.\tPASS\tDP=3\tGT\t1|1\t1|0")
			require.Empty(t, row.Errors)

			assert.Equal(t, columns.NoValue, row.Variant.Chrom)
			assert.Equal(t, columns.NoValue, row.Variant.Pos)
			assert.Equal(t, columns.NoValue, row.Variant.Qual)
			assert.Len(t, row.Variant.Samples, 2)
		})

		t.Run("should only skip the exact raw reference genotype", func(t *testing.T) {
			row := parser.Parse(7, "22\t300\trs3\tA\tT\t50\tPASS\t.\tGT\t 0|0\t0/0")
			require.Empty(t, row.Errors)

			assert.Equal(t, 0, row.SkippedGenotypes)
			// trimmed on storage, but not skipped
			assert.Equal(t, []indexes.Sample{
				{SampleId: "S1", Variation: "0|0"},
				{SampleId: "S2", Variation: "0/0"},
			}, row.Variant.Samples)
		})

		t.Run("should trim values", func(t *testing.T) {
			row := parser.Parse(8, " 22 \t 100\trs1 \tA\tT\t50\tPASS\t.\tGT\t1|1 \t0|0")
			require.Empty(t, row.Errors)

			assert.Equal(t, 22, row.Variant.Chrom)
			assert.Equal(t, 100, row.Variant.Pos)
			assert.Equal(t, "rs1", row.Variant.Id)
			assert.Equal(t, "1|1", row.Variant.Samples[0].Variation)
		})

		t.Run("should fail only the field beyond the header", func(t *testing.T) {
			row := parser.Parse(9, "22\t100\trs1\tA\tT\t50\tPASS\t.\tGT\t0|1\t1|1\textra")
			require.Len(t, row.Errors, 1)

			assert.Equal(t, 9, row.Errors[0].Line)
			assert.Equal(t, 11, row.Errors[0].Column)
			assert.Contains(t, row.Errors[0].Error(), "line 9, column 12")

			assert.Equal(t, 100, row.Variant.Pos)
			assert.Len(t, row.Variant.Samples, 2)
		})

		t.Run("should report the columns a short line does not reach", func(t *testing.T) {
			row := parser.Parse(10, "22\t100\trs1\tA\tT\t50\tPASS")
			require.Len(t, row.Errors, 4)

			var headers []string
			linq.From(row.Errors).
				SelectT(func(e *ColumnError) string { return e.Header }).
				ToSlice(&headers)
			assert.Equal(t, []string{"INFO", "FORMAT", "S1", "S2"}, headers)

			assert.Equal(t, "PASS", row.Variant.Filter)
			assert.Equal(t, columns.Placeholder, row.Variant.Info)
			assert.Equal(t, columns.Placeholder, row.Variant.Format)
			assert.Empty(t, row.Variant.Samples)
		})
	}
}

func TestRowParserKeepsFieldOrder(t *testing.T) {
	header := []string{"CHROM", "POS"}
	line := []string{"1", "10"}
	for i := 0; i < 200; i++ {
		header = append(header, "S"+strings.Repeat("x", i))
		line = append(line, "1|0")
	}

	row := NewRowParser(header, "f", 8).Parse(1, strings.Join(line, "\t"))
	require.Empty(t, row.Errors)
	require.Len(t, row.Variant.Samples, 200)

	for i, s := range row.Variant.Samples {
		assert.Equal(t, header[i+2], s.SampleId)
	}
}

// every sample left out of a variant held the raw reference genotype
func TestSparsity(t *testing.T) {
	lines := []string{
		"1\t1\t.\tA\tC\t1\tPASS\t.\tGT\t0|0\t0|0",
		"1\t2\t.\tA\tC\t1\tPASS\t.\tGT\t0|1\t0|0",
		"1\t3\t.\tA\tC\t1\tPASS\t.\tGT\t./.\t1|1",
	}
	parser := NewRowParser(testColumns, "f", 2)
	samples := testColumns[len(columns.Canonical):]

	for _, line := range lines {
		fields := strings.Split(line, "\t")
		row := parser.Parse(1, line)

		for i, sampleId := range samples {
			raw := fields[len(columns.Canonical)+i]
			_, stored := row.Variant.Genotype(sampleId)
			assert.Equal(t, raw != ReferenceGenotype, stored, "%s in %q", sampleId, line)
		}
	}
}
