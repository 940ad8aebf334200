package vcf

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"gohan/vcf/models/constants/columns"
	"gohan/vcf/models/indexes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryFiles map[string]*indexes.SourceFile

func (m memoryFiles) GetSourceFile(_ context.Context, fileId string) (*indexes.SourceFile, error) {
	f, ok := m[fileId]
	if !ok {
		return nil, ErrSourceFileNotFound
	}
	return f, nil
}

const testHeaderBlock = "##fileformat=VCFv4.2\n##source=unit-test\n"

func newTestSynthesizer(t *testing.T) *Synthesizer {
	compressed, err := CompressHeaderBlock(testHeaderBlock)
	require.NoError(t, err)
	return NewSynthesizer(memoryFiles{
		"file-1": {Id: "file-1", Filename: "test.vcf", CompressedHeaderBlock: compressed},
	})
}

func synthesize(t *testing.T, s *Synthesizer, sampleId string, variants []indexes.Variant) []string {
	var out bytes.Buffer
	require.NoError(t, s.Synthesize(context.Background(), &out, sampleId, "file-1", variants))

	text := out.String()
	require.True(t, strings.HasPrefix(text, testHeaderBlock))
	require.True(t, strings.HasSuffix(text, "\n"))
	return strings.Split(strings.TrimSuffix(strings.TrimPrefix(text, testHeaderBlock), "\n"), "\n")
}

func TestSynthesize(t *testing.T) {
	s := newTestSynthesizer(t)
	parser := NewRowParser(testColumns, "file-1", 2)
	variant := parser.Parse(5, "22\t100\trs1\tA\tT\t50\tPASS\t.\tGT\t0|0\t0|1").Variant

	t.Run("should write the sample column for a sample the first variant carries", func(t *testing.T) {
		lines := synthesize(t, s, "S2", []indexes.Variant{variant})
		require.Len(t, lines, 2)

		assert.Equal(t, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS2", lines[0])
		assert.Equal(t, "22\t100\trs1\tA\tT\t50\tPASS\t.\tGT\t0|1", lines[1])
	})

	t.Run("should leave out the sample column for a reference sample", func(t *testing.T) {
		lines := synthesize(t, s, "S1", []indexes.Variant{variant})
		require.Len(t, lines, 2)

		assert.Equal(t, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT", lines[0])
		assert.Equal(t, "22\t100\trs1\tA\tT\t50\tPASS\t.\tGT", lines[1])
	})

	t.Run("should decide the sample column from the first variant only", func(t *testing.T) {
		second := parser.Parse(6, "22\t200\trs2\tA\tT\t50\tPASS\t.\tGT\t1|1\t0|0").Variant

		lines := synthesize(t, s, "S1", []indexes.Variant{variant, second})
		require.Len(t, lines, 3)
		assert.False(t, strings.HasSuffix(lines[0], "S1"))
		assert.Equal(t, "22\t100\trs1\tA\tT\t50\tPASS\t.\tGT", lines[1])
		assert.Equal(t, "22\t200\trs2\tA\tT\t50\tPASS\t.\tGT\t1|1", lines[2])
	})

	t.Run("should render no value as a placeholder", func(t *testing.T) {
		v := parser.Parse(7, ".\t.\trs3\tA\tT\t.\tPASS\t.\tGT\t1|0\t0|0").Variant
		require.Equal(t, columns.NoValue, v.Pos)

		lines := synthesize(t, s, "S1", []indexes.Variant{v})
		assert.Equal(t, ".\t.\trs3\tA\tT\t.\tPASS\t.\tGT\t1|0", lines[1])
	})

	t.Run("should keep the caller's row order", func(t *testing.T) {
		a := indexes.Variant{Chrom: 1, Pos: 30, Samples: []indexes.Sample{{SampleId: "S1", Variation: "1|1"}}}
		b := indexes.Variant{Chrom: 1, Pos: 10, Samples: []indexes.Sample{{SampleId: "S1", Variation: "0|1"}}}

		lines := synthesize(t, s, "S1", []indexes.Variant{a, b})
		assert.True(t, strings.HasPrefix(lines[1], "1\t30\t"))
		assert.True(t, strings.HasPrefix(lines[2], "1\t10\t"))
	})

	t.Run("should fail without variants", func(t *testing.T) {
		var out bytes.Buffer
		err := s.Synthesize(context.Background(), &out, "S1", "file-1", nil)
		assert.ErrorIs(t, err, ErrNoVariants)
		assert.Zero(t, out.Len())
	})

	t.Run("should fail on an unknown file", func(t *testing.T) {
		var out bytes.Buffer
		err := s.Synthesize(context.Background(), &out, "S2", "missing", []indexes.Variant{variant})
		assert.ErrorIs(t, err, ErrSourceFileNotFound)
		assert.Zero(t, out.Len())
	})
}

// genotypes survive parsing and synthesis unchanged
func TestRoundTrip(t *testing.T) {
	s := newTestSynthesizer(t)
	parser := NewRowParser(testColumns, "file-1", 3)

	lines := []string{
		"22\t100\trs1\tA\tT\t50\tPASS\t.\tGT\t0|1\t1|1",
		"22\t101\trs2\tA\tG,C\t.\tq10\tDP=14;AF=0.5\tGT:DP\t1|2:7\t./.:0",
		"22\t102\t.\tAT\tA\t99\tPASS\tEND=105\tGT\t0/1\t1/0",
	}

	var variants []indexes.Variant
	for i, line := range lines {
		row := parser.Parse(i+1, line)
		require.Empty(t, row.Errors)
		variants = append(variants, row.Variant)
	}

	for sampleIndex, sampleId := range []string{"S1", "S2"} {
		out := synthesize(t, s, sampleId, variants)
		require.Len(t, out, len(lines)+1)
		assert.Equal(t, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\t"+sampleId, out[0])

		for i, line := range lines {
			fields := strings.Split(line, "\t")
			expected := append(append([]string{}, fields[:len(columns.Canonical)]...), fields[len(columns.Canonical)+sampleIndex])
			assert.Equal(t, strings.Join(expected, "\t"), out[i+1])
		}
	}
}

func TestRenderColumn(t *testing.T) {
	v := &indexes.Variant{Chrom: 22, Pos: columns.NoValue, Qual: 0, Id: "rs1"}

	assert.Equal(t, "22", RenderColumn(v, columns.Chrom))
	assert.Equal(t, ".", RenderColumn(v, columns.Pos))
	assert.Equal(t, "0", RenderColumn(v, columns.Qual))
	assert.Equal(t, "rs1", RenderColumn(v, columns.Id))
	assert.Equal(t, "", RenderColumn(v, "UNKNOWN"))
}
