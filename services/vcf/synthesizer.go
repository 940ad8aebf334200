package vcf

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gohan/vcf/models/constants"
	"gohan/vcf/models/constants/columns"
	"gohan/vcf/models/indexes"
)

var (
	ErrNoVariants         = errors.New("invalid vcf: no variants")
	ErrSourceFileNotFound = indexes.ErrSourceFileNotFound
)

// SourceFileGetter looks up the source file a variant came from.
// Implementations return ErrSourceFileNotFound for an unknown id.
type SourceFileGetter interface {
	GetSourceFile(ctx context.Context, fileId string) (*indexes.SourceFile, error)
}

// Synthesizer rebuilds a single-sample VCF from stored variants and
// the header block of the file they were ingested from.
type Synthesizer struct {
	Files SourceFileGetter
}

func NewSynthesizer(files SourceFileGetter) *Synthesizer {
	return &Synthesizer{Files: files}
}

// Synthesize writes the VCF of sampleId to w. Variants are written in
// the order given.
//
// Known asymmetry, kept for compatibility with existing downloads: the
// sample column is only declared when the first variant carries the
// sample, and a row only gets a genotype when its variant carries the
// sample. Reference genotypes are never written back as `0|0`.
func (s *Synthesizer) Synthesize(ctx context.Context, w io.Writer, sampleId string, fileId string, variants []indexes.Variant) error {
	if len(variants) == 0 {
		return ErrNoVariants
	}

	file, err := s.Files.GetSourceFile(ctx, fileId)
	if err != nil {
		return fmt.Errorf("get header block of file %s: %w", fileId, err)
	}
	if file == nil {
		return fmt.Errorf("get header block of file %s: %w", fileId, ErrSourceFileNotFound)
	}

	headerBlock, err := DecompressHeaderBlock(file.CompressedHeaderBlock)
	if err != nil {
		return fmt.Errorf("file %s: %w", fileId, err)
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(headerBlock)

	first := &variants[0]
	keys := columns.Order(first.FixedColumnKeys())
	bw.WriteString("#" + strings.Join(keys, "\t"))
	if first.HasSample(sampleId) {
		bw.WriteString("\t" + sampleId)
	}
	bw.WriteByte('\n')

	for i := range variants {
		v := &variants[i]
		for j, key := range keys {
			if j > 0 {
				bw.WriteByte('\t')
			}
			bw.WriteString(RenderColumn(v, constants.Column(key)))
		}
		if genotype, ok := v.Genotype(sampleId); ok {
			bw.WriteString("\t" + genotype)
		}
		bw.WriteByte('\n')
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write vcf: %w", err)
	}
	return nil
}

// RenderColumn formats a fixed column the way it appears in a VCF.
// Numeric columns holding no value come out as the '.' placeholder.
func RenderColumn(v *indexes.Variant, c constants.Column) string {
	if n, ok := v.IntColumn(c); ok {
		if n < 0 {
			return columns.Placeholder
		}
		return strconv.Itoa(n)
	}
	text, _ := v.StringColumn(c)
	return text
}
