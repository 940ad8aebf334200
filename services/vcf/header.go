package vcf

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gohan/vcf/models/constants/columns"
	"gohan/vcf/models/indexes"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

const columnHeaderMarker = "#CHROM"

var ErrMissingColumnHeader = errors.New("malformed vcf: no " + columnHeaderMarker + " column header line")

// HeaderBlock is everything preceding the first data line.
type HeaderBlock struct {
	// meta-header lines, each newline terminated, verbatim
	Text string

	// the `#CHROM ...` line split on tabs, one key per field
	Columns []string

	// 1-based line number of the `#CHROM` line
	Line int
}

// ExtractHeaderBlock consumes lines up to and including the column
// header line. Lines starting with '#' are collected; anything else
// ahead of the column header is ignored.
func ExtractHeaderBlock(scanner *bufio.Scanner) (*HeaderBlock, error) {
	var (
		text       strings.Builder
		lineNumber int
	)

	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()

		if strings.Contains(line, columnHeaderMarker) {
			return &HeaderBlock{
				Text:    text.String(),
				Columns: ColumnKeys(line),
				Line:    lineNumber,
			}, nil
		}

		if strings.HasPrefix(line, "#") {
			text.WriteString(line)
			text.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read header block: %w", err)
	}

	return nil, ErrMissingColumnHeader
}

// ColumnKeys splits a column header line into column keys.
func ColumnKeys(line string) []string {
	fields := strings.Split(line, "\t")
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = columns.KeyFromHeader(f)
	}
	return keys
}

// NewSourceFile allocates a file id for the block and compresses its text.
func NewSourceFile(filename string, block *HeaderBlock) (*indexes.SourceFile, error) {
	compressed, err := CompressHeaderBlock(block.Text)
	if err != nil {
		return nil, err
	}

	return &indexes.SourceFile{
		Id:                    uuid.New().String(),
		Filename:              filename,
		CompressedHeaderBlock: compressed,
		CreatedTime:           time.Now().UTC(),
	}, nil
}

// CompressHeaderBlock gzips text and encodes it as base64.
func CompressHeaderBlock(text string) (string, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(text)); err != nil {
		return "", fmt.Errorf("compress header block: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress header block: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func DecompressHeaderBlock(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode header block: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decompress header block: %w", err)
	}
	defer zr.Close()

	text, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("decompress header block: %w", err)
	}
	return string(text), nil
}
