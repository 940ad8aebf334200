package vcf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/biogo/hts/bgzf"
	"github.com/klauspost/compress/gzip"
)

// lines with thousands of samples easily exceed bufio's 64KiB default
const maxLineSize = 64 * 1024 * 1024

var (
	gzipMagic = []byte{0x1f, 0x8b}
	bgzfMagic = []byte{'B', 'C'}
)

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens a plain, gzip or BGZF compressed VCF. The format is
// sniffed from the content rather than the file extension.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &multiCloser{Reader: r, closers: []io.Closer{r, f}}, nil
}

// NewReader wraps r with the matching decompressor, if any. Closing
// the returned reader does not close r.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)

	// gzip member header: magic(2) CM FLG MTIME(4) XFL OS XLEN(2) SI1 SI2
	head, err := br.Peek(14)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read vcf header: %w", err)
	}

	if !bytes.HasPrefix(head, gzipMagic) {
		return io.NopCloser(br), nil
	}

	if len(head) == 14 && head[3]&0x04 != 0 && bytes.Equal(head[12:14], bgzfMagic) {
		bg, err := bgzf.NewReader(br, 0)
		if err != nil {
			return nil, fmt.Errorf("create bgzf reader: %w", err)
		}
		return bg, nil
	}

	gz, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	return gz, nil
}

func NewLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}

func IsVcfFile(name string) bool {
	return strings.HasSuffix(name, ".vcf") || strings.HasSuffix(name, ".vcf.gz")
}

// FindFiles expands directories into the VCF files found under them,
// in lexical order. Other paths are kept as given.
func FindFiles(paths ...string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("find vcf files: %w", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsVcfFile(d.Name()) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("find vcf files under %s: %w", p, err)
		}
	}
	return files, nil
}
