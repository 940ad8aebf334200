package vcf

import (
	"fmt"
	"strconv"
	"strings"

	"gohan/vcf/models/constants"
	"gohan/vcf/models/constants/columns"
	"gohan/vcf/models/indexes"

	"golang.org/x/sync/errgroup"
)

// ReferenceGenotype is never stored; a sample missing from a variant
// had this genotype.
const ReferenceGenotype = "0|0"

// ColumnError reports a field that could not be stored. The rest of
// the line is unaffected.
type ColumnError struct {
	Line    int
	Column  int
	Header  string
	Message string
}

func (e *ColumnError) Error() string {
	if e.Header == "" {
		return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column+1, e.Message)
	}
	return fmt.Sprintf("line %d, column %d (%s): %s", e.Line, e.Column+1, e.Header, e.Message)
}

// ParseError reports a line-level problem.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Row is the outcome of parsing one data line.
type Row struct {
	Variant indexes.Variant

	// fields dropped because they held the reference genotype
	SkippedGenotypes int

	Errors []*ColumnError
}

// RowParser turns data lines into variants using the column keys of
// the file's `#CHROM` line. It is safe for concurrent use.
type RowParser struct {
	Columns []string
	FileId  string

	// how many fields of a single line are converted at once
	Concurrency int
}

type cell struct {
	skipped  bool
	column   constants.Column
	number   int
	text     string
	sampleId string
	err      *ColumnError
}

func NewRowParser(keys []string, fileId string, concurrency int) *RowParser {
	return &RowParser{Columns: keys, FileId: fileId, Concurrency: concurrency}
}

func (p *RowParser) Parse(lineNumber int, line string) *Row {
	fields := strings.Split(line, "\t")

	// each field lands in its own slot; merged in field order below
	cells := make([]cell, len(fields))
	if p.Concurrency > 1 && len(fields) > 1 {
		var g errgroup.Group
		g.SetLimit(p.Concurrency)
		for i := range fields {
			i := i
			g.Go(func() error {
				cells[i] = p.convert(lineNumber, i, fields[i])
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range fields {
			cells[i] = p.convert(lineNumber, i, fields[i])
		}
	}

	row := &Row{Variant: emptyVariant(p.FileId)}
	for _, c := range cells {
		switch {
		case c.err != nil:
			row.Errors = append(row.Errors, c.err)
		case c.skipped:
			row.SkippedGenotypes++
		case c.sampleId != "":
			row.Variant.Samples = append(row.Variant.Samples, indexes.Sample{SampleId: c.sampleId, Variation: c.text})
		default:
			setColumn(&row.Variant, c)
		}
	}

	// a short line leaves the remaining columns without a field
	for i := len(fields); i < len(p.Columns); i++ {
		row.Errors = append(row.Errors, &ColumnError{
			Line:    lineNumber,
			Column:  i,
			Header:  p.Columns[i],
			Message: "no field for this column",
		})
	}

	return row
}

func (p *RowParser) convert(lineNumber int, index int, raw string) cell {
	if index >= len(p.Columns) {
		return cell{err: &ColumnError{
			Line:    lineNumber,
			Column:  index,
			Message: fmt.Sprintf("field beyond the %d columns of the column header", len(p.Columns)),
		}}
	}

	if raw == ReferenceGenotype {
		return cell{skipped: true}
	}

	key := p.Columns[index]
	value := strings.TrimSpace(raw)

	if key == "" {
		return cell{err: &ColumnError{Line: lineNumber, Column: index, Message: "column header is empty"}}
	}

	if !columns.IsFixed(key) {
		return cell{sampleId: key, text: value}
	}

	column := constants.Column(key)
	if columns.IsNumeric(column) {
		return cell{column: column, number: parseNumber(value)}
	}
	return cell{column: column, text: value}
}

// parseNumber maps anything that is not an integer to columns.NoValue.
func parseNumber(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return columns.NoValue
	}
	return n
}

func emptyVariant(fileId string) indexes.Variant {
	return indexes.Variant{
		Chrom:  columns.NoValue,
		Pos:    columns.NoValue,
		Id:     columns.Placeholder,
		Ref:    columns.Placeholder,
		Alt:    columns.Placeholder,
		Qual:   columns.NoValue,
		Filter: columns.Placeholder,
		Info:   columns.Placeholder,
		Format: columns.Placeholder,
		FileId: fileId,
	}
}

func setColumn(v *indexes.Variant, c cell) {
	switch c.column {
	case columns.Chrom:
		v.Chrom = c.number
	case columns.Pos:
		v.Pos = c.number
	case columns.Qual:
		v.Qual = c.number
	case columns.Id:
		v.Id = c.text
	case columns.Ref:
		v.Ref = c.text
	case columns.Alt:
		v.Alt = c.text
	case columns.Filter:
		v.Filter = c.text
	case columns.Info:
		v.Info = c.text
	case columns.Format:
		v.Format = c.text
	}
}
