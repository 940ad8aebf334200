package indexes

import (
	"errors"
	"gohan/vcf/models/constants"
	"gohan/vcf/models/constants/columns"
	"time"
)

var ErrSourceFileNotFound = errors.New("source file not found")

// Variant is one VCF data line. Samples only lists the samples whose
// genotype was not the reference-homozygous `0|0`; any sample missing
// from it is implicitly `0|0` at this position.
type Variant struct {
	Chrom  int    `json:"chrom"`
	Pos    int    `json:"pos"`
	Id     string `json:"id"`
	Ref    string `json:"ref"`
	Alt    string `json:"alt"`
	Qual   int    `json:"qual"`
	Filter string `json:"filter"`
	Info   string `json:"info"`
	Format string `json:"format"`

	Samples []Sample `json:"samples,omitempty"`
	FileId  string   `json:"fileId"`
}

type Sample struct {
	SampleId  string `json:"sampleId"`
	Variation string `json:"variation"`
}

// SourceFile holds what a VCF needs to be rebuilt that the variants
// themselves don't carry: its meta-header lines.
type SourceFile struct {
	Id       string `json:"id"`
	Filename string `json:"filename"`

	// base64 of the gzip-compressed meta-header block
	CompressedHeaderBlock string `json:"compressedHeaderBlock"`

	ArchiveKey  string    `json:"archiveKey,omitempty"`
	CreatedTime time.Time `json:"createdTime"`
}

// FixedColumnKeys lists the fixed columns carried by the variant.
func (v *Variant) FixedColumnKeys() []string {
	keys := make([]string, 0, len(columns.Canonical))
	for _, c := range columns.Canonical {
		keys = append(keys, string(c))
	}
	return keys
}

// IntColumn returns the value of a numeric fixed column.
func (v *Variant) IntColumn(c constants.Column) (int, bool) {
	switch c {
	case columns.Chrom:
		return v.Chrom, true
	case columns.Pos:
		return v.Pos, true
	case columns.Qual:
		return v.Qual, true
	}
	return 0, false
}

// StringColumn returns the value of a textual fixed column.
func (v *Variant) StringColumn(c constants.Column) (string, bool) {
	switch c {
	case columns.Id:
		return v.Id, true
	case columns.Ref:
		return v.Ref, true
	case columns.Alt:
		return v.Alt, true
	case columns.Filter:
		return v.Filter, true
	case columns.Info:
		return v.Info, true
	case columns.Format:
		return v.Format, true
	}
	return "", false
}

// Genotype looks up the stored genotype of a sample.
func (v *Variant) Genotype(sampleId string) (string, bool) {
	for _, s := range v.Samples {
		if s.SampleId == sampleId {
			return s.Variation, true
		}
	}
	return "", false
}

func (v *Variant) HasSample(sampleId string) bool {
	_, ok := v.Genotype(sampleId)
	return ok
}

var MAPPING_KEYWORD = map[string]interface{}{"type": "keyword", "ignore_above": 256}
var MAPPING_TEXT = map[string]interface{}{"type": "text", "fields": map[string]interface{}{"keyword": MAPPING_KEYWORD}}
var MAPPING_LONG = map[string]interface{}{"type": "long"}
var MAPPING_DATE = map[string]interface{}{"type": "date"}
var MAPPING_BINARY = map[string]interface{}{"type": "binary"}

var VARIANT_INDEX_MAPPING = map[string]interface{}{
	"properties": map[string]interface{}{
		"chrom":  MAPPING_LONG,
		"pos":    MAPPING_LONG,
		"id":     MAPPING_KEYWORD,
		"ref":    MAPPING_TEXT,
		"alt":    MAPPING_TEXT,
		"qual":   MAPPING_LONG,
		"filter": MAPPING_TEXT,
		"info":   MAPPING_TEXT,
		"format": MAPPING_TEXT,
		"samples": map[string]interface{}{
			"properties": map[string]interface{}{
				// keyword keeps sample ids case-sensitive
				"sampleId":  MAPPING_KEYWORD,
				"variation": MAPPING_KEYWORD,
			},
		},
		"fileId": MAPPING_KEYWORD,
	},
}

var FILE_INDEX_MAPPING = map[string]interface{}{
	"properties": map[string]interface{}{
		"id":                    MAPPING_KEYWORD,
		"filename":              MAPPING_TEXT,
		"compressedHeaderBlock": MAPPING_BINARY,
		"archiveKey":            MAPPING_KEYWORD,
		"createdTime":           MAPPING_DATE,
	},
}
