package columns

import (
	"gohan/vcf/models/constants"
	"sort"
	"strings"
)

const (
	Chrom  constants.Column = "CHROM"
	Pos    constants.Column = "POS"
	Id     constants.Column = "ID"
	Ref    constants.Column = "REF"
	Alt    constants.Column = "ALT"
	Qual   constants.Column = "QUAL"
	Filter constants.Column = "FILTER"
	Info   constants.Column = "INFO"
	Format constants.Column = "FORMAT"
)

// Canonical is the order fixed columns arrive in on a VCF data line.
var Canonical = []constants.Column{Chrom, Pos, Id, Ref, Alt, Qual, Filter, Info, Format}

const (
	// NoValue stands in for a numeric column whose text is not an integer (e.g. '.')
	NoValue = -1
	// Placeholder is how NoValue is written back out.
	Placeholder = "."
)

// Index returns the canonical position of key, or -1 if key is not a fixed column.
func Index(key string) int {
	for i, c := range Canonical {
		if string(c) == key {
			return i
		}
	}
	return -1
}

func IsFixed(key string) bool {
	return Index(key) >= 0
}

// IsNumeric reports whether the column is stored as an integer.
func IsNumeric(c constants.Column) bool {
	switch c {
	case Chrom, Pos, Qual:
		return true
	}
	return false
}

// KeyFromHeader turns a `#CHROM` line field into a column key:
// leading '#' characters are dropped and whitespace is trimmed.
func KeyFromHeader(header string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(header), "#"))
}

// Order sorts keys by canonical column position. Keys that are not
// fixed columns go after every fixed column and keep their relative order.
func Order(keys []string) []string {
	ordered := make([]string, len(keys))
	copy(ordered, keys)

	rank := func(k string) int {
		if i := Index(k); i >= 0 {
			return i
		}
		return len(Canonical)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank(ordered[i]) < rank(ordered[j])
	})
	return ordered
}
