package query

import (
	"errors"
	"fmt"

	"gohan/vcf/models/constants"
	s "gohan/vcf/models/constants/sort"
)

const DefaultSize = 100

var (
	ErrPartialBounds  = errors.New("lowerBound and upperBound must be provided together")
	ErrInvertedBounds = errors.New("upperBound must be greater than or equal to lowerBound")
	ErrInvalidSize    = errors.New("size must not be negative")
)

// VariantQuery is the filter and projection applied when retrieving
// variants. Every predicate that is set must hold (AND); unset ones
// are ignored.
type VariantQuery struct {
	Chromosome *int
	VariantId  string
	SampleId   string

	// inclusive on both ends
	LowerBound *int
	UpperBound *int

	Size           int
	SortByPosition constants.SortDirection

	// false strips `samples` from every returned variant
	IncludeSamples bool
}

func New() VariantQuery {
	return VariantQuery{
		Size:           DefaultSize,
		SortByPosition: s.Undefined,
		IncludeSamples: true,
	}
}

func (q *VariantQuery) HasBounds() bool {
	return q.LowerBound != nil && q.UpperBound != nil
}

func (q *VariantQuery) Validate() error {
	if (q.LowerBound == nil) != (q.UpperBound == nil) {
		return ErrPartialBounds
	}
	if q.HasBounds() && *q.UpperBound < *q.LowerBound {
		return fmt.Errorf("%w (lowerBound %d, upperBound %d)", ErrInvertedBounds, *q.LowerBound, *q.UpperBound)
	}
	if q.Size < 0 {
		return ErrInvalidSize
	}
	return nil
}
