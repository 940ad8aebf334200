package mvc

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"gohan/vcf/contexts"
	s "gohan/vcf/models/constants/sort"
	e "gohan/vcf/models/dtos/errors"
	"gohan/vcf/models/query"
	esRepo "gohan/vcf/repositories/elasticsearch"

	"github.com/labstack/echo"
)

// RetrieveVariantQuery builds the query from the calibrated context
// attributes and the paging, sorting and projection parameters.
func RetrieveVariantQuery(c echo.Context) (query.VariantQuery, error) {
	gc := c.(*contexts.GohanContext)

	q := query.New()
	q.Chromosome = gc.Chromosome
	q.LowerBound = gc.LowerBound
	q.UpperBound = gc.UpperBound

	if sizeQP := c.QueryParam("size"); len(sizeQP) > 0 {
		size, err := strconv.Atoi(sizeQP)
		if err != nil {
			return q, fmt.Errorf("%w: %s", query.ErrInvalidSize, sizeQP)
		}
		q.Size = size
	}

	q.SortByPosition = s.CastToSortDirection(c.QueryParam("sortByPosition"))

	// default: include samples
	if includeQP := c.QueryParam("includeSamplesInResultSet"); len(includeQP) > 0 {
		if include, err := strconv.ParseBool(includeQP); err == nil {
			q.IncludeSamples = include
		}
	}

	return q, q.Validate()
}

// RespondWithError maps service errors onto the gohan error responses.
func RespondWithError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, query.ErrPartialBounds),
		errors.Is(err, query.ErrInvertedBounds),
		errors.Is(err, query.ErrInvalidSize),
		errors.Is(err, esRepo.ErrRequestRejected):
		return c.JSON(http.StatusBadRequest, e.CreateSimpleBadRequest(err.Error()))
	case errors.Is(err, esRepo.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, e.CreateSimpleServiceUnavailable(err.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, e.CreateSimpleInternalServerError(err.Error()))
	}
}
