package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"gohan/vcf/contexts"
	"gohan/vcf/models/dtos/errors"

	"github.com/labstack/echo"
)

func MandateCalibratedBounds(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.GohanContext)

		var (
			lowerBoundPointer *int // simulate "nullable" int
			upperBoundPointer *int
		)

		// check for a 'lowerBound' query paramter
		if lowerBoundQP := c.QueryParam("lowerBound"); len(lowerBoundQP) > 0 {
			lb, conversionErr := strconv.Atoi(lowerBoundQP)
			if conversionErr != nil {
				return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest(fmt.Sprintf("invalid lowerBound %s", lowerBoundQP)))
			}
			lowerBoundPointer = &lb
		}

		// check for an 'upperBound' query paramter
		if upperBoundQP := c.QueryParam("upperBound"); len(upperBoundQP) > 0 {
			ub, conversionErr := strconv.Atoi(upperBoundQP)
			if conversionErr != nil {
				return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest(fmt.Sprintf("invalid upperBound %s", upperBoundQP)))
			}
			upperBoundPointer = &ub
		}

		// allow call to pass if and only if:
		// - neither upper and lower bound parameters a provided
		// - both are provided
		// -- and if both are provided, that they are balanced
		if (upperBoundPointer == nil) != (lowerBoundPointer == nil) ||
			(upperBoundPointer != nil && *upperBoundPointer < *lowerBoundPointer) {
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("Invalid lower and upper bounds!"))
		}

		gc.LowerBound = lowerBoundPointer
		gc.UpperBound = upperBoundPointer
		return next(gc)
	}
}
