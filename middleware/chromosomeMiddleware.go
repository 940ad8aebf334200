package middleware

import (
	"net/http"
	"strconv"

	"gohan/vcf/contexts"
	"gohan/vcf/models/dtos/errors"

	"github.com/labstack/echo"
)

/*
Echo middleware to ensure a valid `chromosome` HTTP query parameter was provided
*/
func MandateChromosomeAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// check for chromosome query parameter
		if len(c.QueryParam("chromosome")) == 0 {
			// if no id was provided return an error
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("Missing 'chromosome' query parameter for querying!"))
		}

		return ValidateOptionalChromosomeAttribute(next)(c)
	}
}

/*
Echo middleware to ensure the validity of the optionally provided `chromosome` HTTP query parameter
*/
func ValidateOptionalChromosomeAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.GohanContext)

		chromQP := c.QueryParam("chromosome")
		if len(chromQP) == 0 {
			return next(gc)
		}

		// verify:
		i, conversionErr := strconv.Atoi(chromQP)
		if conversionErr != nil {
			// if invalid chromosome
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("Error converting 'chromosome' query parameter! Check your input"))
		}

		if i <= 0 {
			// if chromosome less than 0
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("Please provide a 'chromosome' greater than 0!"))
		}

		gc.Chromosome = &i
		return next(gc)
	}
}
