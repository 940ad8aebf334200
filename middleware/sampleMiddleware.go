package middleware

import (
	"net/http"
	"strings"

	"gohan/vcf/contexts"
	"gohan/vcf/models/dtos/errors"

	"github.com/labstack/echo"
)

/*
Echo middleware to ensure a singular `id` HTTP query parameter was provided
*/
func MandateSampleIdAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.GohanContext)

		// check for id query parameter
		sampleId := strings.TrimSpace(c.QueryParam("id"))
		if len(sampleId) == 0 {
			// if no id was provided return an error
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("Missing 'id' query parameter for sample id!"))
		}

		gc.SampleId = sampleId
		return next(gc)
	}
}
