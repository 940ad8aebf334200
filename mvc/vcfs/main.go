package vcfs

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"gohan/vcf/contexts"
	e "gohan/vcf/models/dtos/errors"
	"gohan/vcf/mvc"
	"gohan/vcf/services/vcf"

	"github.com/labstack/echo"
	"go.uber.org/zap"
)

// GetVcfBySampleId answers with the VCF of the sample rebuilt from the
// variants matching the query parameters.
func GetVcfBySampleId(c echo.Context) error {
	gc := c.(*contexts.GohanContext)
	gc.ZapLogger.Debug("GetVcfBySampleId hit", zap.String("sampleId", gc.SampleId))

	q, err := mvc.RetrieveVariantQuery(c)
	if err != nil {
		return mvc.RespondWithError(c, err)
	}
	q.SampleId = gc.SampleId

	// buffered so a failure can still be answered with an error body
	var buf bytes.Buffer
	err = gc.VariantService.SynthesizeBySampleId(c.Request().Context(), &buf, q)
	if errors.Is(err, vcf.ErrNoVariants) {
		return c.JSON(http.StatusNotFound, e.CreateSimpleNotFound(err.Error()))
	}
	if err != nil {
		gc.ZapLogger.Error("failed to synthesize vcf", zap.String("sampleId", gc.SampleId), zap.Error(err))
		return mvc.RespondWithError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", gc.SampleId+".vcf"))
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, buf.Bytes())
}
