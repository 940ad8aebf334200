package variants

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gohan/vcf/contexts"
	"gohan/vcf/models/dtos"
	e "gohan/vcf/models/dtos/errors"
	"gohan/vcf/models/ingest"
	"gohan/vcf/mvc"
	"gohan/vcf/services"
	"gohan/vcf/services/vcf"

	"github.com/labstack/echo"
	"go.uber.org/zap"
)

func VariantsGetByVariantId(c echo.Context) error {
	c.(*contexts.GohanContext).ZapLogger.Debug("VariantsGetByVariantId hit")
	return executeGet(c, strings.TrimSpace(c.QueryParam("id")), "")
}

func VariantsGetBySampleId(c echo.Context) error {
	c.(*contexts.GohanContext).ZapLogger.Debug("VariantsGetBySampleId hit")
	return executeGet(c, "", strings.TrimSpace(c.QueryParam("id")))
}

func VariantsCountByVariantId(c echo.Context) error {
	c.(*contexts.GohanContext).ZapLogger.Debug("VariantsCountByVariantId hit")
	return executeCount(c, strings.TrimSpace(c.QueryParam("id")), "")
}

func VariantsCountBySampleId(c echo.Context) error {
	c.(*contexts.GohanContext).ZapLogger.Debug("VariantsCountBySampleId hit")
	return executeCount(c, "", strings.TrimSpace(c.QueryParam("id")))
}

// an empty id matches every variant
func executeGet(c echo.Context, variantId string, sampleId string) error {
	gc := c.(*contexts.GohanContext)

	q, err := mvc.RetrieveVariantQuery(c)
	if err != nil {
		return mvc.RespondWithError(c, err)
	}
	q.VariantId = variantId
	q.SampleId = sampleId

	results, err := gc.VariantService.GetVariants(c.Request().Context(), q)
	if err != nil {
		gc.ZapLogger.Error("failed to get variants", zap.Error(err))
		return mvc.RespondWithError(c, err)
	}

	return c.JSON(http.StatusOK, dtos.VariantsResponseDTO{
		Status:  http.StatusOK,
		Message: "Success",
		Data: []dtos.VariantResponseDataModel{{
			VariantId: variantId,
			SampleId:  sampleId,
			Count:     len(results),
			Results:   results,
		}},
	})
}

func executeCount(c echo.Context, variantId string, sampleId string) error {
	gc := c.(*contexts.GohanContext)

	q, err := mvc.RetrieveVariantQuery(c)
	if err != nil {
		return mvc.RespondWithError(c, err)
	}
	q.VariantId = variantId
	q.SampleId = sampleId

	count, err := gc.VariantService.CountVariants(c.Request().Context(), q)
	if err != nil {
		gc.ZapLogger.Error("failed to count variants", zap.Error(err))
		return mvc.RespondWithError(c, err)
	}

	return c.JSON(http.StatusOK, dtos.VariantsResponseDTO{
		Status:  http.StatusOK,
		Message: "Success",
		Data: []dtos.VariantResponseDataModel{{
			VariantId: variantId,
			SampleId:  sampleId,
			Count:     count,
		}},
	})
}

func GetVariantsOverview(c echo.Context) error {
	gc := c.(*contexts.GohanContext)
	gc.ZapLogger.Debug("GetVariantsOverview hit")

	resultsMap := gc.VariantService.GetVariantsOverview(c.Request().Context())

	return c.JSON(http.StatusOK, resultsMap)
}

func VariantsRemoveSample(c echo.Context) error {
	gc := c.(*contexts.GohanContext)
	gc.ZapLogger.Debug("VariantsRemoveSample hit", zap.String("sampleId", gc.SampleId))

	updated, deleted, err := gc.VariantService.RemoveSample(c.Request().Context(), gc.SampleId)
	if err != nil {
		gc.ZapLogger.Error("failed to remove sample", zap.String("sampleId", gc.SampleId), zap.Error(err))
		return mvc.RespondWithError(c, err)
	}

	return c.JSON(http.StatusOK, dtos.SampleRemovalResponseDTO{
		SampleId:        gc.SampleId,
		UpdatedVariants: updated,
		DeletedVariants: deleted,
	})
}

func VariantsIngest(c echo.Context) error {
	gc := c.(*contexts.GohanContext)
	gc.ZapLogger.Debug("VariantsIngest hit")
	vcfPath := gc.Config.Api.VcfPath

	var paths []string
	if dirName := c.QueryParam("directory"); dirName != "" {
		found, err := vcf.FindFiles(resolve(vcfPath, dirName))
		if err != nil {
			return c.JSON(http.StatusBadRequest, e.CreateSimpleBadRequest(fmt.Sprintf("directory %s not found! Aborted --", dirName)))
		}
		paths = found
	} else {
		for _, fileName := range strings.Split(c.QueryParam("fileNames"), ",") {
			fileName = strings.TrimSpace(fileName)
			if fileName == "" {
				return c.JSON(http.StatusBadRequest, e.CreateSimpleBadRequest("Missing 'fileNames' query parameter!"))
			}

			path := resolve(vcfPath, fileName)
			if info, err := os.Stat(path); err != nil || info.IsDir() {
				return c.JSON(http.StatusBadRequest, e.CreateSimpleBadRequest(fmt.Sprintf("file %s not found! Aborted --", fileName)))
			}
			paths = append(paths, path)
		}
	}

	if len(paths) == 0 {
		return c.JSON(http.StatusBadRequest, e.CreateSimpleBadRequest("No vcf files found! Aborted --"))
	}

	requests, err := gc.IngestionService.QueueFiles(paths)
	if errors.Is(err, services.ErrAlreadyRunning) {
		return c.JSON(http.StatusBadRequest, e.CreateSimpleBadRequest(err.Error()))
	}
	if err != nil {
		return mvc.RespondWithError(c, err)
	}

	responseDtos := make([]ingest.IngestResponseDTO, 0, len(requests))
	for _, r := range requests {
		responseDtos = append(responseDtos, ingest.IngestResponseDTO{
			Id:       r.Id,
			Filename: r.Filename,
			State:    r.State,
			Message:  "Successfully queued..",
		})
	}

	return c.JSON(http.StatusOK, responseDtos)
}

func GetAllVariantIngestionRequests(c echo.Context) error {
	gc := c.(*contexts.GohanContext)
	gc.ZapLogger.Debug("GetAllVariantIngestionRequests hit")

	return c.JSON(http.StatusOK, gc.IngestionService.GetRequests())
}

func VariantsIngestionStats(c echo.Context) error {
	gc := c.(*contexts.GohanContext)
	gc.ZapLogger.Debug("VariantsIngestionStats hit")

	return c.JSON(http.StatusOK, gc.IngestionService.GetStats())
}

// resolve keeps requested names inside the vcf directory
func resolve(vcfPath string, name string) string {
	return filepath.Join(vcfPath, filepath.Clean("/"+name))
}
