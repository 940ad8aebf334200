package contexts

import (
	"gohan/vcf/models"
	"gohan/vcf/services"
	variantsService "gohan/vcf/services/variants"

	"github.com/labstack/echo"
	"go.uber.org/zap"
)

type (
	// "Helper" Context to pass into routes that need
	//  the service singletons and the calibrated query attributes
	GohanContext struct {
		echo.Context
		Config           *models.Config
		IngestionService *services.IngestionService
		VariantService   *variantsService.VariantService
		ZapLogger        *zap.Logger

		// set by middleware
		Chromosome *int
		LowerBound *int
		UpperBound *int
		SampleId   string
	}
)
