package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"gohan/vcf/contexts"
	gam "gohan/vcf/middleware"
	"gohan/vcf/models"
	serviceInfo "gohan/vcf/models/constants/service-info"
	serviceInfoMvc "gohan/vcf/mvc/service-info"
	variantsMvc "gohan/vcf/mvc/variants"
	vcfsMvc "gohan/vcf/mvc/vcfs"
	esRepo "gohan/vcf/repositories/elasticsearch"
	"gohan/vcf/repositories/objectstore"
	"gohan/vcf/services"
	"gohan/vcf/services/metrics"
	"gohan/vcf/services/sanitation"
	variantsService "gohan/vcf/services/variants"
	"gohan/vcf/utils"

	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Gather environment variables
	var cfg models.Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	logger, err := utils.CreateLogger(&cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	defer logger.Sync()

	logger.Info("using configuration",
		zap.Bool("debug", cfg.Debug),
		zap.String("vcfPath", cfg.Api.VcfPath),
		zap.Int("bulkIndexingCap", cfg.BulkCapacity()),
		zap.Int("fileProcessingConcurrencyLevel", cfg.FileConcurrency()),
		zap.Int("lineProcessingConcurrencyLevel", cfg.LineConcurrency()),
		zap.Int("columnProcessingConcurrencyLevel", cfg.ColumnConcurrency()),
		zap.String("elasticsearchUrl", cfg.Elasticsearch.Url),
		zap.String("elasticsearchUsername", cfg.Elasticsearch.Username),
		zap.String("objectStoreEndpoint", cfg.ObjectStore.Endpoint),
		zap.Bool("sanitationEnabled", cfg.Sanitation.Enabled),
		zap.String("port", cfg.Api.Port))

	// Instantiate Server
	e := echo.New()

	// Service Connections:
	// -- Elasticsearch
	es, err := utils.CreateEsConnection(&cfg, logger)
	if err != nil {
		logger.Fatal("failed to create elasticsearch client", zap.Error(err))
	}
	repo := esRepo.NewRepository(es, &cfg, logger)
	if err := repo.EnsureIndices(context.Background()); err != nil {
		logger.Fatal("failed to prepare indices", zap.Error(err))
	}

	// Service Singletons
	m := metrics.New(prometheus.DefaultRegisterer)
	iz := services.NewIngestionService(repo, &cfg, logger, m)
	vs := variantsService.NewVariantService(repo, logger, m)

	// -- Object store (optional)
	if cfg.ObjectStore.Endpoint != "" {
		archive, err := objectstore.NewArchive(&cfg, logger)
		if err != nil {
			logger.Fatal("failed to create object store client", zap.Error(err))
		}
		if err := archive.EnsureBucket(context.Background()); err != nil {
			logger.Fatal("failed to prepare bucket", zap.Error(err))
		}
		iz.Archiver = archive
	}

	if cfg.Sanitation.Enabled {
		ss := sanitation.NewSanitationService(repo, &cfg, logger)
		if err := ss.Init(); err != nil {
			logger.Fatal("failed to schedule sanitation", zap.Error(err))
		}
		defer ss.Stop()
	}

	// Configure Server
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.PUT, echo.POST, echo.DELETE},
	}))

	// -- Override handlers with "custom Gohan" context
	//		to be able to provide variables and global singletons
	e.Use(func(h echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &contexts.GohanContext{
				Context:          c,
				Config:           &cfg,
				IngestionService: iz,
				VariantService:   vs,
				ZapLogger:        logger,
			}
			return h(cc)
		}
	})

	// Begin MVC Routes
	// -- Root
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, serviceInfo.SERVICE_WELCOME)
	})

	// -- Service Info
	e.GET("/service-info", serviceInfoMvc.GetServiceInfo)

	// -- Metrics
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// -- Variants
	e.GET("/variants/overview", variantsMvc.GetVariantsOverview)

	e.GET("/variants/get/by/variantId", variantsMvc.VariantsGetByVariantId,
		// middleware
		gam.ValidateOptionalChromosomeAttribute,
		gam.MandateCalibratedBounds)
	e.GET("/variants/get/by/sampleId", variantsMvc.VariantsGetBySampleId,
		// middleware
		gam.ValidateOptionalChromosomeAttribute,
		gam.MandateCalibratedBounds)

	e.GET("/variants/count/by/variantId", variantsMvc.VariantsCountByVariantId,
		// middleware
		gam.ValidateOptionalChromosomeAttribute,
		gam.MandateCalibratedBounds)
	e.GET("/variants/count/by/sampleId", variantsMvc.VariantsCountBySampleId,
		// middleware
		gam.ValidateOptionalChromosomeAttribute,
		gam.MandateCalibratedBounds)

	e.GET("/variants/remove/sampleId", variantsMvc.VariantsRemoveSample,
		// middleware
		gam.MandateSampleIdAttribute)

	e.GET("/variants/ingestion/run", variantsMvc.VariantsIngest)
	e.GET("/variants/ingestion/requests", variantsMvc.GetAllVariantIngestionRequests)
	e.GET("/variants/ingestion/stats", variantsMvc.VariantsIngestionStats)

	// -- VCFs
	e.GET("/vcfs/get/by/sampleId", vcfsMvc.GetVcfBySampleId,
		// middleware
		gam.MandateSampleIdAttribute,
		gam.ValidateOptionalChromosomeAttribute,
		gam.MandateCalibratedBounds)

	// Run
	port := fmt.Sprintf(":%s", cfg.Api.Port)
	if err := e.Start(port); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
