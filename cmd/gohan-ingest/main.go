package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"gohan/vcf/models"
	esRepo "gohan/vcf/repositories/elasticsearch"
	"gohan/vcf/repositories/objectstore"
	"gohan/vcf/services"
	"gohan/vcf/services/metrics"
	"gohan/vcf/services/vcf"
	"gohan/vcf/utils"

	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	if err := newApp(ingest).Run(os.Args); err != nil {
		log.New(os.Stderr, "", 0).Fatal(err)
	}
}

func newApp(action func(cfg *models.Config, paths []string, out io.Writer) error) *cli.App {
	return &cli.App{
		Name:            "gohan-ingest",
		Usage:           "Ingest VCF files (plain or bgzipped) into Elasticsearch",
		UsageText:       "gohan-ingest [options] <file.vcf[.gz]|directory>...",
		HideHelpCommand: true,
		Version:         "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "es-url",
				Usage:    "Elasticsearch url",
				Value:    "http://localhost:9200",
				EnvVars:  []string{"GOHAN_ES_URL"},
				Category: "Elasticsearch",
			},
			&cli.StringFlag{
				Name:     "es-username",
				EnvVars:  []string{"GOHAN_ES_USERNAME"},
				Category: "Elasticsearch",
			},
			&cli.StringFlag{
				Name:     "es-password",
				EnvVars:  []string{"GOHAN_ES_PASSWORD"},
				Category: "Elasticsearch",
			},
			&cli.StringFlag{
				Name:     "variants-index",
				Value:    "variants",
				EnvVars:  []string{"GOHAN_ES_VARIANTS_INDEX"},
				Category: "Elasticsearch",
			},
			&cli.StringFlag{
				Name:     "files-index",
				Value:    "files",
				EnvVars:  []string{"GOHAN_ES_FILES_INDEX"},
				Category: "Elasticsearch",
			},
			&cli.IntFlag{
				Name:     "bulk-cap",
				Usage:    "Variants accumulated before a bulk write",
				Value:    10000,
				EnvVars:  []string{"GOHAN_API_BULK_INDEXING_CAP"},
				Category: "Ingestion",
			},
			&cli.IntFlag{
				Name:     "file-concurrency",
				Usage:    "Files ingested at once, 0 derives it from the processor count",
				EnvVars:  []string{"GOHAN_API_FILE_PROC_CONC_LVL"},
				Category: "Ingestion",
			},
			&cli.IntFlag{
				Name:     "line-concurrency",
				Usage:    "Lines parsed at once per file, 0 derives it from the processor count",
				EnvVars:  []string{"GOHAN_API_LINE_PROC_CONC_LVL"},
				Category: "Ingestion",
			},
			&cli.IntFlag{
				Name:     "column-concurrency",
				Usage:    "Fields converted at once per line, 0 derives it from the processor count",
				EnvVars:  []string{"GOHAN_API_COLUMN_PROC_CONC_LVL"},
				Category: "Ingestion",
			},
			&cli.StringFlag{
				Name:     "object-store-endpoint",
				Usage:    "S3-compatible endpoint to archive the raw files to, disabled when empty",
				EnvVars:  []string{"GOHAN_OBJECT_STORE_ENDPOINT"},
				Category: "Archive",
			},
			&cli.StringFlag{
				Name:     "object-store-access-key",
				EnvVars:  []string{"GOHAN_OBJECT_STORE_ACCESS_KEY"},
				Category: "Archive",
			},
			&cli.StringFlag{
				Name:     "object-store-secret-key",
				EnvVars:  []string{"GOHAN_OBJECT_STORE_SECRET_KEY"},
				Category: "Archive",
			},
			&cli.StringFlag{
				Name:     "object-store-bucket",
				Value:    "vcfs",
				EnvVars:  []string{"GOHAN_OBJECT_STORE_BUCKET"},
				Category: "Archive",
			},
			&cli.StringFlag{
				Name:     "object-store-region",
				Value:    "us-east-1",
				EnvVars:  []string{"GOHAN_OBJECT_STORE_REGION"},
				Category: "Archive",
			},
			&cli.BoolFlag{
				Name:     "object-store-ssl",
				EnvVars:  []string{"GOHAN_OBJECT_STORE_USE_SSL"},
				Category: "Archive",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				EnvVars: []string{"GOHAN_DEBUG"},
			},
		},
		Action: func(Cctx *cli.Context) error {
			if Cctx.NArg() == 0 {
				return cli.Exit("no input files given", 2)
			}
			return action(configFromFlags(Cctx), Cctx.Args().Slice(), Cctx.App.Writer)
		},
	}
}

func configFromFlags(Cctx *cli.Context) *models.Config {
	cfg := &models.Config{Debug: Cctx.Bool("debug")}

	cfg.Api.BulkIndexingCap = Cctx.Int("bulk-cap")
	cfg.Api.FileProcessingConcurrencyLevel = Cctx.Int("file-concurrency")
	cfg.Api.LineProcessingConcurrencyLevel = Cctx.Int("line-concurrency")
	cfg.Api.ColumnProcessingConcurrencyLevel = Cctx.Int("column-concurrency")

	cfg.Elasticsearch.Url = Cctx.String("es-url")
	cfg.Elasticsearch.Username = Cctx.String("es-username")
	cfg.Elasticsearch.Password = Cctx.String("es-password")
	cfg.Elasticsearch.VariantsIndex = Cctx.String("variants-index")
	cfg.Elasticsearch.FilesIndex = Cctx.String("files-index")

	cfg.ObjectStore.Endpoint = Cctx.String("object-store-endpoint")
	cfg.ObjectStore.AccessKey = Cctx.String("object-store-access-key")
	cfg.ObjectStore.SecretKey = Cctx.String("object-store-secret-key")
	cfg.ObjectStore.Bucket = Cctx.String("object-store-bucket")
	cfg.ObjectStore.Region = Cctx.String("object-store-region")
	cfg.ObjectStore.UseSSL = Cctx.Bool("object-store-ssl")

	return cfg
}

func ingest(cfg *models.Config, paths []string, out io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := utils.CreateLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	files, err := vcf.FindFiles(paths...)
	if err != nil {
		return cli.Exit(err, 2)
	}
	if len(files) == 0 {
		return cli.Exit("no vcf files found", 2)
	}

	es, err := utils.CreateEsConnection(cfg, logger)
	if err != nil {
		return err
	}
	repo := esRepo.NewRepository(es, cfg, logger)
	if err := repo.EnsureIndices(ctx); err != nil {
		return err
	}

	iz := services.NewIngestionService(repo, cfg, logger, metrics.New(nil))
	if cfg.ObjectStore.Endpoint != "" {
		archive, err := objectstore.NewArchive(cfg, logger)
		if err != nil {
			return err
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return err
		}
		iz.Archiver = archive
	}

	logger.Info("ingesting files", zap.Int("files", len(files)))
	results := iz.ProcessFiles(ctx, files)

	if failed := printResults(out, results); failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed", failed, len(results)), 1)
	}
	return nil
}

// printResults writes one line per file and returns how many failed.
func printResults(out io.Writer, results []services.FileResult) int {
	failed := 0

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tFILE ID\tROWS\tINDEXED\tREJECTED\tSKIPPED 0|0\tCOLUMN ERRORS\tSTATUS")
	for _, r := range results {
		if r.Err != nil {
			failed++
			fileId := ""
			if r.Stats != nil {
				fileId = r.Stats.FileId
			}
			fmt.Fprintf(tw, "%s\t%s\t\t\t\t\t\t%s\n", r.Path, fileId, r.Err)
			continue
		}
		s := r.Stats
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\tok\n",
			r.Path, s.FileId, s.Rows, s.Indexed, s.BulkItemFailures, s.SkippedGenotypes, s.ColumnErrors)
	}
	tw.Flush()

	return failed
}
