package models

import "runtime"

type Config struct {
	Debug bool `yaml:"debug" envconfig:"GOHAN_DEBUG"`

	Api struct {
		Port    string `yaml:"port" envconfig:"GOHAN_API_INTERNAL_PORT" default:"5000"`
		VcfPath string `yaml:"vcfPath" envconfig:"GOHAN_API_VCF_PATH"`

		// number of variant documents accumulated before a bulk write is flushed
		BulkIndexingCap int `yaml:"bulkIndexingCap" envconfig:"GOHAN_API_BULK_INDEXING_CAP" default:"10000"`

		// 0 = derive from the number of available processors
		FileProcessingConcurrencyLevel   int `yaml:"fileProcessingConcurrencyLevel" envconfig:"GOHAN_API_FILE_PROC_CONC_LVL"`
		LineProcessingConcurrencyLevel   int `yaml:"lineProcessingConcurrencyLevel" envconfig:"GOHAN_API_LINE_PROC_CONC_LVL"`
		ColumnProcessingConcurrencyLevel int `yaml:"columnProcessingConcurrencyLevel" envconfig:"GOHAN_API_COLUMN_PROC_CONC_LVL"`
	} `yaml:"api"`

	Elasticsearch struct {
		Url           string `yaml:"url" envconfig:"GOHAN_ES_URL" default:"http://localhost:9200"`
		Username      string `yaml:"username" envconfig:"GOHAN_ES_USERNAME"`
		Password      string `yaml:"password" envconfig:"GOHAN_ES_PASSWORD"`
		VariantsIndex string `yaml:"variantsIndex" envconfig:"GOHAN_ES_VARIANTS_INDEX" default:"variants"`
		FilesIndex    string `yaml:"filesIndex" envconfig:"GOHAN_ES_FILES_INDEX" default:"files"`
	} `yaml:"elasticsearch"`

	// optional S3-compatible archive for raw source files; disabled when Endpoint is empty
	ObjectStore struct {
		Endpoint  string `yaml:"endpoint" envconfig:"GOHAN_OBJECT_STORE_ENDPOINT"`
		AccessKey string `yaml:"accessKey" envconfig:"GOHAN_OBJECT_STORE_ACCESS_KEY"`
		SecretKey string `yaml:"secretKey" envconfig:"GOHAN_OBJECT_STORE_SECRET_KEY"`
		Bucket    string `yaml:"bucket" envconfig:"GOHAN_OBJECT_STORE_BUCKET" default:"vcfs"`
		Region    string `yaml:"region" envconfig:"GOHAN_OBJECT_STORE_REGION" default:"us-east-1"`
		UseSSL    bool   `yaml:"useSSL" envconfig:"GOHAN_OBJECT_STORE_USE_SSL"`
	} `yaml:"objectStore"`

	Sanitation struct {
		Enabled bool   `yaml:"enabled" envconfig:"GOHAN_SANITATION_ENABLED" default:"true"`
		RunAt   string `yaml:"runAt" envconfig:"GOHAN_SANITATION_RUN_AT" default:"04:00:00"`
	} `yaml:"sanitation"`
}

// FileConcurrency bounds how many files are ingested at once. Each file
// owns a bulk writer, so this stays well below the processor count.
func (c *Config) FileConcurrency() int {
	if c.Api.FileProcessingConcurrencyLevel > 0 {
		return c.Api.FileProcessingConcurrencyLevel
	}
	return atLeastOne(runtime.NumCPU() / 3)
}

func (c *Config) LineConcurrency() int {
	if c.Api.LineProcessingConcurrencyLevel > 0 {
		return c.Api.LineProcessingConcurrencyLevel
	}
	return atLeastOne(runtime.NumCPU())
}

func (c *Config) ColumnConcurrency() int {
	if c.Api.ColumnProcessingConcurrencyLevel > 0 {
		return c.Api.ColumnProcessingConcurrencyLevel
	}
	return atLeastOne(runtime.NumCPU())
}

func (c *Config) BulkCapacity() int {
	return atLeastOne(c.Api.BulkIndexingCap)
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
