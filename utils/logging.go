package utils

import (
	"gohan/vcf/models"

	"go.uber.org/zap"
)

// CreateLogger builds a development logger in debug mode and a JSON
// production logger otherwise.
func CreateLogger(cfg *models.Config) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
