// Package logutil builds the zap logger of the driver.
package logutil

import (
	"github.com/pingcap/errors"
	"github.com/rip-create-your-account/probetable/internal/config"
	"go.uber.org/zap"
)

// NewLogger returns a logger writing to stderr at the configured level.
func NewLogger(cfg *config.Log) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, errors.Annotatef(err, "log level %q", cfg.Level)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = level
	zapCfg.Encoding = cfg.Format
	zapCfg.Sampling = nil // every rehash and failed insert matters
	zapCfg.OutputPaths = []string{"stderr"}
	if cfg.Format == "console" {
		zapCfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return logger, nil
}
