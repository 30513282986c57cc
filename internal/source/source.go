// Package source enumerates the records whose pages are warmed.
package source

import (
	"context"

	"github.com/williampepple1/isr-cache-warmer/internal/config"
	werrors "github.com/williampepple1/isr-cache-warmer/internal/errors"
	"github.com/williampepple1/isr-cache-warmer/pkg/models"
)

// Source yields every record to warm.
type Source interface {
	Records(ctx context.Context) ([]models.Record, error)
}

// New creates the source selected by the configuration.
func New(cfg *config.SourceConfig) (Source, error) {
	switch cfg.Kind {
	case config.SourcePostgres, "":
		return NewPostgresSource(cfg)
	case config.SourceFile:
		return NewFileSource(cfg.InputFile)
	default:
		return nil, werrors.Configf("unknown source kind %q", cfg.Kind)
	}
}
