package report

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/williampepple1/isr-cache-warmer/internal/config"
	"github.com/williampepple1/isr-cache-warmer/pkg/models"
)

// Document is the content of a results file.
type Document struct {
	RunID   string              `json:"run_id" yaml:"run_id"`
	BaseURL string              `json:"base_url" yaml:"base_url"`
	Summary models.RunSummary   `json:"summary" yaml:"summary"`
	Results []models.WarmResult `json:"results" yaml:"results"`
}

// ResultWriter writes results to a file
type ResultWriter struct {
	Config *config.IOConfig
}

// NewResultWriter creates a new result writer
func NewResultWriter(cfg *config.IOConfig) *ResultWriter {
	return &ResultWriter{
		Config: cfg,
	}
}

// Enabled reports whether an output file is configured.
func (w *ResultWriter) Enabled() bool {
	return w.Config.OutputFile != ""
}

// SaveToFile saves the document in the configured format
func (w *ResultWriter) SaveToFile(doc Document) error {
	var (
		data []byte
		err  error
	)
	switch w.Config.OutputFormat {
	case "json", "":
		data, err = json.MarshalIndent(doc, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(doc)
	default:
		return fmt.Errorf("unsupported output format: %s", w.Config.OutputFormat)
	}
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return os.WriteFile(w.Config.OutputFile, data, 0o644)
}
