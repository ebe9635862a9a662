// ABOUTME: Writes batch results and reports as JSON or YAML
// ABOUTME: JSON output keeps non-ASCII text unescaped and is indented
package pipeline

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"github.com/harper/storybrief/internal/models"
)

// Format is an output encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks YAML for .yaml/.yml files and JSON otherwise
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode writes v to w in the given format
func Encode(w io.Writer, v any, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return goerr.Wrap(err, "failed to encode YAML")
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return goerr.Wrap(err, "failed to encode JSON")
		}
		return nil
	default:
		return goerr.New("unknown output format", goerr.T(models.TagInvalidInput), goerr.V("format", format))
	}
}

// WriteFile encodes v to path, creating parent directories
func WriteFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create output directory", goerr.V("path", path))
	}
	f, err := os.Create(path)
	if err != nil {
		return goerr.Wrap(err, "failed to create output file", goerr.V("path", path))
	}
	if err := Encode(f, v, FormatFromPath(path)); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return goerr.Wrap(err, "failed to close output file", goerr.V("path", path))
	}
	return nil
}

// WriteResults writes the [{id, summary}] list, one entry per requested id
func WriteResults(path string, batch *Batch) error {
	return WriteFile(path, batch.Results)
}

// WriteReports writes the full reports of the stories that succeeded
func WriteReports(path string, batch *Batch) error {
	reports := make([]*models.Report, 0, len(batch.Reports))
	for _, r := range batch.Reports {
		if r != nil {
			reports = append(reports, r)
		}
	}
	return WriteFile(path, reports)
}
