package source

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	werrors "github.com/williampepple1/isr-cache-warmer/internal/errors"
	"github.com/williampepple1/isr-cache-warmer/pkg/models"
)

// FileSource reads records from a text file, one "namespace/item" or
// "namespace,item" pair per line. Blank lines and lines starting with # are
// skipped.
type FileSource struct {
	path string
}

// NewFileSource creates a file backed source.
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, werrors.Config("input file is required for the file source")
	}
	return &FileSource{path: path}, nil
}

// Records reads the file.
func (s *FileSource) Records(_ context.Context) ([]models.Record, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, werrors.Enumeration("failed to open input file", err)
	}
	defer file.Close()

	records := []models.Record{}
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, werrors.Enumeration(fmt.Sprintf("%s:%d", s.path, lineNo), err)
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, werrors.Enumeration("failed to read input file", err)
	}

	return records, nil
}

func parseLine(line string) (models.Record, error) {
	sep := "/"
	if strings.Contains(line, ",") {
		sep = ","
	}
	namespace, item, ok := strings.Cut(line, sep)
	namespace = strings.TrimSpace(namespace)
	item = strings.TrimSpace(item)
	if !ok || namespace == "" || item == "" {
		return models.Record{}, fmt.Errorf("expected namespace%sitem, got %q", sep, line)
	}
	return models.Record{Namespace: namespace, ItemCode: item}, nil
}
