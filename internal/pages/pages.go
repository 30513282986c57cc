// Package pages maps records to the engine specification page URLs served
// by the hosting platform.
package pages

import (
	"fmt"
	"strings"

	"github.com/williampepple1/isr-cache-warmer/pkg/models"
)

// Suffix is appended to the item code in every page path.
const Suffix = "-specs"

// URL returns {base}/{namespace}/{itemCode}-specs. Identifiers are inserted
// verbatim.
func URL(base string, rec models.Record) string {
	return strings.TrimSuffix(base, "/") + "/" + rec.Namespace + "/" + rec.ItemCode + Suffix
}

// BuildAll builds one URL per record, preserving order.
func BuildAll(base string, records []models.Record) []string {
	urls := make([]string, len(records))
	for i, rec := range records {
		urls[i] = URL(base, rec)
	}
	return urls
}

// Parse recovers the record from a URL produced by URL with the same base.
func Parse(base, raw string) (models.Record, error) {
	prefix := strings.TrimSuffix(base, "/") + "/"
	path, ok := strings.CutPrefix(raw, prefix)
	if !ok {
		return models.Record{}, fmt.Errorf("url %q is not under base %q", raw, base)
	}
	namespace, page, ok := strings.Cut(path, "/")
	if !ok || namespace == "" || strings.Contains(page, "/") {
		return models.Record{}, fmt.Errorf("url %q does not match {namespace}/{item}%s", raw, Suffix)
	}
	item, ok := strings.CutSuffix(page, Suffix)
	if !ok || item == "" {
		return models.Record{}, fmt.Errorf("url %q does not end with %s", raw, Suffix)
	}
	return models.Record{Namespace: namespace, ItemCode: item}, nil
}
