package extraction

import (
	"io"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extractor pulls text out of warmed pages with CSS selectors. It is used to
// confirm a page rendered real content, not just a shell.
type Extractor struct {
	selectors map[string]string
	names     []string
}

// NewExtractor creates an extractor for the given name -> selector map.
// It returns nil when there is nothing to extract.
func NewExtractor(selectors map[string]string) *Extractor {
	if len(selectors) == 0 {
		return nil
	}
	names := make([]string, 0, len(selectors))
	for name, selector := range selectors {
		if strings.TrimSpace(selector) != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return &Extractor{selectors: selectors, names: names}
}

// Extract parses an HTML document and returns the trimmed text of the first
// match of every selector. Selectors without a match are omitted.
func (e *Extractor) Extract(r io.Reader) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	extracted := make(map[string]string, len(e.names))
	for _, name := range e.names {
		sel := doc.Find(e.selectors[name]).First()
		if sel.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			extracted[name] = text
		}
	}
	return extracted, nil
}
