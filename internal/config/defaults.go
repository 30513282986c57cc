package config

import "time"

const (
	DefaultBaseURL     = "http://localhost:3000"
	DefaultConcurrency = 10
	DefaultTimeout     = 30 * time.Second
	DefaultCheckpoint  = 100

	// DefaultUserAgent identifies warm requests in the hosting platform's logs.
	DefaultUserAgent = "ISR-Cache-Warmer/1.0"

	DefaultSourceKind      = SourcePostgres
	DefaultDriver          = "pgx"
	DefaultTable           = "engines"
	DefaultNamespaceColumn = "brand_slug"
	DefaultItemColumn      = "engine_code"

	DefaultOutputFormat = "json"
	DefaultLogLevel     = "info"
)

// Source kinds.
const (
	SourcePostgres = "postgres"
	SourceFile     = "file"
)

// DefaultSelectors are extracted from warmed pages when inspection is enabled.
var DefaultSelectors = map[string]string{
	"title": "title",
}
