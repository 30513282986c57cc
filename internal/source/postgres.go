package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver

	"github.com/williampepple1/isr-cache-warmer/internal/config"
	werrors "github.com/williampepple1/isr-cache-warmer/internal/errors"
	"github.com/williampepple1/isr-cache-warmer/pkg/models"
)

// OpenFunc opens a database handle. It matches sql.Open.
type OpenFunc func(driver, dsn string) (*sql.DB, error)

// PostgresSource reads records from a single table.
type PostgresSource struct {
	driver string
	dsn    string
	query  string
	open   OpenFunc
}

// NewPostgresSource validates the connection settings and prepares the query.
// A missing DSN is a configuration error.
func NewPostgresSource(cfg *config.SourceConfig) (*PostgresSource, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, werrors.Config("database connection string is required (set DATABASE_URL)")
	}

	driver := cfg.Driver
	if driver == "" {
		driver = config.DefaultDriver
	}
	switch driver {
	case "pgx", "postgres":
	default:
		return nil, werrors.Configf("unsupported database driver %q", driver)
	}

	query, err := buildQuery(cfg.Table, cfg.NamespaceColumn, cfg.ItemColumn)
	if err != nil {
		return nil, err
	}

	return &PostgresSource{
		driver: driver,
		dsn:    cfg.DSN,
		query:  query,
		open:   sql.Open,
	}, nil
}

// WithOpener replaces the function used to open the database.
func (s *PostgresSource) WithOpener(open OpenFunc) *PostgresSource {
	s.open = open
	return s
}

// Query returns the SQL statement the source runs.
func (s *PostgresSource) Query() string {
	return s.query
}

// buildQuery quotes every identifier. The table may be schema qualified.
func buildQuery(table, namespaceCol, itemCol string) (string, error) {
	if table == "" || namespaceCol == "" || itemCol == "" {
		return "", werrors.Config("source table and columns must be set")
	}
	tableIdent := pgx.Identifier(strings.Split(table, "."))
	for _, part := range tableIdent {
		if part == "" {
			return "", werrors.Configf("invalid table name %q", table)
		}
	}
	return fmt.Sprintf("SELECT %s, %s FROM %s",
		pgx.Identifier{namespaceCol}.Sanitize(),
		pgx.Identifier{itemCol}.Sanitize(),
		tableIdent.Sanitize(),
	), nil
}

// Records runs the query and returns every row. The connection is released
// on every path.
func (s *PostgresSource) Records(ctx context.Context) (records []models.Record, err error) {
	db, err := s.open(s.driver, s.dsn)
	if err != nil {
		return nil, werrors.Enumeration("failed to open database connection", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = werrors.Enumeration("failed to close database connection", cerr)
		}
	}()

	rows, err := db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, werrors.Enumeration("failed to query records", err)
	}
	defer func() { _ = rows.Close() }()

	records = []models.Record{}
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.Namespace, &rec.ItemCode); err != nil {
			return nil, werrors.Enumeration("failed to scan record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, werrors.Enumeration("error iterating records", err)
	}

	return records, nil
}
