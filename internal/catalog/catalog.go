// Package catalog provides an additive, diagnostics-only provenance
// store for ingested documents, backed by the teacher's own storage
// choice (modernc.org/sqlite). It is not part of spec.md §4.G's
// on-disk snapshot contract — that remains strictly the four flat
// files — this is a separate artifact whose Stats reports the
// distinct source tags and document count of the last build. The
// Retrieval Facade does not read it: the facade's `data_sources` /
// `total_documents_available` come from the documents it is
// constructed with, which the query command obtains by re-scanning the
// corpus directory.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/medrag/retrieval/internal/engineerr"
	"github.com/medrag/retrieval/pkg/ingest"
)

// Catalog wraps a SQLite database recording (doc_id, source_tag,
// batch_id, ingested_at) for every document seen by the most recent
// build, grounded on the teacher's pkg/core/store.go WAL/busy-timeout
// connection setup.
type Catalog struct {
	db *sql.DB
}

// Open creates or opens the catalog database at path. Pass ":memory:"
// for an ephemeral catalog.
func Open(path string) (*Catalog, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	if path == ":memory:" {
		dsn = path
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, engineerr.Wrap("catalog.Open", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		doc_id TEXT NOT NULL,
		source_tag TEXT NOT NULL,
		batch_id TEXT NOT NULL,
		ingested_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, engineerr.Wrap("catalog.Open", err)
	}

	return &Catalog{db: db}, nil
}

// Close releases the underlying connection.
func (c *Catalog) Close() error { return c.db.Close() }

// RecordBuild replaces the catalog's contents with docs, stamped under
// a fresh batch id, so diagnostics always reflect the most recent
// build (spec.md §1's "rebuilds are whole-corpus").
func (c *Catalog) RecordBuild(ctx context.Context, docs []ingest.Document) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return engineerr.Wrap("catalog.RecordBuild", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return engineerr.Wrap("catalog.RecordBuild", err)
	}

	batchID := uuid.NewString()
	now := time.Now().Unix()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents(doc_id, source_tag, batch_id, ingested_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return engineerr.Wrap("catalog.RecordBuild", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, d.ID, d.SourceTag, batchID, now); err != nil {
			return engineerr.Wrap("catalog.RecordBuild", err)
		}
	}

	return tx.Commit()
}

// Stats reports the distinct source tags and total document count of
// the most recent build.
func (c *Catalog) Stats(ctx context.Context) (dataSources []string, total int, err error) {
	if err = c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, engineerr.Wrap("catalog.Stats", err)
	}

	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT source_tag FROM documents ORDER BY source_tag`)
	if err != nil {
		return nil, 0, engineerr.Wrap("catalog.Stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, 0, engineerr.Wrap("catalog.Stats", err)
		}
		dataSources = append(dataSources, tag)
	}
	return dataSources, total, rows.Err()
}
