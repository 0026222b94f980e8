// Package ingest implements the Corpus Loader of spec.md §4.E:
// dynamic JSON shape handling, stable id assignment, and provenance
// stamping, normalizing a heterogeneous corpus into a uniform list of
// Documents. Grounded on
// original_source/rag-system/retriever.py's load_all_data_sources.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/medrag/retrieval/internal/encoding"
	"github.com/medrag/retrieval/internal/engineerr"
	"github.com/medrag/retrieval/internal/obs"
)

// Document is the canonical record of spec.md §3: every downstream
// component sees only this shape, never the raw JSON variant.
type Document struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Content              string    `json:"content"`
	SourceTag            string    `json:"source_tag"`
	URL                  string    `json:"url,omitempty"`
	PrecomputedEmbedding []float32 `json:"precomputed_embedding,omitempty"`
}

// rawRecord is the loose shape a JSON record may take before
// normalization.
type rawRecord struct {
	ID                   string          `json:"id"`
	Title                string          `json:"title"`
	Content              string          `json:"content"`
	URL                  string          `json:"url"`
	PrecomputedEmbedding json.RawMessage `json:"precomputed_embedding"`
}

// Stats summarizes one Load call's outcome for diagnostics.
type Stats struct {
	FilesScanned   int
	FilesSkipped   int
	RecordsValid   int
	RecordsDropped int
}

// Load scans every non-dotfile *.json file directly under dir, parses
// each of the four recognized shapes (list / {papers} / {documents} /
// single record), validates and stamps records, and returns the
// aggregated corpus. A file that fails to parse is logged and skipped;
// other files proceed, per spec.md §7's IngestError policy.
func Load(dir string, dim int, logger obs.Logger) ([]Document, Stats, error) {
	if logger == nil {
		logger = obs.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, Stats{}, engineerr.WrapKind("ingest.Load", engineerr.ErrConfigurationError, err)
	}

	var docs []Document
	var stats Stats

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		stats.FilesScanned++

		path := filepath.Join(dir, name)
		fileDocs, dropped, err := loadFile(path, dim)
		if err != nil {
			logger.Warn("ingest: skipping file", "path", path, "error", err.Error())
			stats.FilesSkipped++
			continue
		}
		stats.RecordsValid += len(fileDocs)
		stats.RecordsDropped += dropped
		docs = append(docs, fileDocs...)
	}

	return docs, stats, nil
}

// CountRecords performs the cheap structural count of spec.md §4.G's
// freshness check step 4: it parses every source file's shape and
// counts valid records without touching embeddings.
func CountRecords(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, engineerr.WrapKind("ingest.CountRecords", engineerr.ErrConfigurationError, err)
	}
	total := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		raws, err := extractRecords(data)
		if err != nil {
			continue
		}
		for _, r := range raws {
			if strings.TrimSpace(r.Content) != "" || strings.TrimSpace(r.Title) != "" {
				total++
			}
		}
	}
	return total, nil
}

func loadFile(path string, dim int) ([]Document, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, engineerr.WrapKind("ingest.loadFile", engineerr.ErrIngestError, err)
	}

	sourceTag := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	raws, err := extractRecords(data)
	if err != nil {
		return nil, 0, engineerr.WrapKind("ingest.loadFile", engineerr.ErrIngestError, err)
	}

	docs := make([]Document, 0, len(raws))
	dropped := 0
	for i, r := range raws {
		doc, ok := normalize(r, sourceTag, i, dim)
		if !ok {
			dropped++
			continue
		}
		docs = append(docs, doc)
	}
	return docs, dropped, nil
}

// extractRecords dispatches on the four JSON shapes of spec.md §4.E.
func extractRecords(data []byte) ([]rawRecord, error) {
	var asList []rawRecord
	if err := json.Unmarshal(data, &asList); err == nil {
		return asList, nil
	}

	var asObject struct {
		Papers    []rawRecord `json:"papers"`
		Documents []rawRecord `json:"documents"`
	}
	if err := json.Unmarshal(data, &asObject); err == nil {
		if asObject.Papers != nil {
			return asObject.Papers, nil
		}
		if asObject.Documents != nil {
			return asObject.Documents, nil
		}
	}

	var single rawRecord
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("unrecognized JSON shape: %w", err)
	}
	return []rawRecord{single}, nil
}

func normalize(r rawRecord, sourceTag string, sequence int, dim int) (Document, bool) {
	if strings.TrimSpace(r.Content) == "" && strings.TrimSpace(r.Title) == "" {
		return Document{}, false
	}

	id := r.ID
	if id == "" {
		id = fmt.Sprintf("%s_%d", sourceTag, sequence)
	}

	doc := Document{
		ID:        id,
		Title:     r.Title,
		Content:   r.Content,
		SourceTag: sourceTag,
		URL:       r.URL,
	}

	if len(r.PrecomputedEmbedding) > 0 {
		var vec []float32
		if err := json.Unmarshal(r.PrecomputedEmbedding, &vec); err == nil {
			if len(vec) == dim && encoding.ValidateVector(vec) == nil {
				doc.PrecomputedEmbedding = vec
			}
		}
	}

	return doc, true
}
