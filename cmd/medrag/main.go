// Command medrag is the operational CLI around the retrieval engine,
// per spec.md §6: a "build" subcommand that indexes a corpus directory
// and a "query" subcommand that answers a question against the most
// recent build. Grounded on cmd/sqvect/main.go's cobra layout (flat
// command vars, RunE functions, persistent flags wired in init).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/medrag/retrieval/internal/catalog"
	"github.com/medrag/retrieval/internal/obs"
	"github.com/medrag/retrieval/pkg/cache"
	"github.com/medrag/retrieval/pkg/denseindex"
	"github.com/medrag/retrieval/pkg/embedding"
	"github.com/medrag/retrieval/pkg/engine"
	"github.com/medrag/retrieval/pkg/generator"
	"github.com/medrag/retrieval/pkg/hybrid"
	"github.com/medrag/retrieval/pkg/ingest"
	"github.com/medrag/retrieval/pkg/sparseindex"
)

var (
	dataDir     string
	cacheDir    string
	dimensions  int
	indexKind   string
	nlist       int
	embedderURL string
	catalogPath string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "medrag",
	Short: "Hybrid dense/sparse retrieval engine",
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Index a corpus directory and persist the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := obs.New(os.Stderr, logLevel)
		ctx := context.Background()
		start := time.Now()

		docs, stats, err := ingest.Load(dataDir, dimensions, logger)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		logger.Info("build: corpus loaded", "files_scanned", stats.FilesScanned, "files_skipped", stats.FilesSkipped, "documents", len(docs))

		embedder := embedding.New(newHTTPEmbedder(embedderURL, envAPIKey()), dimensions)

		dense, err := buildDenseIndex(ctx, docs, embedder, logger)
		if err != nil {
			return fmt.Errorf("dense index: %w", err)
		}

		sparse := sparseindex.New(sparseindex.DefaultConfig(), nil)
		sparseDocs := make([]sparseindex.Doc, len(docs))
		for i, d := range docs {
			sparseDocs[i] = sparseindex.Doc{ID: d.ID, Title: d.Title, Content: d.Content}
		}
		sparse.Add(sparseDocs)

		mgr := cache.New(cacheDir, logger)
		unlock, err := mgr.LockBuild()
		if err != nil {
			return fmt.Errorf("cache lock: %w", err)
		}
		defer unlock()

		denseBlob, denseMeta, err := denseindex.Save(dense)
		if err != nil {
			return fmt.Errorf("dense save: %w", err)
		}
		sparseBlob, err := sparseindex.Save(sparse)
		if err != nil {
			return fmt.Errorf("sparse save: %w", err)
		}

		buildTime := time.Since(start).Seconds()
		if err := mgr.Save(cache.Snapshot{
			DenseIndexBlob:    denseBlob,
			DenseMetadataBlob: denseMeta,
			SparseIndexBlob:   sparseBlob,
			Manifest:          cache.NewManifest(len(docs), buildTime),
		}); err != nil {
			logger.Warn("build: cache save failed, index only available in-memory this run", "error", err.Error())
		}

		if catalogPath != "" {
			cat, err := catalog.Open(catalogPath)
			if err != nil {
				logger.Warn("build: catalog open failed", "error", err.Error())
			} else {
				if err := cat.RecordBuild(ctx, docs); err != nil {
					logger.Warn("build: catalog record failed", "error", err.Error())
				}
				cat.Close()
			}
		}

		fmt.Printf("Indexed %d documents in %.2fs\n", len(docs), buildTime)
		return nil
	},
}

func buildDenseIndex(ctx context.Context, docs []ingest.Document, embedder *embedding.Client, logger obs.Logger) (denseindex.Index, error) {
	ids := make([]string, 0, len(docs))
	vectors := make([][]float32, 0, len(docs))
	for _, d := range docs {
		vec := d.PrecomputedEmbedding
		if vec == nil {
			var err error
			vec, err = embedder.Embed(ctx, d.Content, embedding.RoleDocument)
			if err != nil {
				logger.Warn("build: embedding failed, dropping document", "doc_id", d.ID, "error", err.Error())
				continue
			}
		}
		ids = append(ids, d.ID)
		vectors = append(vectors, vec)
	}

	var idx denseindex.Index
	switch indexKind {
	case "ivf":
		ivf := denseindex.NewIVF(dimensions, nlist)
		if err := ivf.Train(vectors); err != nil {
			return nil, err
		}
		idx = ivf
	default:
		idx = denseindex.NewFlat(dimensions)
	}

	warn := func(id, reason string) { logger.Warn("build: dropped vector", "doc_id", id, "reason", reason) }
	if err := idx.Add(ids, vectors, warn); err != nil {
		return nil, err
	}
	return idx, nil
}

var queryCmd = &cobra.Command{
	Use:   "query <text> [top_k] [context_tag]",
	Short: "Answer a query against the most recent build",
	Args:  cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := obs.New(os.Stderr, logLevel)
		ctx := context.Background()

		text := args[0]
		topK := 10
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid top_k: %w", err)
			}
			topK = n
		}
		contextTag := ""
		if len(args) > 2 {
			contextTag = args[2]
		}

		if !cache.IsValid(cacheDir, dataDir) {
			return fmt.Errorf("no valid index found under %s; run 'medrag build' first", cacheDir)
		}

		mgr := cache.New(cacheDir, logger)
		snap, err := mgr.Load()
		if err != nil {
			return fmt.Errorf("cache load: %w", err)
		}

		dense, err := denseindex.Load(snap.DenseIndexBlob, snap.DenseMetadataBlob)
		if err != nil {
			return fmt.Errorf("dense load: %w", err)
		}
		sparse, err := sparseindex.Load(snap.SparseIndexBlob, nil)
		if err != nil {
			return fmt.Errorf("sparse load: %w", err)
		}

		docs, _, err := ingest.Load(dataDir, dimensions, logger)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}

		embedder := embedding.New(newHTTPEmbedder(embedderURL, envAPIKey()), dimensions)
		denseSearcher := &hybrid.DenseSearcher{Embedder: embedder, Index: dense}
		sparseSearcher := &hybrid.SparseSearcher{Index: sparse}

		fused, err := hybrid.New(denseSearcher, sparseSearcher, hybrid.DefaultConfig())
		if err != nil {
			return fmt.Errorf("hybrid searcher: %w", err)
		}

		dataSources := uniqueSourceTags(docs)
		eng := engine.New(fused, denseSearcher, sparseSearcher, docs, dataSources, generator.NewTemplate(), engine.WithLogger(logger))

		result, err := eng.Query(ctx, text, topK, contextTag)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func uniqueSourceTags(docs []ingest.Document) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range docs {
		if !seen[d.SourceTag] {
			seen[d.SourceTag] = true
			out = append(out, d.SourceTag)
		}
	}
	return out
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Corpus directory")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "./data/indexes", "Index cache directory")
	rootCmd.PersistentFlags().IntVar(&dimensions, "dim", 384, "Embedding dimension")
	rootCmd.PersistentFlags().StringVar(&embedderURL, "embedder-url", "http://localhost:8081/embed", "Embedding service URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level")

	buildCmd.Flags().StringVar(&indexKind, "index-kind", "flat", "Dense index kind: flat or ivf")
	buildCmd.Flags().IntVar(&nlist, "nlist", 16, "IVF coarse quantizer cell count")
	buildCmd.Flags().StringVar(&catalogPath, "catalog", "", "Optional SQLite provenance catalog path")

	rootCmd.AddCommand(buildCmd, queryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
