package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadHandlesAllFourShapes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "list.json", `[{"title":"A","content":"alpha"},{"title":"B","content":"beta"}]`)
	writeFile(t, dir, "papers.json", `{"papers":[{"title":"C","content":"gamma"}]}`)
	writeFile(t, dir, "documents.json", `{"documents":[{"title":"D","content":"delta"}]}`)
	writeFile(t, dir, "single.json", `{"title":"E","content":"epsilon"}`)
	writeFile(t, dir, ".hidden.json", `[{"title":"F","content":"should be skipped"}]`)

	docs, stats, err := Load(dir, 3, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 5)
	assert.Equal(t, 4, stats.FilesScanned)

	tags := map[string]bool{}
	for _, d := range docs {
		tags[d.SourceTag] = true
	}
	assert.True(t, tags["list"])
	assert.True(t, tags["papers"])
	assert.True(t, tags["documents"])
	assert.True(t, tags["single"])
}

func TestLoadAssignsIDWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "corpus.json", `[{"title":"A","content":"alpha"},{"id":"explicit","title":"B","content":"beta"}]`)

	docs, _, err := Load(dir, 3, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "corpus_0", docs[0].ID)
	assert.Equal(t, "explicit", docs[1].ID)
}

func TestLoadDropsRecordsMissingContentAndTitle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "corpus.json", `[{"title":"","content":""},{"title":"ok","content":""}]`)

	docs, _, err := Load(dir, 3, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ok", docs[0].Title)
}

func TestLoadSkipsUnparseableFileButContinues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{not valid json`)
	writeFile(t, dir, "good.json", `[{"title":"ok","content":"fine"}]`)

	docs, stats, err := Load(dir, 3, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, stats.FilesSkipped)
}

func TestLoadValidatesPrecomputedEmbeddingDimension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "corpus.json", `[
		{"title":"wrong dim","content":"x","precomputed_embedding":[1,2]},
		{"title":"right dim","content":"y","precomputed_embedding":[1,2,3]}
	]`)

	docs, _, err := Load(dir, 3, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Nil(t, docs[0].PrecomputedEmbedding)
	assert.Equal(t, []float32{1, 2, 3}, docs[1].PrecomputedEmbedding)
}
