package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrag/retrieval/pkg/ingest"
)

func TestRecordBuildThenStats(t *testing.T) {
	c, err := Open(":memory:")
	require.NoError(t, err)
	defer c.Close()

	docs := []ingest.Document{
		{ID: "a_0", SourceTag: "a"},
		{ID: "a_1", SourceTag: "a"},
		{ID: "b_0", SourceTag: "b"},
	}
	require.NoError(t, c.RecordBuild(context.Background(), docs))

	sources, total, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"a", "b"}, sources)
}

func TestRecordBuildReplacesPriorBatch(t *testing.T) {
	c, err := Open(":memory:")
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.RecordBuild(context.Background(), []ingest.Document{{ID: "a_0", SourceTag: "a"}}))
	require.NoError(t, c.RecordBuild(context.Background(), []ingest.Document{{ID: "b_0", SourceTag: "b"}}))

	sources, total, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"b"}, sources)
}
