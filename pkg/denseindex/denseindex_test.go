package denseindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(v []float32) []float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	n := float32(1)
	if sum > 0 {
		n = sum
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / sqrt32(n)
	}
	return out
}

func sqrt32(f float32) float32 {
	// simple Newton iteration, avoids importing math in the test
	if f == 0 {
		return 0
	}
	x := f
	for i := 0; i < 20; i++ {
		x = 0.5 * (x + f/x)
	}
	return x
}

func TestFlatSearchOrdersByScoreDescending(t *testing.T) {
	idx := NewFlat(2)
	err := idx.Add(
		[]string{"a", "b", "c"},
		[][]float32{unit([]float32{1, 0}), unit([]float32{0, 1}), unit([]float32{0.7, 0.7})},
		nil,
	)
	require.NoError(t, err)

	hits, err := idx.Search(unit([]float32{1, 0}), 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].DocID)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i].Score, hits[i-1].Score)
	}
}

func TestFlatSearchRespectsK(t *testing.T) {
	idx := NewFlat(2)
	_ = idx.Add([]string{"a", "b", "c"}, [][]float32{
		unit([]float32{1, 0}), unit([]float32{0, 1}), unit([]float32{1, 1}),
	}, nil)

	hits, err := idx.Search(unit([]float32{1, 0}), 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestFlatDropsNonUnitNormAndWrongDimension(t *testing.T) {
	idx := NewFlat(2)
	var dropped []string
	err := idx.Add(
		[]string{"bad-dim", "bad-norm", "good"},
		[][]float32{{1, 2, 3}, {5, 5}, unit([]float32{1, 0})},
		func(id, reason string) { dropped = append(dropped, id) },
	)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bad-dim", "bad-norm"}, dropped)
	assert.Equal(t, 1, idx.Size())
}

func TestFlatSaveLoadRoundTrip(t *testing.T) {
	idx := NewFlat(2)
	_ = idx.Add([]string{"a", "b"}, [][]float32{unit([]float32{1, 0}), unit([]float32{0, 1})}, nil)

	blob, meta, err := Save(idx)
	require.NoError(t, err)

	loaded, err := Load(blob, meta)
	require.NoError(t, err)

	query := unit([]float32{1, 0.1})
	want, err := idx.Search(query, 2)
	require.NoError(t, err)
	got, err := loaded.Search(query, 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIVFRequiresTrainBeforeAdd(t *testing.T) {
	idx := NewIVF(2, 2)
	err := idx.Add([]string{"a"}, [][]float32{unit([]float32{1, 0})}, nil)
	assert.ErrorIs(t, err, ErrNotTrained)
}

func TestIVFSaveLoadRoundTrip(t *testing.T) {
	idx := NewIVF(2, 2)
	sample := [][]float32{
		unit([]float32{1, 0}), unit([]float32{0.9, 0.1}),
		unit([]float32{0, 1}), unit([]float32{0.1, 0.9}),
	}
	require.NoError(t, idx.Train(sample))
	require.NoError(t, idx.Add([]string{"a", "b", "c", "d"}, sample, nil))

	blob, meta, err := Save(idx)
	require.NoError(t, err)

	loaded, err := Load(blob, meta)
	require.NoError(t, err)

	query := unit([]float32{1, 0})
	want, err := idx.Search(query, 4)
	require.NoError(t, err)
	got, err := loaded.Search(query, 4)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
