package encoding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.1, -0.2, 3.0}
	data, err := EncodeVector(v)
	require.NoError(t, err)

	decoded, err := DecodeVector(data)
	require.NoError(t, err)
	assert.Equal(t, v, decoded)
}

func TestDecodeVectorRejectsTruncatedData(t *testing.T) {
	_, err := DecodeVector([]byte{1, 0, 0, 0})
	assert.Error(t, err)
}

func TestVectorBatchRoundTrip(t *testing.T) {
	vecs := [][]float32{{1, 2, 3}, {4, 5, 6}}
	data, err := EncodeVectorBatch(vecs, 3)
	require.NoError(t, err)

	decoded, dim, err := DecodeVectorBatch(data)
	require.NoError(t, err)
	assert.Equal(t, 3, dim)
	assert.Equal(t, vecs, decoded)
}

func TestEncodeVectorBatchRejectsDimensionMismatch(t *testing.T) {
	_, err := EncodeVectorBatch([][]float32{{1, 2}}, 3)
	assert.Error(t, err)
}

func TestMetadataRoundTrip(t *testing.T) {
	type meta struct {
		DocIDs []string `json:"doc_ids"`
		NList  int      `json:"nlist"`
	}
	in := meta{DocIDs: []string{"a", "b"}, NList: 16}

	data, err := EncodeMetadata(in)
	require.NoError(t, err)

	var out meta
	require.NoError(t, DecodeMetadata(data, &out))
	assert.Equal(t, in, out)
}

func TestValidateVectorRejectsNaNAndInf(t *testing.T) {
	assert.Error(t, ValidateVector(nil))
	assert.Error(t, ValidateVector([]float32{1, float32(math.NaN())}))
	assert.Error(t, ValidateVector([]float32{1, float32(math.Inf(1))}))
	assert.NoError(t, ValidateVector([]float32{1, 2, 3}))
}
