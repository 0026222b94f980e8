// Package encoding provides the binary codecs shared by the dense and
// sparse index snapshot formats.
package encoding

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidVector is returned when a vector is invalid.
var ErrInvalidVector = errors.New("invalid vector")

// EncodeVector encodes a float32 vector to bytes: a little-endian int32
// length prefix followed by that many little-endian float32 values.
func EncodeVector(vector []float32) ([]byte, error) {
	if vector == nil {
		return nil, ErrInvalidVector
	}

	buf := new(bytes.Buffer)

	vectorLen := len(vector)
	if vectorLen > math.MaxInt32 {
		return nil, fmt.Errorf("vector too large: %d elements exceeds maximum", vectorLen)
	}
	if err := binary.Write(buf, binary.LittleEndian, int32(vectorLen)); err != nil {
		return nil, fmt.Errorf("failed to encode vector length: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, vector); err != nil {
		return nil, fmt.Errorf("failed to encode vector values: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeVector decodes bytes produced by EncodeVector back to a float32 vector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, ErrInvalidVector
	}

	buf := bytes.NewReader(data)

	var length int32
	if err := binary.Read(buf, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("failed to decode vector length: %w", err)
	}
	if length < 0 {
		return nil, ErrInvalidVector
	}
	if length == 0 {
		return []float32{}, nil
	}

	expectedBytes := int(length) * 4
	if buf.Len() < expectedBytes {
		return nil, ErrInvalidVector
	}

	vector := make([]float32, length)
	if err := binary.Read(buf, binary.LittleEndian, vector); err != nil {
		return nil, fmt.Errorf("failed to decode vector values: %w", err)
	}

	return vector, nil
}

// EncodeVectorBatch encodes a sequence of equal-length vectors: a count
// prefix, the shared dimension, then each vector's raw float32 payload
// (no per-vector length prefix, since dimension is fixed). Used for the
// dense index's bulk binary blob.
func EncodeVectorBatch(vectors [][]float32, dim int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, int32(len(vectors))); err != nil {
		return nil, fmt.Errorf("failed to encode batch count: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, int32(dim)); err != nil {
		return nil, fmt.Errorf("failed to encode batch dimension: %w", err)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("failed to encode vector %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeVectorBatch decodes a blob produced by EncodeVectorBatch.
func DecodeVectorBatch(data []byte) ([][]float32, int, error) {
	buf := bytes.NewReader(data)

	var count, dim int32
	if err := binary.Read(buf, binary.LittleEndian, &count); err != nil {
		return nil, 0, fmt.Errorf("failed to decode batch count: %w", err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &dim); err != nil {
		return nil, 0, fmt.Errorf("failed to decode batch dimension: %w", err)
	}
	if count < 0 || dim < 0 {
		return nil, 0, ErrInvalidVector
	}

	vectors := make([][]float32, count)
	for i := int32(0); i < count; i++ {
		v := make([]float32, dim)
		if err := binary.Read(buf, binary.LittleEndian, v); err != nil {
			return nil, 0, fmt.Errorf("failed to decode vector %d: %w", i, err)
		}
		vectors[i] = v
	}
	return vectors, int(dim), nil
}

// EncodeMetadata marshals arbitrary JSON-serializable metadata.
func EncodeMetadata(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return data, nil
}

// DecodeMetadata unmarshals metadata produced by EncodeMetadata into v.
func DecodeMetadata(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode metadata: %w", err)
	}
	return nil
}

// ValidateVector checks that a vector is non-nil, non-empty and free of
// NaN/Inf values.
func ValidateVector(vector []float32) error {
	if len(vector) == 0 {
		return ErrInvalidVector
	}
	for _, val := range vector {
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return ErrInvalidVector
		}
	}
	return nil
}
