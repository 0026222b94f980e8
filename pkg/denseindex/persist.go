package denseindex

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/medrag/retrieval/internal/encoding"
)

// Metadata is the companion blob of spec.md §4.C's persistence
// contract: "(doc_ids, dimension, index_type, nlist, trained)".
type Metadata struct {
	DocIDs    []string `json:"doc_ids"`
	Dimension int      `json:"dimension"`
	IndexType Kind     `json:"index_type"`
	NList     int      `json:"nlist"`
	Trained   bool     `json:"trained"`
}

// Save serializes idx into its binary index blob and companion
// metadata blob, satisfying the load(save(x)) ≡ x round-trip
// invariant of spec.md §8.
func Save(idx Index) (blob []byte, metadata []byte, err error) {
	meta := Metadata{
		DocIDs:    idx.DocIDs(),
		Dimension: idx.Dimension(),
		IndexType: idx.Kind(),
		NList:     idx.NList(),
		Trained:   idx.IsTrained(),
	}
	metadata, err = encoding.EncodeMetadata(meta)
	if err != nil {
		return nil, nil, fmt.Errorf("denseindex: encode metadata: %w", err)
	}

	switch v := idx.(type) {
	case *Flat:
		blob, err = encoding.EncodeVectorBatch(v.vectors, v.dim)
	case *IVF:
		blob, err = encodeIVFBlob(v)
	default:
		return nil, nil, fmt.Errorf("denseindex: unsupported index type %T", idx)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("denseindex: encode blob: %w", err)
	}
	return blob, metadata, nil
}

// Load reconstructs an Index from blobs produced by Save.
func Load(blob, metadata []byte) (Index, error) {
	var meta Metadata
	if err := encoding.DecodeMetadata(metadata, &meta); err != nil {
		return nil, fmt.Errorf("denseindex: decode metadata: %w", err)
	}

	switch meta.IndexType {
	case KindFlat:
		vectors, dim, err := encoding.DecodeVectorBatch(blob)
		if err != nil {
			return nil, fmt.Errorf("denseindex: decode flat blob: %w", err)
		}
		if dim == 0 {
			dim = meta.Dimension
		}
		f := NewFlat(dim)
		f.restore(meta.DocIDs, vectors)
		return f, nil
	case KindIVF:
		ivf, err := decodeIVFBlob(blob, meta)
		if err != nil {
			return nil, fmt.Errorf("denseindex: decode ivf blob: %w", err)
		}
		return ivf, nil
	default:
		return nil, fmt.Errorf("denseindex: unknown index type %q", meta.IndexType)
	}
}

func encodeIVFBlob(ivf *IVF) ([]byte, error) {
	centroidBlob, err := encoding.EncodeVectorBatch(ivf.centroids, ivf.dim)
	if err != nil {
		return nil, err
	}
	vectorBlob, err := encoding.EncodeVectorBatch(ivf.vectors, ivf.dim)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, int32(len(centroidBlob))); err != nil {
		return nil, err
	}
	buf.Write(centroidBlob)

	if err := binary.Write(buf, binary.LittleEndian, int32(len(ivf.invlists))); err != nil {
		return nil, err
	}
	for _, list := range ivf.invlists {
		if err := binary.Write(buf, binary.LittleEndian, int32(len(list))); err != nil {
			return nil, err
		}
		for _, idx := range list {
			if err := binary.Write(buf, binary.LittleEndian, int32(idx)); err != nil {
				return nil, err
			}
		}
	}

	if err := binary.Write(buf, binary.LittleEndian, int32(len(vectorBlob))); err != nil {
		return nil, err
	}
	buf.Write(vectorBlob)

	return buf.Bytes(), nil
}

func decodeIVFBlob(data []byte, meta Metadata) (*IVF, error) {
	r := bytes.NewReader(data)

	var centroidLen int32
	if err := binary.Read(r, binary.LittleEndian, &centroidLen); err != nil {
		return nil, err
	}
	centroidBlob := make([]byte, centroidLen)
	if _, err := r.Read(centroidBlob); err != nil {
		return nil, err
	}
	centroids, dim, err := encoding.DecodeVectorBatch(centroidBlob)
	if err != nil {
		return nil, err
	}

	var nlists int32
	if err := binary.Read(r, binary.LittleEndian, &nlists); err != nil {
		return nil, err
	}
	invlists := make([][]int, nlists)
	for i := range invlists {
		var n int32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		list := make([]int, n)
		for j := range list {
			var idx int32
			if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
				return nil, err
			}
			list[j] = int(idx)
		}
		invlists[i] = list
	}

	var vectorLen int32
	if err := binary.Read(r, binary.LittleEndian, &vectorLen); err != nil {
		return nil, err
	}
	vectorBlob := make([]byte, vectorLen)
	if _, err := r.Read(vectorBlob); err != nil {
		return nil, err
	}
	vectors, _, err := encoding.DecodeVectorBatch(vectorBlob)
	if err != nil {
		return nil, err
	}

	if dim == 0 {
		dim = meta.Dimension
	}
	ivf := NewIVF(dim, meta.NList)
	ivf.restore(centroids, invlists, meta.DocIDs, vectors, meta.Trained)
	return ivf, nil
}
