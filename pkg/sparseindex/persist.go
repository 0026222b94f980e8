package sparseindex

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/medrag/retrieval/pkg/tokenizer"
)

// snapshot is the gob-serializable form of an Index's fitted state.
type snapshot struct {
	Cfg       Config
	DocIDs    []string
	DocTokens [][]string
	DocFreq   map[string]int
	AvgDL     float64
}

// Save serializes idx's fitted model to a binary blob (the sparse
// index's "bm25_index.pkl" equivalent under spec.md §4.G).
func Save(idx *Index) ([]byte, error) {
	if !idx.built {
		return nil, ErrNotBuilt
	}
	snap := snapshot{
		Cfg:       idx.cfg,
		DocIDs:    idx.docIDs,
		DocTokens: idx.docTokens,
		DocFreq:   idx.docFreq,
		AvgDL:     idx.avgdl,
	}
	buf := new(bytes.Buffer)
	if err := gob.NewEncoder(buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("sparseindex: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Load reconstructs an Index from a blob produced by Save. tok is used
// for subsequent query tokenization; pass nil for a default tokenizer.
func Load(data []byte, tok *tokenizer.Tokenizer) (*Index, error) {
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("sparseindex: decode: %w", err)
	}
	idx := New(snap.Cfg, tok)
	idx.docIDs = snap.DocIDs
	idx.docTokens = snap.DocTokens
	idx.docFreq = snap.DocFreq
	idx.avgdl = snap.AvgDL
	idx.built = true
	return idx, nil
}
