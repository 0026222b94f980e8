package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/medrag/retrieval/pkg/embedding"
)

// httpEmbedder adapts an external embedding HTTP endpoint to
// embedding.RawEmbedder, per spec.md §1's embedder-as-black-box
// contract. It POSTs {"text":..., "role":...} and expects
// {"vector": [...]}.
type httpEmbedder struct {
	url    string
	apiKey string
	client *http.Client
}

func newHTTPEmbedder(url, apiKey string) *httpEmbedder {
	return &httpEmbedder{url: url, apiKey: apiKey, client: &http.Client{Timeout: 15 * time.Second}}
}

type embedRequest struct {
	Text string `json:"text"`
	Role string `json:"role"`
}

type embedResponse struct {
	Vector []float32 `json:"vector"`
}

func (e *httpEmbedder) Embed(ctx context.Context, text string, role embedding.Role) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Text: text, Role: string(role)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedder: unexpected status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Vector, nil
}

// envAPIKey reads the single configuration secret spec.md's ambient
// stack calls for: the embedder API key, read once at startup.
func envAPIKey() string {
	return os.Getenv("MEDRAG_EMBEDDER_API_KEY")
}
