package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"routeqa/llm"
)

// QdrantConfig holds Qdrant connection configuration
type QdrantConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// QdrantIndex implements Index over the Qdrant REST API.
// Point IDs must be UUIDs or unsigned integers, which chunk IDs are.
type QdrantIndex struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewQdrantIndex creates a Qdrant client. No request is made until first use.
func NewQdrantIndex(cfg QdrantConfig) *QdrantIndex {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &QdrantIndex{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (q *QdrantIndex) collectionURL(collection string, parts ...string) string {
	u := q.baseURL + "/collections/" + url.PathEscape(collection)
	if len(parts) > 0 {
		u += "/" + strings.Join(parts, "/")
	}
	return u
}

func (q *QdrantIndex) Exists(ctx context.Context, collection string) (bool, error) {
	status, _, err := q.do(ctx, http.MethodGet, q.collectionURL(collection), nil)
	if err != nil {
		return false, err
	}
	switch {
	case status == http.StatusNotFound:
		return false, nil
	case status < 300:
		return true, nil
	default:
		return false, fmt.Errorf("qdrant: get collection %s: status %d", collection, status)
	}
}

func (q *QdrantIndex) Create(ctx context.Context, collection string, dim int, metric Metric) error {
	if metric != MetricCosine {
		return fmt.Errorf("qdrant: unsupported metric %q", metric)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	status, resp, err := q.do(ctx, http.MethodPut, q.collectionURL(collection), body)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("qdrant: create collection %s: status %d: %s", collection, status, snippet(resp))
	}
	return nil
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (q *QdrantIndex) Upsert(ctx context.Context, collection string, items []llm.EmbeddedItem) error {
	if len(items) == 0 {
		return nil
	}

	points := make([]qdrantPoint, len(items))
	for i, item := range items {
		points[i] = qdrantPoint{ID: item.ID, Vector: item.Vector, Payload: item.Payload}
	}

	status, resp, err := q.do(ctx, http.MethodPut, q.collectionURL(collection, "points")+"?wait=true",
		map[string]any{"points": points})
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("qdrant: upsert into %s: status %d: %s", collection, status, snippet(resp))
	}
	return nil
}

func (q *QdrantIndex) Search(ctx context.Context, collection string, vector []float32, limit int) ([]llm.SearchHit, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	status, resp, err := q.do(ctx, http.MethodPost, q.collectionURL(collection, "points", "search"), req)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, fmt.Errorf("qdrant: search %s: status %d: %s", collection, status, snippet(resp))
	}

	var parsed struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return nil, fmt.Errorf("qdrant: decode search response: %w", err)
	}

	hits := make([]llm.SearchHit, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		hits = append(hits, llm.SearchHit{
			ID:      formatPointID(r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return hits, nil
}

func (q *QdrantIndex) Close() error {
	q.client.CloseIdleConnections()
	return nil
}

// do sends a JSON request and returns the status and body.
// Transport failures and 5xx responses wrap ErrIndexUnavailable.
func (q *QdrantIndex) do(ctx context.Context, method, u string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("qdrant: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("qdrant: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: qdrant %s %s: %v", ErrIndexUnavailable, method, u, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: qdrant read response: %v", ErrIndexUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return resp.StatusCode, data, fmt.Errorf("%w: qdrant %s %s: status %d: %s",
			ErrIndexUnavailable, method, u, resp.StatusCode, snippet(data))
	}
	return resp.StatusCode, data, nil
}

// formatPointID renders string and numeric point IDs the same way.
func formatPointID(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}

func snippet(b []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(b))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
