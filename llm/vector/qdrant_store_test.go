package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"routeqa/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQdrantIndex(t *testing.T) {
	var upserted []qdrantPoint
	created := false

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/docs":
			if !created {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte(`{"result":{"status":"green"}}`))

		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
			var body map[string]map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Cosine", body["vectors"]["distance"])
			assert.Equal(t, float64(3), body["vectors"]["size"])
			created = true
			w.Write([]byte(`{"result":true}`))

		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
			assert.Equal(t, "true", r.URL.Query().Get("wait"))
			var body struct {
				Points []qdrantPoint `json:"points"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			upserted = append(upserted, body.Points...)
			w.Write([]byte(`{"result":{"status":"completed"}}`))

		case r.Method == http.MethodPost && r.URL.Path == "/collections/docs/points/search":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(2), body["limit"])
			assert.Equal(t, true, body["with_payload"])
			w.Write([]byte(`{"result":[
				{"id":"9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d","score":0.91,"payload":{"text":"first"}},
				{"id":42,"score":0.5,"payload":{"text":"second"}}
			]}`))

		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	q := NewQdrantIndex(QdrantConfig{URL: srv.URL + "/", APIKey: "secret"})
	defer q.Close()

	exists, err := q.Exists(ctx, "docs")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, q.Create(ctx, "docs", 3, MetricCosine))

	exists, err = q.Exists(ctx, "docs")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, q.Upsert(ctx, "docs", []llm.EmbeddedItem{
		{ID: "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", Vector: []float32{1, 0, 0}, Payload: map[string]any{"text": "first"}},
	}))
	require.Len(t, upserted, 1)
	assert.Equal(t, "first", upserted[0].Payload["text"])

	hits, err := q.Search(ctx, "docs", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", hits[0].ID)
	assert.Equal(t, "42", hits[1].ID)
	assert.Equal(t, "first", hits[0].Text())
}

func TestQdrantIndexUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	q := NewQdrantIndex(QdrantConfig{URL: srv.URL})
	_, err := q.Exists(context.Background(), "docs")
	assert.ErrorIs(t, err, ErrIndexUnavailable)

	srv.Close()
	_, err = q.Search(context.Background(), "docs", []float32{1}, 1)
	assert.ErrorIs(t, err, ErrIndexUnavailable)
}
