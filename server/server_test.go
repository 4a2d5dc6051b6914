package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"

	"routeqa/config"
	"routeqa/llm"
	"routeqa/llm/flow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRunner struct {
	question string
	document string
	opts     int
}

func (s *stubRunner) Run(_ context.Context, question, documentRef string, opts ...flow.RunOption) flow.Result {
	s.question, s.document, s.opts = question, documentRef, len(opts)
	switch {
	case question == "":
		return flow.Result{Error: flow.ErrQuestionRequired.Error()}
	case documentRef == "":
		return flow.Result{Mode: llm.IntentRAG, Error: "Please provide a document (upload a PDF) to use RAG."}
	default:
		return flow.Result{Mode: llm.IntentRAG, Answer: "42", Sources: []llm.SearchHit{{ID: "a", Score: 0.9}}}
	}
}

type stubIngester struct {
	err error
}

func (s *stubIngester) Ingest(context.Context, string) (int, error) {
	return 7, s.err
}

func newTestServer(runner Runner, ing Ingester) http.Handler {
	return NewServer(runner, ing, config.ServerConfig{}, zap.NewNop()).Handler()
}

func post(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestHandleAsk(t *testing.T) {
	runner := &stubRunner{}
	h := newTestServer(runner, nil)

	rec, out := post(t, h, "/api/v1/ask", `{"question":"meaning of life","document":"book.pdf","top_k":2}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "42", out["answer"])
	assert.Equal(t, "rag", out["mode"])
	assert.Len(t, out["sources"], 1)
	assert.NotContains(t, out, "error")
	assert.Equal(t, "book.pdf", runner.document)
	assert.Equal(t, 1, runner.opts)
}

func TestHandleAskOutcomeError(t *testing.T) {
	rec, out := post(t, newTestServer(&stubRunner{}, nil), "/api/v1/ask", `{"question":"summarize"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Please provide a document (upload a PDF) to use RAG.", out["error"])
	assert.NotContains(t, out, "answer")
}

func TestHandleAskBadRequests(t *testing.T) {
	h := newTestServer(&stubRunner{}, nil)

	for _, body := range []string{`{`, `{"question":"x","top_k":-1}`, `{"question":""}`} {
		rec, out := post(t, h, "/api/v1/ask", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.NotEmpty(t, out["error"], body)
	}
}

func TestHandleIngest(t *testing.T) {
	rec, out := post(t, newTestServer(&stubRunner{}, &stubIngester{}), "/api/v1/ingest", `{"document":"a.md"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(7), out["chunks"])

	rec, _ = post(t, newTestServer(&stubRunner{}, &stubIngester{}), "/api/v1/ingest", `{"document":" "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	missing := &stubIngester{err: fmt.Errorf("failed to open document: %w", fs.ErrNotExist)}
	rec, _ = post(t, newTestServer(&stubRunner{}, missing), "/api/v1/ingest", `{"document":"gone.md"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	broken := &stubIngester{err: errors.New("vector index unavailable")}
	rec, out = post(t, newTestServer(&stubRunner{}, broken), "/api/v1/ingest", `{"document":"a.md"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "vector index unavailable", out["error"])
}

func TestIngestRouteDisabledWithoutIngester(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewBufferString(`{"document":"a"}`))
	rec := httptest.NewRecorder()
	newTestServer(&stubRunner{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	newTestServer(&stubRunner{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
