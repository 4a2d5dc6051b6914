package flow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"routeqa/llm"
	"routeqa/llm/parser"
	"routeqa/llm/rag"
	"routeqa/llm/router"
	"routeqa/llm/vector"
	"routeqa/llm/weather"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	calls int
	err   error
}

func (s *stubFetcher) Fetch(_ context.Context, city string) (*weather.Report, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	r := weather.Normalize(map[string]any{
		"name":    city,
		"weather": []any{map[string]any{"description": "clear sky"}},
		"main":    map[string]any{"temp": 18.0, "feels_like": 17.0, "humidity": 40.0},
	})
	return &r, nil
}

type stubModel struct {
	reply string
	err   error
	calls int
}

func (m *stubModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *stubModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, string) (llm.Classification, error) {
	return llm.Classification{}, errors.New("classifier offline")
}

type fixture struct {
	flow    *Flow
	fetcher *stubFetcher
	model   *stubModel
	hash    *vector.HashEmbedder
	index   *vector.MemoryIndex
}

func newFixture(t *testing.T, classifier router.Classifier) *fixture {
	t.Helper()
	fx := &fixture{
		fetcher: &stubFetcher{},
		model:   &stubModel{reply: "The treaty was signed in 1648."},
		hash:    vector.NewHashEmbedder(64),
		index:   vector.NewMemoryIndex(),
	}
	svc := vector.NewEmbeddingService(fx.hash, vector.EmbeddingConfig{Model: "hash-64", Dimension: 64})
	retriever := vector.NewRetriever(fx.index, svc, "docs", nil)
	rh := rag.NewHandler(parser.DefaultRegistry(), retriever, fx.model, nil,
		rag.Config{Chunking: vector.ChunkConfig{ChunkSize: 8, ChunkOverlap: 2}}, nil)
	wh := weather.NewHandler(fx.fetcher)

	if classifier == nil {
		classifier = router.NewKeywordClassifier()
	}
	f, err := New(context.Background(), classifier, wh, rh)
	require.NoError(t, err)
	fx.flow = f
	return fx
}

func writeDoc(t *testing.T) string {
	t.Helper()
	text := strings.Repeat("The peace treaty ending the long war was signed in Westphalia. ", 10) +
		"Delegates met in two towns. Negotiations lasted several years."
	path := filepath.Join(t.TempDir(), "history.md")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func assertExclusive(t *testing.T, r Result) {
	t.Helper()
	assert.True(t, (r.Answer == "") != (r.Error == ""), "answer=%q error=%q", r.Answer, r.Error)
}

func TestWeatherQuestion(t *testing.T) {
	fx := newFixture(t, nil)

	res := fx.flow.Run(context.Background(), "What's the weather in Paris?", "")
	assertExclusive(t, res)
	require.True(t, res.OK(), res.Error)

	assert.Equal(t, llm.IntentWeather, res.Mode)
	assert.Equal(t, "Paris", res.Location)
	require.NotNil(t, res.Weather)
	assert.Equal(t, "Paris", res.Weather.City)
	assert.Contains(t, res.Answer, "Paris")
	assert.Contains(t, res.Answer, "clear sky")
	assert.Equal(t, 1, fx.fetcher.calls)
	assert.Zero(t, fx.hash.Calls())
}

func TestDocumentQuestion(t *testing.T) {
	fx := newFixture(t, nil)
	doc := writeDoc(t)

	res := fx.flow.Run(context.Background(), "When was the treaty signed?", doc)
	assertExclusive(t, res)
	require.True(t, res.OK(), res.Error)

	assert.Equal(t, llm.IntentRAG, res.Mode)
	assert.Equal(t, "The treaty was signed in 1648.", res.Answer)
	assert.NotEmpty(t, res.Sources)
	assert.LessOrEqual(t, len(res.Sources), 4)
	for i := 1; i < len(res.Sources); i++ {
		assert.GreaterOrEqual(t, res.Sources[i-1].Score, res.Sources[i].Score)
	}
	require.NotNil(t, res.Evaluation)
	assert.Equal(t, 1.0, res.Evaluation.Score)
	assert.Zero(t, fx.fetcher.calls)

	// second question on the same file reuses the cached chunks
	stored := fx.index.Len("docs")
	res = fx.flow.Run(context.Background(), "Where did delegates meet?", doc)
	require.True(t, res.OK(), res.Error)
	assert.Equal(t, stored, fx.index.Len("docs"))
}

func TestWeatherWithoutLocation(t *testing.T) {
	fx := newFixture(t, nil)

	res := fx.flow.Run(context.Background(), "weather", "")
	assertExclusive(t, res)
	assert.Equal(t, llm.IntentWeather, res.Mode)
	assert.True(t, strings.HasPrefix(res.Error, "No location found"))
	assert.Zero(t, fx.fetcher.calls)
}

func TestDocumentQuestionWithoutDocument(t *testing.T) {
	fx := newFixture(t, nil)

	res := fx.flow.Run(context.Background(), "Summarize the report", "")
	assertExclusive(t, res)
	assert.Equal(t, llm.IntentRAG, res.Mode)
	assert.True(t, strings.HasPrefix(res.Error, "Please provide a document"))
	assert.Zero(t, fx.hash.Calls())
	assert.Zero(t, fx.index.Len("docs"))
	assert.Zero(t, fx.model.calls)
}

func TestAnswerErrorExclusivity(t *testing.T) {
	cases := []struct {
		name     string
		question string
		doc      bool
		setup    func(fx *fixture)
		wantErr  string
	}{
		{name: "weather ok", question: "weather in Oslo"},
		{name: "weather fails", question: "weather in Oslo",
			setup:   func(fx *fixture) { fx.fetcher.err = errors.New("503") },
			wantErr: "Weather fetch failed: 503"},
		{name: "rag ok", question: "who signed", doc: true},
		{name: "rag fails", question: "who signed", doc: true,
			setup:   func(fx *fixture) { fx.model.err = errors.New("quota") },
			wantErr: "RAG failed: llm call failed: quota"},
		{name: "blank model answer", question: "who signed", doc: true,
			setup:   func(fx *fixture) { fx.model.reply = "  " },
			wantErr: errNoAnswer.Error()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t, nil)
			if tc.setup != nil {
				tc.setup(fx)
			}
			doc := ""
			if tc.doc {
				doc = writeDoc(t)
			}
			res := fx.flow.Run(context.Background(), tc.question, doc)
			assertExclusive(t, res)
			assert.Equal(t, tc.wantErr, res.Error)
		})
	}
}

func TestEmptyQuestion(t *testing.T) {
	fx := newFixture(t, nil)
	for _, q := range []string{"", "   \n"} {
		res := fx.flow.Run(context.Background(), q, "")
		assert.Equal(t, "question is required", res.Error)
		assert.Empty(t, res.Answer)
		assert.Empty(t, res.Mode)
	}
}

func TestClassifierFailureIsTerminal(t *testing.T) {
	fx := newFixture(t, failingClassifier{})
	res := fx.flow.Run(context.Background(), "weather in Rome", "")
	assertExclusive(t, res)
	assert.Contains(t, res.Error, "classifier offline")
	assert.Zero(t, fx.fetcher.calls)
}

func TestStageListener(t *testing.T) {
	fx := newFixture(t, nil)

	var stages []string
	res := fx.flow.Run(context.Background(), "weather in Lima", "", WithStageListener(func(s string) {
		stages = append(stages, s)
	}))
	require.True(t, res.OK(), res.Error)
	assert.Equal(t, []string{StageClassify, StageWeather}, stages)
}

func TestNegativeRunTopKTouchesNothing(t *testing.T) {
	fx := newFixture(t, nil)
	res := fx.flow.Run(context.Background(), "When was the treaty signed?", writeDoc(t), WithRunTopK(-1))
	assertExclusive(t, res)
	assert.Equal(t, llm.IntentRAG, res.Mode)
	assert.Equal(t, "RAG failed: top_k must be positive, got -1", res.Error)
	assert.Zero(t, fx.hash.Calls())
	assert.Zero(t, fx.index.Len("docs"))
	assert.Zero(t, fx.model.calls)
}

func TestRunTopK(t *testing.T) {
	fx := newFixture(t, nil)
	res := fx.flow.Run(context.Background(), "who signed the treaty", writeDoc(t), WithRunTopK(1))
	require.True(t, res.OK(), res.Error)
	assert.Len(t, res.Sources, 1)
}
