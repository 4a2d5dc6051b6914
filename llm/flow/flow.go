package flow

import (
	"context"
	"fmt"
	"strings"

	"routeqa/llm"
	"routeqa/llm/rag"
	"routeqa/llm/router"
	"routeqa/llm/weather"
	"routeqa/logging"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"go.uber.org/zap"
)

// Graph node names, also reported to stage listeners.
const (
	StageClassify = "classify"
	StageWeather  = "weather"
	StageRAG      = "rag"
	StageReject   = "reject"

	graphName = "routeqa_flow"
)

// WeatherHandler answers a weather question for a location.
type WeatherHandler interface {
	Handle(ctx context.Context, location string) (*weather.Result, error)
}

// RagHandler answers a question from a document.
type RagHandler interface {
	Handle(ctx context.Context, documentRef, question string, topK int) (*rag.Result, error)
}

// Option configures a Flow.
type Option func(*Flow)

// WithTopK sets the number of chunks retrieved for document questions.
func WithTopK(k int) Option {
	return func(f *Flow) { f.topK = k }
}

// WithLogger sets the flow logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Flow) { f.logger = logging.OrNop(l) }
}

// Flow routes a question through classify, then exactly one of the weather
// or rag handlers.
type Flow struct {
	classifier router.Classifier
	weather    WeatherHandler
	rag        RagHandler
	topK       int
	logger     *zap.Logger

	runnable compose.Runnable[*Request, *FlowOutcome]
}

// New compiles the routing graph.
func New(ctx context.Context, classifier router.Classifier, wh WeatherHandler, rh RagHandler, opts ...Option) (*Flow, error) {
	f := &Flow{
		classifier: classifier,
		weather:    wh,
		rag:        rh,
		topK:       rag.DefaultTopK,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}

	runnable, err := f.compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile flow: %w", err)
	}
	f.runnable = runnable
	return f, nil
}

func (f *Flow) compile(ctx context.Context) (compose.Runnable[*Request, *FlowOutcome], error) {
	g := compose.NewGraph[*Request, *FlowOutcome]()

	nodes := []struct {
		key    string
		lambda *compose.Lambda
	}{
		{StageClassify, compose.InvokableLambda(f.classify)},
		{StageWeather, compose.InvokableLambda(f.answerWeather)},
		{StageRAG, compose.InvokableLambda(f.answerRAG)},
		{StageReject, compose.InvokableLambda(reject)},
	}
	for _, n := range nodes {
		if err := g.AddLambdaNode(n.key, n.lambda, compose.WithNodeName(n.key)); err != nil {
			return nil, err
		}
	}

	if err := g.AddEdge(compose.START, StageClassify); err != nil {
		return nil, err
	}
	branch := compose.NewGraphBranch(route, map[string]bool{
		StageWeather: true,
		StageRAG:     true,
		StageReject:  true,
	})
	if err := g.AddBranch(StageClassify, branch); err != nil {
		return nil, err
	}
	for _, key := range []string{StageWeather, StageRAG, StageReject} {
		if err := g.AddEdge(key, compose.END); err != nil {
			return nil, err
		}
	}

	return g.Compile(ctx, compose.WithGraphName(graphName))
}

func (f *Flow) classify(ctx context.Context, req *Request) (*ClassifyResult, error) {
	c, err := f.classifier.Classify(ctx, req.Question)
	if err != nil {
		f.logger.Warn("classification failed", zap.Error(err))
		return &ClassifyResult{Request: req, Err: fmt.Errorf("classification failed: %w", err)}, nil
	}
	f.logger.Debug("question classified",
		zap.String("intent", string(c.Intent)),
		zap.String("location", c.Location))
	return &ClassifyResult{Request: req, Classification: c}, nil
}

func route(_ context.Context, c *ClassifyResult) (string, error) {
	if c.Err != nil {
		return StageReject, nil
	}
	if c.Classification.Intent == llm.IntentWeather {
		return StageWeather, nil
	}
	return StageRAG, nil
}

func (f *Flow) answerWeather(ctx context.Context, c *ClassifyResult) (*FlowOutcome, error) {
	out := &FlowOutcome{Mode: llm.IntentWeather, Location: c.Classification.Location}
	res, err := f.weather.Handle(ctx, c.Classification.Location)
	out.Weather = &WeatherResult{Result: res, Err: err}
	if err != nil {
		return out.fail(weather.Message(err)), nil
	}
	return out.settle(res.Answer, nil), nil
}

func (f *Flow) answerRAG(ctx context.Context, c *ClassifyResult) (*FlowOutcome, error) {
	out := &FlowOutcome{Mode: llm.IntentRAG}
	topK := c.Request.TopK
	if topK == 0 {
		topK = f.topK
	}
	res, err := f.rag.Handle(ctx, c.Request.DocumentRef, c.Request.Question, topK)
	out.Rag = &RagResult{Result: res, Err: err}
	if err != nil {
		return out.fail(rag.Message(err)), nil
	}
	return out.settle(res.Answer, nil), nil
}

func reject(_ context.Context, c *ClassifyResult) (*FlowOutcome, error) {
	return (&FlowOutcome{}).settle("", c.Err), nil
}

// RunOption adjusts a single Run.
type RunOption func(*runOptions)

type runOptions struct {
	topK    int
	onStage func(stage string)
}

// WithRunTopK overrides the retrieval size for one run.
func WithRunTopK(k int) RunOption {
	return func(o *runOptions) { o.topK = k }
}

// WithStageListener calls fn as each graph stage starts.
func WithStageListener(fn func(stage string)) RunOption {
	return func(o *runOptions) { o.onStage = fn }
}

// Run answers question, using documentRef for document questions.
// Failures are reported in Result.Error, never as a Go error.
func (f *Flow) Run(ctx context.Context, question, documentRef string, opts ...RunOption) Result {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return (&FlowOutcome{}).settle("", ErrQuestionRequired).result()
	}

	var invokeOpts []compose.Option
	if ro.onStage != nil {
		invokeOpts = append(invokeOpts, compose.WithCallbacks(stageHandler(ro.onStage)))
	}

	req := &Request{Question: question, DocumentRef: strings.TrimSpace(documentRef), TopK: ro.topK}
	out, err := f.runnable.Invoke(ctx, req, invokeOpts...)
	if err != nil {
		f.logger.Error("flow execution failed", zap.Error(err))
		return (&FlowOutcome{}).settle("", fmt.Errorf("flow failed: %w", err)).result()
	}
	if out == nil {
		return (&FlowOutcome{}).settle("", errNoAnswer).result()
	}
	return out.result()
}

func stageHandler(fn func(stage string)) callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
			if info == nil {
				return ctx
			}
			switch info.Name {
			case StageClassify, StageWeather, StageRAG, StageReject:
				fn(info.Name)
			}
			return ctx
		}).
		Build()
}
