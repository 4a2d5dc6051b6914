package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"routeqa/llm/flow"
	"routeqa/logging"
	"routeqa/pubsub"

	"go.uber.org/zap"
)

// ErrEmptyQuestion is returned by Ask for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// Runner executes one routed question.
type Runner interface {
	Run(ctx context.Context, question, documentRef string, opts ...flow.RunOption) flow.Result
}

// Runtime is one interactive session: a transcript, the current document
// and an event stream of turns.
type Runtime struct {
	runner Runner
	store  TranscriptStore
	broker *pubsub.Broker[Turn]
	logger *zap.Logger

	mu       sync.RWMutex
	document string

	ctx        context.Context
	cancelFunc context.CancelFunc
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithStore replaces the default in-memory transcript.
func WithStore(s TranscriptStore) RuntimeOption {
	return func(r *Runtime) { r.store = s }
}

// WithRuntimeLogger sets the runtime logger.
func WithRuntimeLogger(l *zap.Logger) RuntimeOption {
	return func(r *Runtime) { r.logger = logging.OrNop(l) }
}

// NewRuntime creates a session bound to ctx.
func NewRuntime(ctx context.Context, runner Runner, opts ...RuntimeOption) *Runtime {
	childCtx, cancel := context.WithCancel(ctx)
	r := &Runtime{
		runner:     runner,
		store:      NewMemoryTranscript(0),
		broker:     pubsub.NewBroker[Turn](),
		logger:     zap.NewNop(),
		ctx:        childCtx,
		cancelFunc: cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ask records the question, runs it against the current document and
// records the answer. Flow failures are part of the returned Result; the
// error is only set when the transcript cannot be written.
func (r *Runtime) Ask(ctx context.Context, question string) (flow.Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return flow.Result{}, ErrEmptyQuestion
	}
	userTurn := newTurn(RoleUser, question)
	if err := r.store.Add(ctx, userTurn); err != nil {
		return flow.Result{}, fmt.Errorf("failed to store question: %w", err)
	}
	r.broker.Publish(pubsub.CreatedEvent, userTurn)

	doc := r.Document()
	res := r.runner.Run(ctx, question, doc, flow.WithStageListener(func(stage string) {
		progress := newTurn(RoleSystem, stageMessage(stage))
		progress.Stage = stage
		r.broker.Publish(pubsub.UpdatedEvent, progress)
	}))

	content := res.Answer
	if !res.OK() {
		content = res.Error
		r.logger.Info("question not answered", zap.String("mode", string(res.Mode)), zap.String("error", res.Error))
	}
	answerTurn := newTurn(RoleAssistant, content)
	answerTurn.Result = &res
	if err := r.store.Add(ctx, answerTurn); err != nil {
		r.logger.Warn("failed to store answer", zap.Error(err))
	}
	r.broker.Publish(pubsub.FinishedEvent, answerTurn)

	return res, nil
}

func stageMessage(stage string) string {
	switch stage {
	case flow.StageClassify:
		return "Classifying question..."
	case flow.StageWeather:
		return "Fetching weather..."
	case flow.StageRAG:
		return "Searching document..."
	default:
		return "Working..."
	}
}

// SetDocument selects the document used for document questions.
// An empty path clears it.
func (r *Runtime) SetDocument(path string) error {
	path = strings.TrimSpace(path)
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot use document: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("cannot use document: %s is a directory", path)
		}
	}

	r.mu.Lock()
	r.document = path
	r.mu.Unlock()

	msg := "Document cleared."
	if path != "" {
		msg = "Using document " + path
	}
	r.broker.Publish(pubsub.UpdatedEvent, newTurn(RoleSystem, msg))
	return nil
}

// Document returns the current document path, or "".
func (r *Runtime) Document() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.document
}

// Broker returns the session event stream.
func (r *Runtime) Broker() *pubsub.Broker[Turn] {
	return r.broker
}

// Store returns the transcript.
func (r *Runtime) Store() TranscriptStore {
	return r.store
}

// Context returns the session context, cancelled by Close.
func (r *Runtime) Context() context.Context {
	return r.ctx
}

// Close cancels the session and closes every subscription.
func (r *Runtime) Close() {
	r.cancelFunc()
	r.broker.Shutdown()
}
