package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"routeqa/logging"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

var (
	// ErrNoLocation is returned when a weather question carries no usable place.
	ErrNoLocation = errors.New("no location found in the question")
	// ErrFetch wraps failures of the weather capability.
	ErrFetch = errors.New("weather fetch failed")
)

// NoLocationMessage is shown to the user for ErrNoLocation.
const NoLocationMessage = "No location found in the question. Please specify a city/state."

// Message renders an error returned by Handle for the user.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNoLocation):
		return NoLocationMessage
	case errors.Is(err, ErrFetch):
		return "Weather fetch failed: " + strings.TrimPrefix(err.Error(), ErrFetch.Error()+": ")
	default:
		return err.Error()
	}
}

// Result is a successful weather lookup.
type Result struct {
	Answer string  `json:"answer"`
	Report *Report `json:"weather"`
}

// Option configures a Handler.
type Option func(*Handler)

// WithSummarizer makes the handler rewrite the report as one sentence using m.
// A failed summary falls back to the formatted report.
func WithSummarizer(m model.BaseChatModel) Option {
	return func(h *Handler) { h.summarizer = m }
}

// WithUnits sets the unit system used when formatting temperatures.
func WithUnits(units string) Option {
	return func(h *Handler) { h.units = units }
}

// WithLogger sets the handler logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) { h.logger = logging.OrNop(l) }
}

// Handler answers weather questions for an already extracted location.
type Handler struct {
	fetcher    Fetcher
	summarizer model.BaseChatModel
	template   prompt.ChatTemplate
	units      string
	logger     *zap.Logger
}

// NewHandler creates a weather handler backed by fetcher.
func NewHandler(fetcher Fetcher, opts ...Option) *Handler {
	h := &Handler{
		fetcher: fetcher,
		template: prompt.FromMessages(schema.FString,
			schema.UserMessage("Summarize the following weather info for the user in one sentence.\n{report}"),
		),
		units:  "metric",
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle fetches and formats the current weather for location.
// Use Message to show its errors to the user.
func (h *Handler) Handle(ctx context.Context, location string) (*Result, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, ErrNoLocation
	}

	report, err := h.fetcher.Fetch(ctx, location)
	if err != nil {
		h.logger.Warn("weather fetch failed", zap.String("location", location), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	answer := report.Format(h.units)
	if h.summarizer != nil {
		if summary, err := h.summarize(ctx, report); err != nil {
			h.logger.Warn("weather summary failed, using formatted report", zap.Error(err))
		} else if summary != "" {
			answer = summary
		}
	}

	return &Result{Answer: answer, Report: report}, nil
}

func (h *Handler) summarize(ctx context.Context, report *Report) (string, error) {
	view := *report
	view.Raw = nil
	data, err := json.Marshal(view)
	if err != nil {
		return "", err
	}
	msgs, err := h.template.Format(ctx, map[string]any{"report": string(data)})
	if err != nil {
		return "", err
	}
	out, err := h.summarizer.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Content), nil
}
