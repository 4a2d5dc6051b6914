package router

import (
	"context"
	"fmt"
	"strings"

	"routeqa/llm"

	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"
)

// Classifier decides whether a question is a weather request or a document request.
type Classifier interface {
	Classify(ctx context.Context, question string) (llm.Classification, error)
}

// Mode names accepted by New.
const (
	ModeKeyword = "keyword"
	ModeLLM     = "llm"
)

// New returns the classifier for mode. chatModel is only used by ModeLLM.
func New(mode string, chatModel model.BaseChatModel, logger *zap.Logger) (Classifier, error) {
	switch mode {
	case "", ModeKeyword:
		return NewKeywordClassifier(), nil
	case ModeLLM:
		if chatModel == nil {
			return nil, fmt.Errorf("llm classifier requires a chat model")
		}
		return NewLLMClassifier(chatModel, logger), nil
	default:
		return nil, fmt.Errorf("unknown classifier mode %q", mode)
	}
}

// WeatherKeywords trigger the weather route in keyword mode.
var WeatherKeywords = []string{"weather", "temperature", "forecast", "rain", "sunny", "wind"}

// KeywordClassifier routes by substring match on WeatherKeywords. It makes no external calls.
type KeywordClassifier struct {
	keywords []string
}

// NewKeywordClassifier creates a classifier with the default weather keywords.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{keywords: WeatherKeywords}
}

func (c *KeywordClassifier) Classify(_ context.Context, question string) (llm.Classification, error) {
	if c.isWeather(question) {
		return weather(question), nil
	}
	return llm.Classification{Intent: llm.IntentRAG}, nil
}

func (c *KeywordClassifier) isWeather(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range c.keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

func weather(question string) llm.Classification {
	return llm.Classification{
		Intent:   llm.IntentWeather,
		Location: ExtractLocation(question),
	}
}
