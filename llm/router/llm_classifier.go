package router

import (
	"context"
	"strings"

	"routeqa/llm"
	"routeqa/logging"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

const classifySystemPrompt = `You route user questions for an assistant with two tools:
- "weather": current weather conditions for a city or place.
- "rag": answering from a user-provided document.
Reply with exactly one word: weather or rag.`

// LLMClassifier asks the chat model for a one-word route.
// Any reply that does not contain "weather", including an empty reply or a
// failed call, routes to rag.
type LLMClassifier struct {
	model    model.BaseChatModel
	template prompt.ChatTemplate
	logger   *zap.Logger
}

// NewLLMClassifier creates a classifier backed by chatModel.
func NewLLMClassifier(chatModel model.BaseChatModel, logger *zap.Logger) *LLMClassifier {
	return &LLMClassifier{
		model: chatModel,
		template: prompt.FromMessages(schema.FString,
			schema.SystemMessage(classifySystemPrompt),
			schema.UserMessage("Question: {question}"),
		),
		logger: logging.OrNop(logger),
	}
}

func (c *LLMClassifier) Classify(ctx context.Context, question string) (llm.Classification, error) {
	reply, err := c.ask(ctx, question)
	if err != nil {
		c.logger.Warn("intent classification failed, defaulting to rag", zap.Error(err))
		return llm.Classification{Intent: llm.IntentRAG}, nil
	}

	if ParseIntent(reply) == llm.IntentWeather {
		return weather(question), nil
	}
	if r := strings.ToLower(strings.TrimSpace(reply)); r != string(llm.IntentRAG) {
		c.logger.Debug("ambiguous classifier reply, defaulting to rag", zap.String("reply", reply))
	}
	return llm.Classification{Intent: llm.IntentRAG}, nil
}

func (c *LLMClassifier) ask(ctx context.Context, question string) (string, error) {
	msgs, err := c.template.Format(ctx, map[string]any{"question": question})
	if err != nil {
		return "", err
	}
	out, err := c.model.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

// ParseIntent maps a free-form model reply to an intent: weather if the
// lower-cased reply contains "weather", rag otherwise.
func ParseIntent(reply string) llm.Intent {
	if strings.Contains(strings.ToLower(reply), string(llm.IntentWeather)) {
		return llm.IntentWeather
	}
	return llm.IntentRAG
}
