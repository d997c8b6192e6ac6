package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = openai.GPT4oMini

const prompt = `Analyze this mind map and provide insights:

%s
Please provide:
1. Main branches (top-level themes)
2. Suggested connections between topics
3. Missing topics that could enhance the map
4. A brief summary

Format as JSON with keys: mainBranches, suggestedConnections (objects with from, to, reason), missingTopics, summary`

// OpenAIModel analyzes outlines with the OpenAI chat completions API or any
// compatible endpoint.
type OpenAIModel struct {
	client *openai.Client
	model  string
	hasKey bool
}

// NewOpenAIModel returns a model using apiKey. baseURL may be empty for the
// public endpoint.
func NewOpenAIModel(apiKey, model, baseURL string) *OpenAIModel {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(cfg), model: model, hasKey: apiKey != ""}
}

// Available reports whether an API key is configured.
func (m *OpenAIModel) Available(ctx context.Context) bool {
	return m.hasKey
}

func (m *OpenAIModel) Analyze(ctx context.Context, outline string) (Insights, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You analyze mind maps and answer with a single JSON object."},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(prompt, outline)},
		},
		Temperature: 0.7,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Insights{}, fmt.Errorf("failed to analyze mind map: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Insights{}, errors.New("model returned no choices")
	}

	var res Insights
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &res); err != nil {
		return Insights{}, fmt.Errorf("failed to parse model response: %w", err)
	}
	return res, nil
}
