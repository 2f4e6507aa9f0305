package ai

import (
	"context"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/ports"
)

// openAIClient serves OpenAI and any OpenAI-compatible endpoint (DeepSeek,
// vLLM, LM Studio) through the official SDK.
type openAIClient struct {
	client *openai.Client
}

func newOpenAIClient(provider domain.ProviderConfig, apiKey string, httpClient *http.Client) *openAIClient {
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if base := openAIBaseURL(provider.Endpoint); base != "" {
		options = append(options, option.WithBaseURL(base))
	}
	for key, value := range provider.APIFormat.ExtraHeaders {
		options = append(options, option.WithHeader(key, value))
	}

	// The &c is required: the SDK returns the client by value.
	c := openai.NewClient(options...)
	return &openAIClient{client: &c}
}

func (c *openAIClient) complete(ctx context.Context, req ports.ProviderRequest) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Selection.ModelID),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *openAIClient) listModels(ctx context.Context) ([]string, error) {
	var ids []string
	iter := c.client.Models.ListAutoPaging(ctx)
	for iter.Next() {
		ids = append(ids, iter.Current().ID)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// openAIBaseURL accepts either a base URL or a full chat completions endpoint.
func openAIBaseURL(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	endpoint = strings.TrimSuffix(endpoint, "/chat/completions")
	if endpoint == "" {
		return ""
	}
	return endpoint + "/"
}
