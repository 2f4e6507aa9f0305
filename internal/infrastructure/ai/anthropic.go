package ai

import (
	"context"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/ports"
)

// anthropicClient talks to the Anthropic Messages API.
type anthropicClient struct {
	client *anthropic.Client
}

func newAnthropicClient(provider domain.ProviderConfig, apiKey string, httpClient *http.Client) *anthropicClient {
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if base := anthropicBaseURL(provider.Endpoint); base != "" {
		options = append(options, option.WithBaseURL(base))
	}
	for key, value := range provider.APIFormat.ExtraHeaders {
		options = append(options, option.WithHeader(key, value))
	}

	client := anthropic.NewClient(options...)
	return &anthropicClient{client: &client}
}

func (c *anthropicClient) complete(ctx context.Context, req ports.ProviderRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Selection.ModelID),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	return text.String(), nil
}

func (c *anthropicClient) listModels(ctx context.Context) ([]string, error) {
	var ids []string
	iter := c.client.Models.ListAutoPaging(ctx, anthropic.ModelListParams{})
	for iter.Next() {
		ids = append(ids, iter.Current().ID)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// anthropicBaseURL accepts either a base URL or a full messages endpoint.
func anthropicBaseURL(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	endpoint = strings.TrimSuffix(endpoint, "/messages")
	endpoint = strings.TrimSuffix(endpoint, "/v1")
	if endpoint == "" {
		return ""
	}
	return endpoint + "/"
}
