package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/ports"
)

const maxResponseBytes = 16 << 20

// httpClient is a configuration-driven chat-completions client.
// Auth header, response path and extra headers come from the provider's APIFormat.
type httpClient struct {
	provider   domain.ProviderConfig
	apiKey     string
	format     domain.APIFormat
	httpClient *http.Client
}

func newHTTPClient(provider domain.ProviderConfig, apiKey string, client *http.Client) *httpClient {
	return &httpClient{
		provider:   provider,
		apiKey:     apiKey,
		format:     provider.APIFormat.WithDefaults(),
		httpClient: client,
	}
}

func (p *httpClient) complete(ctx context.Context, req ports.ProviderRequest) (string, error) {
	requestBody, err := p.buildRequestBody(req)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.provider.Endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	p.setHeaders(httpReq)

	body, err := p.do(httpReq)
	if err != nil {
		return "", err
	}
	return p.parseResponse(body)
}

func (p *httpClient) listModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, modelsURL(p.provider.Endpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("create HTTP request: %w", err)
	}
	p.setHeaders(httpReq)

	body, err := p.do(httpReq)
	if err != nil {
		return nil, err
	}

	var listing struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, &malformedError{err: fmt.Errorf("decode model list: %w", err)}
	}
	var ids []string
	for _, model := range listing.Data {
		ids = append(ids, model.ID)
	}
	for _, model := range listing.Models {
		ids = append(ids, model.Name)
	}
	return ids, nil
}

func (p *httpClient) do(req *http.Request) ([]byte, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, &statusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// buildRequestBody builds an OpenAI-style chat request with the system prompt inline.
func (p *httpClient) buildRequestBody(req ports.ProviderRequest) ([]byte, error) {
	messages := make([]map[string]string, 0, 2)
	if req.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})

	request := map[string]interface{}{
		"model":    req.Selection.ModelID,
		"messages": messages,
		"stream":   false,
	}
	if req.MaxTokens > 0 {
		request["max_tokens"] = req.MaxTokens
	}
	return json.Marshal(request)
}

func (p *httpClient) setHeaders(req *http.Request) {
	req.Header.Set(p.format.AuthHeaderName, p.format.AuthHeaderPrefix+p.apiKey)
	for key, value := range p.format.ExtraHeaders {
		req.Header.Set(key, value)
	}
}

// parseResponse extracts the generated text using the configured JSON path.
func (p *httpClient) parseResponse(body []byte) (string, error) {
	var response map[string]interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", &malformedError{err: fmt.Errorf("unmarshal JSON: %w", err)}
	}

	content, err := extractJSONPath(response, p.format.ResponseJSONPath)
	if err != nil {
		return "", &malformedError{err: fmt.Errorf("extract from path '%s': %w", p.format.ResponseJSONPath, err)}
	}
	return content, nil
}

// modelsURL derives the model listing URL from a chat endpoint:
// .../chat/completions becomes .../models and /v1/messages becomes /v1/models.
func modelsURL(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	switch {
	case strings.HasSuffix(endpoint, "/chat/completions"):
		return strings.TrimSuffix(endpoint, "/chat/completions") + "/models"
	case strings.HasSuffix(endpoint, "/messages"):
		return strings.TrimSuffix(endpoint, "/messages") + "/models"
	default:
		return endpoint + "/models"
	}
}

// extractJSONPath extracts a string value from a nested JSON structure using a simple path notation.
// Supported paths: "field", "field.nested", "field[0]", "field[0].nested.field"
func extractJSONPath(data map[string]interface{}, path string) (string, error) {
	var current interface{} = data

	for _, part := range parseJSONPath(path) {
		switch part.kind {
		case "field":
			obj, ok := current.(map[string]interface{})
			if !ok {
				return "", fmt.Errorf("expected object at '%s'", part.value)
			}
			var found bool
			current, found = obj[part.value]
			if !found {
				return "", fmt.Errorf("field '%s' not found", part.value)
			}

		case "index":
			arr, ok := current.([]interface{})
			if !ok {
				return "", fmt.Errorf("expected array at index %s", part.value)
			}
			idx, err := strconv.Atoi(part.value)
			if err != nil {
				return "", fmt.Errorf("invalid index %q", part.value)
			}
			if idx < 0 || idx >= len(arr) {
				return "", fmt.Errorf("index %d out of bounds (len=%d)", idx, len(arr))
			}
			current = arr[idx]
		}
	}

	if str, ok := current.(string); ok {
		return str, nil
	}
	return "", fmt.Errorf("final value is not a string: %T", current)
}

type pathPart struct {
	kind  string // "field" or "index"
	value string
}

// parseJSONPath converts "content[0].text" into structured path parts.
func parseJSONPath(path string) []pathPart {
	var parts []pathPart
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, pathPart{kind: "field", value: current.String()})
			current.Reset()
		}
	}

	for i := 0; i < len(path); i++ {
		switch ch := path[i]; ch {
		case '.':
			flush()
		case '[':
			flush()
			j := i + 1
			for j < len(path) && path[j] != ']' {
				j++
			}
			if j < len(path) {
				parts = append(parts, pathPart{kind: "index", value: path[i+1 : j]})
				i = j
			}
		default:
			current.WriteByte(ch)
		}
	}
	flush()
	return parts
}
