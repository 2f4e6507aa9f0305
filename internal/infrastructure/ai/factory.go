// Package ai provides the provider factory and the per-kind AI clients.
//
// This package hides vendor wire formats behind ports.ProviderClient:
//   - Factory: resolves a domain.Selection to a provider client and maps failures
//   - anthropic kind: official Anthropic SDK (Messages API)
//   - openai kind: official OpenAI SDK, also used for OpenAI-compatible endpoints
//   - http kind: configuration-driven JSON client for Ollama and custom endpoints
//
// Every failure leaving this package is a *domain.ProviderError, except
// cancellation, which is reported as the context's error.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/ports"
)

// chatClient is implemented by each provider kind.
type chatClient interface {
	complete(ctx context.Context, req ports.ProviderRequest) (string, error)
	listModels(ctx context.Context) ([]string, error)
}

// Factory creates and caches provider clients for the configured providers.
// It maintains a single HTTP client shared across all providers.
type Factory struct {
	httpClient *http.Client
	logger     ports.Logger

	mu        sync.Mutex
	providers map[string]domain.ProviderConfig
	clients   map[string]chatClient
}

// NewFactory creates a factory for the given providers.
func NewFactory(providers []domain.ProviderConfig, logger ports.Logger) *Factory {
	f := &Factory{
		httpClient: &http.Client{Timeout: domain.DefaultHTTPClientTimeout},
		logger:     logger,
	}
	f.SetProviders(providers)
	return f
}

// SetProviders replaces the known providers and drops cached clients.
func (f *Factory) SetProviders(providers []domain.ProviderConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers = make(map[string]domain.ProviderConfig, len(providers))
	for _, provider := range providers {
		f.providers[provider.ID] = provider
	}
	f.clients = make(map[string]chatClient)
}

// Send implements ports.ProviderClient. The call runs in its own goroutine so
// a reply that arrives after ctx is cancelled is dropped rather than returned.
func (f *Factory) Send(ctx context.Context, req ports.ProviderRequest) (string, error) {
	providerID := req.Selection.ProviderID
	client, err := f.clientFor(providerID)
	if err != nil {
		return "", err
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = domain.MaxTokensFor(req.Selection.ModelID)
	}

	f.debug("provider request", map[string]interface{}{
		"provider": providerID,
		"model":    req.Selection.ModelID,
		"system":   req.System,
		"prompt":   req.Prompt,
	})

	type reply struct {
		text string
		err  error
	}
	done := make(chan reply, 1)
	start := time.Now()
	go func() {
		text, err := client.complete(ctx, req)
		done <- reply{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		f.debug("provider request cancelled", map[string]interface{}{
			"provider":   providerID,
			"latency_ms": time.Since(start).Milliseconds(),
		})
		return "", ctx.Err()
	case r := <-done:
		latency := time.Since(start).Milliseconds()
		if r.err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			mapped := mapError(providerID, r.err)
			if f.logger != nil {
				f.logger.Error("provider request failed", mapped, map[string]interface{}{
					"provider":   providerID,
					"model":      req.Selection.ModelID,
					"latency_ms": latency,
				})
			}
			return "", mapped
		}
		text := strings.TrimSpace(r.text)
		if text == "" {
			return "", &domain.ProviderError{Kind: domain.ProviderMalformed, ProviderID: providerID, Message: "empty reply"}
		}
		if f.logger != nil {
			f.logger.Info("provider reply", map[string]interface{}{
				"provider":   providerID,
				"model":      req.Selection.ModelID,
				"latency_ms": latency,
				"bytes":      len(text),
			})
		}
		f.debug("provider reply text", map[string]interface{}{"reply": text})
		return text, nil
	}
}

// ListModels implements ports.ModelLister.
func (f *Factory) ListModels(ctx context.Context, providerID string) ([]string, error) {
	client, err := f.clientFor(providerID)
	if err != nil {
		return nil, err
	}
	ids, err := client.listModels(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, mapError(providerID, err)
	}
	return ids, nil
}

func (f *Factory) clientFor(providerID string) (chatClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.clients[providerID]; ok {
		return client, nil
	}
	provider, ok := f.providers[providerID]
	if !ok {
		return nil, &domain.ProviderError{Kind: domain.ProviderAuth, ProviderID: providerID, Message: "provider is not configured"}
	}
	apiKey := provider.ResolveAPIKey()
	if apiKey == "" {
		return nil, &domain.ProviderError{Kind: domain.ProviderAuth, ProviderID: providerID, Message: missingKeyMessage(provider)}
	}

	var client chatClient
	switch provider.Kind {
	case domain.ProviderKindAnthropic:
		client = newAnthropicClient(provider, apiKey, f.httpClient)
	case domain.ProviderKindOpenAI:
		client = newOpenAIClient(provider, apiKey, f.httpClient)
	case domain.ProviderKindHTTP:
		if provider.Endpoint == "" {
			return nil, &domain.ProviderError{Kind: domain.ProviderNetwork, ProviderID: providerID, Message: "http provider has no endpoint"}
		}
		client = newHTTPClient(provider, apiKey, f.httpClient)
	default:
		return nil, &domain.ProviderError{
			Kind:       domain.ProviderMalformed,
			ProviderID: providerID,
			Message:    fmt.Sprintf("unsupported provider kind %q", provider.Kind),
		}
	}
	f.clients[providerID] = client
	return client, nil
}

func (f *Factory) debug(msg string, fields map[string]interface{}) {
	if f.logger != nil {
		f.logger.Debug(msg, fields)
	}
}

func missingKeyMessage(provider domain.ProviderConfig) string {
	if provider.APIKeyEnv != "" {
		return fmt.Sprintf("missing API key: set %s or api_key", provider.APIKeyEnv)
	}
	return "missing API key"
}

var (
	_ ports.ProviderClient = (*Factory)(nil)
	_ ports.ModelLister    = (*Factory)(nil)
)
