package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/ports"
)

const (
	defaultAnthropicModel    = "claude-3-5-haiku-latest"
	defaultAnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion         = "2023-06-01"
)

type anthropicBackend struct {
	apiKey      string
	model       string
	temperature float64
	os          domain.TargetOS
	endpoint    string
	httpClient  *http.Client
	logger      ports.Logger
}

// NewAnthropic returns the Messages API backend.
func NewAnthropic(cfg domain.Config, deps Dependencies) ports.Backend {
	return &anthropicBackend{
		apiKey:      resolveAPIKey(cfg, ProviderAnthropic, envAnthropicAPIKey),
		model:       valueOrDefault(cfg.Backend.Model, defaultAnthropicModel),
		temperature: cfg.Backend.Temperature,
		os:          cfg.GetTargetOS(),
		endpoint:    defaultAnthropicEndpoint,
		httpClient:  deps.HTTPClient,
		logger:      deps.Logger,
	}
}

func (p *anthropicBackend) Name() string {
	return ProviderAnthropic
}

func (p *anthropicBackend) Generate(ctx context.Context, instruction string) (string, error) {
	if p.apiKey == "" {
		return degraded(ctx, ProviderAnthropic, p.os, instruction, p.logger)
	}
	system, user, err := renderPrompt(p.os, instruction)
	if err != nil {
		return "", domain.NewBackendError(ProviderAnthropic, err)
	}
	return p.complete(ctx, system, user)
}

// Explain asks the model for a plain-text description of command.
func (p *anthropicBackend) Explain(ctx context.Context, command string) (string, error) {
	if p.apiKey == "" {
		return degradedExplanation(ctx, ProviderAnthropic, p.os, command, p.logger)
	}
	system, user, err := renderExplainPrompt(p.os, command)
	if err != nil {
		return "", domain.NewBackendError(ProviderAnthropic, err)
	}
	return p.complete(ctx, system, user)
}

// Offline reports whether answers come from the simulated fallback.
func (p *anthropicBackend) Offline() bool {
	return p.apiKey == ""
}

// ListModels returns the model ids from the /v1/models endpoint next to the
// configured messages endpoint.
func (p *anthropicBackend) ListModels(ctx context.Context) ([]string, error) {
	if p.apiKey == "" {
		return nil, missingCredentials(ProviderAnthropic)
	}
	endpoint := strings.TrimSuffix(strings.TrimRight(p.endpoint, "/"), "/messages") + "/models"
	var decoded anthropicModelList
	if err := getJSON(ctx, p.httpClient, endpoint, p.headers(), &decoded); err != nil {
		return nil, domain.NewBackendError(ProviderAnthropic, err)
	}
	names := make([]string, 0, len(decoded.Data))
	for _, model := range decoded.Data {
		names = append(names, model.ID)
	}
	return sortedModels(names, ""), nil
}

func (p *anthropicBackend) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}
}

func (p *anthropicBackend) complete(ctx context.Context, system, user string) (string, error) {
	payload := anthropicRequest{
		Model:       p.model,
		MaxTokens:   domain.DefaultMaxTokens,
		Temperature: p.temperature,
		System:      system,
		Messages: []anthropicMessage{
			{
				Role:    "user",
				Content: []anthropicContent{{Type: "text", Text: user}},
			},
		},
	}

	var decoded anthropicResponse
	if err := postJSON(ctx, p.httpClient, p.endpoint, p.headers(), payload, &decoded); err != nil {
		return "", domain.NewBackendError(ProviderAnthropic, err)
	}
	text := decoded.Text()
	if text == "" {
		return "", domain.NewBackendError(ProviderAnthropic, errors.New("empty response"))
	}
	return text, nil
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

// Text joins the text blocks of the response.
func (a anthropicResponse) Text() string {
	var b strings.Builder
	for _, block := range a.Content {
		if block.Type == "" || block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

type anthropicModelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}
