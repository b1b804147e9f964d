package ai

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/ports"
)

const defaultOpenAIModel = "gpt-4o-mini"

type openAIBackend struct {
	apiKey      string
	model       string
	temperature float64
	os          domain.TargetOS
	client      *openai.Client
	logger      ports.Logger
}

// NewOpenAI returns the chat completions backend. OPENAI_BASE_URL points it at
// a compatible server.
func NewOpenAI(cfg domain.Config, deps Dependencies) ports.Backend {
	return newOpenAIBackend(cfg, deps, os.Getenv(envOpenAIBaseURL))
}

func newOpenAIBackend(cfg domain.Config, deps Dependencies, baseURL string) *openAIBackend {
	backend := &openAIBackend{
		apiKey:      resolveAPIKey(cfg, ProviderOpenAI, envOpenAIAPIKey),
		model:       valueOrDefault(cfg.Backend.Model, defaultOpenAIModel),
		temperature: cfg.Backend.Temperature,
		os:          cfg.GetTargetOS(),
		logger:      deps.Logger,
	}
	if backend.apiKey == "" {
		return backend
	}
	clientConfig := openai.DefaultConfig(backend.apiKey)
	if strings.TrimSpace(baseURL) != "" {
		clientConfig.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if deps.HTTPClient != nil {
		clientConfig.HTTPClient = deps.HTTPClient
	}
	backend.client = openai.NewClientWithConfig(clientConfig)
	return backend
}

func (p *openAIBackend) Name() string {
	return ProviderOpenAI
}

func (p *openAIBackend) Generate(ctx context.Context, instruction string) (string, error) {
	if p.client == nil {
		return degraded(ctx, ProviderOpenAI, p.os, instruction, p.logger)
	}
	system, user, err := renderPrompt(p.os, instruction)
	if err != nil {
		return "", domain.NewBackendError(ProviderOpenAI, err)
	}
	return p.complete(ctx, system, user, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
}

// Explain asks the model for a plain-text description of command.
func (p *openAIBackend) Explain(ctx context.Context, command string) (string, error) {
	if p.client == nil {
		return degradedExplanation(ctx, ProviderOpenAI, p.os, command, p.logger)
	}
	system, user, err := renderExplainPrompt(p.os, command)
	if err != nil {
		return "", domain.NewBackendError(ProviderOpenAI, err)
	}
	return p.complete(ctx, system, user, nil)
}

// Offline reports whether answers come from the simulated fallback.
func (p *openAIBackend) Offline() bool {
	return p.client == nil
}

// ListModels returns the model ids visible to the API key.
func (p *openAIBackend) ListModels(ctx context.Context) ([]string, error) {
	if p.client == nil {
		return nil, missingCredentials(ProviderOpenAI)
	}
	list, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, domain.NewBackendError(ProviderOpenAI, err)
	}
	names := make([]string, 0, len(list.Models))
	for _, model := range list.Models {
		names = append(names, model.ID)
	}
	return sortedModels(names, ""), nil
}

func (p *openAIBackend) complete(ctx context.Context, system, user string, format *openai.ChatCompletionResponseFormat) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   domain.DefaultMaxTokens,
		Temperature: float32(p.temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: format,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", domain.NewBackendError(ProviderOpenAI, err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewBackendError(ProviderOpenAI, errors.New("no choices returned"))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", domain.NewBackendError(ProviderOpenAI, errors.New("empty response"))
	}
	return text, nil
}
