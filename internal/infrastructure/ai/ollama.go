package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/ports"
)

const defaultOllamaModel = "llama3.2"

type ollamaBackend struct {
	model       string
	temperature float64
	os          domain.TargetOS
	endpoint    string
	httpClient  *http.Client
}

// NewOllama returns the local Ollama /api/generate backend. It needs no credentials.
func NewOllama(cfg domain.Config, deps Dependencies) ports.Backend {
	return &ollamaBackend{
		model:       valueOrDefault(cfg.Backend.Model, defaultOllamaModel),
		temperature: cfg.Backend.Temperature,
		os:          cfg.GetTargetOS(),
		endpoint:    valueOrDefault(cfg.Backend.OllamaEndpoint, domain.DefaultOllamaEndpoint),
		httpClient:  deps.HTTPClient,
	}
}

func (o *ollamaBackend) Name() string {
	return ProviderOllama
}

func (o *ollamaBackend) Generate(ctx context.Context, instruction string) (string, error) {
	system, user, err := renderPrompt(o.os, instruction)
	if err != nil {
		return "", domain.NewBackendError(ProviderOllama, err)
	}
	return o.complete(ctx, system, user, "json")
}

// Explain asks the local model for a plain-text description of command.
func (o *ollamaBackend) Explain(ctx context.Context, command string) (string, error) {
	system, user, err := renderExplainPrompt(o.os, command)
	if err != nil {
		return "", domain.NewBackendError(ProviderOllama, err)
	}
	return o.complete(ctx, system, user, "")
}

// Offline is false: an unreachable server is a backend failure, not a fallback.
func (o *ollamaBackend) Offline() bool {
	return false
}

// ListModels returns the locally pulled models from /api/tags.
func (o *ollamaBackend) ListModels(ctx context.Context) ([]string, error) {
	var decoded ollamaTags
	if err := getJSON(ctx, o.httpClient, o.url("/api/tags"), nil, &decoded); err != nil {
		return nil, domain.NewBackendError(ProviderOllama, err)
	}
	names := make([]string, 0, len(decoded.Models))
	for _, model := range decoded.Models {
		names = append(names, model.Name)
	}
	return sortedModels(names, ""), nil
}

func (o *ollamaBackend) url(path string) string {
	return strings.TrimRight(o.endpoint, "/") + path
}

func (o *ollamaBackend) complete(ctx context.Context, system, user, format string) (string, error) {
	payload := ollamaRequest{
		Model:  o.model,
		System: system,
		Prompt: user,
		Format: format,
		Stream: false,
		Options: ollamaOptions{
			Temperature: o.temperature,
			NumPredict:  domain.DefaultMaxTokens,
		},
	}

	var decoded ollamaResponse
	if err := postJSON(ctx, o.httpClient, o.url("/api/generate"), nil, payload, &decoded); err != nil {
		return "", domain.NewBackendError(ProviderOllama, err)
	}
	if decoded.Error != "" {
		return "", domain.NewBackendError(ProviderOllama, errors.New(decoded.Error))
	}
	text := strings.TrimSpace(decoded.Response)
	if text == "" {
		return "", domain.NewBackendError(ProviderOllama, errors.New("empty response"))
	}
	return text, nil
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Format  string        `json:"format,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
