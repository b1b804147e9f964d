package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/ports"
)

const (
	defaultGoogleModel   = "gemini-1.5-flash"
	defaultGoogleBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

type googleBackend struct {
	apiKey      string
	model       string
	temperature float64
	os          domain.TargetOS
	baseURL     string
	httpClient  *http.Client
	logger      ports.Logger
}

// NewGoogle returns the Gemini generateContent backend.
func NewGoogle(cfg domain.Config, deps Dependencies) ports.Backend {
	return &googleBackend{
		apiKey:      resolveAPIKey(cfg, ProviderGoogle, envGoogleAPIKey),
		model:       valueOrDefault(cfg.Backend.Model, defaultGoogleModel),
		temperature: cfg.Backend.Temperature,
		os:          cfg.GetTargetOS(),
		baseURL:     defaultGoogleBaseURL,
		httpClient:  deps.HTTPClient,
		logger:      deps.Logger,
	}
}

func (g *googleBackend) Name() string {
	return ProviderGoogle
}

func (g *googleBackend) Generate(ctx context.Context, instruction string) (string, error) {
	if g.apiKey == "" {
		return degraded(ctx, ProviderGoogle, g.os, instruction, g.logger)
	}
	system, user, err := renderPrompt(g.os, instruction)
	if err != nil {
		return "", domain.NewBackendError(ProviderGoogle, err)
	}
	return g.complete(ctx, system, user, "application/json")
}

// Explain asks the model for a plain-text description of command.
func (g *googleBackend) Explain(ctx context.Context, command string) (string, error) {
	if g.apiKey == "" {
		return degradedExplanation(ctx, ProviderGoogle, g.os, command, g.logger)
	}
	system, user, err := renderExplainPrompt(g.os, command)
	if err != nil {
		return "", domain.NewBackendError(ProviderGoogle, err)
	}
	return g.complete(ctx, system, user, "")
}

// Offline reports whether answers come from the simulated fallback.
func (g *googleBackend) Offline() bool {
	return g.apiKey == ""
}

// ListModels returns the model ids visible to the API key.
func (g *googleBackend) ListModels(ctx context.Context) ([]string, error) {
	if g.apiKey == "" {
		return nil, missingCredentials(ProviderGoogle)
	}
	var decoded googleModelList
	endpoint := strings.TrimRight(g.baseURL, "/") + "/models"
	if err := getJSON(ctx, g.httpClient, endpoint, map[string]string{"x-goog-api-key": g.apiKey}, &decoded); err != nil {
		return nil, domain.NewBackendError(ProviderGoogle, err)
	}
	names := make([]string, 0, len(decoded.Models))
	for _, model := range decoded.Models {
		names = append(names, model.Name)
	}
	return sortedModels(names, "models/"), nil
}

func (g *googleBackend) complete(ctx context.Context, system, user, mimeType string) (string, error) {
	payload := googleRequest{
		SystemInstruction: &googleContent{Parts: []googlePart{{Text: system}}},
		Contents:          []googleContent{{Role: "user", Parts: []googlePart{{Text: user}}}},
		GenerationConfig: googleGenerationConfig{
			Temperature:      g.temperature,
			MaxOutputTokens:  domain.DefaultMaxTokens,
			ResponseMimeType: mimeType,
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(g.baseURL, "/"), url.PathEscape(g.model))
	var decoded googleResponse
	if err := postJSON(ctx, g.httpClient, endpoint, map[string]string{"x-goog-api-key": g.apiKey}, payload, &decoded); err != nil {
		return "", domain.NewBackendError(ProviderGoogle, err)
	}
	if decoded.PromptFeedback.BlockReason != "" {
		return "", domain.NewBackendError(ProviderGoogle, fmt.Errorf("prompt blocked: %s", decoded.PromptFeedback.BlockReason))
	}
	text := decoded.Text()
	if text == "" {
		return "", domain.NewBackendError(ProviderGoogle, errors.New("empty response"))
	}
	return text, nil
}

type googleRequest struct {
	SystemInstruction *googleContent         `json:"systemInstruction,omitempty"`
	Contents          []googleContent        `json:"contents"`
	GenerationConfig  googleGenerationConfig `json:"generationConfig"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type googleResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Text concatenates the parts of the first candidate.
func (r googleResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

type googleModelList struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
