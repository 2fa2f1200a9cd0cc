package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"ai-diet-planner/internal/config"
	"ai-diet-planner/internal/shared"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content *geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// restClient calls the generateContent endpoint directly, passing the
// credential as the key query parameter.
type restClient struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

// NewRESTClient creates a Gemini client that talks plain HTTP+JSON.
func NewRESTClient(cfg *config.Config) TextGenerator {
	return &restClient{
		endpoint:   fmt.Sprintf("%s/models/%s:generateContent", cfg.GeminiAPIURL, cfg.GeminiModel),
		model:      cfg.GeminiModel,
		httpClient: &http.Client{},
	}
}

// GenerateContent sends a single generateContent request and returns the text
// of the first part of the first candidate.
func (c *restClient) GenerateContent(ctx context.Context, apiKey, prompt string) (ContentResponse, error) {
	reqBody := generateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     Temperature,
			MaxOutputTokens: MaxOutputTokens,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	u := c.endpoint + "?" + url.Values{"key": {apiKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ContentResponse{}, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       string(bodyBytes),
		}
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return ContentResponse{}, fmt.Errorf("%w: failed to decode response: %v", ErrNoContent, err)
	}

	if len(genResp.Candidates) == 0 ||
		genResp.Candidates[0].Content == nil ||
		len(genResp.Candidates[0].Content.Parts) == 0 ||
		genResp.Candidates[0].Content.Parts[0].Text == "" {
		return ContentResponse{}, ErrNoContent
	}

	return ContentResponse{
		Content: genResp.Candidates[0].Content.Parts[0].Text,
		Usage: shared.TokenUsage{
			PromptTokens:     genResp.UsageMetadata.PromptTokenCount,
			CompletionTokens: genResp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      genResp.UsageMetadata.TotalTokenCount,
			Model:            c.model,
		},
	}, nil
}
