package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ai-diet-planner/internal/config"
	"ai-diet-planner/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// sdkClient is a client for the Google Gemini API built on the genai SDK.
// The credential belongs to the caller, so a client is created per request.
type sdkClient struct {
	model     string
	opts      []option.ClientOption
	transport http.RoundTripper
}

// NewGeminiClient creates a Gemini client backed by the genai SDK. Extra
// options are appended after the per-request credentials.
func NewGeminiClient(cfg *config.Config, opts ...option.ClientOption) TextGenerator {
	return &sdkClient{model: cfg.GeminiModel, opts: opts, transport: http.DefaultTransport}
}

// singleAttempt carries the API key and turns every non-2xx answer into a
// StatusError. The SDK only retries googleapi errors, so each generation
// reaches the server exactly once.
type singleAttempt struct {
	apiKey string
	next   http.RoundTripper
}

func (t *singleAttempt) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("x-goog-api-key", t.apiKey)

	resp, err := t.next.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
}

// GenerateContent sends a prompt to the Gemini model and returns the generated text.
func (c *sdkClient) GenerateContent(ctx context.Context, apiKey, prompt string) (ContentResponse, error) {
	// WithHTTPClient bypasses the SDK transport, so the key also travels in
	// the header set by singleAttempt. WithAPIKey stays for the SDK's own
	// credential check.
	httpClient := &http.Client{Transport: &singleAttempt{apiKey: apiKey, next: c.transport}}
	opts := append([]option.ClientOption{option.WithAPIKey(apiKey), option.WithHTTPClient(httpClient)}, c.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	model.SetTemperature(Temperature)
	model.SetMaxOutputTokens(MaxOutputTokens)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return ContentResponse{}, classifySDKError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ContentResponse{}, ErrNoContent
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok || text == "" {
		return ContentResponse{}, ErrNoContent
	}

	usage := shared.TokenUsage{Model: c.model}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return ContentResponse{Content: string(text), Usage: usage}, nil
}

// classifySDKError turns SDK failures into the same StatusError the REST
// client produces so callers see a single taxonomy.
func classifySDKError(err error) error {
	var sErr *StatusError
	if errors.As(err, &sErr) {
		return sErr
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("%w: %v", ErrNoContent, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &StatusError{
			StatusCode: apiErr.Code,
			Status:     http.StatusText(apiErr.Code),
			Body:       apiErr.Message,
		}
	}

	if st, ok := status.FromError(err); ok {
		code := httpStatusFromCode(st.Code())
		return &StatusError{
			StatusCode: code,
			Status:     http.StatusText(code),
			Body:       st.Message(),
		}
	}

	return fmt.Errorf("failed to generate content: %w", err)
}

func httpStatusFromCode(c codes.Code) int {
	switch c {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
