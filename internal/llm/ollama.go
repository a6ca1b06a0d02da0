package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	ollamaName           = "ollama"
	defaultOllamaBaseURL = "http://localhost:11434"
	maxErrorBody         = 512
	maxResponseBody      = 8 << 20
	defaultOllamaTimeout = 120 * time.Second
)

// OllamaClient is a direct HTTP client for the Ollama API.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
	maxBody int64
}

// NewOllamaClient creates a new Ollama API client.
// baseURL should be like "http://localhost:11434"
func NewOllamaClient(baseURL, model string) *OllamaClient {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: defaultOllamaTimeout},
		maxBody: maxResponseBody,
	}
}

// WithTimeout bounds each HTTP exchange. Non-positive values keep the
// current client.
func (o *OllamaClient) WithTimeout(d time.Duration) *OllamaClient {
	if d > 0 {
		o.client = &http.Client{Timeout: d}
	}
	return o
}

// WithHTTPClient replaces the underlying HTTP client.
func (o *OllamaClient) WithHTTPClient(c *http.Client) *OllamaClient {
	o.client = c
	return o
}

// Name returns the provider name.
func (o *OllamaClient) Name() string { return ollamaName }

// Complete sends a non-streaming generate request. The request's Model
// overrides the client's default model when set.
func (o *OllamaClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := o.model
	if req.Model != "" {
		model = req.Model
	}

	payload, err := json.Marshal(ollamaGenerateRequest{
		Model:  model,
		Prompt: BuildPrompt(req.System, req.Input),
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, o.configErr("invalid base URL", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, o.transportErr(0, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := o.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, o.transportErr(resp.StatusCode, "API error: "+errorDetail(resp.StatusCode, respBody), nil)
	}

	var result ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, o.formatErr("invalid response format", err)
	}
	if result.Response == nil {
		return nil, o.formatErr("invalid response format: missing response field", nil)
	}

	return &CompletionResponse{
		Content:  *result.Response,
		Model:    model,
		Duration: time.Since(start),
	}, nil
}

// ListModels returns the names of locally installed models.
func (o *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, o.configErr("invalid base URL", err)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, o.transportErr(0, "failed to connect to ollama", err)
	}
	defer resp.Body.Close()

	body, err := o.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, o.transportErr(resp.StatusCode, "API error: "+errorDetail(resp.StatusCode, body), nil)
	}

	var tags ollamaTagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, o.formatErr("invalid response format", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (o *OllamaClient) readBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, o.maxBody+1))
	if err != nil {
		return nil, o.transportErr(0, "failed to read response", err)
	}
	if int64(len(data)) > o.maxBody {
		return nil, o.transportErr(0, "response larger than "+humanize.IBytes(uint64(o.maxBody)), nil)
	}
	return data, nil
}

func (o *OllamaClient) configErr(msg string, err error) error {
	return &ProviderError{Provider: ollamaName, Kind: KindConfig, Message: msg, Err: err}
}

func (o *OllamaClient) transportErr(code int, msg string, err error) error {
	return &ProviderError{Provider: ollamaName, Kind: KindTransport, Code: code, Message: msg, Err: err}
}

func (o *OllamaClient) formatErr(msg string, err error) error {
	return &ProviderError{Provider: ollamaName, Kind: KindFormat, Message: msg, Err: err}
}

func errorDetail(status int, body []byte) string {
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		return http.StatusText(status)
	}
	if len(detail) > maxErrorBody {
		detail = detail[:maxErrorBody] + "..."
	}
	return detail
}

// API request/response structures

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Model     string  `json:"model"`
	CreatedAt string  `json:"created_at"`
	Response  *string `json:"response"`
	Done      bool    `json:"done"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
