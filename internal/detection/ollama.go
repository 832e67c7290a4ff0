package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/visionscan/pos-backend/pkg/errors"
)

const (
	defaultBaseURL             = "http://localhost:11434"
	defaultModel               = "llava-phi3"
	defaultTimeout             = 30 * time.Second
	errorBodyReadLimit   int64 = 1024
	nanosPerMillisecond        = 1_000_000
)

// DetectedProduct is one label the vision model reported.
type DetectedProduct struct {
	Name       string
	Confidence float64
	Quantity   int
}

// OllamaClient talks to a local Ollama daemon running a vision model.
type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// OllamaOption configures optional client behavior.
type OllamaOption func(*OllamaClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) OllamaOption {
	return func(c *OllamaClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Ollama endpoint.
func WithBaseURL(baseURL string) OllamaOption {
	return func(c *OllamaClient) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithModel overrides the vision model name.
func WithModel(model string) OllamaOption {
	return func(c *OllamaClient) {
		trimmed := strings.TrimSpace(model)
		if trimmed != "" {
			c.model = trimmed
		}
	}
}

// WithTimeout overrides the request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) OllamaOption {
	return func(c *OllamaClient) {
		if timeout > 0 && c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewOllamaClient builds the detection client.
func NewOllamaClient(opts ...OllamaOption) *OllamaClient {
	client := &OllamaClient{
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.model == "" {
		client.model = defaultModel
	}

	return client
}

// Model reports the configured vision model name.
func (c *OllamaClient) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response     string `json:"response"`
	EvalDuration int64  `json:"eval_duration"`
}

// DetectProducts sends the image to the vision model constrained to the
// provided product vocabulary. It returns the parsed detections and the
// model evaluation time in milliseconds. A response the model garbled
// into non-JSON yields an empty result, not an error.
func (c *OllamaClient) DetectProducts(ctx context.Context, imageBase64 string, vocabulary []string) ([]DetectedProduct, int64, error) {
	if c == nil {
		return nil, 0, pkgerrors.New(pkgerrors.CodeDependency, "detection client not configured")
	}
	if strings.TrimSpace(imageBase64) == "" {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "image payload is required")
	}
	if len(vocabulary) == 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "product vocabulary is required")
	}

	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: buildPrompt(vocabulary),
		Images: []string{imageBase64},
		Stream: false,
	})
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal generate request")
	}

	url := strings.TrimRight(c.baseURL, "/") + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build generate request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute generate request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "generate request failed")
	}

	var apiResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode generate response")
	}

	return parseDetections(apiResp.Response), apiResp.EvalDuration / nanosPerMillisecond, nil
}

// buildPrompt constrains the model to names the catalog actually holds.
func buildPrompt(vocabulary []string) string {
	var b strings.Builder
	b.WriteString("Analyze this image and identify products from our inventory.\n\n")
	b.WriteString("Available products: ")
	b.WriteString(strings.Join(vocabulary, ", "))
	b.WriteString("\n\nPlease respond with a JSON object containing detected products. Format:\n")
	b.WriteString("{\n  \"products\": [\n    {\"name\": \"product_name_from_list\", \"confidence\": 0.95, \"quantity\": 1},\n    ...\n  ]\n}\n\n")
	b.WriteString("Only include products that you see in the image from the available list.\n")
	b.WriteString("Set confidence as a decimal 0-1.\n")
	b.WriteString("Be strict - only report products you're confident about.\n")
	b.WriteString(`If no products detected, return {"products": []}`)
	return b.String()
}

// parseDetections extracts the JSON object the model embedded in its
// free-form answer. Vision models pad the object with prose, so the
// parse runs from the first brace to the last one.
func parseDetections(text string) []DetectedProduct {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil
	}

	var parsed struct {
		Products []struct {
			Name       string   `json:"name"`
			Confidence *float64 `json:"confidence"`
			Quantity   *int     `json:"quantity"`
		} `json:"products"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil
	}

	detections := make([]DetectedProduct, 0, len(parsed.Products))
	for _, p := range parsed.Products {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		confidence := 0.0
		if p.Confidence != nil {
			confidence = clamp(*p.Confidence, 0, 1)
		}
		quantity := 1
		if p.Quantity != nil && *p.Quantity > 1 {
			quantity = *p.Quantity
		}
		detections = append(detections, DetectedProduct{Name: name, Confidence: confidence, Quantity: quantity})
	}
	return detections
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
