// Package oracle wraps the external inference service. The service is a
// black box that turns free-text symptoms plus tags into a diagnosis
// label and a confidence score in [0,1].
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"symptom-triage/internal/config"
	"symptom-triage/internal/logging"
)

// ErrUnavailable reports a transport or envelope failure talking to the
// inference service. The pipeline does not retry; the submission fails.
var ErrUnavailable = errors.New("oracle unavailable")

// FallbackConfidence is assigned when the oracle answers successfully
// but not with the structured label/confidence payload. Partial
// information is preferred over failing the whole submission.
const FallbackConfidence = 0.5

// FallbackLabel substitutes a blank label in an otherwise structured
// answer. The oracle must never surface a confidence without a label.
const FallbackLabel = "model_response"

type Result struct {
	Label      string
	Confidence float64
}

type Client interface {
	Infer(ctx context.Context, description string, tags []string) (Result, error)
}

type grokClient struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
	log        *logging.Logger
}

func NewClient(cfg config.OracleConfig, log *logging.Logger) Client {
	return &grokClient{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log.With("component", "oracle"),
	}
}

const systemPrompt = `You are a medical triage assistant.
You MUST ALWAYS answer ONLY with a JSON object:
{"label": "<short best-guess diagnosis>", "confidence": <number between 0 and 1>}
Never say "unknown", "needs_review", or similar.
Pick your BEST GUESS even if information is incomplete.`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *grokClient) Infer(ctx context.Context, description string, tags []string) (Result, error) {
	userContent := fmt.Sprintf("Symptoms description:\n%s\n\nTags: %s\n\nRespond ONLY with JSON like:\n{\"label\": \"migraine\", \"confidence\": 0.91}",
		description, strings.Join(tags, ", "))

	body, err := json.Marshal(chatRequest{
		Model:  c.model,
		Stream: false,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal oracle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: new request: %v", ErrUnavailable, err)
	}
	callID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Request-ID", callID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.log.Error("oracle call failed", "call_id", callID, "status", resp.Status)
		return Result{}, fmt.Errorf("%w: %s - %s", ErrUnavailable, resp.Status, strings.TrimSpace(string(respBody)))
	}

	var envelope chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(envelope.Choices) == 0 {
		return Result{}, fmt.Errorf("%w: empty choices", ErrUnavailable)
	}

	content := strings.TrimSpace(envelope.Choices[0].Message.Content)
	result := parseContent(content)
	c.log.Debug("oracle answered", "call_id", callID, "label", result.Label, "confidence", result.Confidence)
	return result, nil
}

// parseContent extracts label and confidence from the model's answer.
// Plain-text answers degrade to the raw text with FallbackConfidence
// rather than failing the submission.
func parseContent(content string) Result {
	var structured struct {
		Label      string   `json:"label"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content), &structured); err != nil {
		return Result{Label: content, Confidence: FallbackConfidence}
	}

	label := strings.TrimSpace(structured.Label)
	if label == "" {
		label = FallbackLabel
	}
	confidence := FallbackConfidence
	if structured.Confidence != nil {
		confidence = *structured.Confidence
	}
	return Result{Label: label, Confidence: confidence}
}
