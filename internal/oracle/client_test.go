package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"symptom-triage/internal/config"
	"symptom-triage/internal/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(config.OracleConfig{
		URL:     srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, logging.NewNop())
	return c, srv
}

func chatAnswer(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestInferStructuredAnswer(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, chatAnswer(`{"label": "migraine", "confidence": 0.91}`))

	got, err := c.Infer(context.Background(), "severe headache", []string{"migraine"})
	if err != nil {
		t.Fatalf("Infer returned error: %v", err)
	}
	if got.Label != "migraine" {
		t.Errorf("Label = %q, want %q", got.Label, "migraine")
	}
	if got.Confidence != 0.91 {
		t.Errorf("Confidence = %v, want 0.91", got.Confidence)
	}
}

func TestInferPlainTextFallsBack(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, chatAnswer("probably flu"))

	got, err := c.Infer(context.Background(), "cough and fever", nil)
	if err != nil {
		t.Fatalf("Infer returned error: %v", err)
	}
	if got.Label != "probably flu" {
		t.Errorf("Label = %q, want raw text", got.Label)
	}
	if got.Confidence != FallbackConfidence {
		t.Errorf("Confidence = %v, want %v", got.Confidence, FallbackConfidence)
	}
}

func TestInferBlankLabelGetsSentinel(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, chatAnswer(`{"label": "  ", "confidence": 0.8}`))

	got, err := c.Infer(context.Background(), "dizziness", nil)
	if err != nil {
		t.Fatalf("Infer returned error: %v", err)
	}
	if got.Label != FallbackLabel {
		t.Errorf("Label = %q, want %q", got.Label, FallbackLabel)
	}
	if got.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", got.Confidence)
	}
}

func TestInferServerErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := c.Infer(context.Background(), "headache", nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestInferTransportErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t, chatAnswer("{}"))
	srv.Close()

	_, err := c.Infer(context.Background(), "headache", nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestParseContent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
		want    Result
	}{
		{
			name:    "structured",
			content: `{"label": "flu", "confidence": 0.95}`,
			want:    Result{Label: "flu", Confidence: 0.95},
		},
		{
			name:    "missing_confidence_defaults",
			content: `{"label": "flu"}`,
			want:    Result{Label: "flu", Confidence: FallbackConfidence},
		},
		{
			name:    "blank_label_sentinel",
			content: `{"confidence": 0.7}`,
			want:    Result{Label: FallbackLabel, Confidence: 0.7},
		},
		{
			name:    "plain_text",
			content: "probably flu",
			want:    Result{Label: "probably flu", Confidence: FallbackConfidence},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseContent(tc.content); got != tc.want {
				t.Errorf("parseContent(%q) = %+v, want %+v", tc.content, got, tc.want)
			}
		})
	}
}
