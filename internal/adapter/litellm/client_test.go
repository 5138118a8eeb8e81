package litellm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/agentbridge/internal/adapter/litellm"
	"github.com/Strob0t/agentbridge/internal/config"
	"github.com/Strob0t/agentbridge/internal/domain"
	"github.com/Strob0t/agentbridge/internal/resilience"
	"github.com/Strob0t/agentbridge/internal/secrets"
)

type fakeSecrets map[string]string

func (f fakeSecrets) Get(key string) string { return f[key] }

func (f fakeSecrets) RedactString(s string) string {
	for _, v := range f {
		s = strings.ReplaceAll(s, v, "****")
	}
	return s
}

func testConfig(baseURL string) config.Completion {
	return config.Completion{
		BaseURL:     baseURL,
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   2000,
		Timeout:     5 * time.Second,
	}
}

func TestCompleteWithoutKeyReturnsMock(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := litellm.NewClient(testConfig(srv.URL), fakeSecrets{})
	if client.Configured() {
		t.Fatal("expected client without key to report unconfigured")
	}

	res, err := client.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !res.IsMock {
		t.Fatal("expected mock result")
	}
	if res.Text != litellm.MockResponse {
		t.Fatalf("expected mock text, got %q", res.Text)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no upstream call, got %d", hits.Load())
	}
}

func TestCompleteSendsChatRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test-key" {
			t.Errorf("unexpected auth: %q", auth)
		}

		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "gpt-4o-mini" || body.Temperature != 0.7 || body.MaxTokens != 2000 {
			t.Errorf("unexpected sampling params: %+v", body)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Role != "user" {
			t.Errorf("expected [system, user] messages, got %+v", body.Messages)
		}
		if body.Messages[1].Content != "design button" {
			t.Errorf("unexpected user content: %q", body.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "1) Analysis\n- ship it"}}]
		}`))
	}))
	defer srv.Close()

	client := litellm.NewClient(testConfig(srv.URL), fakeSecrets{secrets.KeyCompletionAPIKey: "sk-test-key"})
	if !client.Configured() {
		t.Fatal("expected configured client")
	}

	res, err := client.Complete(context.Background(), "You are a frontend agent.", "design button")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.IsMock {
		t.Fatal("expected real result")
	}
	if res.Text != "1) Analysis\n- ship it" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestCompleteNoChoicesYieldsEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	client := litellm.NewClient(testConfig(srv.URL), fakeSecrets{secrets.KeyCompletionAPIKey: "sk-test-key"})
	res, err := client.Complete(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.Text != "" {
		t.Fatalf("expected empty text, got %q", res.Text)
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided: sk-test-key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	client := litellm.NewClient(testConfig(srv.URL), fakeSecrets{secrets.KeyCompletionAPIKey: "sk-test-key"})
	_, err := client.Complete(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}

	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *domain.UpstreamError, got %T", err)
	}
	if upErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", upErr.StatusCode)
	}
	if strings.Contains(upErr.Message, "sk-test-key") {
		t.Fatalf("expected API key redacted from message, got %q", upErr.Message)
	}
}

func TestCompleteOpenCircuit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := litellm.NewClient(testConfig(srv.URL), fakeSecrets{secrets.KeyCompletionAPIKey: "k-12345"})
	client.SetBreaker(resilience.NewBreaker(1, time.Minute))

	_, _ = client.Complete(context.Background(), "s", "u")
	_, err := client.Complete(context.Background(), "s", "u")

	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) || upErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 upstream error from open circuit, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly 1 upstream call, got %d", hits.Load())
	}
}
