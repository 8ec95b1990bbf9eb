package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/dshills/protoaudit/internal/protocol"
	"github.com/dshills/protoaudit/internal/reference"
	"github.com/dshills/protoaudit/internal/schema"
)

var consentRule = schema.Rule{ID: "FDA-21-CFR-50.25", Category: "Informed Consent Elements", RiskLevel: schema.RiskHigh}

func TestBuildUserPrompt_ContainsRuleAndNumberedProtocol(t *testing.T) {
	prompt := BuildUserPrompt(protocol.Sample(), consentRule, nil)

	assert.Contains(t, prompt, "Regulation FDA-21-CFR-50.25 (Informed Consent Elements, risk High)")
	assert.Contains(t, prompt, "L1: Phase III randomized trial")
	assert.NotContains(t, prompt, "<reference", "no reference tags without documents")
}

func TestBuildUserPrompt_ContainsReferenceTags(t *testing.T) {
	refs := []reference.Document{{Path: "sops/consent.md", Content: "consent form v3\n"}}
	prompt := BuildUserPrompt(protocol.Sample(), consentRule, refs)
	assert.Contains(t, prompt, `<reference file="consent.md">`)
}

func TestBuildSystemPrompt_StrictMode(t *testing.T) {
	assert.Contains(t, BuildSystemPrompt(true), "STRICT MODE ENABLED")
	assert.NotContains(t, BuildSystemPrompt(false), "STRICT MODE ENABLED")
}

func TestNewProvider_UnknownPrefix(t *testing.T) {
	_, err := NewProvider(context.Background(), "mistral:large")
	assert.Error(t, err)
}

func TestNewProvider_InvalidFormat(t *testing.T) {
	_, err := NewProvider(context.Background(), "nocolon")
	assert.Error(t, err, "missing colon separator")
}

func TestNewProvider_MissingKeys(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	for _, pm := range []string{"anthropic:claude-sonnet-4-6", "openai:gpt-4o", "gemini:gemini-1.5-pro"} {
		_, err := NewProvider(context.Background(), pm)
		assert.Error(t, err, pm)
	}
}

func TestNewProvider_WithKeys(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-key-for-construction-only")
	t.Setenv("OPENAI_API_KEY", "sk-test-key-for-construction-only")
	for _, pm := range []string{"anthropic:claude-sonnet-4-6", "openai:gpt-4o"} {
		p, err := NewProvider(context.Background(), pm)
		require.NoError(t, err, pm)
		assert.NotNil(t, p, pm)
	}
}

func TestAnthropicComplete_PrefillAndUsage(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","model":"claude-sonnet-4-6","content":[{"type":"text","text":"\"status\":\"Compliant\",\"justification\":\"L3 cites CFR\"}"}],"usage":{"input_tokens":120,"output_tokens":18}}`)) //nolint:errcheck
	}))
	defer srv.Close()
	original := AnthropicAPIURL()
	SetAnthropicAPIURL(srv.URL)
	defer SetAnthropicAPIURL(original)

	p := &anthropicProvider{model: "claude-sonnet-4-6", apiKey: "k"}
	resp, err := p.Complete(context.Background(), &Request{UserPrompt: "u", JSON: true})
	require.NoError(t, err)

	assert.Regexp(t, `^\{"status"`, resp.Content, "prefill restored")
	assert.Equal(t, 120, resp.InputTokens)
	assert.Equal(t, 18, resp.OutputTokens)
	require.NotNil(t, got.Temperature, "temperature 0 must be sent")
	assert.Zero(t, *got.Temperature)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "assistant", got.Messages[1].Role)
}

func TestAnthropicComplete_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`)) //nolint:errcheck
	}))
	defer srv.Close()
	original := AnthropicAPIURL()
	SetAnthropicAPIURL(srv.URL)
	defer SetAnthropicAPIURL(original)

	p := &anthropicProvider{model: "claude-sonnet-4-6", apiKey: "k"}
	_, err := p.Complete(context.Background(), &Request{UserPrompt: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit_error")
}

func TestOpenAIComplete_JSONResponseFormat(t *testing.T) {
	var got openaiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"gpt-4o","choices":[{"message":{"role":"assistant","content":"{\"status\":\"Partial\",\"justification\":\"L9\"}"}}],"usage":{"prompt_tokens":50,"completion_tokens":9}}`)) //nolint:errcheck
	}))
	defer srv.Close()
	original := OpenAIAPIURL()
	SetOpenAIAPIURL(srv.URL)
	defer SetOpenAIAPIURL(original)

	p := &openaiProvider{model: "gpt-4o", apiKey: "k"}
	resp, err := p.Complete(context.Background(), &Request{SystemPrompt: "s", UserPrompt: "u", JSON: true})
	require.NoError(t, err)

	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	assert.Equal(t, "openai:gpt-4o", resp.Model)
	assert.Equal(t, 9, resp.OutputTokens)
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) *geminiProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := newGeminiProvider(context.Background(), "gemini-1.5-pro",
		option.WithAPIKey("k"), option.WithEndpoint(srv.URL))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() }) //nolint:errcheck
	return p
}

func TestGeminiComplete_JSONModeAndUsage(t *testing.T) {
	var path string
	var got map[string]any
	p := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"status\":\"Non-Compliant\",\"justification\":\"L2\"}"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":42,"candidatesTokenCount":7}}`)) //nolint:errcheck
	})

	resp, err := p.Complete(context.Background(), &Request{SystemPrompt: "s", UserPrompt: "u", JSON: true})
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/gemini-1.5-pro:generateContent", path)
	assert.JSONEq(t, `{"status":"Non-Compliant","justification":"L2"}`, resp.Content)
	assert.Equal(t, "gemini:gemini-1.5-pro", resp.Model)
	assert.Equal(t, 42, resp.InputTokens)
	assert.Equal(t, 7, resp.OutputTokens)

	cfg, ok := got["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig missing: %v", got)
	assert.Equal(t, "application/json", cfg["responseMimeType"])
	assert.Contains(t, got, "systemInstruction")
}

func TestGeminiComplete_ErrorStatus(t *testing.T) {
	p := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)) //nolint:errcheck
	})

	_, err := p.Complete(context.Background(), &Request{UserPrompt: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini:")
}

func TestGeminiComplete_NoCandidates(t *testing.T) {
	p := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`)) //nolint:errcheck
	})

	_, err := p.Complete(context.Background(), &Request{UserPrompt: "u"})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hello...", truncate("hello world", 5))
	assert.Equal(t, "hél...", truncate("héllo", 3), "multibyte")
}
