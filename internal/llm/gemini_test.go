package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const geminiOKBody = `{
	"candidates": [{
		"content": {"role": "model", "parts": [{"text": "{\"files\": []}"}]},
		"finishReason": "STOP"
	}],
	"usageMetadata": {"promptTokenCount": 42, "candidatesTokenCount": 7},
	"modelVersion": "gemini-3-pro-preview"
}`

func newTestGeminiClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewGeminiClient("test-key", map[Tier]string{
		TierFast:     "gemini-3-flash-preview",
		TierThorough: "gemini-3-pro-preview",
	}, WithGeminiBaseURL(server.URL+"/"))
}

func TestGeminiClient_NameAndAvailable(t *testing.T) {
	client := NewGeminiClient("key", nil)
	assert.Equal(t, ProviderGemini, client.Name())
	assert.True(t, client.Available())
	assert.False(t, NewGeminiClient("", nil).Available())
}

func TestGeminiClient_Complete(t *testing.T) {
	var path string
	var body map[string]any
	client := newTestGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(geminiOKBody))
	})

	resp, err := client.Complete(context.Background(), &Request{
		Tier:     TierThorough,
		Messages: []Message{UserMessage("generate")},
		Schema: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"files"},
		},
		ThinkingBudget: 2048,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(path, "models/gemini-3-pro-preview:generateContent"), path)

	gen, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig missing: %v", body)
	assert.Equal(t, "application/json", gen["responseMimeType"])
	assert.NotNil(t, gen["responseJsonSchema"])
	thinking, ok := gen["thinkingConfig"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2048, thinking["thinkingBudget"])

	assert.Equal(t, `{"files": []}`, resp.Content)
	assert.Equal(t, ProviderGemini, resp.Provider)
	assert.Equal(t, "gemini-3-pro-preview", resp.Model)
	assert.Equal(t, 42, resp.InputTokens)
	assert.Equal(t, 7, resp.OutputTokens)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestGeminiClient_Complete_FastTierModel(t *testing.T) {
	var path string
	client := newTestGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(geminiOKBody))
	})

	_, err := client.Complete(context.Background(), &Request{Tier: TierFast, Messages: []Message{UserMessage("hi")}})
	require.NoError(t, err)
	assert.Contains(t, path, "gemini-3-flash-preview")
}

func TestGeminiClient_Complete_ServerError(t *testing.T) {
	client := newTestGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"code": 500, "message": "backend unavailable", "status": "INTERNAL"}}`))
	})

	_, err := client.Complete(context.Background(), &Request{Tier: TierFast, Messages: []Message{UserMessage("hi")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini request failed")
}

func TestGeminiClient_Complete_MissingKey(t *testing.T) {
	client := NewGeminiClient("", map[Tier]string{TierFast: "m"})

	_, err := client.Complete(context.Background(), &Request{Tier: TierFast})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is not set")
}

func TestGeminiClient_BuildConfig(t *testing.T) {
	client := NewGeminiClient("key", nil)

	cfg := client.buildConfig(&Request{System: "sys", MaxTokens: 100, Temperature: 0.2, Stop: []string{"END"}})
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "sys", cfg.SystemInstruction.Parts[0].Text)
	assert.EqualValues(t, 100, cfg.MaxOutputTokens)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.2, *cfg.Temperature, 0.0001)
	assert.Equal(t, []string{"END"}, cfg.StopSequences)
	assert.Empty(t, cfg.ResponseMIMEType)
	assert.Nil(t, cfg.ThinkingConfig)

	cfg = client.buildConfig(&Request{JSONMode: true})
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.Nil(t, cfg.ResponseJsonSchema)
}

func TestGeminiClient_ConcurrentFirstCalls(t *testing.T) {
	client := newTestGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(geminiOKBody))
	})

	const callers = 16
	start := make(chan struct{})
	sdks := make([]any, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			sdks[i], errs[i] = client.sdk(context.Background())
			if errs[i] == nil {
				_, errs[i] = client.Complete(context.Background(), &Request{Tier: TierThorough, Messages: []Message{UserMessage("Login")}})
			}
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, sdks[0], sdks[i], "all callers should share one SDK client")
	}
}
