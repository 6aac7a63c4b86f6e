package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanmeadows/lit-critic/internal/core"
	"github.com/alanmeadows/lit-critic/internal/llm"
	"github.com/alanmeadows/lit-critic/internal/llm/llmtest"
	"github.com/alanmeadows/lit-critic/internal/llm/registry"
	"github.com/alanmeadows/lit-critic/internal/prompts"
)

func testMux(client *llmtest.MockClient) http.Handler {
	reg := registry.New(registry.Options{})
	factories := llm.Factories{"anthropic": func(string) llm.Client { return client }}
	svc := core.New(reg, factories, prompts.NewTemplateBuilder())

	mux := http.NewServeMux()
	registerRoutes(mux, svc)
	return mux
}

func postJSON(t *testing.T, mux http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleAnalyze_Success(t *testing.T) {
	client := llmtest.New()
	client.DefaultText = &llm.TextResult{Text: "lens findings"}
	client.DefaultTool = &llm.ToolResult{ToolInput: map[string]any{
		"glossary_issues": []any{}, "summary": "", "findings": []any{},
	}}

	rec := postJSON(t, testMux(client), "/v1/analyze", core.AnalyzeRequest{
		SceneText:   "one\ntwo\n",
		ModelConfig: core.ModelConfig{Model: "sonnet", APIKeys: map[string]string{"anthropic": "sk-test"}},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp core.AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "claude-sonnet-4-20250514", resp.Meta.ModelUsed)
}

func TestHandleAnalyze_UnknownFieldRejected(t *testing.T) {
	rec := postJSON(t, testMux(llmtest.New()), "/v1/analyze", map[string]any{
		"scene_text":   "text",
		"not_a_field":  true,
		"model_config": map[string]any{"model": "sonnet", "api_keys": map[string]string{"anthropic": "sk-test"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAnalyze_ValidationErrorMapsTo400(t *testing.T) {
	rec := postJSON(t, testMux(llmtest.New()), "/v1/analyze", core.AnalyzeRequest{
		SceneText:   "text",
		ModelConfig: core.ModelConfig{Model: "sonnet"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleReEvaluate_Success(t *testing.T) {
	client := llmtest.New()
	client.DefaultTool = &llm.ToolResult{ToolInput: map[string]any{"status": "withdrawn", "reason": "resolved"}}

	rec := postJSON(t, testMux(client), "/v1/re-evaluate-finding", map[string]any{
		"finding":       map[string]any{"number": 1, "severity": "minor", "lens": "prose", "status": "pending"},
		"updated_scene": "new scene",
		"model_config":  map[string]any{"model": "sonnet", "api_keys": map[string]string{"anthropic": "sk-test"}},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp core.ReEvaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "withdrawn", resp.Status)
}

func TestHandleDiscuss_WrongContentTypeRejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/discuss", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	testMux(llmtest.New()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
