package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fyrsmithlabs/milestoned/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// stubModel records the last request and replays a canned response.
type stubModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (s *stubModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	s.messages = messages
	for _, o := range options {
		o(&s.opts)
	}
	return s.resp, s.err
}

func (s *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

func toolCallResponse(name, args, content string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content: content,
		ToolCalls: []llms.ToolCall{{
			ID:           "call_1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
		}},
	}}}
}

func textOf(t *testing.T, m llms.MessageContent) string {
	t.Helper()
	require.Len(t, m.Parts, 1)
	part, ok := m.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestRequestImplementation_BuildsRequest(t *testing.T) {
	model := &stubModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}}
	gw := NewWithModel(model, Options{Temperature: 0.3, MaxTokens: 512})

	_, err := gw.RequestImplementation(context.Background(), "- [ ] 1. Build header", "")
	require.NoError(t, err)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, ImplementationPrompt, textOf(t, model.messages[0]))
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Contains(t, textOf(t, model.messages[1]), "Implement the following milestone:\n- [ ] 1. Build header\n")

	require.Len(t, model.opts.Tools, 1)
	assert.Equal(t, UpdateArtifactTool, model.opts.Tools[0].Function.Name)
	assert.Equal(t, "auto", model.opts.ToolChoice)
	assert.Equal(t, 0.3, model.opts.Temperature)
	assert.Equal(t, 512, model.opts.MaxTokens)
}

func TestRequestImplementation_CustomSystemPrompt(t *testing.T) {
	model := &stubModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}}
	gw := NewWithModel(model, Options{})

	_, err := gw.RequestImplementation(context.Background(), "- [ ] a", "Be terse.")
	require.NoError(t, err)
	assert.Equal(t, "Be terse.", textOf(t, model.messages[0]))
}

func TestRequestImplementation_Decoding(t *testing.T) {
	tests := []struct {
		name    string
		resp    *llms.ContentResponse
		want    Result
		wantErr error
	}{
		{
			name: "tool call becomes artifact update",
			resp: toolCallResponse(UpdateArtifactTool, `{"filename":"styles.css","contents":"body{margin:0;}"}`, "Reset margins."),
			want: &ArtifactUpdate{Filename: "styles.css", Contents: "body{margin:0;}", Reply: "Reset margins."},
		},
		{
			name: "legacy function call",
			resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
				FuncCall: &llms.FunctionCall{Name: UpdateArtifactTool, Arguments: `{"filename":"index.html","contents":"<html></html>"}`},
			}}},
			want: &ArtifactUpdate{Filename: "index.html", Contents: "<html></html>"},
		},
		{
			name: "text only",
			resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "Which header style?"}}},
			want: &PlainReply{Text: "Which header style?"},
		},
		{
			name: "other tool is ignored",
			resp: toolCallResponse("deleteEverything", `{}`, "nope"),
			want: &PlainReply{Text: "nope"},
		},
		{
			name:    "missing filename",
			resp:    toolCallResponse(UpdateArtifactTool, `{"contents":"body{}"}`, ""),
			wantErr: ErrMalformedToolCall,
		},
		{
			name:    "missing contents",
			resp:    toolCallResponse(UpdateArtifactTool, `{"filename":"index.html"}`, ""),
			wantErr: ErrMalformedToolCall,
		},
		{
			name:    "arguments not json",
			resp:    toolCallResponse(UpdateArtifactTool, `{"filename": "index.html",`, ""),
			wantErr: ErrMalformedToolCall,
		},
		{
			name:    "no choices",
			resp:    &llms.ContentResponse{},
			wantErr: ErrGatewayUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := NewWithModel(&stubModel{resp: tt.resp}, Options{})
			got, err := gw.RequestImplementation(context.Background(), "- [ ] a", "")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestImplementation_TransportError(t *testing.T) {
	boom := errors.New("connection refused")
	gw := NewWithModel(&stubModel{err: boom}, Options{})

	_, err := gw.RequestImplementation(context.Background(), "- [ ] a", "")
	require.ErrorIs(t, err, ErrGatewayUnavailable)
	require.ErrorIs(t, err, boom)
}

// chatServer serves an OpenAI-compatible chat completions endpoint.
func chatServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testModelConfig(url string) config.ModelConfig {
	return config.ModelConfig{
		BaseURL: url + "/v1",
		Name:    "test-model",
		APIKey:  config.Secret("sk-test"),
		Timeout: 5 * time.Second,
	}
}

func TestNew_OpenAICompatibleEndpoint(t *testing.T) {
	const body = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "test-model",
  "choices": [{
    "index": 0,
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "updateArtifact", "arguments": "{\"filename\":\"index.html\",\"contents\":\"<header></header>\"}"}
      }]
    },
    "finish_reason": "tool_calls"
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`
	var seen map[string]any
	srv := chatServer(t, http.StatusOK, body, &seen)

	gw, err := New(testModelConfig(srv.URL))
	require.NoError(t, err)

	res, err := gw.RequestImplementation(context.Background(), "- [ ] 1. Header", "")
	require.NoError(t, err)
	assert.Equal(t, &ArtifactUpdate{Filename: "index.html", Contents: "<header></header>"}, res)

	assert.Equal(t, "test-model", seen["model"])
	assert.NotEmpty(t, seen["tools"])
}

func TestNew_Unauthorized(t *testing.T) {
	srv := chatServer(t, http.StatusUnauthorized,
		`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`, nil)

	gw, err := New(testModelConfig(srv.URL))
	require.NoError(t, err)

	_, err = gw.RequestImplementation(context.Background(), "- [ ] 1. Header", "")
	require.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestNew_RequiresModel(t *testing.T) {
	_, err := New(config.ModelConfig{BaseURL: "http://localhost"})
	assert.Error(t, err)

	_, err = New(config.ModelConfig{Name: "m"})
	assert.Error(t, err)
}
