// Package gateway talks to the chat completion service.
//
// A request carries a system turn, a user turn naming the milestone, and the
// updateArtifact tool. The response is decoded once, here, into a Result so
// callers never handle raw tool-call arguments.
//
// Example:
//
//	gw, err := gateway.New(cfg.Model)
//	if err != nil {
//	    return err
//	}
//	res, err := gw.RequestImplementation(ctx, "- [ ] 1. Build header", "")
//	switch r := res.(type) {
//	case *gateway.ArtifactUpdate:
//	    // write r.Filename
//	case *gateway.PlainReply:
//	    // show r.Text
//	}
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fyrsmithlabs/milestoned/internal/config"
	"github.com/fyrsmithlabs/milestoned/internal/logging"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// placeholderToken satisfies the client for local endpoints that ignore auth.
const placeholderToken = "unused"

// Options tunes each completion request.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Gateway issues one non-streaming completion per milestone.
type Gateway struct {
	model llms.Model
	opts  Options
}

// New creates a gateway backed by an OpenAI-compatible endpoint.
func New(cfg config.ModelConfig) (*Gateway, error) {
	if cfg.Name == "" {
		return nil, errors.New("model name required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("model base URL required")
	}

	token := cfg.APIKey.Value()
	if token == "" {
		token = placeholderToken
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Name),
		openai.WithToken(token),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	return NewWithModel(llm, Options{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}), nil
}

// NewWithModel wraps any langchaingo model.
func NewWithModel(model llms.Model, opts Options) *Gateway {
	return &Gateway{model: model, opts: opts}
}

// RequestImplementation asks the model to implement milestone.
//
// An empty systemPrompt selects ImplementationPrompt. Transport, auth and
// empty-response failures wrap ErrGatewayUnavailable; a bad updateArtifact
// call wraps ErrMalformedToolCall. Nothing is retried.
func (g *Gateway) RequestImplementation(ctx context.Context, milestone, systemPrompt string) (Result, error) {
	logger := logging.FromContext(ctx).Named("gateway")

	callOpts := []llms.CallOption{
		llms.WithTools(Tools()),
		llms.WithToolChoice("auto"),
	}
	if g.opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(g.opts.Temperature))
	}
	if g.opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(g.opts.MaxTokens))
	}

	logger.Debug(ctx, "requesting implementation", zap.String("milestone", milestone))

	resp, err := g.model.GenerateContent(ctx, Messages(milestone, systemPrompt), callOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, fmt.Errorf("%w: empty response", ErrGatewayUnavailable)
	}

	choice := resp.Choices[0]
	logger.Trace(ctx, "model response",
		zap.String("content", choice.Content),
		zap.Int("tool_calls", len(choice.ToolCalls)),
		zap.String("stop_reason", choice.StopReason),
	)

	return decodeChoice(choice)
}
