// Package agent runs one milestone of a plan through the model.
//
// A run is a fixed sequence:
//
//	load plan → select milestone → request implementation → save artifact → mark milestone
//
// and stops early when there is no plan, nothing is pending, or the model
// answers without calling updateArtifact. One run handles at most one
// milestone; there is no locking between concurrent runs.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/milestoned/internal/artifact"
	"github.com/fyrsmithlabs/milestoned/internal/gateway"
	"github.com/fyrsmithlabs/milestoned/internal/logging"
	"github.com/fyrsmithlabs/milestoned/internal/plan"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/milestoned/internal/agent"

// Orchestrator sequences a single run.
type Orchestrator struct {
	plans     plan.Repository
	artifacts artifact.Repository
	gateway   Gateway

	systemPrompt string
	logger       *logging.Logger
	progress     ProgressCallback
	newRunID     func() string

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	runs           metric.Int64Counter

	mu      sync.Mutex
	history []Message
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSystemPrompt overrides gateway.ImplementationPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *Orchestrator) { o.systemPrompt = prompt }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithProgress sets the progress callback.
func WithProgress(cb ProgressCallback) Option {
	return func(o *Orchestrator) { o.progress = cb }
}

// WithRunIDFunc replaces the UUID run ID generator.
func WithRunIDFunc(fn func() string) Option {
	return func(o *Orchestrator) { o.newRunID = fn }
}

// WithTracerProvider sets where run spans go. The default is the otel
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) { o.tracerProvider = tp }
}

// WithMeterProvider sets where the run counter is recorded. The default is
// the otel global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *Orchestrator) { o.meterProvider = mp }
}

// New creates an orchestrator over the given stores and gateway.
func New(plans plan.Repository, artifacts artifact.Repository, gw Gateway, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		plans:     plans,
		artifacts: artifacts,
		gateway:   gw,
		logger:    logging.NewNop(),
		newRunID:  func() string { return uuid.New().String() },

		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.tracer = o.tracerProvider.Tracer(instrumentationName)
	runs, err := o.meterProvider.Meter(instrumentationName).Int64Counter(
		"milestoned.agent.runs_total",
		metric.WithDescription("Total number of orchestrator runs by status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		o.logger.Warn(context.Background(), "failed to create run counter", zap.Error(err))
	}
	o.runs = runs

	return o
}

// History returns a copy of the conversation record of the latest run.
func (o *Orchestrator) History() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.history))
	copy(out, o.history)
	return out
}

// RunOnce processes the next pending milestone.
//
// A missing plan, a finished plan, a text-only reply and a malformed tool
// call all return a Summary and a nil error. Gateway failures are returned
// unchanged (they wrap gateway.ErrGatewayUnavailable) and nothing is written.
func (o *Orchestrator) RunOnce(ctx context.Context) (*Summary, error) {
	runID := o.newRunID()
	ctx = logging.WithRunID(ctx, runID)

	ctx, span := o.tracer.Start(ctx, "agent.run_once",
		trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	o.resetHistory()

	summary, err := o.run(ctx, runID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.count(ctx, "error")
		return nil, err
	}

	span.SetAttributes(attribute.String("status", string(summary.Status)))
	o.count(ctx, string(summary.Status))
	return summary, nil
}

func (o *Orchestrator) run(ctx context.Context, runID string) (*Summary, error) {
	o.report(StepLoadPlan, "loading plan")
	text, err := o.plans.Read(ctx)
	if errors.Is(err, plan.ErrPlanNotFound) {
		o.logger.Info(ctx, "no plan found")
		return &Summary{RunID: runID, Status: StatusNoPlan, Text: noPlanText}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}

	o.report(StepSelect, "selecting next milestone")
	milestone, ok := plan.SelectNext(text)
	if !ok {
		o.logger.Info(ctx, "all milestones completed")
		return &Summary{RunID: runID, Status: StatusAllComplete, Text: allCompleteText}, nil
	}
	o.logger.Info(ctx, "milestone selected", zap.String("milestone", milestone.String()))
	o.record("user", gateway.UserPrompt(milestone.String()))

	o.report(StepRequest, fmt.Sprintf("requesting implementation of %q", milestone.Description()))
	result, err := o.gateway.RequestImplementation(ctx, milestone.String(), o.systemPrompt)
	if errors.Is(err, gateway.ErrMalformedToolCall) {
		o.logger.Warn(ctx, "skipping malformed artifact update",
			zap.String("milestone", milestone.String()), zap.Error(err))
		return &Summary{
			RunID:     runID,
			Status:    StatusSkipped,
			Milestone: milestone.String(),
			Text:      fmt.Sprintf("Skipped artifact update: %v", err),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	switch r := result.(type) {
	case *gateway.ArtifactUpdate:
		return o.apply(ctx, runID, milestone, r)
	case *gateway.PlainReply:
		o.record("assistant", r.Text)
		o.logger.Info(ctx, "model replied without updating artifacts")
		return &Summary{RunID: runID, Status: StatusReplied, Milestone: milestone.String(), Text: r.Text}, nil
	default:
		return nil, fmt.Errorf("unexpected gateway result %T", result)
	}
}

// apply writes the artifact, then marks the milestone.
func (o *Orchestrator) apply(ctx context.Context, runID string, milestone plan.Milestone, update *gateway.ArtifactUpdate) (*Summary, error) {
	if update.Reply != "" {
		o.record("assistant", update.Reply)
	}

	o.report(StepApply, fmt.Sprintf("writing %s", update.Filename))
	if err := o.artifacts.Save(ctx, update.Filename, update.Contents); err != nil {
		return nil, fmt.Errorf("failed to save artifact: %w", err)
	}
	o.record("system", fmt.Sprintf("The artifact '%s' was updated.", update.Filename))
	o.logger.Info(ctx, "artifact saved",
		zap.String("filename", update.Filename), zap.Int("bytes", len(update.Contents)))
	o.logger.Trace(ctx, "artifact contents", zap.String("contents", update.Contents))

	o.report(StepMark, "marking milestone complete")
	if err := o.plans.MarkComplete(ctx, milestone.String(), plan.Complete(milestone)); err != nil {
		return nil, fmt.Errorf("failed to mark milestone complete: %w", err)
	}
	o.logger.Info(ctx, "milestone completed", zap.String("milestone", milestone.String()))

	return &Summary{
		RunID:     runID,
		Status:    StatusCompleted,
		Milestone: milestone.String(),
		Artifact:  update.Filename,
		Text:      update.Reply,
	}, nil
}

func (o *Orchestrator) report(step Step, msg string) {
	if o.progress != nil {
		o.progress(Progress{Step: step, Message: msg})
	}
}

func (o *Orchestrator) record(role, content string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = append(o.history, Message{Role: role, Content: content})
}

func (o *Orchestrator) resetHistory() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = nil
}

func (o *Orchestrator) count(ctx context.Context, status string) {
	if o.runs != nil {
		o.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}
