package agent

import (
	"context"

	"github.com/fyrsmithlabs/milestoned/internal/gateway"
)

// Status is the outcome of one run.
type Status string

const (
	// StatusNoPlan means there was no plan to work from. Nothing was written.
	StatusNoPlan Status = "no_plan"

	// StatusAllComplete means every milestone is already checked off.
	StatusAllComplete Status = "all_complete"

	// StatusCompleted means an artifact was written and the milestone marked.
	StatusCompleted Status = "completed"

	// StatusReplied means the model answered in text only; nothing was marked.
	StatusReplied Status = "replied"

	// StatusSkipped means the model's updateArtifact call was unusable and
	// was dropped; nothing was written or marked.
	StatusSkipped Status = "skipped"
)

const (
	noPlanText      = "No plan found."
	allCompleteText = "All milestones are completed."
)

// Summary describes what a run did.
type Summary struct {
	RunID     string `json:"run_id"`
	Status    Status `json:"status"`
	Milestone string `json:"milestone,omitempty"`
	Artifact  string `json:"artifact,omitempty"`

	// Text is the status message or the model's reply.
	Text string `json:"text,omitempty"`
}

// Step names a stage of a run for progress reporting.
type Step string

const (
	// StepLoadPlan reads the plan file.
	StepLoadPlan Step = "load_plan"
	// StepSelect picks the first pending milestone.
	StepSelect Step = "select"
	// StepRequest waits on the model.
	StepRequest Step = "request"
	// StepApply writes the returned artifact.
	StepApply Step = "apply"
	// StepMark checks the milestone off in the plan.
	StepMark Step = "mark"
)

// Progress reports a step as it starts.
type Progress struct {
	Step    Step   `json:"step"`
	Message string `json:"message"`
}

// ProgressCallback receives progress updates during a run.
type ProgressCallback func(progress Progress)

// Gateway abstracts the completion service.
type Gateway interface {
	RequestImplementation(ctx context.Context, milestone, systemPrompt string) (gateway.Result, error)
}

// Message is one entry of the run's conversation record.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
