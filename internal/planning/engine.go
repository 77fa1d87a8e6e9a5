// Package planning implements the plan generation workflow: a sequential
// pipeline that analyzes a request for sufficiency, optionally asks the
// human for clarification, generates a task breakdown with a bounded retry
// loop, previews the candidate plan for confirmation, optionally regenerates
// it once from feedback, and commits the result to storage.
package planning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/planerhq/planer/internal/ai"
	"github.com/planerhq/planer/internal/elicit"
	"github.com/planerhq/planer/internal/storage"
	"github.com/planerhq/planer/internal/types"
)

// ErrCancelled is returned when the human cancels during preview.
// It is a normal terminal outcome, not a failure; no store mutation occurs.
var ErrCancelled = errors.New("plan creation cancelled")

// AnalysisFailurePolicy controls what happens when the sufficiency
// analysis call fails or returns unparseable output
type AnalysisFailurePolicy string

const (
	// AnalysisProceed treats a failed analysis as "sufficient" and
	// continues straight to generation
	AnalysisProceed AnalysisFailurePolicy = "proceed"
	// AnalysisAbort fails the workflow on analysis errors
	AnalysisAbort AnalysisFailurePolicy = "abort"
)

// RegenerationFailurePolicy controls what happens when the single
// feedback-driven regeneration attempt fails
type RegenerationFailurePolicy string

const (
	// RegenKeepPrevious silently falls back to the pre-regeneration task set
	RegenKeepPrevious RegenerationFailurePolicy = "keep_previous"
	// RegenFail fails the workflow when regeneration fails
	RegenFail RegenerationFailurePolicy = "fail"
)

const (
	// maxGenerationAttempts bounds the task generation retry loop
	maxGenerationAttempts = 3

	// feedbackLengthThreshold distinguishes substantive preview feedback
	// from a stray short reply
	feedbackLengthThreshold = 10
)

var (
	analysisParams   = ai.SampleParams{MaxTokens: 500, Temperature: 0.3}
	generationParams = ai.SampleParams{MaxTokens: 2000, Temperature: 0.7}
)

// Request is the input to a plan creation workflow
type Request struct {
	Title             string
	Goal              string
	Category          types.Category
	Description       string
	AdditionalContext string
}

// Orchestrator runs the plan creation workflow. Each invocation is a
// single sequential pipeline; concurrent invocations are independent and
// share no in-memory state.
type Orchestrator struct {
	sampler ai.Sampler
	store   storage.Storage
	channel elicit.Channel

	// OnAnalysisFailure defaults to AnalysisProceed (fail-open)
	OnAnalysisFailure AnalysisFailurePolicy
	// OnRegenerationFailure defaults to RegenKeepPrevious (fail-soft)
	OnRegenerationFailure RegenerationFailurePolicy
}

// NewOrchestrator wires the workflow to its collaborators
func NewOrchestrator(sampler ai.Sampler, store storage.Storage, channel elicit.Channel) *Orchestrator {
	return &Orchestrator{
		sampler:               sampler,
		store:                 store,
		channel:               channel,
		OnAnalysisFailure:     AnalysisProceed,
		OnRegenerationFailure: RegenKeepPrevious,
	}
}

// sufficiencyAnalysis is the strictly-typed analysis verdict.
// HasSufficientInfo is a pointer so a response that omits the field is
// treated as sufficient.
type sufficiencyAnalysis struct {
	HasSufficientInfo *bool    `json:"has_sufficient_info"`
	MissingInfo       []string `json:"missing_info"`
	SpecificQuestions []string `json:"specific_questions"`
	Reasoning         string   `json:"reasoning"`
}

func (a sufficiencyAnalysis) sufficient() bool {
	return a.HasSufficientInfo == nil || *a.HasSufficientInfo
}

// CreatePlan runs the full workflow and returns the persisted plan.
// Returns ErrCancelled when the human cancels during preview.
func (o *Orchestrator) CreatePlan(ctx context.Context, req Request) (*types.Plan, error) {
	if !req.Category.IsValid() {
		return nil, fmt.Errorf("invalid category: %s (valid: %s)",
			req.Category, strings.Join(types.CategoryValues(), ", "))
	}

	runID := uuid.New().String()[:8]
	o.channel.Notify(ctx, elicit.SeverityInfo, "Creating plan: %s", req.Title)

	enhancedContext, err := o.analyze(ctx, runID, req)
	if err != nil {
		return nil, err
	}

	prompt := PlanningPrompt(req.Goal, req.Category, req.Description, enhancedContext)
	tasks, err := o.generate(ctx, runID, prompt)
	if err != nil {
		return nil, err
	}

	plan := &types.Plan{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Goal:           req.Goal,
		Status:         types.StatusPending,
		TotalTasks:     len(tasks),
		CompletedTasks: 0,
		Tasks:          tasks,
	}

	plan, err = o.preview(ctx, runID, plan, prompt)
	if err != nil {
		return nil, err
	}

	o.channel.Notify(ctx, elicit.SeverityInfo, "Saving plan to database...")
	created, err := o.store.CreatePlan(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}

	o.channel.Notify(ctx, elicit.SeverityInfo, "Plan created successfully!")
	return created, nil
}

// analyze runs the sufficiency analysis and optional clarification.
// It returns the context to carry into generation: the request's
// additional context, possibly extended with the human's clarifications.
// Failures here never block the workflow under the default policy.
func (o *Orchestrator) analyze(ctx context.Context, runID string, req Request) (string, error) {
	o.channel.Notify(ctx, elicit.SeverityInfo, "Analyzing requirements...")

	enhanced := req.AdditionalContext
	prompt := AnalysisPrompt(req.Title, req.Goal, req.Category, req.Description, req.AdditionalContext)

	text, err := o.sampler.Sample(ctx, []ai.Message{{Role: ai.RoleUser, Content: prompt}}, analysisParams)
	if err != nil {
		if o.OnAnalysisFailure == AnalysisAbort {
			o.channel.Notify(ctx, elicit.SeverityError, "Analysis phase failed: %v", err)
			return "", fmt.Errorf("analysis failed: %w", err)
		}
		o.channel.Notify(ctx, elicit.SeverityWarning, "Analysis phase failed: %v, proceeding with task generation", err)
		return enhanced, nil
	}
	o.channel.Notify(ctx, elicit.SeverityDebug, "[%s] Analysis response: %s", runID, snippet(text, 200))

	analysis, ok := ai.Extract[sufficiencyAnalysis](text, ai.ShapeObject)
	if !ok {
		// Unparseable verdict is treated as sufficient
		o.channel.Notify(ctx, elicit.SeverityInfo, "Sufficient information provided, generating task list...")
		return enhanced, nil
	}

	if analysis.sufficient() || len(analysis.SpecificQuestions) == 0 {
		o.channel.Notify(ctx, elicit.SeverityInfo, "Sufficient information provided, generating task list...")
		return enhanced, nil
	}

	reason := analysis.Reasoning
	if reason == "" {
		reason = "Missing critical information"
	}
	o.channel.Notify(ctx, elicit.SeverityInfo, "Clarification needed: %s", reason)

	resp, err := o.channel.Elicit(ctx, ClarificationPrompt(req.Title, analysis.SpecificQuestions))
	if err != nil {
		o.channel.Notify(ctx, elicit.SeverityWarning, "Clarification failed: %v, proceeding with available information", err)
		return enhanced, nil
	}
	if resp.Action == elicit.ActionAccept && resp.Text != "" {
		enhanced += "\n\nUser clarifications:\n" + resp.Text
		o.channel.Notify(ctx, elicit.SeverityInfo, "Additional context received, generating optimized task list...")
	} else {
		o.channel.Notify(ctx, elicit.SeverityInfo, "Proceeding with available information...")
	}
	return enhanced, nil
}

// generate runs the bounded retry loop. The instruction starts as the
// planning prompt and gains the JSON-only clause after each failed attempt.
func (o *Orchestrator) generate(ctx context.Context, runID string, prompt string) ([]*types.Task, error) {
	o.channel.Notify(ctx, elicit.SeverityInfo, "Generating tasks with LLM...")

	instruction := prompt
	var lastErr error

	for attempt := 1; attempt <= maxGenerationAttempts; attempt++ {
		text, err := o.sampler.Sample(ctx, []ai.Message{{Role: ai.RoleUser, Content: instruction}}, generationParams)
		if err != nil {
			lastErr = err
			if attempt < maxGenerationAttempts {
				o.channel.Notify(ctx, elicit.SeverityWarning,
					"Attempt %d/%d failed: %v, retrying...", attempt, maxGenerationAttempts, err)
				instruction += jsonOnlyInstruction
			}
			continue
		}

		o.channel.Notify(ctx, elicit.SeverityInfo, "Parsing generated tasks...")
		o.channel.Notify(ctx, elicit.SeverityDebug, "[%s] Response (attempt %d): %s", runID, attempt, snippet(text, 200))

		generated, ok := ai.Extract[[]GeneratedTask](text, ai.ShapeArray)
		if ok && len(generated) > 0 {
			o.channel.Notify(ctx, elicit.SeverityInfo, "Generated %d tasks from LLM", len(generated))
			return MaterializeTasks(generated), nil
		}

		lastErr = errors.New("response did not contain a valid task array")
		if attempt < maxGenerationAttempts {
			o.channel.Notify(ctx, elicit.SeverityWarning,
				"Attempt %d/%d: LLM response invalid, retrying...", attempt, maxGenerationAttempts)
			instruction += jsonOnlyInstruction
		}
	}

	o.channel.Notify(ctx, elicit.SeverityError, "Failed after %d attempts: %v", maxGenerationAttempts, lastErr)
	return nil, fmt.Errorf("generation failed after %d attempts: %w", maxGenerationAttempts, lastErr)
}

// preview shows the candidate plan and handles the confirmation reply:
// accept, cancel, or substantive feedback that triggers one regeneration.
func (o *Orchestrator) preview(ctx context.Context, runID string, plan *types.Plan, prompt string) (*types.Plan, error) {
	resp, err := o.channel.Elicit(ctx, PreviewPrompt(FormatPlanDetailed(plan)))
	if err != nil {
		return nil, fmt.Errorf("preview confirmation failed: %w", err)
	}
	if resp.Action == elicit.ActionCancel {
		o.channel.Notify(ctx, elicit.SeverityInfo, "Plan creation cancelled by user")
		return nil, ErrCancelled
	}

	reply := strings.ToLower(strings.TrimSpace(resp.Text))
	if strings.Contains(reply, "cancel") || strings.Contains(reply, "abort") || reply == "no" {
		o.channel.Notify(ctx, elicit.SeverityInfo, "Plan creation cancelled by user")
		return nil, ErrCancelled
	}

	if strings.Contains(reply, "yes") || len(reply) <= feedbackLengthThreshold {
		return plan, nil
	}

	return o.regenerate(ctx, runID, plan, prompt, resp.Text)
}

// regenerate runs the single feedback-driven revision. Under the default
// policy any failure keeps the previous task set.
func (o *Orchestrator) regenerate(ctx context.Context, runID string, plan *types.Plan, prompt, feedback string) (*types.Plan, error) {
	o.channel.Notify(ctx, elicit.SeverityInfo, "Regenerating plan with user feedback...")

	regenPrompt := RegenerationPrompt(prompt, plan.Tasks, feedback)
	text, err := o.sampler.Sample(ctx, []ai.Message{{Role: ai.RoleUser, Content: regenPrompt}}, generationParams)
	if err != nil {
		if o.OnRegenerationFailure == RegenFail {
			return nil, fmt.Errorf("regeneration failed: %w", err)
		}
		o.channel.Notify(ctx, elicit.SeverityWarning, "Regeneration failed: %v, using original tasks", err)
		return plan, nil
	}
	o.channel.Notify(ctx, elicit.SeverityDebug, "[%s] Regeneration response: %s", runID, snippet(text, 200))

	generated, ok := ai.Extract[[]GeneratedTask](text, ai.ShapeArray)
	if !ok || len(generated) == 0 {
		if o.OnRegenerationFailure == RegenFail {
			return nil, errors.New("regeneration failed: response did not contain a valid task array")
		}
		o.channel.Notify(ctx, elicit.SeverityWarning, "Regeneration produced no valid tasks, using original tasks")
		return plan, nil
	}

	plan.Tasks = MaterializeTasks(generated)
	plan.TotalTasks = len(plan.Tasks)
	o.channel.Notify(ctx, elicit.SeverityInfo, "Regenerated plan with %d tasks", len(plan.Tasks))
	return plan, nil
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
