package planning

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planerhq/planer/internal/ai"
	"github.com/planerhq/planer/internal/elicit"
	"github.com/planerhq/planer/internal/storage/sqlite"
	"github.com/planerhq/planer/internal/types"
)

// fakeSampler replays scripted responses in order and records the prompts
// it was called with
type fakeSampler struct {
	responses []sampleResult
	prompts   []string
}

type sampleResult struct {
	text string
	err  error
}

func (f *fakeSampler) Sample(_ context.Context, messages []ai.Message, _ ai.SampleParams) (string, error) {
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	if len(f.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r.text, r.err
}

// scriptedChannel replays elicitation responses and collects notifications
type scriptedChannel struct {
	replies       []elicit.Response
	prompts       []string
	notifications []string
}

func (c *scriptedChannel) Notify(_ context.Context, severity elicit.Severity, format string, args ...any) {
	c.notifications = append(c.notifications, fmt.Sprintf("%s: %s", severity, fmt.Sprintf(format, args...)))
}

func (c *scriptedChannel) Elicit(_ context.Context, prompt string) (elicit.Response, error) {
	c.prompts = append(c.prompts, prompt)
	if len(c.replies) == 0 {
		return elicit.Response{}, errors.New("no scripted reply")
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	return r, nil
}

func newTestStore(t *testing.T) *sqlite.SQLiteStorage {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "plans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

const sufficientAnalysis = `{"has_sufficient_info": true, "missing_info": [], "specific_questions": [], "reasoning": "clear goal"}`

const validTaskArray = `[
	{"title": "Design schema", "description": "Model the data", "priority": "high", "dependencies": []},
	{"title": "Build API", "priority": "medium", "dependencies": [0]}
]`

func testRequest() Request {
	return Request{
		Title:    "Launch service",
		Goal:     "Ship the v1 backend",
		Category: types.CategoryProject,
	}
}

func TestCreatePlanHappyPath(t *testing.T) {
	store := newTestStore(t)
	sampler := &fakeSampler{responses: []sampleResult{
		{text: sufficientAnalysis},
		{text: validTaskArray},
	}}
	channel := &scriptedChannel{replies: []elicit.Response{
		{Action: elicit.ActionAccept, Text: "yes"},
	}}

	plan, err := NewOrchestrator(sampler, store, channel).CreatePlan(context.Background(), testRequest())
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.NotZero(t, plan.ID)
	assert.Equal(t, 2, plan.TotalTasks)
	assert.Equal(t, 0, plan.CompletedTasks)
	require.Len(t, plan.Tasks, 2)
	assert.Equal(t, "Design schema", plan.Tasks[0].Title)
	assert.Equal(t, types.PriorityHigh, plan.Tasks[0].Priority)
	assert.Equal(t, []int{0}, plan.Tasks[1].Dependencies)

	stored, err := store.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, stored.Tasks, 2)
}

func TestCreatePlanRejectsUnknownCategory(t *testing.T) {
	store := newTestStore(t)
	sampler := &fakeSampler{}
	channel := &scriptedChannel{}

	req := testRequest()
	req.Category = "gardening"
	_, err := NewOrchestrator(sampler, store, channel).CreatePlan(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid category")
	// Vocabulary is enumerated in the message
	assert.Contains(t, err.Error(), "project")
	assert.Empty(t, sampler.prompts)
}

func TestCreatePlanFailsAfterThreeAttempts(t *testing.T) {
	store := newTestStore(t)
	sampler := &fakeSampler{responses: []sampleResult{
		{text: sufficientAnalysis},
		{text: "[]"},
		{text: "still nothing useful"},
		{text: "[]"},
	}}
	channel := &scriptedChannel{}

	_, err := NewOrchestrator(sampler, store, channel).CreatePlan(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")

	// One analysis call plus exactly three generation attempts
	assert.Len(t, sampler.prompts, 4)

	// Later attempts carry the strengthened instruction
	assert.NotContains(t, sampler.prompts[1], "ONLY a valid JSON array")
	assert.Contains(t, sampler.prompts[2], "ONLY a valid JSON array")

	// No partial state persisted
	plans, err := store.ListPlans(context.Background(), types.PlanFilter{IncludeCompleted: true})
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestCreatePlanAnalysisFailureIsFailOpen(t *testing.T) {
	store := newTestStore(t)
	sampler := &fakeSampler{responses: []sampleResult{
		{err: errors.New("service unavailable")},
		{text: validTaskArray},
	}}
	channel := &scriptedChannel{replies: []elicit.Response{
		{Action: elicit.ActionAccept, Text: "yes"},
	}}

	plan, err := NewOrchestrator(sampler, store, channel).CreatePlan(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, plan.TotalTasks)
}

func TestCreatePlanAnalysisAbortPolicy(t *testing.T) {
	store := newTestStore(t)
	sampler := &fakeSampler{responses: []sampleResult{
		{err: errors.New("service unavailable")},
	}}
	channel := &scriptedChannel{}

	orch := NewOrchestrator(sampler, store, channel)
	orch.OnAnalysisFailure = AnalysisAbort
	_, err := orch.CreatePlan(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis failed")
}

func TestCreatePlanClarificationExtendsContext(t *testing.T) {
	store := newTestStore(t)
	analysis := `{"has_sufficient_info": false, "missing_info": ["stack"], "specific_questions": ["Which language?", "Which database?"], "reasoning": "stack unknown"}`
	sampler := &fakeSampler{responses: []sampleResult{
		{text: analysis},
		{text: validTaskArray},
	}}
	channel := &scriptedChannel{replies: []elicit.Response{
		{Action: elicit.ActionAccept, Text: "Go and PostgreSQL"},
		{Action: elicit.ActionAccept, Text: "yes"},
	}}

	_, err := NewOrchestrator(sampler, store, channel).CreatePlan(context.Background(), testRequest())
	require.NoError(t, err)

	// Questions were numbered in the clarification prompt
	require.Len(t, channel.prompts, 2)
	assert.Contains(t, channel.prompts[0], "1. Which language?")
	assert.Contains(t, channel.prompts[0], "2. Which database?")

	// The reply flowed into the generation prompt
	require.Len(t, sampler.prompts, 2)
	assert.Contains(t, sampler.prompts[1], "User clarifications:\nGo and PostgreSQL")
}

func TestCreatePlanClarificationDeclinedProceeds(t *testing.T) {
	store := newTestStore(t)
	analysis := `{"has_sufficient_info": false, "specific_questions": ["Which stack?"], "reasoning": "unknown"}`
	sampler := &fakeSampler{responses: []sampleResult{
		{text: analysis},
		{text: validTaskArray},
	}}
	channel := &scriptedChannel{replies: []elicit.Response{
		{Action: elicit.ActionCancel},
		{Action: elicit.ActionAccept, Text: "yes"},
	}}

	plan, err := NewOrchestrator(sampler, store, channel).CreatePlan(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, plan.TotalTasks)
	assert.NotContains(t, sampler.prompts[1], "User clarifications")
}

func TestCreatePlanPreviewCancel(t *testing.T) {
	store := newTestStore(t)
	sampler := &fakeSampler{responses: []sampleResult{
		{text: sufficientAnalysis},
		{text: validTaskArray},
	}}

	for _, reply := range []elicit.Response{
		{Action: elicit.ActionCancel},
		{Action: elicit.ActionAccept, Text: "cancel"},
		{Action: elicit.ActionAccept, Text: "no"},
	} {
		s := &fakeSampler{responses: append([]sampleResult{}, sampler.responses...)}
		channel := &scriptedChannel{replies: []elicit.Response{reply}}

		_, err := NewOrchestrator(s, store, channel).CreatePlan(context.Background(), testRequest())
		require.ErrorIs(t, err, ErrCancelled)
	}

	plans, err := store.ListPlans(context.Background(), types.PlanFilter{IncludeCompleted: true})
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestCreatePlanRegenerationReplacesTasks(t *testing.T) {
	store := newTestStore(t)
	revised := `[{"title": "Write docs first", "priority": "critical"}]`
	sampler := &fakeSampler{responses: []sampleResult{
		{text: sufficientAnalysis},
		{text: validTaskArray},
		{text: revised},
	}}
	channel := &scriptedChannel{replies: []elicit.Response{
		{Action: elicit.ActionAccept, Text: "please start with documentation instead"},
	}}

	plan, err := NewOrchestrator(sampler, store, channel).CreatePlan(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, plan.TotalTasks)
	require.Len(t, plan.Tasks, 1)
	assert.Equal(t, "Write docs first", plan.Tasks[0].Title)
	assert.Equal(t, types.PriorityCritical, plan.Tasks[0].Priority)

	// The regeneration prompt carried the previous task snapshot and feedback
	require.Len(t, sampler.prompts, 3)
	assert.Contains(t, sampler.prompts[2], "Design schema")
	assert.Contains(t, sampler.prompts[2], "please start with documentation instead")
}

func TestCreatePlanRegenerationFailureKeepsPrevious(t *testing.T) {
	store := newTestStore(t)
	sampler := &fakeSampler{responses: []sampleResult{
		{text: sufficientAnalysis},
		{text: validTaskArray},
		{err: errors.New("service unavailable")},
	}}
	channel := &scriptedChannel{replies: []elicit.Response{
		{Action: elicit.ActionAccept, Text: "please start with documentation instead"},
	}}

	plan, err := NewOrchestrator(sampler, store, channel).CreatePlan(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, plan.TotalTasks)
	assert.Equal(t, "Design schema", plan.Tasks[0].Title)

	warned := false
	for _, n := range channel.notifications {
		if strings.Contains(n, "using original tasks") {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestCreatePlanRegenerationFailPolicy(t *testing.T) {
	store := newTestStore(t)
	sampler := &fakeSampler{responses: []sampleResult{
		{text: sufficientAnalysis},
		{text: validTaskArray},
		{text: "no json here"},
	}}
	channel := &scriptedChannel{replies: []elicit.Response{
		{Action: elicit.ActionAccept, Text: "please start with documentation instead"},
	}}

	orch := NewOrchestrator(sampler, store, channel)
	orch.OnRegenerationFailure = RegenFail
	_, err := orch.CreatePlan(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "regeneration failed")
}

func TestCreatePlanShortReplyIsNotFeedback(t *testing.T) {
	store := newTestStore(t)
	sampler := &fakeSampler{responses: []sampleResult{
		{text: sufficientAnalysis},
		{text: validTaskArray},
	}}
	channel := &scriptedChannel{replies: []elicit.Response{
		{Action: elicit.ActionAccept, Text: "ok fine"},
	}}

	plan, err := NewOrchestrator(sampler, store, channel).CreatePlan(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, plan.TotalTasks)
	// No regeneration call happened
	assert.Len(t, sampler.prompts, 2)
}
