package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDirectArray(t *testing.T) {
	out, ok := Extract[[]map[string]any](`[{"title":"A"},{"title":"B"}]`, ShapeArray)
	assert.True(t, ok)
	assert.Len(t, out, 2)
	assert.Equal(t, "A", out[0]["title"])
}

func TestExtractArrayInCodeFence(t *testing.T) {
	text := "Here are the tasks:\n```json\n[{\"title\":\"A\"}]\n```"
	out, ok := Extract[[]map[string]any](text, ShapeArray)
	assert.True(t, ok)
	assert.Len(t, out, 1)
	assert.Equal(t, "A", out[0]["title"])
}

func TestExtractObjectWrappedInProse(t *testing.T) {
	text := `Sure! Here is my analysis:

{"has_sufficient_info": false, "specific_questions": ["What stack?"]}

Let me know if you need more.`
	out, ok := Extract[map[string]any](text, ShapeObject)
	assert.True(t, ok)
	assert.Equal(t, false, out["has_sufficient_info"])
}

func TestExtractNotJSON(t *testing.T) {
	out, ok := Extract[[]map[string]any]("not json at all", ShapeArray)
	assert.False(t, ok)
	assert.Nil(t, out)
}

func TestExtractEmptyInput(t *testing.T) {
	_, ok := Extract[map[string]any]("   ", ShapeObject)
	assert.False(t, ok)
}

func TestExtractWrongShape(t *testing.T) {
	// An object response when an array is expected reports absence
	_, ok := Extract[[]map[string]any](`{"title":"A"}`, ShapeArray)
	assert.False(t, ok)
}

func TestExtractTypedStruct(t *testing.T) {
	type analysis struct {
		HasSufficientInfo bool     `json:"has_sufficient_info"`
		SpecificQuestions []string `json:"specific_questions"`
	}
	text := "```json\n{\"has_sufficient_info\": false, \"specific_questions\": [\"Which DB?\"]}\n```"
	out, ok := Extract[analysis](text, ShapeObject)
	assert.True(t, ok)
	assert.False(t, out.HasSufficientInfo)
	assert.Equal(t, []string{"Which DB?"}, out.SpecificQuestions)
}

func TestIsRetriableError(t *testing.T) {
	assert.True(t, isRetriableError(context.DeadlineExceeded))
	assert.True(t, isRetriableError(errors.New("429 rate limit exceeded")))
	assert.True(t, isRetriableError(errors.New("503 service unavailable")))
	assert.True(t, isRetriableError(errors.New("connection refused")))
	assert.False(t, isRetriableError(errors.New("401 unauthorized")))
	assert.False(t, isRetriableError(nil))
}
