package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_FitScore(t *testing.T) {
	score, err := Decode[FitScore](`{"score": 7.5, "explanation": "Strong Go background"}`)
	require.NoError(t, err)
	assert.Equal(t, 7.5, score.Score)
	assert.Equal(t, "Strong Go background", score.Explanation)
	assert.False(t, score.Failed())
}

func TestDecode_CodeBlock(t *testing.T) {
	raw := "```json\n{\"is_valid\": true, \"confidence\": 0.92, \"rationale\": \"asks for a comparison\"}\n```"

	check, err := Decode[ValidityCheck](raw)
	require.NoError(t, err)
	assert.True(t, check.IsValid)
	assert.InDelta(t, 0.92, check.Confidence, 1e-9)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "missing required field", raw: `{"score": 5}`},
		{name: "unknown field", raw: `{"score": 5, "explanation": "ok", "extra": true}`},
		{name: "wrong type", raw: `{"score": "five", "explanation": "ok"}`},
		{name: "score above range", raw: `{"score": 11, "explanation": "ok"}`},
		{name: "negative score", raw: `{"score": -1, "explanation": "ok"}`},
		{name: "malformed", raw: `{"score": 5, "explanation": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode[FitScore](tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestDecode_EmptyResponse(t *testing.T) {
	_, err := Decode[FitScore]("   ")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestDecode_ConfidenceBounds(t *testing.T) {
	_, err := Decode[ValidityCheck](`{"is_valid": true, "confidence": 1.3, "rationale": "sure"}`)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.Errors)
	assert.Equal(t, "Confidence", verr.Errors[0].Field)
}

func TestDecode_MissingFieldReportsField(t *testing.T) {
	_, err := Decode[WorkflowIntent](`{"wants_score": true, "score_confidence": 0.9, "rationale": "score only"}`)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "workflow_intent", verr.Schema)
	assert.Contains(t, err.Error(), "wants_edits")
}

func TestDecode_SearchQueryDefaults(t *testing.T) {
	query, err := Decode[SearchQuery](`{"keywords": "Go Developer", "city": "Berlin"}`)
	require.NoError(t, err)
	assert.Equal(t, DefaultSearchLimit, query.Limit)
	assert.False(t, query.Hybrid)

	query, err = Decode[SearchQuery](`{"keywords": "Go Developer", "city": "Berlin", "limit": 5, "hybrid": true}`)
	require.NoError(t, err)
	assert.Equal(t, 5, query.Limit)
	assert.True(t, query.Hybrid)
}

func TestDecode_SearchQueryRequiresKeywords(t *testing.T) {
	_, err := Decode[SearchQuery](`{"city": "Berlin"}`)
	assert.Error(t, err)
}

func TestDecode_TailoringLevelEnum(t *testing.T) {
	assessment, err := Decode[TailoringAssessment](`{"level": "Very Well", "rationale": "mirrors the posting"}`)
	require.NoError(t, err)
	assert.Equal(t, "Very Well", assessment.Level)

	_, err = Decode[TailoringAssessment](`{"level": "Perfect", "rationale": "?"}`)
	assert.Error(t, err)
}

func TestDecode_EditSuggestionsMustNotBeEmpty(t *testing.T) {
	_, err := Decode[EditSuggestions](`{"suggestions": ""}`)
	assert.Error(t, err)
}

func TestFor_SchemaShape(t *testing.T) {
	s, err := For[FitScore]()
	require.NoError(t, err)
	assert.Equal(t, "fit_score", s.Name)
	assert.True(t, s.Strict())

	var doc map[string]any
	require.NoError(t, json.Unmarshal(s.Raw, &doc))
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, false, doc["additionalProperties"])
	assert.ElementsMatch(t, []any{"score", "explanation"}, doc["required"])

	search := MustFor[SearchQuery]()
	assert.False(t, search.Strict())
	assert.ElementsMatch(t, []string{"keywords", "city"}, search.Definition.Required)

	again, err := For[FitScore]()
	require.NoError(t, err)
	assert.Same(t, s, again)
}

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "json code block", input: "```json\n{\"a\": 1}\n```", expected: `{"a": 1}`},
		{name: "generic code block", input: "```\n{\"a\": 1}\n```", expected: `{"a": 1}`},
		{name: "preamble", input: "Here is the JSON:\n{\"a\": 1}", expected: `{"a": 1}`},
		{name: "plain", input: `{"a": 1}`, expected: `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestJobRecord(t *testing.T) {
	job := NewJobRecord("acme", "Build things", "I build things")
	assert.Equal(t, DefaultExplanation, job.Explanation)
	assert.Zero(t, job.Score)

	job.Apply(FailedFitScore())
	assert.Equal(t, float64(FailedScore), job.Score)
	assert.Equal(t, FailedComparison, job.Explanation)
}

func TestDecode_RejectsTrailingData(t *testing.T) {
	raws := []string{
		`{"is_valid": true, "confidence": 0.9, "rationale": "x"} trailing {"a": 1}`,
		`{"is_valid": true, "confidence": 0.9, "rationale": "x"} {"is_valid": false, "confidence": 0.1, "rationale": "y"}`,
	}

	for _, raw := range raws {
		_, err := Decode[ValidityCheck](raw)
		assert.ErrorIs(t, err, ErrTrailingData, raw)
	}
}

func TestDecode_AllowsProseAroundObject(t *testing.T) {
	check, err := Decode[ValidityCheck]("Here you go:\n{\"is_valid\": true, \"confidence\": 0.9, \"rationale\": \"x\"}\nThanks")
	require.NoError(t, err)
	assert.True(t, check.IsValid)
}
