package workflow

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spigell/resume-fit/internal/schema"
)

var errBackend = errors.New("backend unavailable")

// stubBackend returns canned values and counts calls per capability. Nil funcs
// fail with errBackend.
type stubBackend struct {
	mu    sync.Mutex
	calls map[string]int

	validate  func(prompt string) (schema.ValidityCheck, error)
	intent    func(prompt string) (schema.WorkflowIntent, error)
	score     func(resume, jd string) (schema.FitScore, error)
	gaps      func(explanations []string) (string, error)
	edits     func(resume, jd, gaps string) (schema.EditSuggestions, error)
	tailoring func(resume, jd string) (schema.TailoringAssessment, error)
	search    func(prompt string) (schema.SearchQuery, error)
}

func (s *stubBackend) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[name]++
}

func (s *stubBackend) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubBackend) ValidatePrompt(_ context.Context, prompt string) (schema.ValidityCheck, error) {
	s.record("validate")
	if s.validate == nil {
		return schema.ValidityCheck{}, errBackend
	}
	return s.validate(prompt)
}

func (s *stubBackend) ExtractIntent(_ context.Context, prompt string) (schema.WorkflowIntent, error) {
	s.record("intent")
	if s.intent == nil {
		return schema.WorkflowIntent{}, errBackend
	}
	return s.intent(prompt)
}

func (s *stubBackend) Score(_ context.Context, resume, jd string) (schema.FitScore, error) {
	s.record("score")
	if s.score == nil {
		return schema.FitScore{}, errBackend
	}
	return s.score(resume, jd)
}

func (s *stubBackend) SummarizeGaps(_ context.Context, explanations []string) (string, error) {
	s.record("gaps")
	if s.gaps == nil {
		return "", errBackend
	}
	return s.gaps(explanations)
}

func (s *stubBackend) SuggestEdits(_ context.Context, resume, jd, gaps string) (schema.EditSuggestions, error) {
	s.record("edits")
	if s.edits == nil {
		return schema.EditSuggestions{}, errBackend
	}
	return s.edits(resume, jd, gaps)
}

func (s *stubBackend) AssessTailoring(_ context.Context, resume, jd string) (schema.TailoringAssessment, error) {
	s.record("tailoring")
	if s.tailoring == nil {
		return schema.TailoringAssessment{}, errBackend
	}
	return s.tailoring(resume, jd)
}

func (s *stubBackend) ExtractSearch(_ context.Context, prompt string) (schema.SearchQuery, error) {
	s.record("search")
	if s.search == nil {
		return schema.SearchQuery{}, errBackend
	}
	return s.search(prompt)
}

func validCheck(confidence float64) func(string) (schema.ValidityCheck, error) {
	return func(string) (schema.ValidityCheck, error) {
		return schema.ValidityCheck{IsValid: true, Confidence: confidence, Rationale: "resume request"}, nil
	}
}

func wants(score, prediction, edits bool) func(string) (schema.WorkflowIntent, error) {
	return func(string) (schema.WorkflowIntent, error) {
		return schema.WorkflowIntent{
			WantsScore:           score,
			ScoreConfidence:      0.9,
			WantsPrediction:      prediction,
			PredictionConfidence: 0.9,
			WantsEdits:           edits,
			EditConfidence:       0.9,
		}, nil
	}
}

func fixedScore(score float64, explanation string) func(string, string) (schema.FitScore, error) {
	return func(string, string) (schema.FitScore, error) {
		return schema.FitScore{Score: score, Explanation: explanation}, nil
	}
}

func newTestWorkflow(backend *stubBackend) *Workflow {
	w := New(backend, Config{GapThreshold: DefaultGapThreshold}, nil)
	w.newRunID = func() string { return "run-1" }
	return w
}

func TestCheckAndExtractGateBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		check    schema.ValidityCheck
		rejected bool
	}{
		{name: "invalid with high confidence", check: schema.ValidityCheck{IsValid: false, Confidence: 0.95, Rationale: "weather question"}, rejected: true},
		{name: "valid below threshold", check: schema.ValidityCheck{IsValid: true, Confidence: 0.69}, rejected: true},
		{name: "valid at threshold", check: schema.ValidityCheck{IsValid: true, Confidence: 0.7}},
		{name: "valid high confidence", check: schema.ValidityCheck{IsValid: true, Confidence: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubBackend{
				validate: func(string) (schema.ValidityCheck, error) { return tt.check, nil },
				intent:   wants(true, false, false),
			}

			gate, err := newTestWorkflow(backend).CheckAndExtract(context.Background(), "prompt")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gate.Rejected != tt.rejected {
				t.Fatalf("expected rejected=%v, got %v", tt.rejected, gate.Rejected)
			}

			wantIntentCalls := 1
			if tt.rejected {
				wantIntentCalls = 0
				if gate.Rationale != tt.check.Rationale {
					t.Fatalf("expected rationale %q, got %q", tt.check.Rationale, gate.Rationale)
				}
			} else if !gate.Intent.WantsScore {
				t.Fatalf("expected extracted intent, got %+v", gate.Intent)
			}
			if got := backend.count("intent"); got != wantIntentCalls {
				t.Fatalf("expected %d intent calls, got %d", wantIntentCalls, got)
			}
		})
	}
}

func TestCheckAndExtractBackendError(t *testing.T) {
	_, err := newTestWorkflow(&stubBackend{}).CheckAndExtract(context.Background(), "prompt")
	if !errors.Is(err, ErrGateFailed) || !errors.Is(err, errBackend) {
		t.Fatalf("expected gate failure wrapping backend error, got %v", err)
	}

	backend := &stubBackend{validate: validCheck(0.9)}
	_, err = newTestWorkflow(backend).CheckAndExtract(context.Background(), "prompt")
	if !errors.Is(err, ErrGateFailed) {
		t.Fatalf("expected gate failure on intent error, got %v", err)
	}
}

func TestScoreFailureReturnsSentinel(t *testing.T) {
	w := newTestWorkflow(&stubBackend{})

	score := w.Score(context.Background(), "resume", "jd")
	if score.Score != -1 || score.Explanation != "Comparison failed" {
		t.Fatalf("expected sentinel, got %+v", score)
	}
}

func TestScoreIsIdempotentForDeterministicBackend(t *testing.T) {
	backend := &stubBackend{score: func(resume, jd string) (schema.FitScore, error) {
		return schema.FitScore{Score: float64(len(resume) % 10), Explanation: resume + "|" + jd}, nil
	}}
	w := newTestWorkflow(backend)

	first := w.Score(context.Background(), "resume text", "job text")
	second := w.Score(context.Background(), "resume text", "job text")
	if first != second {
		t.Fatalf("expected identical scores, got %+v and %+v", first, second)
	}
}

func TestScoreTimeout(t *testing.T) {
	backend := &stubBackend{}
	w := New(&slowBackend{stubBackend: backend}, Config{RequestTimeout: 10 * time.Millisecond}, nil)

	score := w.Score(context.Background(), "r", "j")
	if !score.Failed() {
		t.Fatalf("expected sentinel after timeout, got %+v", score)
	}
}

// slowBackend blocks Score until the context is done.
type slowBackend struct {
	*stubBackend
}

func (s *slowBackend) Score(ctx context.Context, _, _ string) (schema.FitScore, error) {
	<-ctx.Done()
	return schema.FitScore{}, ctx.Err()
}

func TestScoreJobsWritesEachRecord(t *testing.T) {
	backend := &stubBackend{score: func(_, jd string) (schema.FitScore, error) {
		switch jd {
		case "go":
			return schema.FitScore{Score: 9, Explanation: "strong go"}, nil
		case "java":
			return schema.FitScore{Score: 3, Explanation: "no java"}, nil
		default:
			return schema.FitScore{}, errBackend
		}
	}}
	w := newTestWorkflow(backend)

	jobs := []*schema.JobRecord{
		schema.NewJobRecord("a", "go", ""),
		schema.NewJobRecord("b", "java", ""),
		nil,
		schema.NewJobRecord("c", "cobol", ""),
	}
	w.ScoreJobs(context.Background(), "my resume", jobs)

	if jobs[0].Score != 9 || jobs[0].Explanation != "strong go" || jobs[0].Resume != "my resume" {
		t.Fatalf("unexpected first record: %+v", jobs[0])
	}
	if jobs[1].Score != 3 || jobs[1].Explanation != "no java" {
		t.Fatalf("unexpected second record: %+v", jobs[1])
	}
	if jobs[3].Score != schema.FailedScore || jobs[3].Explanation != schema.FailedComparison {
		t.Fatalf("expected sentinel in failing record: %+v", jobs[3])
	}
	if got := backend.count("score"); got != 3 {
		t.Fatalf("expected 3 score calls, got %d", got)
	}
}

func TestTopJobs(t *testing.T) {
	jobs := []*schema.JobRecord{
		{Name: "low", Score: 2},
		{Name: "failed", Score: -1},
		{Name: "high", Score: 9},
		{Name: "mid", Score: 6},
	}

	top := TopJobs(jobs, 2)
	if len(top) != 2 || top[0].Name != "high" || top[1].Name != "mid" {
		t.Fatalf("unexpected top jobs: %+v", top)
	}

	if all := TopJobs(jobs, 10); len(all) != 3 {
		t.Fatalf("expected sentinel excluded, got %d jobs", len(all))
	}
}

func TestSummarizeGapsEmptyInputSkipsBackend(t *testing.T) {
	backend := &stubBackend{gaps: func([]string) (string, error) { return "- x", nil }}
	w := newTestWorkflow(backend)

	got := w.SummarizeGaps(context.Background())
	if got != "Unable to conduct gap analysis, no jobs scored above 7" {
		t.Fatalf("unexpected message %q", got)
	}

	got = w.SummarizeGaps(context.Background(), " ", "")
	if !strings.HasPrefix(got, "Unable to conduct gap analysis") {
		t.Fatalf("unexpected message for blank explanations %q", got)
	}

	if calls := backend.count("gaps"); calls != 0 {
		t.Fatalf("expected no backend calls, got %d", calls)
	}
}

func TestIdentifyGapsZeroThreshold(t *testing.T) {
	var received []string
	backend := &stubBackend{gaps: func(explanations []string) (string, error) {
		received = explanations
		return "- Terraform", nil
	}}
	w := New(backend, Config{GapThreshold: 0}, nil)

	jobs := []*schema.JobRecord{
		{Score: 5, Explanation: "partial match"},
		{Score: 0, Explanation: "no overlap"},
		{Score: schema.FailedScore, Explanation: schema.FailedComparison},
	}

	if got := w.IdentifyGaps(context.Background(), jobs); got != "- Terraform" {
		t.Fatalf("unexpected gaps %q", got)
	}
	if len(received) != 1 || received[0] != "partial match" {
		t.Fatalf("unexpected explanations sent: %v", received)
	}
}

func TestConfigDefaultsInvalidThreshold(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "zero kept", in: 0, want: 0},
		{name: "explicit kept", in: 5.5, want: 5.5},
		{name: "negative replaced", in: -1, want: DefaultGapThreshold},
		{name: "nan replaced", in: math.NaN(), want: DefaultGapThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Config{GapThreshold: tt.in}.withDefaults().GapThreshold
			if got != tt.want {
				t.Fatalf("expected threshold %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSummarizeGapsFailureEmbedsReason(t *testing.T) {
	got := newTestWorkflow(&stubBackend{}).SummarizeGaps(context.Background(), "lacks k8s")
	if got != "Unable to analyze gaps: backend unavailable" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestIdentifyGapsFiltersByThreshold(t *testing.T) {
	var received []string
	backend := &stubBackend{gaps: func(explanations []string) (string, error) {
		received = explanations
		return "- Kubernetes", nil
	}}
	w := newTestWorkflow(backend)

	jobs := []*schema.JobRecord{
		{Score: 7, Explanation: "exactly seven"},
		{Score: 7.5, Explanation: "above"},
		{Score: -1, Explanation: schema.FailedComparison},
		{Score: 10, Explanation: "perfect"},
	}

	if got := w.IdentifyGaps(context.Background(), jobs); got != "- Kubernetes" {
		t.Fatalf("unexpected gaps %q", got)
	}
	if len(received) != 2 || received[0] != "above" || received[1] != "perfect" {
		t.Fatalf("unexpected explanations sent: %v", received)
	}

	received = nil
	if got := w.IdentifyGaps(context.Background(), jobs[:1]); !strings.HasPrefix(got, "Unable to conduct gap analysis") {
		t.Fatalf("unexpected message %q", got)
	}
	if backend.count("gaps") != 1 {
		t.Fatalf("expected a single backend call, got %d", backend.count("gaps"))
	}
}

func TestSuggestEditsFailureKeepsType(t *testing.T) {
	edits := newTestWorkflow(&stubBackend{}).SuggestEdits(context.Background(), "r", "j", "")
	if edits.Suggestions != "Unable to suggest edits" || !edits.Failed() {
		t.Fatalf("unexpected sentinel %+v", edits)
	}
}

func TestPredict(t *testing.T) {
	backend := &stubBackend{tailoring: func(string, string) (schema.TailoringAssessment, error) {
		return schema.TailoringAssessment{Level: "Well", Rationale: "mostly aligned"}, nil
	}}
	w := newTestWorkflow(backend)

	got := w.Predict(context.Background(), schema.FitScore{Score: 9, Explanation: "x"}, "r", "j", 10)
	if got.Failed() {
		t.Fatalf("unexpected failure: %+v", got)
	}
	if got.RawFit != 90 || got.OverallScore != 94 || got.TimeDecay != 1 || got.InterviewChance != 94 {
		t.Fatalf("unexpected prediction %+v", got)
	}

	failed := w.Predict(context.Background(), schema.FailedFitScore(), "r", "j", 10)
	if !failed.Failed() || failed.Error == "" {
		t.Fatalf("expected failure for sentinel score, got %+v", failed)
	}
	if backend.count("tailoring") != 1 {
		t.Fatalf("expected tailoring to be skipped for sentinel score")
	}
}

func TestPredictUnknownTailoringLevel(t *testing.T) {
	backend := &stubBackend{tailoring: func(string, string) (schema.TailoringAssessment, error) {
		return schema.TailoringAssessment{Level: "Kind of"}, nil
	}}

	got := newTestWorkflow(backend).Predict(context.Background(), schema.FitScore{Score: 5}, "r", "j", 0)
	if !got.Failed() || !strings.Contains(got.Error, "unknown tailoring level") {
		t.Fatalf("expected strict failure, got %+v", got)
	}
}

func TestRunRejected(t *testing.T) {
	backend := &stubBackend{validate: func(string) (schema.ValidityCheck, error) {
		return schema.ValidityCheck{IsValid: false, Confidence: 0.95, Rationale: "not about resumes"}, nil
	}}

	result, err := newTestWorkflow(backend).Run(context.Background(), Input{Resume: "r", JobDescription: "j", Prompt: "weather?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Rejected || result.Rationale != "not about resumes" || result.RunID != "run-1" {
		t.Fatalf("unexpected result %+v", result)
	}
	if backend.count("intent")+backend.count("score")+backend.count("edits") != 0 {
		t.Fatalf("expected no calls after rejection")
	}
}

func TestRunAllBranches(t *testing.T) {
	var editGaps string
	backend := &stubBackend{
		validate: validCheck(0.9),
		intent:   wants(true, true, true),
		score:    fixedScore(8, "good fit, lacks Kubernetes"),
		gaps: func(explanations []string) (string, error) {
			if len(explanations) != 1 || explanations[0] != "good fit, lacks Kubernetes" {
				t.Errorf("unexpected explanations %v", explanations)
			}
			return "- Kubernetes", nil
		},
		tailoring: func(string, string) (schema.TailoringAssessment, error) {
			return schema.TailoringAssessment{Level: "Very Well"}, nil
		},
		edits: func(_, _, gaps string) (schema.EditSuggestions, error) {
			editGaps = gaps
			return schema.EditSuggestions{Suggestions: "Add a Kubernetes project"}, nil
		},
	}

	result, err := newTestWorkflow(backend).Run(context.Background(), Input{
		Resume:          "resume",
		JobDescription:  "jd",
		Prompt:          "score, predict and improve",
		DaysSincePosted: 20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Score == nil || result.Score.Score != 8 {
		t.Fatalf("unexpected score %+v", result.Score)
	}
	if result.Job == nil || result.Job.Score != 8 || result.Job.Description != "jd" {
		t.Fatalf("unexpected job record %+v", result.Job)
	}
	if result.Gaps != "- Kubernetes" || editGaps != "- Kubernetes" {
		t.Fatalf("expected gaps to flow into edits, got %q / %q", result.Gaps, editGaps)
	}
	if result.Prediction == nil || result.Prediction.InterviewChance != 69.6 {
		t.Fatalf("unexpected prediction %+v", result.Prediction)
	}
	if result.Edits == nil || result.Edits.Suggestions != "Add a Kubernetes project" {
		t.Fatalf("unexpected edits %+v", result.Edits)
	}
	if backend.count("score") != 1 {
		t.Fatalf("expected prediction to reuse the score, got %d score calls", backend.count("score"))
	}
}

func TestRunPredictionWithoutScoreComputesIt(t *testing.T) {
	backend := &stubBackend{
		validate: validCheck(0.9),
		intent:   wants(false, true, false),
		score:    fixedScore(5, "average"),
		tailoring: func(string, string) (schema.TailoringAssessment, error) {
			return schema.TailoringAssessment{Level: "Generic"}, nil
		},
	}

	result, err := newTestWorkflow(backend).Run(context.Background(), Input{Resume: "r", JobDescription: "j", Prompt: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != nil || result.Job != nil {
		t.Fatalf("score branch was not requested")
	}
	if result.Prediction == nil || result.Prediction.InterviewChance != 45 {
		t.Fatalf("unexpected prediction %+v", result.Prediction)
	}
	if backend.count("gaps") != 0 || backend.count("edits") != 0 {
		t.Fatalf("unexpected branch calls: %v", backend.calls)
	}
}

func TestRunContinuesWhenEveryBranchFails(t *testing.T) {
	backend := &stubBackend{
		validate: validCheck(0.9),
		intent:   wants(true, true, true),
	}

	result, err := newTestWorkflow(backend).Run(context.Background(), Input{Resume: "r", JobDescription: "j", Prompt: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Score == nil || !result.Score.Failed() {
		t.Fatalf("expected score sentinel, got %+v", result.Score)
	}
	if !strings.HasPrefix(result.Gaps, "Unable to conduct gap analysis") {
		t.Fatalf("expected no-signal gap message, got %q", result.Gaps)
	}
	if result.Prediction == nil || !result.Prediction.Failed() {
		t.Fatalf("expected failed prediction, got %+v", result.Prediction)
	}
	if result.Edits == nil || !result.Edits.Failed() {
		t.Fatalf("expected edits sentinel, got %+v", result.Edits)
	}
	if backend.count("gaps") != 0 {
		t.Fatalf("gap analysis must not run on a sentinel score")
	}
	if backend.count("edits") != 1 {
		t.Fatalf("expected edits branch to run")
	}
}

func TestRunEditsWithoutGapsOnGapFailure(t *testing.T) {
	editGaps := "unset"
	backend := &stubBackend{
		validate: validCheck(0.9),
		intent:   wants(true, false, true),
		score:    fixedScore(8, "fine"),
		edits: func(_, _, gaps string) (schema.EditSuggestions, error) {
			editGaps = gaps
			return schema.EditSuggestions{Suggestions: "s"}, nil
		},
	}

	result, err := newTestWorkflow(backend).Run(context.Background(), Input{Resume: "r", JobDescription: "j", Prompt: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(result.Gaps, "Unable to analyze gaps") {
		t.Fatalf("expected gap failure message, got %q", result.Gaps)
	}
	if editGaps != "" {
		t.Fatalf("expected no gaps passed to edits, got %q", editGaps)
	}
}

func TestRunErrors(t *testing.T) {
	w := newTestWorkflow(&stubBackend{})

	if _, err := w.Run(context.Background(), Input{Resume: " ", JobDescription: "j"}); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}

	result, err := w.Run(context.Background(), Input{Resume: "r", JobDescription: "j", Prompt: "p"})
	if !errors.Is(err, ErrGateFailed) {
		t.Fatalf("expected gate failure, got %v", err)
	}
	if result == nil || result.RunID != "run-1" {
		t.Fatalf("expected result with run id, got %+v", result)
	}
}

func TestExtractSearch(t *testing.T) {
	backend := &stubBackend{
		validate: validCheck(0.8),
		search: func(string) (schema.SearchQuery, error) {
			return schema.SearchQuery{Keywords: "golang", City: "Berlin", Limit: 20}, nil
		},
	}

	gate, query, err := newTestWorkflow(backend).ExtractSearch(context.Background(), "golang jobs in Berlin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gate.Rejected || query.City != "Berlin" {
		t.Fatalf("unexpected result %+v %+v", gate, query)
	}

	rejecting := &stubBackend{validate: validCheck(0.5)}
	gate, _, err = newTestWorkflow(rejecting).ExtractSearch(context.Background(), "hi")
	if err != nil || !gate.Rejected {
		t.Fatalf("expected rejection, got %+v, %v", gate, err)
	}
	if rejecting.count("search") != 0 {
		t.Fatalf("search must not run after rejection")
	}
}
