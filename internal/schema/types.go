package schema

const (
	// FailedScore marks a FitScore whose evaluation did not produce a signal.
	FailedScore = -1
	// FailedComparison is the explanation attached to a failed FitScore.
	FailedComparison = "Comparison failed"
	// FailedSuggestions is the suggestions text of a failed edit request.
	FailedSuggestions = "Unable to suggest edits"

	// DefaultSearchLimit is applied when the model omits SearchQuery.Limit.
	DefaultSearchLimit = 20
	// DefaultExplanation is the explanation of a JobRecord that was never scored.
	DefaultExplanation = "None"
)

// ValidityCheck is the gate decision on whether a prompt asks for a resume comparison.
type ValidityCheck struct {
	IsValid    bool    `json:"is_valid" description:"Whether this text is describing terms for comparing a resume against a job description"`
	Confidence float64 `json:"confidence" description:"Confidence score that this is a request, between 0 and 1" validate:"gte=0,lte=1"`
	Rationale  string  `json:"rationale" description:"A concise explanation on why the prompt was given this score"`
}

// WorkflowIntent is the set of actions requested by a prompt. The flags are independent.
type WorkflowIntent struct {
	WantsScore           bool    `json:"wants_score" description:"Whether the user asks to score the resume against the job description"`
	ScoreConfidence      float64 `json:"score_confidence" description:"Confidence in wants_score, between 0 and 1" validate:"gte=0,lte=1"`
	WantsPrediction      bool    `json:"wants_prediction" description:"Whether the user asks for the chance of getting an interview"`
	PredictionConfidence float64 `json:"prediction_confidence" description:"Confidence in wants_prediction, between 0 and 1" validate:"gte=0,lte=1"`
	WantsEdits           bool    `json:"wants_edits" description:"Whether the user asks for resume edit suggestions"`
	EditConfidence       float64 `json:"edit_confidence" description:"Confidence in wants_edits, between 0 and 1" validate:"gte=0,lte=1"`
	Rationale            string  `json:"rationale" description:"A concise explanation of the extracted actions"`
}

// FitScore is the result of scoring a resume against a job description.
type FitScore struct {
	Score       float64 `json:"score" description:"Resume suitability score from 0 to 10" validate:"gte=0,lte=10"`
	Explanation string  `json:"explanation" description:"Explanation of suitability score"`
}

// FailedFitScore returns the sentinel used when scoring did not succeed.
func FailedFitScore() FitScore {
	return FitScore{Score: FailedScore, Explanation: FailedComparison}
}

// Failed reports whether the score is the failure sentinel.
func (f FitScore) Failed() bool {
	return f.Score == FailedScore
}

// EditSuggestions holds resume improvement guidance.
type EditSuggestions struct {
	Suggestions string `json:"suggestions" description:"Concrete edits that would strengthen the resume for this job" validate:"required"`
}

func FailedEditSuggestions() EditSuggestions {
	return EditSuggestions{Suggestions: FailedSuggestions}
}

func (e EditSuggestions) Failed() bool {
	return e.Suggestions == FailedSuggestions
}

// TailoringAssessment describes how customized a resume is to a posting.
type TailoringAssessment struct {
	Level     string `json:"level" description:"How tailored the resume is to the job description" enum:"Exceptional,Very Well,Well,Moderate,Generic" validate:"oneof='Exceptional' 'Very Well' 'Well' 'Moderate' 'Generic'"`
	Rationale string `json:"rationale" description:"A concise explanation of the chosen level"`
}

// SearchQuery holds job search parameters extracted from a prompt.
type SearchQuery struct {
	Keywords string `json:"keywords" description:"The job title" validate:"required"`
	City     string `json:"city" description:"The city where the job is located. DO NOT include the state"`
	Limit    int    `json:"limit,omitempty" description:"The maximum number of items to return" validate:"gte=1"`
	Hybrid   bool   `json:"hybrid,omitempty" description:"Whether to apply a hybrid job-only filter"`
}

// JobRecord binds one posting to a resume and its latest evaluation.
type JobRecord struct {
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description"`
	Resume      string  `json:"resume"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

func NewJobRecord(name, description, resume string) *JobRecord {
	return &JobRecord{
		Name:        name,
		Description: description,
		Resume:      resume,
		Explanation: DefaultExplanation,
	}
}

// Apply overwrites the evaluation fields with the given score.
func (j *JobRecord) Apply(score FitScore) {
	j.Score = score.Score
	j.Explanation = score.Explanation
}
