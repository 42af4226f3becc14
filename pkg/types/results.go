package types

// UploadResult records the outcome of one document upload attempt.
type UploadResult struct {
	Document   string `json:"document"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Response   any    `json:"response,omitempty"`
	Error      string `json:"error,omitempty"`
}

// QueryResult records the outcome of one query against the graded service.
//
// RelevanceScore is nil when no relevance was computed (query failed, empty
// answer, or no expected keywords configured); the scoring engine treats
// "answer exists but relevance unknown" differently from a computed score.
type QueryResult struct {
	Query            string   `json:"query"`
	Success          bool     `json:"success"`
	StatusCode       int      `json:"status_code,omitempty"`
	HasContext       bool     `json:"has_context"`
	HasAnswer        bool     `json:"has_answer"`
	AnswerText       string   `json:"answer_text,omitempty"`
	RelevanceScore   *float64 `json:"relevance_score,omitempty"`
	ExpectedKeywords []string `json:"expected_keywords,omitempty"`
	ResponseData     any      `json:"response_data,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// EnvCheck reports the env-template inspection of a repository.
type EnvCheck struct {
	HasEnvTemplate   bool     `json:"has_env_template"`
	MissingVariables []string `json:"missing_variables"`
}

// TechCheck reports one technical-requirement marker scan. Checks are kept
// as an ordered slice so reports render requirements in a stable order.
type TechCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

// ScoreBreakdown is the scoring engine's output: per-category earned points,
// their sum, and the derived letter grade. Never mutated after creation.
type ScoreBreakdown struct {
	TotalScore float64            `json:"total_score"`
	Grade      string             `json:"grade"`
	Breakdown  map[string]float64 `json:"breakdown"`
	MaxScore   float64            `json:"max_score"`
}

// SessionError is one timestamped entry in a session's error log.
type SessionError struct {
	Timestamp string `json:"timestamp"`
	Error     string `json:"error"`
}

// SessionMetadata is folded into the result set when a session finalizes.
type SessionMetadata struct {
	GradingID       string         `json:"grading_id"`
	StartTime       string         `json:"start_time"`
	EndTime         string         `json:"end_time"`
	DurationSeconds float64        `json:"duration_seconds"`
	Errors          []SessionError `json:"errors"`
}
