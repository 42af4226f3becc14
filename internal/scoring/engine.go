// Package scoring maps a session's accumulated results to a deterministic
// weighted 0-100 score and a letter grade. Scoring is a pure function of
// the result set: missing categories score 0, never error.
package scoring

import (
	"github.com/rs/zerolog"

	"github.com/ragmark/ragmark/internal/config"
	"github.com/ragmark/ragmark/pkg/types"
)

// Result-set keys the scoring engine reads. The orchestrator writes them.
const (
	KeyRepositoryAccessible = "repository_accessible"
	KeyLanguageDetected     = "language_detected"
	KeyMainFileFound        = "main_file_found"
	KeyHasReadme            = "has_readme"
	KeyEnvironment          = "environment"
	KeyDependenciesDone     = "dependencies_installed"
	KeyApplicationStarted   = "application_started"
	KeyUpload               = "upload"
	KeyQueries              = "queries"
	KeyTechnical            = "technical"
)

// Category names in the score breakdown.
const (
	CategoryRepositorySetup   = "repository_setup"
	CategoryEnvironmentConfig = "environment_config"
	CategoryDependencies      = "dependencies"
	CategoryStartup           = "startup"
	CategoryUpload            = "upload"
	CategoryQuery             = "query"
	CategoryTechnical         = "technical"
)

// CategoryOrder fixes the presentation order of the breakdown in reports.
var CategoryOrder = []string{
	CategoryRepositorySetup,
	CategoryEnvironmentConfig,
	CategoryDependencies,
	CategoryStartup,
	CategoryUpload,
	CategoryQuery,
	CategoryTechnical,
}

// WeightMap flattens the configured weights into a category-keyed map.
func WeightMap(w config.Weights) map[string]float64 {
	return map[string]float64{
		CategoryRepositorySetup:   w.RepositorySetup,
		CategoryEnvironmentConfig: w.EnvironmentConfig,
		CategoryDependencies:      w.Dependencies,
		CategoryStartup:           w.Startup,
		CategoryUpload:            w.Upload,
		CategoryQuery:             w.Query,
		CategoryTechnical:         w.Technical,
	}
}

// pointsPerRequirement is the value of each verified technical requirement.
const pointsPerRequirement = 2

// Engine computes scores from heterogeneous session results.
type Engine struct {
	logger zerolog.Logger
	cfg    *config.Config
}

// NewEngine creates an Engine bound to a session logger and config.
func NewEngine(logger zerolog.Logger, cfg *config.Config) *Engine {
	return &Engine{logger: logger, cfg: cfg}
}

// CalculateFinalScore computes the per-category breakdown, the total, and
// the letter grade. Each category is independently capped at its weight;
// the total is the exact sum of the seven components.
func (e *Engine) CalculateFinalScore(results map[string]any) types.ScoreBreakdown {
	breakdown := map[string]float64{
		CategoryRepositorySetup:   e.repoScore(results),
		CategoryEnvironmentConfig: e.envScore(results),
		CategoryDependencies:      e.depScore(results),
		CategoryStartup:           e.startupScore(results),
		CategoryUpload:            e.uploadScore(results),
		CategoryQuery:             e.queryScore(results),
		CategoryTechnical:         e.technicalScore(results),
	}

	total := 0.0
	for _, points := range breakdown {
		total += points
	}
	grade := e.AssignGrade(total)

	e.logger.Info().Float64("total", total).Str("grade", grade).Msg("final score calculated")
	return types.ScoreBreakdown{
		TotalScore: total,
		Grade:      grade,
		Breakdown:  breakdown,
		MaxScore:   e.cfg.Weights.Total(),
	}
}

// repoScore: +5 accessible, +5 language detected with an entry file,
// +5 README present.
func (e *Engine) repoScore(results map[string]any) float64 {
	score := 0.0
	if boolResult(results, KeyRepositoryAccessible) {
		score += 5
	}
	if _, ok := results[KeyLanguageDetected]; ok && boolResult(results, KeyMainFileFound) {
		score += 5
	}
	if boolResult(results, KeyHasReadme) {
		score += 5
	}
	e.logger.Info().Float64("score", score).Float64("max", e.cfg.Weights.RepositorySetup).Msg("repository score")
	return score
}

// envScore: +5 for an env template, +10 scaled by the fraction of required
// variables the template declares. No environment result at all scores 0.
func (e *Engine) envScore(results map[string]any) float64 {
	env, ok := results[KeyEnvironment].(types.EnvCheck)
	if !ok {
		return 0.0
	}

	score := 0.0
	if env.HasEnvTemplate {
		score += 5
	}
	required := len(e.cfg.RequiredEnvVars)
	if required > 0 {
		present := required - len(env.MissingVariables)
		if present < 0 {
			present = 0
		}
		score += float64(present) / float64(required) * 10
	}
	e.logger.Info().Float64("score", score).Float64("max", e.cfg.Weights.EnvironmentConfig).Msg("environment score")
	return score
}

// depScore: full weight iff the install succeeded.
func (e *Engine) depScore(results map[string]any) float64 {
	score := 0.0
	if boolResult(results, KeyDependenciesDone) {
		score = e.cfg.Weights.Dependencies
	}
	e.logger.Info().Float64("score", score).Float64("max", e.cfg.Weights.Dependencies).Msg("dependencies score")
	return score
}

// startupScore: full weight iff the health check passed.
func (e *Engine) startupScore(results map[string]any) float64 {
	score := 0.0
	if boolResult(results, KeyApplicationStarted) {
		score = e.cfg.Weights.Startup
	}
	e.logger.Info().Float64("score", score).Float64("max", e.cfg.Weights.Startup).Msg("startup score")
	return score
}

// uploadScore: 0 with no uploads attempted; +10 once any upload succeeds,
// +5 scaled by the success ratio.
func (e *Engine) uploadScore(results map[string]any) float64 {
	uploads, ok := results[KeyUpload].([]types.UploadResult)
	if !ok || len(uploads) == 0 {
		return 0.0
	}

	successful := 0
	for _, u := range uploads {
		if u.Success {
			successful++
		}
	}

	score := 0.0
	if successful > 0 {
		score += 10
		score += float64(successful) / float64(len(uploads)) * 5
	}
	e.logger.Info().Float64("score", score).Float64("max", e.cfg.Weights.Upload).Msg("upload score")
	return score
}

// queryScore: 0 with no successful queries. Otherwise +10 base, +8 scaled
// by the fraction of successful queries that retrieved context, and +7
// scaled by the average relevance of answered queries — or a flat +4 when
// answers exist but no relevance was computed.
func (e *Engine) queryScore(results map[string]any) float64 {
	queries, ok := results[KeyQueries].([]types.QueryResult)
	if !ok || len(queries) == 0 {
		return 0.0
	}

	var successful []types.QueryResult
	for _, q := range queries {
		if q.Success {
			successful = append(successful, q)
		}
	}
	if len(successful) == 0 {
		return 0.0
	}

	score := 10.0

	withContext := 0
	for _, q := range successful {
		if q.HasContext {
			withContext++
		}
	}
	score += float64(withContext) / float64(len(successful)) * 8

	var answered []types.QueryResult
	for _, q := range successful {
		if q.HasAnswer {
			answered = append(answered, q)
		}
	}
	if len(answered) > 0 {
		relevanceSum := 0.0
		relevanceCount := 0
		for _, q := range answered {
			if q.RelevanceScore != nil {
				relevanceSum += *q.RelevanceScore
				relevanceCount++
			}
		}
		if relevanceCount > 0 {
			avg := relevanceSum / float64(relevanceCount)
			score += avg / 100 * 7
		} else {
			score += 4
		}
	}

	e.logger.Info().Float64("score", score).Float64("max", e.cfg.Weights.Query).Msg("query score")
	return score
}

// technicalScore: 2 points per verified requirement.
func (e *Engine) technicalScore(results map[string]any) float64 {
	checks, ok := results[KeyTechnical].([]types.TechCheck)
	if !ok || len(checks) == 0 {
		return 0.0
	}

	score := 0.0
	for _, check := range checks {
		if check.Passed {
			score += pointsPerRequirement
		}
	}
	e.logger.Info().Float64("score", score).Float64("max", e.cfg.Weights.Technical).Msg("technical score")
	return score
}

// AssignGrade walks the descending thresholds and returns the first grade
// whose minimum the score meets, falling back to the last configured grade.
func (e *Engine) AssignGrade(score float64) string {
	for _, threshold := range e.cfg.GradeThresholds {
		if score >= threshold.Min {
			return threshold.Grade
		}
	}
	return e.cfg.GradeThresholds[len(e.cfg.GradeThresholds)-1].Grade
}

func boolResult(results map[string]any, key string) bool {
	v, ok := results[key].(bool)
	return ok && v
}
