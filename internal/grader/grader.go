// Package grader sequences the grading pipeline: clone, analysis,
// environment provisioning, dependency install, application start, HTTP
// probing, functional tests, static verification, scoring, and reports.
//
// Failures before functional testing are fatal and short-circuit to a
// failure report scored over whatever partial results exist. The started
// process and the workspace are released on every exit path, including
// panics surfaced at the orchestrator boundary.
package grader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ragmark/ragmark/internal/config"
	"github.com/ragmark/ragmark/internal/deps"
	"github.com/ragmark/ragmark/internal/envsetup"
	"github.com/ragmark/ragmark/internal/history"
	"github.com/ragmark/ragmark/internal/proc"
	"github.com/ragmark/ragmark/internal/repo"
	"github.com/ragmark/ragmark/internal/report"
	"github.com/ragmark/ragmark/internal/scoring"
	"github.com/ragmark/ragmark/internal/session"
	"github.com/ragmark/ragmark/internal/tester"
	"github.com/ragmark/ragmark/internal/verifier"
	"github.com/ragmark/ragmark/pkg/types"
)

// Component capability interfaces. The pipeline talks to its collaborators
// through these so stages can be exercised against fakes.

type repoAnalyzer interface {
	Clone(ctx context.Context, url, destination string) (string, error)
	DetectLanguage(repoPath string) (config.LanguageProfile, error)
	FindMainFile(repoPath string, profile config.LanguageProfile) (string, error)
	FindEnvTemplate(repoPath string) (string, bool)
	HasReadme(repoPath string) bool
}

type envProvisioner interface {
	WriteEnvFile(repoPath string) error
	PrepareSampleDocuments(repoPath string) ([]string, error)
}

type depInstaller interface {
	Install(ctx context.Context, repoPath string, profile config.LanguageProfile) error
	VerifyInstallation(repoPath string, profile config.LanguageProfile) bool
}

type appRunner interface {
	Start(command []string, dir string) (*proc.Handle, error)
	WaitForPort(ctx context.Context, host string, port int, timeout time.Duration) bool
	CheckHealth(ctx context.Context, url string) bool
	Stop(h *proc.Handle)
}

type functionalTester interface {
	TestDocumentUpload(ctx context.Context, documents []string) []types.UploadResult
	TestRAGQueries(ctx context.Context) []types.QueryResult
}

type techVerifier interface {
	Verify(repoPath string) []types.TechCheck
}

// components bundles one session's collaborators.
type components struct {
	analyzer    repoAnalyzer
	provisioner envProvisioner
	installer   depInstaller
	runner      appRunner
	tester      functionalTester
	verifier    techVerifier
}

func defaultComponents(logger zerolog.Logger, cfg *config.Config) components {
	return components{
		analyzer:    repo.NewAnalyzer(logger, cfg),
		provisioner: envsetup.NewProvisioner(logger, cfg),
		installer:   deps.NewInstaller(logger, cfg),
		runner:      proc.NewRunner(logger, cfg.RequestTimeout),
		tester:      tester.NewTester(logger, cfg),
		verifier:    verifier.NewVerifier(logger, cfg.EmbedModelName),
	}
}

// Outcome is the result of one grading run handed back to the CLI.
type Outcome struct {
	Success   bool
	GradingID string
	Reason    string
	Scores    types.ScoreBreakdown
	Reports   report.Paths
}

// Grader grades submissions sequentially; each run owns its own session,
// workspace, and process, and completes cleanup before the next begins.
type Grader struct {
	baseCfg *config.Config
	store   *history.Store
	verbose bool

	// newComponents is swapped out by pipeline tests.
	newComponents func(zerolog.Logger, *config.Config) components
}

// Option configures a Grader.
type Option func(*Grader)

// WithHistory records finalized runs into the given history store.
func WithHistory(store *history.Store) Option {
	return func(g *Grader) { g.store = store }
}

// WithVerbose lowers the session log level to debug.
func WithVerbose(verbose bool) Option {
	return func(g *Grader) { g.verbose = verbose }
}

// New creates a Grader over the given base configuration.
func New(cfg *config.Config, opts ...Option) *Grader {
	g := &Grader{
		baseCfg:       cfg,
		newComponents: defaultComponents,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// GradeSubmission grades one repository URL end to end. Overrides are
// applied to a copy of the base configuration; the base is never mutated.
// Pipeline failures are reported through the Outcome, not the error: a
// non-nil error means the run could not even be set up.
func (g *Grader) GradeSubmission(ctx context.Context, repoURL string, override *config.Override) (*Outcome, error) {
	cfg, err := g.baseCfg.Apply(override)
	if err != nil {
		return nil, err
	}

	gradingID := session.NewGradingID()
	workspace, err := session.CreateWorkspace(cfg.WorkspaceRoot, gradingID)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := session.NewLogger(cfg.LogsDir, gradingID, g.verbose)
	if err != nil {
		session.CleanupWorkspace(workspace, zerolog.Nop())
		return nil, err
	}
	defer closeLog()

	sess := session.New(gradingID, workspace, logger)
	p := &pipeline{
		cfg:        cfg,
		logger:     logger,
		sess:       sess,
		components: g.newComponents(logger, cfg),
		scorer:     scoring.NewEngine(logger, cfg),
		reporter:   report.NewGenerator(logger, cfg.ReportsDir),
		store:      g.store,
		repoURL:    repoURL,
	}

	logger.Info().Str("repository", repoURL).Msg("starting automated grading session")

	// Workspace cleanup runs unconditionally, after the process stop below.
	defer session.CleanupWorkspace(workspace, logger)
	defer func() { p.components.runner.Stop(p.handle) }()

	outcome := p.run(ctx)
	return outcome, nil
}

// pipeline holds the per-run state threaded through the stages.
type pipeline struct {
	cfg        *config.Config
	logger     zerolog.Logger
	sess       *session.Session
	components components
	scorer     *scoring.Engine
	reporter   *report.Generator
	store      *history.Store
	repoURL    string

	handle *proc.Handle
}

// run executes the stage sequence and converts any panic into a failure
// report so cleanup still happens and partial scores are still emitted.
func (p *pipeline) run(ctx context.Context) (outcome *Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := types.NewSessionError("grading aborted by unexpected failure", fmt.Errorf("%v", r))
			p.logger.Error().Interface("panic", r).Msg("grading aborted by unexpected failure")
			p.sess.AddError(err.Error())
			outcome = p.failureReport(fmt.Sprintf("Error: %v", r))
		}
	}()

	p.sess.AddResult("repository_url", p.repoURL)

	// Stage: clone.
	repoPath, err := p.components.analyzer.Clone(ctx, p.repoURL, filepath.Join(p.sess.Workspace, "repo"))
	if err != nil {
		p.sess.AddError("failed to clone repository: " + err.Error())
		return p.failureReport("Repository clone failed")
	}
	p.sess.AddResult(scoring.KeyRepositoryAccessible, true)

	// Stage: language detection.
	profile, err := p.components.analyzer.DetectLanguage(repoPath)
	if err != nil {
		p.sess.AddError("could not detect programming language")
		return p.failureReport("Language detection failed")
	}
	p.sess.AddResult(scoring.KeyLanguageDetected, string(profile.Language))

	// Stage: entry-file lookup.
	mainFile, err := p.components.analyzer.FindMainFile(repoPath, profile)
	if err != nil {
		p.sess.AddError("main entry file not found")
		return p.failureReport("Main file not found")
	}
	p.sess.AddResult(scoring.KeyMainFileFound, true)
	p.sess.AddResult("main_file", mainFile)
	p.sess.AddResult(scoring.KeyHasReadme, p.components.analyzer.HasReadme(repoPath))

	// Stage: env-template validation.
	p.sess.AddResults(scoring.KeyEnvironment, p.checkEnvTemplate(repoPath))

	// Stage: environment provisioning.
	if err := p.components.provisioner.WriteEnvFile(repoPath); err != nil {
		p.sess.AddError("failed to create .env file: " + err.Error())
		return p.failureReport("Environment setup failed")
	}
	documents, err := p.components.provisioner.PrepareSampleDocuments(repoPath)
	if err != nil || len(documents) == 0 {
		if err != nil {
			p.sess.AddError("failed to prepare test documents: " + err.Error())
		} else {
			p.sess.AddError("no test documents available")
		}
		return p.failureReport("Test data setup failed")
	}

	// Stage: dependency install.
	if err := p.components.installer.Install(ctx, repoPath, profile); err != nil {
		p.sess.AddResult(scoring.KeyDependenciesDone, false)
		p.sess.AddError("dependency installation failed: " + err.Error())
		return p.failureReport("Dependency installation failed")
	}
	p.sess.AddResult(scoring.KeyDependenciesDone, true)
	p.components.installer.VerifyInstallation(repoPath, profile)

	// Stage: application start.
	runCmd := profile.RunArgs(mainFile, p.cfg.ServerPort)
	handle, err := p.components.runner.Start(runCmd, repoPath)
	if err != nil {
		p.sess.AddError("failed to start application: " + err.Error())
		return p.failureReport("Application start failed")
	}
	p.handle = handle

	if !p.components.runner.WaitForPort(ctx, p.cfg.ServerHost, p.cfg.ServerPort, p.cfg.StartupTimeout) {
		p.sess.AddError("application did not start within timeout")
		return p.failureReport("Application startup timeout")
	}

	// Stage: health check. Explicitly non-fatal: the service may still
	// answer some endpoints, so functional testing proceeds either way.
	healthy := p.components.runner.CheckHealth(ctx, p.cfg.EndpointURL(p.cfg.HealthPath))
	p.sess.AddResult(scoring.KeyApplicationStarted, healthy)
	if !healthy {
		p.logger.Warn().Msg("health check failed, continuing with functional tests")
	}

	// Stage: functional testing. Per-item failures reduce scores, never
	// abort the batch.
	p.sess.AddResults(scoring.KeyUpload, p.components.tester.TestDocumentUpload(ctx, documents))
	p.sess.AddResults(scoring.KeyQueries, p.components.tester.TestRAGQueries(ctx))

	// Stage: technical verification.
	p.sess.AddResults(scoring.KeyTechnical, p.components.verifier.Verify(repoPath))

	// Stage: scoring and reports.
	p.sess.Finalize()
	scores := p.scorer.CalculateFinalScore(p.sess.Results())
	paths, reportErr := p.writeReports(scores)
	p.recordHistory(scores)

	p.logger.Info().
		Float64("total", scores.TotalScore).
		Str("grade", scores.Grade).
		Msg("grading complete")

	outcome = &Outcome{
		Success:   true,
		GradingID: p.sess.GradingID,
		Scores:    scores,
		Reports:   paths,
	}
	if reportErr != nil {
		p.sess.AddError("failed to persist reports: " + reportErr.Error())
		outcome.Success = false
		outcome.Reason = "Report generation failed"
	}
	return outcome
}

// checkEnvTemplate inspects the repository's env template (if any) against
// the required variable set.
func (p *pipeline) checkEnvTemplate(repoPath string) types.EnvCheck {
	templatePath, found := p.components.analyzer.FindEnvTemplate(repoPath)
	if !found {
		return types.EnvCheck{
			HasEnvTemplate:   false,
			MissingVariables: append([]string(nil), p.cfg.RequiredEnvVars...),
		}
	}

	vars, err := repo.ParseEnvFile(templatePath)
	if err != nil {
		p.logger.Warn().Err(err).Msg("env template unreadable")
		vars = map[string]string{}
	}
	return types.EnvCheck{
		HasEnvTemplate:   true,
		MissingVariables: repo.MissingVars(p.cfg.RequiredEnvVars, vars),
	}
}

// failureReport finalizes the session, scores whatever partial results
// exist, and persists the terminal failure report.
func (p *pipeline) failureReport(reason string) *Outcome {
	p.sess.AddError(reason)
	p.sess.Finalize()

	scores := p.scorer.CalculateFinalScore(p.sess.Results())
	paths, err := p.writeReports(scores)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to persist failure report")
	}
	p.recordHistory(scores)

	return &Outcome{
		Success:   false,
		GradingID: p.sess.GradingID,
		Reason:    reason,
		Scores:    scores,
		Reports:   paths,
	}
}

func (p *pipeline) writeReports(scores types.ScoreBreakdown) (report.Paths, error) {
	return p.reporter.WriteReports(
		p.sess.GradingID,
		scores,
		p.sess.Results(),
		scoring.WeightMap(p.cfg.Weights),
		scoring.CategoryOrder,
	)
}

func (p *pipeline) recordHistory(scores types.ScoreBreakdown) {
	if p.store == nil {
		return
	}
	err := p.store.Record(p.sess.GradingID, p.repoURL, scores.TotalScore, scores.Grade, p.sess.Duration().Seconds())
	if err != nil {
		p.logger.Warn().Err(err).Msg("history record failed")
	}
}
