package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// TestQuery is a literal question plus the keywords an answer is expected to
// mention. The keyword set drives relevance scoring.
type TestQuery struct {
	Question         string   `yaml:"question" json:"question"`
	ExpectedKeywords []string `yaml:"expected_keywords" json:"expected_keywords"`
}

// Weights holds the per-category scoring weights. Categories are a closed
// set; the weights must sum to 100.
type Weights struct {
	RepositorySetup   float64 `yaml:"repository_setup" json:"repository_setup"`
	EnvironmentConfig float64 `yaml:"environment_config" json:"environment_config"`
	Dependencies      float64 `yaml:"dependencies" json:"dependencies"`
	Startup           float64 `yaml:"startup" json:"startup"`
	Upload            float64 `yaml:"upload" json:"upload"`
	Query             float64 `yaml:"query" json:"query"`
	Technical         float64 `yaml:"technical" json:"technical"`
}

// Total returns the sum of all category weights.
func (w Weights) Total() float64 {
	return w.RepositorySetup + w.EnvironmentConfig + w.Dependencies +
		w.Startup + w.Upload + w.Query + w.Technical
}

// GradeThreshold maps a letter grade to its minimum score.
type GradeThreshold struct {
	Grade string
	Min   float64
}

// Config is the immutable-per-run snapshot of grader settings. Overrides are
// applied to a Clone, never to the base configuration. BaseURL and
// ChromaDBURL are derived at construction time and cannot be overridden.
type Config struct {
	// Required environment variables the graded app's env template must name.
	RequiredEnvVars []string

	// Endpoint contract of the graded application.
	EndpointPrefix  string
	QueryPath       string
	QueryField      string
	UploadPath      string
	UploadFileField string
	HealthPath      string

	// Timeouts.
	CloneTimeout   time.Duration
	InstallTimeout time.Duration
	StartupTimeout time.Duration
	RequestTimeout time.Duration

	Weights     Weights
	TestQueries []TestQuery

	// Thresholds in descending score order; grade assignment walks the
	// slice and returns the first threshold the score meets.
	GradeThresholds []GradeThreshold

	// Grader-side credentials and settings written into the generated .env.
	TestHFKey      string
	TestGeminiKey  string
	EmbedModelName string
	LLMModelName   string
	TestDataDir    string
	ChunkLength    int

	ChromaHost string
	ChromaPort int
	ServerHost string
	ServerPort int

	// Derived, read-only.
	ChromaDBURL   string
	ServerBaseURL string

	// Grader working directories.
	WorkspaceRoot string
	ReportsDir    string
	LogsDir       string
	HistoryPath   string
}

// DefaultTestQueries are the built-in functional test queries.
func DefaultTestQueries() []TestQuery {
	return []TestQuery{
		{
			Question:         "What is machine learning?",
			ExpectedKeywords: []string{"learning", "data", "algorithm", "model", "pattern"},
		},
		{
			Question:         "Explain neural networks",
			ExpectedKeywords: []string{"neural", "network", "layer", "neuron", "weight"},
		},
		{
			Question:         "What is the purpose of embeddings?",
			ExpectedKeywords: []string{"embedding", "vector", "representation", "semantic"},
		},
	}
}

// Load reads grader configuration from the environment and an optional
// .env.grader file next to the binary.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.grader")

	v := viper.New()
	v.SetEnvPrefix("RAGMARK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("hf_key", "hf_test_key_placeholder")
	v.SetDefault("gemini_key", "gemini_test_key_placeholder")
	v.SetDefault("embed_model_name", "sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("llm_model_name", "gemini-2.0-flash-exp")
	v.SetDefault("chunk_length", 512)
	v.SetDefault("chroma_host", "localhost")
	v.SetDefault("chroma_port", 8999)
	v.SetDefault("server_host", "localhost")
	v.SetDefault("server_port", 8998)
	v.SetDefault("workspace_root", "grading_workspace")
	v.SetDefault("reports_dir", "grading_reports")
	v.SetDefault("logs_dir", "grading_logs")
	v.SetDefault("history_path", "grading_history.db")

	cfg := &Config{
		RequiredEnvVars: []string{
			"HF_API_KEY",
			"EMBED_MODEL_NAME",
			"GEMINI_API_KEY",
			"LLM_MODEL_NAME",
			"CHROMA_DB_HOST",
			"RAG_DATA_DIR",
			"CHUNK_LENGTH",
			"PORT",
		},

		EndpointPrefix:  "",
		QueryPath:       "/query",
		QueryField:      "query",
		UploadPath:      "/upload",
		UploadFileField: "files",
		HealthPath:      "/health",

		CloneTimeout:   60 * time.Second,
		InstallTimeout: 300 * time.Second,
		StartupTimeout: 60 * time.Second,
		RequestTimeout: 30 * time.Second,

		Weights: Weights{
			RepositorySetup:   15,
			EnvironmentConfig: 15,
			Dependencies:      10,
			Startup:           10,
			Upload:            15,
			Query:             25,
			Technical:         10,
		},
		TestQueries: DefaultTestQueries(),
		GradeThresholds: []GradeThreshold{
			{Grade: "A", Min: 90},
			{Grade: "B", Min: 80},
			{Grade: "C", Min: 70},
			{Grade: "D", Min: 60},
			{Grade: "F", Min: 0},
		},

		TestHFKey:      v.GetString("hf_key"),
		TestGeminiKey:  v.GetString("gemini_key"),
		EmbedModelName: v.GetString("embed_model_name"),
		LLMModelName:   v.GetString("llm_model_name"),
		TestDataDir:    "./test_data",
		ChunkLength:    v.GetInt("chunk_length"),

		ChromaHost: v.GetString("chroma_host"),
		ChromaPort: v.GetInt("chroma_port"),
		ServerHost: v.GetString("server_host"),
		ServerPort: v.GetInt("server_port"),

		WorkspaceRoot: v.GetString("workspace_root"),
		ReportsDir:    v.GetString("reports_dir"),
		LogsDir:       v.GetString("logs_dir"),
		HistoryPath:   v.GetString("history_path"),
	}

	cfg.derive()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Clone returns a deep copy suitable for per-run overrides; the base
// configuration is never mutated.
func (c *Config) Clone() *Config {
	out := *c

	out.RequiredEnvVars = append([]string(nil), c.RequiredEnvVars...)
	out.GradeThresholds = append([]GradeThreshold(nil), c.GradeThresholds...)
	out.TestQueries = make([]TestQuery, len(c.TestQueries))
	for i, q := range c.TestQueries {
		out.TestQueries[i] = TestQuery{
			Question:         q.Question,
			ExpectedKeywords: append([]string(nil), q.ExpectedKeywords...),
		}
	}
	return &out
}

// derive recomputes the read-only URL fields from host and port settings.
func (c *Config) derive() {
	c.ChromaDBURL = baseURL(c.ChromaHost, c.ChromaPort)
	c.ServerBaseURL = baseURL(c.ServerHost, c.ServerPort)
}

func baseURL(host string, port int) string {
	scheme := "https"
	if host == "localhost" || host == "127.0.0.1" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// EndpointURL joins the server base URL, prefix, and an endpoint path.
func (c *Config) EndpointURL(path string) string {
	return c.ServerBaseURL + c.EndpointPrefix + path
}

func (c *Config) validate() error {
	if got := c.Weights.Total(); got != 100 {
		return fmt.Errorf("scoring weights must sum to 100, got %g", got)
	}
	if len(c.GradeThresholds) == 0 {
		return fmt.Errorf("at least one grade threshold is required")
	}
	for i := 1; i < len(c.GradeThresholds); i++ {
		if c.GradeThresholds[i].Min > c.GradeThresholds[i-1].Min {
			return fmt.Errorf("grade thresholds must be in descending score order")
		}
	}
	return nil
}
