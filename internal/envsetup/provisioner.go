// Package envsetup provisions the checked-out repository for grading: it
// writes the test .env file and seeds the sample documents the functional
// tests upload.
package envsetup

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ragmark/ragmark/internal/config"
	"github.com/ragmark/ragmark/pkg/types"
)

//go:embed sample_documents
var sampleDocuments embed.FS

const sampleDocumentsDir = "sample_documents"

// testDataDirName is where uploads are staged inside the graded repository.
const testDataDirName = "test_data"

// Provisioner writes the grading environment into a checked-out repository.
type Provisioner struct {
	logger zerolog.Logger
	cfg    *config.Config
}

// NewProvisioner creates a Provisioner bound to a session logger and config.
func NewProvisioner(logger zerolog.Logger, cfg *config.Config) *Provisioner {
	return &Provisioner{logger: logger, cfg: cfg}
}

// WriteEnvFile serializes the fixed grading key set as KEY=VALUE lines into
// the repository's .env file, overwriting any existing file.
func (p *Provisioner) WriteEnvFile(repoPath string) error {
	var b strings.Builder
	b.WriteString("# Grader-generated test environment\n")
	fmt.Fprintf(&b, "HF_API_KEY=%s\n", p.cfg.TestHFKey)
	fmt.Fprintf(&b, "EMBED_MODEL_NAME=%s\n", p.cfg.EmbedModelName)
	fmt.Fprintf(&b, "GEMINI_API_KEY=%s\n", p.cfg.TestGeminiKey)
	fmt.Fprintf(&b, "LLM_MODEL_NAME=%s\n", p.cfg.LLMModelName)
	fmt.Fprintf(&b, "CHROMA_DB_HOST=%s\n", p.cfg.ChromaDBURL)
	fmt.Fprintf(&b, "RAG_DATA_DIR=%s\n", p.cfg.TestDataDir)
	fmt.Fprintf(&b, "CHUNK_LENGTH=%d\n", p.cfg.ChunkLength)
	fmt.Fprintf(&b, "PORT=%d\n", p.cfg.ServerPort)

	envPath := filepath.Join(repoPath, ".env")
	if err := os.WriteFile(envPath, []byte(b.String()), 0o644); err != nil {
		return types.NewSetupError("write .env file", err)
	}

	p.logger.Info().Str("path", envPath).Msg(".env file created")
	return nil
}

// EnsureTestDataDir creates the repository's test-data directory.
func (p *Provisioner) EnsureTestDataDir(repoPath string) error {
	dir := filepath.Join(repoPath, testDataDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.NewSetupError("create test data dir", err)
	}
	return nil
}

// PrepareSampleDocuments copies every bundled sample document into the
// repository's test-data directory and returns the destination paths in
// copy order. An empty result is treated as fatal by the orchestrator.
func (p *Provisioner) PrepareSampleDocuments(repoPath string) ([]string, error) {
	if err := p.EnsureTestDataDir(repoPath); err != nil {
		return nil, err
	}

	entries, err := sampleDocuments.ReadDir(sampleDocumentsDir)
	if err != nil {
		return nil, types.NewSetupError("read bundled sample documents", err)
	}

	destDir := filepath.Join(repoPath, testDataDirName)
	var documents []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := sampleDocuments.ReadFile(sampleDocumentsDir + "/" + entry.Name())
		if err != nil {
			return nil, types.NewSetupError("read sample document "+entry.Name(), err)
		}
		dest := filepath.Join(destDir, entry.Name())
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return nil, types.NewSetupError("copy sample document "+entry.Name(), err)
		}
		documents = append(documents, dest)
	}

	p.logger.Info().Int("count", len(documents)).Str("dir", destDir).Msg("sample documents copied")
	return documents, nil
}
