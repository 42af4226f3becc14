// Package tester drives the running graded service's HTTP surface: document
// uploads and RAG queries, with keyword-based relevance scoring of answers.
package tester

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"
	"golang.org/x/time/rate"

	"github.com/ragmark/ragmark/internal/config"
	"github.com/ragmark/ragmark/pkg/types"
)

// contextKeys are the recognized response fields indicating retrieved
// context. The graded systems do not share a schema, so several spellings
// are accepted.
var contextKeys = []string{"context", "retrieved_chunks", "chunks", "documents"}

// answerKeys are the recognized response fields indicating an answer.
var answerKeys = []string{"answer", "response", "result"}

// answerTextKeys is the priority order for extracting the answer text.
var answerTextKeys = []string{"answer", "response", "result", "text"}

// Tester exercises the upload and query endpoints of the graded service.
type Tester struct {
	logger  zerolog.Logger
	cfg     *config.Config
	client  *http.Client
	limiter *rate.Limiter
}

// NewTester creates a Tester that paces requests at one per second.
func NewTester(logger zerolog.Logger, cfg *config.Config) *Tester {
	return &Tester{
		logger:  logger,
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// TestDocumentUpload uploads each document to the configured upload
// endpoint. Individual failures do not abort the sequence; each result
// records what happened for that document.
func (t *Tester) TestDocumentUpload(ctx context.Context, documents []string) []types.UploadResult {
	t.logger.Info().Int("documents", len(documents)).Msg("testing document upload")

	results := make([]types.UploadResult, 0, len(documents))
	for _, doc := range documents {
		if err := t.limiter.Wait(ctx); err != nil {
			break
		}
		results = append(results, t.uploadOne(ctx, doc))
	}

	successes := 0
	for _, r := range results {
		if r.Success {
			successes++
		}
	}
	t.logger.Info().Int("successful", successes).Int("total", len(results)).Msg("upload test complete")
	return results
}

func (t *Tester) uploadOne(ctx context.Context, docPath string) types.UploadResult {
	name := filepath.Base(docPath)
	result := types.UploadResult{Document: name}

	file, err := os.Open(docPath)
	if err != nil {
		result.Error = err.Error()
		t.logger.Error().Err(err).Str("document", name).Msg("upload open failed")
		return result
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, t.cfg.UploadFileField, name))
	header.Set("Content-Type", "text/plain")
	part, err := writer.CreatePart(header)
	if err == nil {
		_, err = io.Copy(part, file)
	}
	if err == nil {
		err = writer.Close()
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}

	url := t.cfg.EndpointURL(t.cfg.UploadPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		result.Error = err.Error()
		t.logger.Error().Err(err).Str("document", name).Msg("upload request failed")
		return result
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	result.StatusCode = resp.StatusCode
	result.Success = resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated

	if result.Success {
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err == nil {
			result.Response = parsed
		} else {
			result.Response = string(raw)
		}
		t.logger.Info().Str("document", name).Msg("upload succeeded")
	} else {
		result.Error = string(raw)
		t.logger.Error().Int("status", resp.StatusCode).Str("document", name).
			Str("body", stripHTMLTags(string(raw))).Msg("upload failed")
	}
	return result
}

// TestQueryEndpoint posts one question to the query endpoint and inspects
// the response shape. Non-200 statuses and transport errors yield a failure
// result with the error text captured.
func (t *Tester) TestQueryEndpoint(ctx context.Context, query string) types.QueryResult {
	result := types.QueryResult{Query: query}
	t.logger.Info().Str("query", query).Msg("testing query")

	payload, err := json.Marshal(map[string]string{t.cfg.QueryField: query})
	if err != nil {
		result.Error = err.Error()
		return result
	}

	url := t.cfg.EndpointURL(t.cfg.QueryPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		result.Error = err.Error()
		t.logger.Error().Err(err).Msg("query request failed")
		return result
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	result.StatusCode = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		result.Error = string(raw)
		t.logger.Error().Int("status", resp.StatusCode).
			Str("body", stripHTMLTags(string(raw))).Msg("query failed")
		return result
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		result.Error = "invalid JSON response: " + err.Error()
		return result
	}

	result.Success = true
	result.ResponseData = data
	result.HasContext = hasAnyKey(data, contextKeys)
	result.HasAnswer = hasAnyKey(data, answerKeys)
	result.AnswerText = extractAnswerText(data)
	return result
}

// TestRAGQueries runs every configured test query in order with one-second
// pacing and computes relevance for each non-empty answer.
func (t *Tester) TestRAGQueries(ctx context.Context) []types.QueryResult {
	t.logger.Info().Int("queries", len(t.cfg.TestQueries)).Msg("testing RAG queries")

	results := make([]types.QueryResult, 0, len(t.cfg.TestQueries))
	for _, tq := range t.cfg.TestQueries {
		if err := t.limiter.Wait(ctx); err != nil {
			break
		}

		result := t.TestQueryEndpoint(ctx, tq.Question)
		if result.Success && result.AnswerText != "" {
			relevance := Relevance(result.AnswerText, tq.ExpectedKeywords)
			result.RelevanceScore = &relevance
			result.ExpectedKeywords = append([]string(nil), tq.ExpectedKeywords...)
			t.logger.Info().Float64("relevance", relevance).Msg("query relevance computed")
		}
		results = append(results, result)
	}

	successes := 0
	for _, r := range results {
		if r.Success {
			successes++
		}
	}
	t.logger.Info().Int("successful", successes).Int("total", len(results)).Msg("query test complete")
	return results
}

func hasAnyKey(data map[string]any, keys []string) bool {
	for _, key := range keys {
		if _, ok := data[key]; ok {
			return true
		}
	}
	return false
}

// extractAnswerText returns the answer text from the first matching field
// in priority order. Non-string values are stringified so partial credit
// is still possible for unconventional response shapes.
func extractAnswerText(data map[string]any) string {
	for _, key := range answerTextKeys {
		value, ok := data[key]
		if !ok {
			continue
		}
		if s, ok := value.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", value)
	}
	return ""
}
