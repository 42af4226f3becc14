package report

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/ragmark/ragmark/pkg/types"
)

// HTMLReport holds the data rendered into the human-readable report page.
type HTMLReport struct {
	GradingID  string
	RunAt      time.Time
	Scores     types.ScoreBreakdown
	Categories []CategoryRow
	Uploads    []types.UploadResult
	Queries    []QueryRow
	Technical  []types.TechCheck
	Errors     []types.SessionError
}

// CategoryRow is one line of the score table.
type CategoryRow struct {
	Name   string
	Earned float64
	Weight float64
}

// QueryRow is one line of the query table; relevance is pre-rendered so the
// template does not have to deal with the optional score.
type QueryRow struct {
	Query      string
	Success    bool
	HasContext bool
	HasAnswer  bool
	Relevance  string
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Grading Report {{.GradingID}}</title>
<style>
body { font-family: sans-serif; margin: 2em auto; max-width: 60em; color: #222; }
h1 { border-bottom: 2px solid #444; padding-bottom: .3em; }
table { border-collapse: collapse; margin: 1em 0; width: 100%; }
th, td { border: 1px solid #ccc; padding: .4em .8em; text-align: left; }
th { background: #f0f0f0; }
.grade { font-size: 2.5em; font-weight: bold; }
.pass { color: #2a7a2a; }
.fail { color: #b03030; }
.muted { color: #777; }
</style>
</head>
<body>
<h1>Grading Report</h1>
<p><strong>Grading ID:</strong> {{.GradingID}}<br>
<strong>Run at:</strong> {{.RunAt.UTC.Format "2006-01-02T15:04:05Z07:00"}}</p>

<p class="grade">{{.Scores.Grade}} &mdash; {{printf "%.1f" .Scores.TotalScore}}/{{printf "%.0f" .Scores.MaxScore}}</p>

<h2>Score Breakdown</h2>
<table>
<tr><th>Category</th><th>Earned</th><th>Weight</th></tr>
{{range .Categories}}
<tr><td>{{.Name}}</td><td>{{printf "%.2f" .Earned}}</td><td>{{printf "%.0f" .Weight}}</td></tr>
{{end}}
</table>

{{if .Uploads}}
<h2>Document Uploads</h2>
<table>
<tr><th>Document</th><th>Status</th><th>HTTP</th></tr>
{{range .Uploads}}
<tr><td>{{.Document}}</td>
<td>{{if .Success}}<span class="pass">ok</span>{{else}}<span class="fail">failed</span>{{end}}</td>
<td>{{if .StatusCode}}{{.StatusCode}}{{else}}&mdash;{{end}}</td></tr>
{{end}}
</table>
{{end}}

{{if .Queries}}
<h2>Queries</h2>
<table>
<tr><th>Query</th><th>Status</th><th>Context</th><th>Answer</th><th>Relevance</th></tr>
{{range .Queries}}
<tr><td>{{.Query}}</td>
<td>{{if .Success}}<span class="pass">ok</span>{{else}}<span class="fail">failed</span>{{end}}</td>
<td>{{if .HasContext}}yes{{else}}no{{end}}</td>
<td>{{if .HasAnswer}}yes{{else}}no{{end}}</td>
<td>{{if .Relevance}}{{.Relevance}}{{else}}<span class="muted">n/a</span>{{end}}</td></tr>
{{end}}
</table>
{{end}}

{{if .Technical}}
<h2>Technical Requirements</h2>
<table>
<tr><th>Requirement</th><th>Verified</th></tr>
{{range .Technical}}
<tr><td>{{.Name}}</td>
<td>{{if .Passed}}<span class="pass">yes</span>{{else}}<span class="fail">no</span>{{end}}</td></tr>
{{end}}
</table>
{{end}}

{{if .Errors}}
<h2>Errors</h2>
<table>
<tr><th>Time</th><th>Error</th></tr>
{{range .Errors}}
<tr><td>{{.Timestamp}}</td><td>{{.Error}}</td></tr>
{{end}}
</table>
{{end}}

</body>
</html>
`))

// GenerateHTML writes the HTML-formatted report to w.
func GenerateHTML(w io.Writer, r *HTMLReport) error {
	if err := htmlTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("render HTML report: %w", err)
	}
	return nil
}

// BuildHTMLReport assembles the HTML view model from a session's scores and
// results. Category rows follow the breakdown order defined by weights.
func BuildHTMLReport(gradingID string, scores types.ScoreBreakdown, results map[string]any, weights map[string]float64, categoryOrder []string) *HTMLReport {
	r := &HTMLReport{
		GradingID: gradingID,
		RunAt:     time.Now(),
		Scores:    scores,
	}

	for _, name := range categoryOrder {
		r.Categories = append(r.Categories, CategoryRow{
			Name:   name,
			Earned: scores.Breakdown[name],
			Weight: weights[name],
		})
	}

	if uploads, ok := results["upload"].([]types.UploadResult); ok {
		r.Uploads = uploads
	}
	if queries, ok := results["queries"].([]types.QueryResult); ok {
		for _, q := range queries {
			row := QueryRow{
				Query:      q.Query,
				Success:    q.Success,
				HasContext: q.HasContext,
				HasAnswer:  q.HasAnswer,
			}
			if q.RelevanceScore != nil {
				row.Relevance = fmt.Sprintf("%.1f%%", *q.RelevanceScore)
			}
			r.Queries = append(r.Queries, row)
		}
	}
	if technical, ok := results["technical"].([]types.TechCheck); ok {
		r.Technical = technical
	}
	if meta, ok := results["_metadata"].(types.SessionMetadata); ok {
		r.Errors = meta.Errors
	}
	return r
}
