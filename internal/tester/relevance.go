package tester

import (
	"regexp"
	"strings"
)

// Relevance scores an answer as the percentage of expected keywords it
// mentions, case-insensitive substring match. An empty answer or an empty
// keyword set scores 0.
func Relevance(answer string, keywords []string) float64 {
	if answer == "" || len(keywords) == 0 {
		return 0.0
	}

	lower := strings.ToLower(answer)
	matches := 0
	for _, keyword := range keywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			matches++
		}
	}
	return float64(matches) / float64(len(keywords)) * 100
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	blankLinesRe = regexp.MustCompile(`\n\s*\n`)
)

// stripHTMLTags flattens an HTML error page into loggable text. Graded
// frameworks tend to return full HTML debug pages on 500s.
func stripHTMLTags(text string) string {
	text = htmlTagRe.ReplaceAllString(text, "")
	text = blankLinesRe.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
