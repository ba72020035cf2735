package source

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/siherrmann/biolink/model"
)

// TrialSource fetches recruiting trials for a condition.
type TrialSource interface {
	FetchRecruiting(ctx context.Context, condition string, limit int) ([]*model.Trial, error)
}

// PaperSource fetches papers matching a free text query.
type PaperSource interface {
	Fetch(ctx context.Context, query string, maxResults int) ([]*model.Paper, error)
}

// IsRecruiting reports whether a registry status accepts new participants.
// Trials without a known status are kept.
func IsRecruiting(status string) bool {
	status = strings.TrimSpace(status)
	return status == "" || status == model.DefaultTrialStatus || strings.EqualFold(status, "RECRUITING")
}

var (
	inlineTag = regexp.MustCompile(`(?i)</?(?:i|b|em|strong|sup|sub)(?:\s+[a-z-]+(?:="[^"<>]*")?)*\s*/?>`)
	breakTag  = regexp.MustCompile(`(?i)</?(?:br|p)(?:\s+[a-z-]+(?:="[^"<>]*")?)*\s*/?>`)
)

// CleanText strips the inline markup registries and abstracts use (i, b, em,
// strong, sup, sub, br, p), decodes entities and collapses whitespace.
// Any other < is kept as text, criteria like "<LLN" or "age > 18" survive.
func CleanText(text string) string {
	if strings.ContainsAny(text, "<&") {
		text = breakTag.ReplaceAllString(text, " ")
		text = inlineTag.ReplaceAllString(text, "")
	}
	if strings.Contains(text, "&") {
		escaped := strings.ReplaceAll(text, "<", "&lt;")
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(escaped))
		if err == nil {
			text = doc.Text()
		}
	}
	return strings.Join(strings.Fields(text), " ")
}
