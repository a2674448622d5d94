package htmlextractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractMotleyFool ports original_source/src/parsers/motley_fool.py's
// parse_motley_article. The original returns title/company/ticker/price
// fields alongside the body text; only the body ("content") is wired into
// Extract, since title and summary are already handled by the generic
// h1/first-p rules.
func extractMotleyFool(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		sb.WriteString(strings.TrimSpace(s.Text()))
		sb.WriteString(" ")
	})
	return strings.TrimSpace(sb.String())
}
