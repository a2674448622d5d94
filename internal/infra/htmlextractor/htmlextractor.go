// Package htmlextractor pulls a title, summary, and body out of a fetched
// article page with goquery. It is the Go port of
// original_source/src/tasks/news_scraper.py's parse_article: the first h1
// (else the first h2) for the title, the first paragraph as the summary, and either a
// read-more follow, a Motley Fool delegate, or a flat paragraph join for
// the body.
package htmlextractor

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"catchup-feed/internal/domain/entity"

	"github.com/PuerkitoBio/goquery"
)

// interstitialMarker is Yahoo's bot-block placeholder text. Any summary or
// body containing it (case-insensitive) is treated as absent rather than
// saved verbatim.
const interstitialMarker = "not supported on your current browser version"

// Follower fetches the HTML of a follow-up URL (the read-more target).
// ProxyClient satisfies this.
type Follower interface {
	Fetch(ctx context.Context, url string) (string, bool)
}

// Extractor parses article HTML into title/summary/body, following
// "read more" links and delegating to the Motley Fool sub-parser when the
// host calls for it.
type Extractor struct {
	follower Follower
}

// New builds an Extractor. follower is used only for the read-more
// follow-fetch; pass nil to disable following (the body is then the
// joined text of every <p> in the original page).
func New(follower Follower) *Extractor {
	return &Extractor{follower: follower}
}

// Extract parses html (fetched from sourceURL) into a title, summary, and
// body. Malformed markup yields three nil pointers and a nil error — the
// Python original silently drops unparseable articles rather than failing
// the whole scrape. ArticleScraper does not drop the article in that case:
// a nil title, summary or body leaves the search result's own value in
// place.
func (e *Extractor) Extract(ctx context.Context, html, sourceURL string) (title, summary, body *string, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("recovered from html extraction panic", slog.Any("panic", r), slog.String("url", sourceURL))
			title, summary, body = nil, nil, nil
			err = entity.ErrParsingHTMLDocument
		}
	}()

	doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(html))
	if parseErr != nil {
		return nil, nil, nil, nil
	}

	t := firstHeadingText(doc)
	s := firstParagraphText(doc)
	b := e.extractBody(ctx, doc, sourceURL)

	s = filterInterstitial(s)
	b = filterInterstitial(b)

	return strPtr(t), strPtr(s), strPtr(b), nil
}

func firstHeadingText(doc *goquery.Document) string {
	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		return strings.TrimSpace(h1.Text())
	}
	if h2 := doc.Find("h2").First(); h2.Length() > 0 {
		return strings.TrimSpace(h2.Text())
	}
	return ""
}

func firstParagraphText(doc *goquery.Document) string {
	p := doc.Find("p").First()
	if p.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(p.Text())
}

func (e *Extractor) extractBody(ctx context.Context, doc *goquery.Document, sourceURL string) string {
	if href, ok := doc.Find("div.caas-readmore a[href]").First().Attr("href"); ok && href != "" {
		target := resolveURL(sourceURL, href)
		if host := hostOf(target); host == "www.fool.com" {
			if html, ok := e.fetchFollow(ctx, target); ok {
				return extractMotleyFool(html)
			}
		} else if e.follower != nil {
			if html, ok := e.fetchFollow(ctx, target); ok {
				return concatParagraphs(html)
			}
		}
	}

	var sb strings.Builder
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		sb.WriteString(s.Text())
	})
	return sb.String()
}

func (e *Extractor) fetchFollow(ctx context.Context, target string) (string, bool) {
	if e.follower == nil {
		return "", false
	}
	return e.follower.Fetch(ctx, target)
}

func concatParagraphs(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	var sb strings.Builder
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		sb.WriteString(s.Text())
	})
	return sb.String()
}

func resolveURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func filterInterstitial(text string) string {
	if strings.Contains(strings.ToLower(text), interstitialMarker) {
		return ""
	}
	return text
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
