// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Article, Thumbnail, Ticker and
// ScheduleSlot, along with their validation rules and domain-specific errors.
package entity

// Article represents a single financial news article scraped from a ticker's
// news feed or an alternate RSS source.
type Article struct {
	UUID            string
	Title           string
	Publisher       string
	Link            string
	ProviderPublish int64 // unix seconds
	CreatedAt       int64 // unix seconds, set at ingest time
	Type            string
	RelatedTickers  []string
	Thumbnails      []Thumbnail
	Summary         string
	Body            string
}

// Thumbnail is one resolution variant of an article's lead image.
type Thumbnail struct {
	ArticleUUID string
	URL         string
	Width       int
	Height      int
	Tag         string
}

// RelatedTickerLink associates an Article with a ticker symbol it mentions.
type RelatedTickerLink struct {
	ArticleUUID string
	Ticker      string
}

// SentimentRow is the reserved sentiment-analysis record for an article.
// The sentiment columns are never populated by this worker; they exist so
// a downstream analysis job can update them in place.
type SentimentRow struct {
	ArticleUUID      string
	StockCodes       string
	Title            string
	Link             string
	Article          string
	ArticleTLDR      string
	SentimentTitle   *string
	SentimentArticle *string
}
