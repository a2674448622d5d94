package altsource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Sample Feed</title>
<item>
  <title>Entry One</title>
  <link>https://news.example.com/one</link>
  <guid>guid-1</guid>
</item>
<item>
  <title>Entry Two</title>
  <link>https://news.example.com/two</link>
  <guid>guid-2</guid>
</item>
</channel></rss>`

type stubFetcher struct {
	responses map[string]string
}

func (f stubFetcher) Fetch(ctx context.Context, url string) (string, bool) {
	body, ok := f.responses[url]
	return body, ok
}

type stubExtractor struct {
	summary, body string
	err           error
}

func (s stubExtractor) Extract(ctx context.Context, html, sourceURL string) (*string, *string, *string, error) {
	if s.err != nil {
		return nil, nil, nil, s.err
	}
	summary, body := s.summary, s.body
	return nil, &summary, &body, nil
}

type stubSeen struct{ seen map[string]bool }

func (s stubSeen) AlreadySeen(uuid string) bool { return s.seen[uuid] }

func TestParseFeeds_BuildsArticlesWithSummaryAndBody(t *testing.T) {
	feedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer feedServer.Close()

	fetcher := stubFetcher{responses: map[string]string{
		"https://news.example.com/one": "<html></html>",
		"https://news.example.com/two": "<html></html>",
	}}
	extractor := stubExtractor{summary: "s", body: "b"}
	s := New([]string{feedServer.URL}, fetcher, extractor, stubSeen{seen: map[string]bool{}})

	articles := s.ParseFeeds(context.Background())
	require.Len(t, articles, 2)
	assert.Equal(t, "alt", articles[0].Type)
	assert.Equal(t, "s", articles[0].Summary)
	assert.Equal(t, "b", articles[0].Body)
}

func TestParseFeeds_SkipsEntryMissingSummaryOrBody(t *testing.T) {
	feedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer feedServer.Close()

	fetcher := stubFetcher{responses: map[string]string{
		"https://news.example.com/one": "<html></html>",
		"https://news.example.com/two": "<html></html>",
	}}
	extractor := stubExtractor{summary: "", body: ""}
	s := New([]string{feedServer.URL}, fetcher, extractor, stubSeen{seen: map[string]bool{}})

	articles := s.ParseFeeds(context.Background())
	assert.Empty(t, articles)
}

func TestParseFeeds_SkipsAlreadySeenEntry(t *testing.T) {
	feedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer feedServer.Close()

	fetcher := stubFetcher{responses: map[string]string{
		"https://news.example.com/one": "<html></html>",
		"https://news.example.com/two": "<html></html>",
	}}
	extractor := stubExtractor{summary: "s", body: "b"}
	s := New([]string{feedServer.URL}, fetcher, extractor, stubSeen{seen: map[string]bool{"guid-1": true}})

	articles := s.ParseFeeds(context.Background())
	require.Len(t, articles, 1)
	assert.Equal(t, "guid-2", articles[0].UUID)
}

func TestFindRelatedTickers_AlwaysNil(t *testing.T) {
	assert.Nil(t, FindRelatedTickers(nil))
}

func TestParseFeeds_ContinuesOnFeedParseError(t *testing.T) {
	s := New([]string{"http://127.0.0.1:0/bad-feed"}, stubFetcher{}, stubExtractor{}, stubSeen{seen: map[string]bool{}})
	articles := s.ParseFeeds(context.Background())
	assert.Empty(t, articles)
}
