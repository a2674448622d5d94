package tickerdirectory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	html  string
	err   error
	calls int
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	s.calls++
	return s.html, s.err
}

const tableHTML = `
<table><tbody>
<tr><td> aapl </td><td>Apple Inc.</td></tr>
<tr><td>gme</td><td>GameStop Corp.</td></tr>
</tbody></table>`

func TestSnapshot_ParsesFirstTbody(t *testing.T) {
	f := &stubFetcher{html: tableHTML}
	d := New(f, "https://example.com/tickers", time.Hour)

	snap := d.Snapshot(context.Background())
	assert.Equal(t, "Apple Inc.", snap["AAPL"])
	assert.Equal(t, "GameStop Corp.", snap["GME"])
	assert.Equal(t, 1, f.calls)
}

func TestSnapshot_CachesWithinInterval(t *testing.T) {
	f := &stubFetcher{html: tableHTML}
	d := New(f, "https://example.com/tickers", time.Hour)

	d.Snapshot(context.Background())
	d.Snapshot(context.Background())
	assert.Equal(t, 1, f.calls, "second call within interval should not refetch")
}

func TestSnapshot_KeepsPriorOnFetchError(t *testing.T) {
	f := &stubFetcher{html: tableHTML}
	d := New(f, "https://example.com/tickers", time.Millisecond)
	snap := d.Snapshot(context.Background())
	require.Len(t, snap, 2)

	time.Sleep(2 * time.Millisecond)
	f.err = errors.New("boom")
	f.html = ""
	snap2 := d.Snapshot(context.Background())
	assert.Equal(t, snap, snap2)
}

func TestSnapshot_KeepsPriorOnEmptyTable(t *testing.T) {
	f := &stubFetcher{html: tableHTML}
	d := New(f, "https://example.com/tickers", time.Millisecond)
	snap := d.Snapshot(context.Background())
	require.Len(t, snap, 2)

	time.Sleep(2 * time.Millisecond)
	f.html = `<html><body>no table here</body></html>`
	snap2 := d.Snapshot(context.Background())
	assert.Equal(t, snap, snap2)
}
