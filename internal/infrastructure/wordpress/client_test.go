package wordpress

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const samplePage = `[
  {
    "slug": "captains-corner-fuel-prices",
    "date_gmt": "2019-03-14T12:30:00",
    "title": {"rendered": "Captain&#8217;s corner: fuel prices"},
    "excerpt": {"rendered": "<p>Fuel is up again.</p>"},
    "content": {"rendered": "<p>Body text</p>"},
    "categories": [4, 12],
    "_embedded": {
      "author": [{"name": "Dorie Cox"}],
      "wp:featuredmedia": [{"source_url": "https://cdn.example.com/uploads/fuel-800x600.jpg"}]
    }
  }
]`

func TestFetchPageParsesEmbeddedData(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/posts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("page") != "1" || q.Get("per_page") != "10" || q.Get("_embed") != "1" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), testLogger())
	posts, err := c.FetchPage(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("FetchPage error: %v", err)
	}

	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	post := posts[0]
	if post.Slug != "captains-corner-fuel-prices" {
		t.Fatalf("unexpected slug: %s", post.Slug)
	}
	if post.AuthorName != "Dorie Cox" {
		t.Fatalf("unexpected author: %s", post.AuthorName)
	}
	if post.LeadImageURL != "https://cdn.example.com/uploads/fuel-800x600.jpg" {
		t.Fatalf("unexpected lead image: %s", post.LeadImageURL)
	}
	if len(post.CategoryIDs) != 2 || post.CategoryIDs[0] != 4 {
		t.Fatalf("unexpected categories: %v", post.CategoryIDs)
	}
	want := time.Date(2019, time.March, 14, 12, 30, 0, 0, time.UTC)
	if !post.PublishedAt.Equal(want) {
		t.Fatalf("unexpected published time: %v", post.PublishedAt)
	}
}

func TestFetchPageEndOfStream(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		c := NewClient(server.URL, server.Client(), testLogger())
		posts, err := c.FetchPage(context.Background(), 99, 10)
		if err != nil {
			t.Fatalf("status %d should mean end-of-stream, got error: %v", status, err)
		}
		if len(posts) != 0 {
			t.Fatalf("expected no posts, got %d", len(posts))
		}
		server.Close()
	}
}

func TestFetchPageRateLimitBackoff(t *testing.T) {
	t.Parallel()

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), testLogger())
	c.rateLimitWait = time.Millisecond

	posts, err := c.FetchPage(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("two rate limits then success must not abort: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if hits != 3 {
		t.Fatalf("expected exactly 3 requests (two cooldown retries), got %d", hits)
	}
}

func TestFetchPageRetriesThenFails(t *testing.T) {
	t.Parallel()

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), testLogger())
	c.retryWait = time.Millisecond

	_, err := c.FetchPage(context.Background(), 1, 10)
	if err == nil {
		t.Fatal("persistent server error must surface a fatal error")
	}
	if hits != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits)
	}
}

func TestCategoriesDrainsAllPages(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"1": `[{"id": 4, "slug": "the-captain-says", "name": "The Captain Says"}]`,
		"2": `[{"id": 12, "slug": "chef-corner", "name": "Chef Corner"}]`,
		"3": `[]`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/categories" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), testLogger())
	cats, err := c.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories error: %v", err)
	}

	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
	if cats[0].ID != 4 || cats[0].Slug != "the-captain-says" {
		t.Fatalf("unexpected category: %+v", cats[0])
	}
}
