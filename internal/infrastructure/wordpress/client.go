package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/electricfoxes1989/the-triton-sub000/internal/domain"
	"github.com/electricfoxes1989/the-triton-sub000/internal/ports"
)

const (
	postsPath      = "/wp-json/wp/v2/posts"
	categoriesPath = "/wp-json/wp/v2/categories"

	defaultRateLimitWait = 5 * time.Second
	defaultRetryWait     = 2 * time.Second
	defaultMaxAttempts   = 3
)

// errRateLimited marks an HTTP 429 so the fetch loop applies the cooldown
// instead of the short retry delay.
var errRateLimited = errors.New("rate limited")

// Client pages through the legacy WordPress REST API with embedded author
// and featured-media data.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	rateLimitWait time.Duration
	retryWait     time.Duration
	maxAttempts   int
}

var _ ports.PostSource = (*Client)(nil)

// NewClient wires an HTTP client; a nil client gets a 30s-timeout default.
func NewClient(baseURL string, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		client:        client,
		logger:        logger,
		rateLimitWait: defaultRateLimitWait,
		retryWait:     defaultRetryWait,
		maxAttempts:   defaultMaxAttempts,
	}
}

// wpRendered is WordPress's {"rendered": "..."} wrapper.
type wpRendered struct {
	Rendered string `json:"rendered"`
}

type wpPost struct {
	Slug       string     `json:"slug"`
	DateGMT    string     `json:"date_gmt"`
	Date       string     `json:"date"`
	Title      wpRendered `json:"title"`
	Excerpt    wpRendered `json:"excerpt"`
	Content    wpRendered `json:"content"`
	Categories []int      `json:"categories"`
	Embedded   struct {
		Author []struct {
			Name string `json:"name"`
		} `json:"author"`
		FeaturedMedia []struct {
			SourceURL string `json:"source_url"`
		} `json:"wp:featuredmedia"`
	} `json:"_embedded"`
}

type wpCategory struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// FetchPage returns one page of posts, newest first. An out-of-range page
// (HTTP 400/404) or an empty array both signal end-of-stream with an empty
// slice. Rate limiting cools down and retries the same page; other failures
// are retried a few times before surfacing a fatal error.
func (c *Client) FetchPage(ctx context.Context, page, perPage int) ([]domain.SourcePost, error) {
	pageURL, err := c.buildPostsURL(page, perPage)
	if err != nil {
		return nil, err
	}

	var (
		lastErr   error
		attempts  int
		cooldowns int
	)
	for {
		var raw []wpPost
		err := c.getJSON(ctx, pageURL, &raw)
		switch {
		case err == nil:
			return toSourcePosts(raw), nil
		case errors.Is(err, errEndOfStream):
			return nil, nil
		case errors.Is(err, errRateLimited):
			cooldowns++
			if cooldowns > c.maxAttempts {
				return nil, fmt.Errorf("page %d: still rate limited after %d cooldowns", page, c.maxAttempts)
			}
			c.logger.Warn("source rate limited, cooling down", "page", page, "wait", c.rateLimitWait)
			if serr := sleep(ctx, c.rateLimitWait); serr != nil {
				return nil, serr
			}
		default:
			attempts++
			lastErr = err
			if attempts >= c.maxAttempts {
				return nil, fmt.Errorf("fetch page %d after %d attempts: %w", page, attempts, lastErr)
			}
			c.logger.Warn("page fetch failed, retrying", "page", page, "attempt", attempts, "error", err)
			if serr := sleep(ctx, c.retryWait); serr != nil {
				return nil, serr
			}
		}
	}
}

// Categories drains the category endpoint completely so the resolver can map
// source term IDs to slugs.
func (c *Client) Categories(ctx context.Context) ([]domain.SourceCategory, error) {
	var all []domain.SourceCategory
	for page := 1; ; page++ {
		pageURL, err := c.buildPagedURL(categoriesPath, page, 100)
		if err != nil {
			return nil, err
		}

		var raw []wpCategory
		if err := c.getJSON(ctx, pageURL, &raw); err != nil {
			if errors.Is(err, errEndOfStream) {
				break
			}
			return nil, fmt.Errorf("fetch categories page %d: %w", page, err)
		}
		if len(raw) == 0 {
			break
		}
		for _, cat := range raw {
			all = append(all, domain.SourceCategory{ID: cat.ID, Slug: cat.Slug, Name: cat.Name})
		}
	}
	return all, nil
}

var errEndOfStream = errors.New("no such page")

func (c *Client) getJSON(ctx context.Context, pageURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "triton-migrate/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return errRateLimited
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		// WordPress answers 400 for a page past the last one.
		return errEndOfStream
	default:
		return fmt.Errorf("source returned %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode page: %w", err)
	}
	return nil
}

func (c *Client) buildPostsURL(page, perPage int) (string, error) {
	u, err := url.Parse(c.baseURL + postsPath)
	if err != nil {
		return "", fmt.Errorf("invalid source url %s: %w", c.baseURL, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("_embed", "1")
	q.Set("orderby", "date")
	q.Set("order", "desc")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) buildPagedURL(path string, page, perPage int) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("invalid source url %s: %w", c.baseURL, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func toSourcePosts(raw []wpPost) []domain.SourcePost {
	posts := make([]domain.SourcePost, 0, len(raw))
	for _, p := range raw {
		post := domain.SourcePost{
			Slug:        p.Slug,
			Title:       strings.TrimSpace(p.Title.Rendered),
			Excerpt:     strings.TrimSpace(p.Excerpt.Rendered),
			Body:        p.Content.Rendered,
			PublishedAt: parseDate(p.DateGMT, p.Date),
			CategoryIDs: p.Categories,
		}
		if len(p.Embedded.Author) > 0 {
			post.AuthorName = strings.TrimSpace(p.Embedded.Author[0].Name)
		}
		if len(p.Embedded.FeaturedMedia) > 0 {
			post.LeadImageURL = p.Embedded.FeaturedMedia[0].SourceURL
		}
		posts = append(posts, post)
	}
	return posts
}

func parseDate(gmt, local string) time.Time {
	for _, candidate := range []string{gmt, local} {
		if candidate == "" {
			continue
		}
		if parsed, err := time.Parse("2006-01-02T15:04:05", candidate); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
