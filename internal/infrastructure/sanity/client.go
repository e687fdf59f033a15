package sanity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/electricfoxes1989/the-triton-sub000/internal/domain"
	"github.com/electricfoxes1989/the-triton-sub000/internal/ports"
)

const (
	typeArticle  = "article"
	typeAuthor   = "author"
	typeCategory = "category"
)

// Client talks to a Sanity-compatible content store: GROQ queries, atomic
// mutation transactions and binary asset uploads.
type Client struct {
	baseURL string
	dataset string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

var _ ports.ArticleStore = (*Client)(nil)
var _ ports.EntityStore = (*Client)(nil)
var _ ports.AssetStore = (*Client)(nil)

// NewClient builds a client for one project/dataset. baseURL is the versioned
// API root, e.g. https://<project>.api.sanity.io/v2021-10-21.
func NewClient(baseURL, dataset, token string, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dataset: dataset,
		token:   token,
		http:    client,
		logger:  logger,
	}
}

// BaseURLFor derives the versioned API root from a project id.
func BaseURLFor(projectID, apiVersion string) string {
	return fmt.Sprintf("https://%s.api.sanity.io/%s", projectID, apiVersion)
}

// ArticleIDBySlug returns the document id holding the slug, or "" if absent.
func (c *Client) ArticleIDBySlug(ctx context.Context, slug string) (string, error) {
	var id string
	query := fmt.Sprintf(`*[_type == %q && slug.current == $slug][0]._id`, typeArticle)
	if err := c.query(ctx, query, map[string]any{"slug": slug}, &id); err != nil {
		return "", fmt.Errorf("lookup article %s: %w", slug, err)
	}
	return id, nil
}

// CountArticles reports the destination-side article total for verification.
func (c *Client) CountArticles(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf(`count(*[_type == %q])`, typeArticle)
	if err := c.query(ctx, query, nil, &count); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return count, nil
}

type entityResult struct {
	ID   string `json:"_id"`
	Slug string `json:"slug"`
}

// ListAuthors returns every author document, used to preseed the resolver.
func (c *Client) ListAuthors(ctx context.Context) ([]domain.EntityRef, error) {
	var rows []entityResult
	query := fmt.Sprintf(`*[_type == %q]{_id, "slug": slug.current}`, typeAuthor)
	if err := c.query(ctx, query, nil, &rows); err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	refs := make([]domain.EntityRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, domain.EntityRef{ID: row.ID, Slug: row.Slug})
	}
	return refs, nil
}

// AuthorBySlug returns the zero ref when no author holds the slug.
func (c *Client) AuthorBySlug(ctx context.Context, slug string) (domain.EntityRef, error) {
	return c.entityBySlug(ctx, typeAuthor, slug)
}

// CategoryBySlug returns the zero ref when no category holds the slug.
func (c *Client) CategoryBySlug(ctx context.Context, slug string) (domain.EntityRef, error) {
	return c.entityBySlug(ctx, typeCategory, slug)
}

func (c *Client) entityBySlug(ctx context.Context, docType, slug string) (domain.EntityRef, error) {
	var row entityResult
	query := fmt.Sprintf(`*[_type == %q && slug.current == $slug][0]{_id, "slug": slug.current}`, docType)
	if err := c.query(ctx, query, map[string]any{"slug": slug}, &row); err != nil {
		return domain.EntityRef{}, fmt.Errorf("lookup %s %s: %w", docType, slug, err)
	}
	if row.ID == "" {
		return domain.EntityRef{}, nil
	}
	return domain.EntityRef{ID: row.ID, Slug: row.Slug}, nil
}

// CreateAuthor writes an author document with a slug-derived id, so repeated
// creation of the same slug converges on one document.
func (c *Client) CreateAuthor(ctx context.Context, name, slug string) (domain.EntityRef, error) {
	id := typeAuthor + "-" + slug
	doc := map[string]any{
		"_id":   id,
		"_type": typeAuthor,
		"name":  name,
		"slug":  slugField(slug),
	}
	if err := c.mutate(ctx, []map[string]any{{"createIfNotExists": doc}}); err != nil {
		return domain.EntityRef{}, fmt.Errorf("create author %s: %w", slug, err)
	}
	return domain.EntityRef{ID: id, Slug: slug}, nil
}

// CommitBatch applies one page of article writes atomically; the store
// either commits all mutations or rejects the whole set.
func (c *Client) CommitBatch(ctx context.Context, writes []domain.ArticleWrite) error {
	mutations := make([]map[string]any, 0, len(writes))
	for _, w := range writes {
		mutations = append(mutations, mutationFor(w))
	}
	if err := c.mutate(ctx, mutations); err != nil {
		return fmt.Errorf("commit batch of %d: %w", len(writes), err)
	}
	return nil
}

// WriteOne commits a single article, the fallback path after a failed batch.
func (c *Client) WriteOne(ctx context.Context, write domain.ArticleWrite) error {
	if err := c.mutate(ctx, []map[string]any{mutationFor(write)}); err != nil {
		return fmt.Errorf("write article %s: %w", write.Article.Slug, err)
	}
	return nil
}

// UploadAsset posts the binary to the image-asset endpoint and returns the
// opaque asset id usable in document references.
func (c *Client) UploadAsset(ctx context.Context, data []byte, contentType, filename string) (string, error) {
	endpoint := fmt.Sprintf("%s/assets/images/%s?filename=%s", c.baseURL, c.dataset, url.QueryEscape(filename))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("asset upload returned %s: %s", resp.Status, readError(resp.Body))
	}

	var result struct {
		Document struct {
			ID string `json:"_id"`
		} `json:"document"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode asset response: %w", err)
	}
	if result.Document.ID == "" {
		return "", fmt.Errorf("asset upload returned no document id")
	}
	return result.Document.ID, nil
}

func (c *Client) query(ctx context.Context, groq string, params map[string]any, v any) error {
	endpoint, err := url.Parse(fmt.Sprintf("%s/data/query/%s", c.baseURL, c.dataset))
	if err != nil {
		return fmt.Errorf("build query url: %w", err)
	}
	q := endpoint.Query()
	q.Set("query", groq)
	for key, value := range params {
		encoded, merr := json.Marshal(value)
		if merr != nil {
			return fmt.Errorf("encode param %s: %w", key, merr)
		}
		q.Set("$"+key, string(encoded))
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("query store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("query returned %s: %s", resp.Status, readError(resp.Body))
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode query response: %w", err)
	}
	if v == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, v); err != nil {
		return fmt.Errorf("decode query result: %w", err)
	}
	return nil
}

func (c *Client) mutate(ctx context.Context, mutations []map[string]any) error {
	body, err := json.Marshal(map[string]any{"mutations": mutations})
	if err != nil {
		return fmt.Errorf("marshal mutations: %w", err)
	}

	endpoint := fmt.Sprintf("%s/data/mutate/%s?returnIds=false&visibility=async", c.baseURL, c.dataset)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mutate store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mutation returned %s: %s", resp.Status, readError(resp.Body))
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func readError(body io.Reader) string {
	payload, _ := io.ReadAll(io.LimitReader(body, 1024))
	return strings.TrimSpace(string(payload))
}
