package ports

import (
	"context"

	"github.com/electricfoxes1989/the-triton-sub000/internal/domain"
)

// PostSource pulls paginated posts from the legacy platform. FetchPage
// returns an empty slice on end-of-stream (out-of-range page or empty array).
type PostSource interface {
	FetchPage(ctx context.Context, page, perPage int) ([]domain.SourcePost, error)
	Categories(ctx context.Context) ([]domain.SourceCategory, error)
}

// ArticleStore is the destination document database's article surface.
// CommitBatch applies all writes in one transaction; WriteOne is the
// per-item fallback after a failed batch.
type ArticleStore interface {
	ArticleIDBySlug(ctx context.Context, slug string) (string, error)
	CommitBatch(ctx context.Context, writes []domain.ArticleWrite) error
	WriteOne(ctx context.Context, write domain.ArticleWrite) error
	CountArticles(ctx context.Context) (int, error)
}

// EntityStore covers the author/category documents the resolver works on.
// Lookups return the zero EntityRef when the slug is absent.
type EntityStore interface {
	ListAuthors(ctx context.Context) ([]domain.EntityRef, error)
	AuthorBySlug(ctx context.Context, slug string) (domain.EntityRef, error)
	CreateAuthor(ctx context.Context, name, slug string) (domain.EntityRef, error)
	CategoryBySlug(ctx context.Context, slug string) (domain.EntityRef, error)
}

// AssetStore uploads binary media to the destination store.
type AssetStore interface {
	UploadAsset(ctx context.Context, data []byte, contentType, filename string) (string, error)
}

// AssetResolver maps a source media URL to an uploaded asset identifier.
// A false result means the image is omitted; it never fails the caller.
// Flush persists the URL cache so later runs skip the upload.
type AssetResolver interface {
	Resolve(ctx context.Context, url string) (string, bool)
	Flush() error
}

// EntityResolver performs idempotent lookup-or-create for related entities.
// Prime must be called once per run before any resolution.
type EntityResolver interface {
	Prime(ctx context.Context, categories []domain.SourceCategory) error
	ResolveAuthor(ctx context.Context, displayName string) (domain.EntityRef, error)
	ResolveCategory(ctx context.Context, categoryIDs []int) (domain.EntityRef, error)
}

// BodyTransformer converts raw marked-up body text into ordered blocks.
type BodyTransformer interface {
	Transform(ctx context.Context, rawHTML string) ([]domain.ContentBlock, error)
}
