package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/electricfoxes1989/the-triton-sub000/internal/checkpoint"
	"github.com/electricfoxes1989/the-triton-sub000/internal/domain"
	"github.com/electricfoxes1989/the-triton-sub000/internal/ports"
)

// Mode selects the run behavior for posts the checkpoint or the destination
// already knows: ModeImport skips them, ModeUpdate re-runs the full transform
// and overwrites the body (images come from the asset cache, so they are not
// re-uploaded).
type Mode string

const (
	ModeImport Mode = "import"
	ModeUpdate Mode = "update"
)

// ParseMode validates a mode flag value.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeImport, ModeUpdate:
		return Mode(value), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want %q or %q)", value, ModeImport, ModeUpdate)
	}
}

// Summary aggregates per-run counts, reported even after a fatal abort.
type Summary struct {
	Imported         int
	Failed           int
	Skipped          int
	Pages            int
	DestinationTotal int
}

// MigrationDeps wires all driven adapters into the orchestrator.
type MigrationDeps struct {
	Source      ports.PostSource
	Store       ports.ArticleStore
	Resolver    ports.EntityResolver
	Transformer ports.BodyTransformer
	Assets      ports.AssetResolver
	Checkpoint  *checkpoint.Store
	Logger      *slog.Logger
	Mode        Mode
	PageSize    int
}

// Migration drives the paging loop: fetch a page, process each item, commit
// the page as one transaction, persist the checkpoint, repeat until drained.
type Migration struct {
	source      ports.PostSource
	store       ports.ArticleStore
	resolver    ports.EntityResolver
	transformer ports.BodyTransformer
	assets      ports.AssetResolver
	cp          *checkpoint.Store
	logger      *slog.Logger
	mode        Mode
	pageSize    int
}

// NewMigration constructs the orchestrator.
func NewMigration(deps MigrationDeps) *Migration {
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	mode := deps.Mode
	if mode == "" {
		mode = ModeImport
	}
	return &Migration{
		source:      deps.Source,
		store:       deps.Store,
		resolver:    deps.Resolver,
		transformer: deps.Transformer,
		assets:      deps.Assets,
		cp:          deps.Checkpoint,
		logger:      deps.Logger,
		mode:        mode,
		pageSize:    pageSize,
	}
}

// Run executes the migration until the source is drained or a fatal error
// aborts it. The returned summary is valid either way; the checkpoint is
// persisted after every page, so a crash loses at most one page of progress.
func (m *Migration) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	categories, err := m.source.Categories(ctx)
	if err != nil {
		return summary, fmt.Errorf("drain source categories: %w", err)
	}
	if err := m.resolver.Prime(ctx, categories); err != nil {
		return summary, fmt.Errorf("prime resolver: %w", err)
	}

	for page := 1; ; page++ {
		posts, err := m.source.FetchPage(ctx, page, m.pageSize)
		if err != nil {
			// Fatal: pages completed so far are already checkpointed.
			m.finish(ctx, &summary)
			return summary, fmt.Errorf("fetch page %d: %w", page, err)
		}
		if len(posts) == 0 {
			break
		}
		summary.Pages++

		m.processPage(ctx, posts, &summary)

		if err := m.cp.Save(); err != nil {
			m.finish(ctx, &summary)
			return summary, fmt.Errorf("persist checkpoint after page %d: %w", page, err)
		}
		if err := m.assets.Flush(); err != nil {
			m.logger.Warn("asset cache flush failed", "error", err)
		}
		m.logger.Info("page done", "page", page,
			"imported", summary.Imported, "failed", summary.Failed, "skipped", summary.Skipped)
	}

	m.finish(ctx, &summary)
	return summary, nil
}

// processPage accumulates successfully-processed items into one destination
// transaction; on commit failure it falls back to per-item writes so no item
// is silently dropped.
func (m *Migration) processPage(ctx context.Context, posts []domain.SourcePost, summary *Summary) {
	var (
		batch   []domain.ArticleWrite
		records = map[string]domain.MigrationRecord{}
	)

	for _, post := range posts {
		// An update pass re-processes checkpointed slugs; only an import
		// pass honors the imported mark.
		if m.mode == ModeImport && m.cp.Imported(post.Slug) {
			summary.Skipped++
			continue
		}

		existingID, err := m.store.ArticleIDBySlug(ctx, post.Slug)
		if err != nil {
			m.failItem(post.Slug, fmt.Errorf("existence check: %w", err), summary)
			continue
		}
		if existingID != "" && m.mode == ModeImport {
			summary.Skipped++
			continue
		}

		write, rec, err := m.prepare(ctx, post, existingID != "")
		if err != nil {
			m.failItem(post.Slug, err, summary)
			continue
		}
		batch = append(batch, write)
		records[post.Slug] = rec
	}

	if len(batch) == 0 {
		return
	}

	err := m.store.CommitBatch(ctx, batch)
	if err == nil {
		for _, w := range batch {
			m.cp.Set(w.Article.Slug, records[w.Article.Slug])
			summary.Imported++
		}
		return
	}
	m.logger.Warn("batch commit failed, retrying items individually",
		"items", len(batch), "error", err)

	for _, w := range batch {
		if err := m.store.WriteOne(ctx, w); err != nil {
			m.failItem(w.Article.Slug, fmt.Errorf("individual write: %w", err), summary)
			continue
		}
		m.cp.Set(w.Article.Slug, records[w.Article.Slug])
		summary.Imported++
	}
}

// prepare resolves entities, transforms the body and assembles the write for
// one post. Errors here are item-scoped.
func (m *Migration) prepare(ctx context.Context, post domain.SourcePost, update bool) (domain.ArticleWrite, domain.MigrationRecord, error) {
	category, err := m.resolver.ResolveCategory(ctx, post.CategoryIDs)
	if err != nil {
		return domain.ArticleWrite{}, domain.MigrationRecord{}, fmt.Errorf("resolve category: %w", err)
	}

	var author domain.EntityRef
	if post.AuthorName != "" {
		author, err = m.resolver.ResolveAuthor(ctx, post.AuthorName)
		if err != nil {
			return domain.ArticleWrite{}, domain.MigrationRecord{}, fmt.Errorf("resolve author: %w", err)
		}
	}

	blocks, err := m.transformer.Transform(ctx, post.Body)
	if err != nil {
		return domain.ArticleWrite{}, domain.MigrationRecord{}, fmt.Errorf("transform body: %w", err)
	}

	article := domain.DestinationArticle{
		Slug:        post.Slug,
		Title:       post.Title,
		Excerpt:     post.Excerpt,
		Body:        blocks,
		PublishedAt: post.PublishedAt,
		CategoryID:  category.ID,
		AuthorID:    author.ID,
	}
	if post.LeadImageURL != "" {
		if assetID, ok := m.assets.Resolve(ctx, post.LeadImageURL); ok {
			article.HeroAssetID = assetID
		} else {
			article.HeroURL = post.LeadImageURL
		}
	}

	rec := domain.MigrationRecord{
		Status:         domain.StatusImported,
		ImageCount:     domain.CountImages(blocks),
		AuthorResolved: author.ID != "",
	}
	return domain.ArticleWrite{Article: article, Update: update}, rec, nil
}

func (m *Migration) failItem(slug string, err error, summary *Summary) {
	m.logger.Warn("item failed", "slug", slug, "error", err)
	m.cp.Set(slug, domain.MigrationRecord{Status: domain.StatusFailed, Detail: err.Error()})
	summary.Failed++
}

// finish performs the final checkpoint persist and fills in the
// destination-side total for verification.
func (m *Migration) finish(ctx context.Context, summary *Summary) {
	if err := m.cp.Save(); err != nil {
		m.logger.Error("final checkpoint persist failed", "error", err)
	}
	if err := m.assets.Flush(); err != nil {
		m.logger.Warn("final asset cache flush failed", "error", err)
	}
	total, err := m.store.CountArticles(ctx)
	if err != nil {
		m.logger.Warn("destination count unavailable", "error", err)
		return
	}
	summary.DestinationTotal = total
}
