package entities

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/electricfoxes1989/the-triton-sub000/internal/domain"
	"github.com/electricfoxes1989/the-triton-sub000/internal/ports"
)

var slugExpr = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a normalized slug from a display name: lowercase,
// non-alphanumeric runs collapsed to single hyphens, trimmed. Deterministic,
// so repeated runs converge on the same entity.
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = slugExpr.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// categoryRule maps keyword fragments of a source category slug to one
// destination category. First match wins; the mapping is many-to-one and
// never creates categories. More specific fragments come before broader
// ones ("boat-show" would otherwise match "show").
type categoryRule struct {
	fragments []string
	dest      string
}

var categoryRules = []categoryRule{
	{fragments: []string{"captain"}, dest: "captains"},
	{fragments: []string{"crew", "stew", "chef", "deckhand", "engineer"}, dest: "crew"},
	{fragments: []string{"expo", "boat-show"}, dest: "boat-shows"},
	{fragments: []string{"event", "show"}, dest: "events"},
	{fragments: []string{"destination"}, dest: "destinations"},
	{fragments: []string{"gallery", "photo"}, dest: "galleries"},
	{fragments: []string{"magazine", "print"}, dest: "magazine"},
}

// Resolver performs idempotent lookup-or-create for authors and the
// rule-table mapping for categories. Caches are preseeded by Prime and safe
// for concurrent use; in-flight author creation is deduplicated per slug.
type Resolver struct {
	store           ports.EntityStore
	logger          *slog.Logger
	defaultCategory string

	mu         sync.Mutex
	authors    map[string]domain.EntityRef
	categories map[string]domain.EntityRef
	sourceCats map[int]domain.SourceCategory

	flight singleflight.Group
}

var _ ports.EntityResolver = (*Resolver)(nil)

// NewResolver wires the destination store; defaultCategory is the catch-all
// destination slug for unmatched source taxonomy.
func NewResolver(store ports.EntityStore, defaultCategory string, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:           store,
		logger:          logger,
		defaultCategory: defaultCategory,
		authors:         map[string]domain.EntityRef{},
		categories:      map[string]domain.EntityRef{},
		sourceCats:      map[int]domain.SourceCategory{},
	}
}

// Prime seeds the author cache from all existing destination authors and
// indexes the drained source taxonomy for rule lookups.
func (r *Resolver) Prime(ctx context.Context, categories []domain.SourceCategory) error {
	existing, err := r.store.ListAuthors(ctx)
	if err != nil {
		return fmt.Errorf("preseed authors: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range existing {
		if ref.Slug != "" {
			r.authors[ref.Slug] = ref
		}
	}
	for _, cat := range categories {
		r.sourceCats[cat.ID] = cat
	}
	r.logger.Debug("resolver primed", "authors", len(existing), "source_categories", len(categories))
	return nil
}

// ResolveAuthor looks up or creates the author entity for a display name.
// An empty name resolves to the zero ref (articles may have no author).
// A creation race loses gracefully: on create error the slug is re-queried
// before giving up.
func (r *Resolver) ResolveAuthor(ctx context.Context, displayName string) (domain.EntityRef, error) {
	slug := Slugify(displayName)
	if slug == "" {
		return domain.EntityRef{}, nil
	}

	r.mu.Lock()
	if ref, ok := r.authors[slug]; ok {
		r.mu.Unlock()
		return ref, nil
	}
	r.mu.Unlock()

	v, err, _ := r.flight.Do(slug, func() (any, error) {
		r.mu.Lock()
		if ref, ok := r.authors[slug]; ok {
			r.mu.Unlock()
			return ref, nil
		}
		r.mu.Unlock()

		// Covers entities created by a prior or concurrent run that the
		// preseeded cache has not seen.
		ref, err := r.store.AuthorBySlug(ctx, slug)
		if err != nil {
			return domain.EntityRef{}, fmt.Errorf("query author %s: %w", slug, err)
		}
		if ref.ID == "" {
			ref, err = r.store.CreateAuthor(ctx, strings.TrimSpace(displayName), slug)
			if err != nil {
				requeried, qerr := r.store.AuthorBySlug(ctx, slug)
				if qerr != nil || requeried.ID == "" {
					return domain.EntityRef{}, fmt.Errorf("create author %s: %w", slug, err)
				}
				ref = requeried
			}
		}

		r.mu.Lock()
		r.authors[slug] = ref
		r.mu.Unlock()
		return ref, nil
	})
	if err != nil {
		return domain.EntityRef{}, err
	}
	return v.(domain.EntityRef), nil
}

// ResolveCategory maps source category IDs to one destination category via
// the rule table, falling back to the default catch-all.
func (r *Resolver) ResolveCategory(ctx context.Context, categoryIDs []int) (domain.EntityRef, error) {
	destSlug := r.defaultCategory
	for _, id := range categoryIDs {
		r.mu.Lock()
		cat, ok := r.sourceCats[id]
		r.mu.Unlock()
		if !ok {
			continue
		}
		if dest, matched := matchRule(cat.Slug); matched {
			destSlug = dest
			break
		}
	}
	return r.categoryRef(ctx, destSlug)
}

func (r *Resolver) categoryRef(ctx context.Context, slug string) (domain.EntityRef, error) {
	r.mu.Lock()
	if ref, ok := r.categories[slug]; ok {
		r.mu.Unlock()
		return ref, nil
	}
	r.mu.Unlock()

	ref, err := r.store.CategoryBySlug(ctx, slug)
	if err != nil {
		return domain.EntityRef{}, fmt.Errorf("query category %s: %w", slug, err)
	}
	if ref.ID == "" {
		return domain.EntityRef{}, fmt.Errorf("category %s does not exist in destination", slug)
	}

	r.mu.Lock()
	r.categories[slug] = ref
	r.mu.Unlock()
	return ref, nil
}

func matchRule(sourceSlug string) (string, bool) {
	lowered := strings.ToLower(sourceSlug)
	for _, rule := range categoryRules {
		for _, fragment := range rule.fragments {
			if strings.Contains(lowered, fragment) {
				return rule.dest, true
			}
		}
	}
	return "", false
}
