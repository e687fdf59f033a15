package domain

import "time"

// SourcePost is one post pulled from the legacy WordPress API. The slug is
// the idempotency key across runs; the struct is never mutated after fetch.
type SourcePost struct {
	Slug         string
	Title        string
	Excerpt      string
	Body         string
	PublishedAt  time.Time
	AuthorName   string
	CategoryIDs  []int
	LeadImageURL string
}

// SourceCategory is one taxonomy term from the legacy API, used to drive the
// category rule table.
type SourceCategory struct {
	ID   int
	Slug string
	Name string
}

// EntityRef identifies an author or category document in the content store.
type EntityRef struct {
	ID   string
	Slug string
}

// DestinationArticle is the document written to the content store.
type DestinationArticle struct {
	Slug        string
	Title       string
	Excerpt     string
	Body        []ContentBlock
	PublishedAt time.Time
	HeroAssetID string
	HeroURL     string // raw-URL fallback when the hero upload failed
	CategoryID  string
	AuthorID    string
}

// ArticleWrite pairs a document with the operation the store should perform.
type ArticleWrite struct {
	Article DestinationArticle
	Update  bool
}

// MigrationStatus enumerates terminal per-item outcomes.
type MigrationStatus string

const (
	StatusImported MigrationStatus = "imported"
	StatusFailed   MigrationStatus = "failed"
)

// MigrationRecord is one checkpoint entry, keyed by source slug.
type MigrationRecord struct {
	Status         MigrationStatus `json:"status"`
	Detail         string          `json:"detail,omitempty"`
	ImageCount     int             `json:"imageCount,omitempty"`
	AuthorResolved bool            `json:"authorResolved,omitempty"`
}
