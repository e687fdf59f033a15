package sanity

import (
	"time"

	"github.com/electricfoxes1989/the-triton-sub000/internal/domain"
)

// mutationFor picks the mutation kind: new articles are created only if the
// slug-derived id is still free, updates patch the existing document's fields.
func mutationFor(w domain.ArticleWrite) map[string]any {
	if w.Update {
		return map[string]any{
			"patch": map[string]any{
				"id":  articleID(w.Article.Slug),
				"set": articleFields(w.Article),
			},
		}
	}

	doc := articleFields(w.Article)
	doc["_id"] = articleID(w.Article.Slug)
	doc["_type"] = typeArticle
	return map[string]any{"createIfNotExists": doc}
}

func articleID(slug string) string {
	return "post-" + slug
}

func articleFields(a domain.DestinationArticle) map[string]any {
	fields := map[string]any{
		"title":       a.Title,
		"excerpt":     a.Excerpt,
		"slug":        slugField(a.Slug),
		"publishedAt": a.PublishedAt.UTC().Format(time.RFC3339),
		"body":        bodyField(a.Body),
	}
	if a.CategoryID != "" {
		fields["category"] = reference(a.CategoryID)
	}
	if a.AuthorID != "" {
		fields["author"] = reference(a.AuthorID)
	}
	if a.HeroAssetID != "" {
		fields["heroImage"] = map[string]any{
			"_type": "image",
			"asset": reference(a.HeroAssetID),
		}
	} else if a.HeroURL != "" {
		fields["heroImageUrl"] = a.HeroURL
	}
	return fields
}

// bodyField renders blocks as portable text: text and list items become
// block nodes with a single span child, images become asset references.
func bodyField(blocks []domain.ContentBlock) []map[string]any {
	body := make([]map[string]any, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case domain.BlockImage:
			node := map[string]any{
				"_key":  b.Key,
				"_type": "image",
				"asset": reference(b.AssetID),
			}
			if b.Caption != "" {
				node["caption"] = b.Caption
			}
			body = append(body, node)
		case domain.BlockListItem:
			node := textNode(b)
			node["level"] = 1
			if b.Ordered {
				node["listItem"] = "number"
			} else {
				node["listItem"] = "bullet"
			}
			body = append(body, node)
		default:
			body = append(body, textNode(b))
		}
	}
	return body
}

func textNode(b domain.ContentBlock) map[string]any {
	return map[string]any{
		"_key":  b.Key,
		"_type": "block",
		"style": string(b.Style),
		"children": []map[string]any{
			{"_key": b.Key + "-span", "_type": "span", "text": b.Text},
		},
	}
}

func slugField(slug string) map[string]any {
	return map[string]any{"_type": "slug", "current": slug}
}

func reference(id string) map[string]any {
	return map[string]any{"_type": "reference", "_ref": id}
}
