package transform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/electricfoxes1989/the-triton-sub000/internal/domain"
)

type fakeAssets struct {
	resolved []string
	fail     bool
}

func (f *fakeAssets) Resolve(_ context.Context, url string) (string, bool) {
	f.resolved = append(f.resolved, url)
	if f.fail {
		return "", false
	}
	return fmt.Sprintf("image-%d", len(f.resolved)), true
}

func (f *fakeAssets) Flush() error { return nil }

func newTestTransformer(assets *fakeAssets) *Transformer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(assets, logger)
}

func TestTransformPreservesOrder(t *testing.T) {
	t.Parallel()

	assets := &fakeAssets{}
	tr := newTestTransformer(assets)

	blocks, err := tr.Transform(context.Background(), `<p>A</p><img src="https://cdn.example.com/x.jpg"><p>B</p>`)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Type != domain.BlockText || blocks[0].Text != "A" {
		t.Fatalf("unexpected first block: %+v", blocks[0])
	}
	if blocks[1].Type != domain.BlockImage {
		t.Fatalf("expected image in the middle, got %+v", blocks[1])
	}
	if blocks[2].Type != domain.BlockText || blocks[2].Text != "B" {
		t.Fatalf("unexpected last block: %+v", blocks[2])
	}
	if len(assets.resolved) != 1 || assets.resolved[0] != "https://cdn.example.com/x.jpg" {
		t.Fatalf("unexpected asset resolutions: %v", assets.resolved)
	}
}

func TestTransformDecodesEntities(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer(&fakeAssets{})
	blocks, err := tr.Transform(context.Background(), `<p>Crew &amp; Captains &#8217;insights&#8217;</p>`)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	want := "Crew & Captains ’insights’"
	if len(blocks) != 1 || blocks[0].Text != want {
		t.Fatalf("expected %q, got %+v", want, blocks)
	}
}

func TestTransformSplitsInlineImage(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer(&fakeAssets{})
	blocks, err := tr.Transform(context.Background(),
		`<p>Before the photo <img src="https://cdn.example.com/pic.jpg" alt="Dock"> and after</p>`)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Text != "Before the photo" {
		t.Fatalf("unexpected leading text: %q", blocks[0].Text)
	}
	if blocks[1].Type != domain.BlockImage || blocks[1].Caption != "Dock" {
		t.Fatalf("unexpected image block: %+v", blocks[1])
	}
	if blocks[2].Text != "and after" {
		t.Fatalf("unexpected trailing text: %q", blocks[2].Text)
	}
}

func TestTransformSkipsDenylistedImages(t *testing.T) {
	t.Parallel()

	assets := &fakeAssets{}
	tr := newTestTransformer(assets)

	html := `<p>Text</p>` +
		`<img src="https://stats.example.com/tracking-pixel.gif">` +
		`<img src="https://secure.gravatar.com/avatar/abc123.png">`
	blocks, err := tr.Transform(context.Background(), html)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	if len(blocks) != 1 || blocks[0].Type != domain.BlockText {
		t.Fatalf("expected only the text block, got %+v", blocks)
	}
	if len(assets.resolved) != 0 {
		t.Fatalf("denylisted images must not reach the ingestor: %v", assets.resolved)
	}
}

func TestTransformKeepsContentImagesWithIconLikeNames(t *testing.T) {
	t.Parallel()

	assets := &fakeAssets{}
	tr := newTestTransformer(assets)

	html := `<img src="https://cdn.example.com/iconic-yacht.jpg">` +
		`<img src="https://cdn.example.com/icons/arrow.png">` +
		`<img src="https://www.example.com/favicon.ico">`
	blocks, err := tr.Transform(context.Background(), html)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	if len(blocks) != 1 || blocks[0].Type != domain.BlockImage {
		t.Fatalf("expected only the content image, got %+v", blocks)
	}
	if len(assets.resolved) != 1 || assets.resolved[0] != "https://cdn.example.com/iconic-yacht.jpg" {
		t.Fatalf("unexpected asset resolutions: %v", assets.resolved)
	}
}

func TestTransformOmitsFailedImages(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer(&fakeAssets{fail: true})
	blocks, err := tr.Transform(context.Background(), `<p>A</p><img src="https://cdn.example.com/x.jpg"><p>B</p>`)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	if len(blocks) != 2 {
		t.Fatalf("failed image should be omitted, got %+v", blocks)
	}
	if blocks[0].Text != "A" || blocks[1].Text != "B" {
		t.Fatalf("text blocks must survive: %+v", blocks)
	}
}

func TestTransformHeadingsQuotesAndLists(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer(&fakeAssets{})
	html := `<h2>Heading</h2>` +
		`<blockquote>Said someone</blockquote>` +
		`<ul><li>first</li><li>second</li></ul>` +
		`<ol><li>one</li></ol>`
	blocks, err := tr.Transform(context.Background(), html)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	if len(blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Style != domain.StyleH2 || blocks[0].Text != "Heading" {
		t.Fatalf("unexpected heading: %+v", blocks[0])
	}
	if blocks[1].Style != domain.StyleQuote {
		t.Fatalf("unexpected quote: %+v", blocks[1])
	}
	if blocks[2].Type != domain.BlockListItem || blocks[2].Ordered || blocks[2].Text != "first" {
		t.Fatalf("unexpected list item: %+v", blocks[2])
	}
	if blocks[3].Text != "second" {
		t.Fatalf("unexpected list item: %+v", blocks[3])
	}
	if !blocks[4].Ordered || blocks[4].Text != "one" {
		t.Fatalf("ordered item expected: %+v", blocks[4])
	}
}

func TestTransformSeparatesNestedParagraphs(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer(&fakeAssets{})
	blocks, err := tr.Transform(context.Background(),
		`<blockquote><p>First sentence.</p><p>Second one.</p></blockquote>`)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	if len(blocks) != 2 {
		t.Fatalf("expected one quote block per paragraph, got %+v", blocks)
	}
	if blocks[0].Style != domain.StyleQuote || blocks[0].Text != "First sentence." {
		t.Fatalf("unexpected first quote: %+v", blocks[0])
	}
	if blocks[1].Style != domain.StyleQuote || blocks[1].Text != "Second one." {
		t.Fatalf("unexpected second quote: %+v", blocks[1])
	}
}

func TestTransformSkipsDenylistedWrappers(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer(&fakeAssets{})
	html := `<div class="sharedaddy share-buttons"><p>Share this article</p></div><p>Real content</p>`
	blocks, err := tr.Transform(context.Background(), html)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	if len(blocks) != 1 || blocks[0].Text != "Real content" {
		t.Fatalf("wrapper content must be skipped entirely, got %+v", blocks)
	}
}

func TestTransformFigureWithCaption(t *testing.T) {
	t.Parallel()

	assets := &fakeAssets{}
	tr := newTestTransformer(assets)
	html := `<figure><img src="https://cdn.example.com/yacht.jpg"><figcaption>M/Y Example at anchor</figcaption></figure>`
	blocks, err := tr.Transform(context.Background(), html)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	if len(blocks) != 1 || blocks[0].Type != domain.BlockImage {
		t.Fatalf("expected one image block, got %+v", blocks)
	}
	if blocks[0].Caption != "M/Y Example at anchor" {
		t.Fatalf("unexpected caption: %q", blocks[0].Caption)
	}
}

func TestTransformTrailingText(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer(&fakeAssets{})
	blocks, err := tr.Transform(context.Background(), `<p>A</p>loose trailing text`)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %+v", blocks)
	}
	if blocks[1].Text != "loose trailing text" || blocks[1].Style != domain.StyleNormal {
		t.Fatalf("unexpected trailing block: %+v", blocks[1])
	}
}

func TestTransformEmptyAndWhitespaceInput(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer(&fakeAssets{})

	for _, input := range []string{"", "   \n\t  ", "<p>   </p>", "<p>&nbsp;</p>"} {
		blocks, err := tr.Transform(context.Background(), input)
		if err != nil {
			t.Fatalf("Transform(%q) error: %v", input, err)
		}
		if len(blocks) != 0 {
			t.Fatalf("Transform(%q) should yield no blocks, got %+v", input, blocks)
		}
	}
}

func TestTransformUniqueBlockKeys(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer(&fakeAssets{})
	blocks, err := tr.Transform(context.Background(), `<p>A</p><p>B</p><p>C</p>`)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	seen := map[string]bool{}
	for _, b := range blocks {
		if b.Key == "" {
			t.Fatalf("block without key: %+v", b)
		}
		if seen[b.Key] {
			t.Fatalf("duplicate block key %s", b.Key)
		}
		seen[b.Key] = true
	}
}
