package transform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/electricfoxes1989/the-triton-sub000/internal/domain"
	"github.com/electricfoxes1989/the-triton-sub000/internal/ports"
)

// imageDenylist filters non-content images: tracking pixels, avatars,
// ad/banner/sponsor assets and UI iconography.
var imageDenylist = []string{
	"tracking",
	"pixel",
	"gravatar",
	"avatar",
	"banner",
	"sponsor",
	"advert",
	"/ads/",
	"doubleclick",
	"spacer",
	"emoji",
	"/icons/",
	"favicon",
}

// wrapperDenylist skips decorative containers and their text entirely.
var wrapperDenylist = []string{
	"share",
	"social",
	"related",
	"sidebar",
	"widget",
	"promo",
	"sponsor",
	"advert",
	"newsletter",
	"comment",
	"jp-relatedposts",
}

var headingStyles = map[string]domain.BlockStyle{
	"h1": domain.StyleH1,
	"h2": domain.StyleH2,
	"h3": domain.StyleH3,
	"h4": domain.StyleH4,
	"h5": domain.StyleH5,
	"h6": domain.StyleH6,
}

// Transformer converts raw marked-up body text into an ordered sequence of
// content blocks, resolving embedded images through the asset ingestor as it
// encounters them so block order matches source reading order.
type Transformer struct {
	assets ports.AssetResolver
	logger *slog.Logger
}

var _ ports.BodyTransformer = (*Transformer)(nil)

// New wires the asset resolver used for every discovered image reference.
func New(assets ports.AssetResolver, logger *slog.Logger) *Transformer {
	return &Transformer{assets: assets, logger: logger}
}

// Transform tokenizes the input by block-level boundaries. Text between
// boundaries accumulates into the open block and is flushed, entity-decoded,
// when the boundary closes; images emit in place. Empty input yields an
// empty sequence.
func (t *Transformer) Transform(ctx context.Context, rawHTML string) ([]domain.ContentBlock, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse body html: %w", err)
	}

	body := doc.Find("body")
	if len(body.Nodes) == 0 {
		return nil, nil
	}

	w := &walker{ctx: ctx, assets: t.assets, logger: t.logger}
	for c := body.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		w.walkBlock(c)
	}
	// Trailing content after the last closing tag.
	w.flushText(textBlock(domain.StyleNormal))

	return w.blocks, nil
}

// walker is the block-boundary state machine: accumulated literal text plus
// the blocks emitted so far.
type walker struct {
	ctx    context.Context
	assets ports.AssetResolver
	logger *slog.Logger
	blocks []domain.ContentBlock
	text   strings.Builder
}

func (w *walker) walkBlock(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text.WriteString(n.Data)
	case html.ElementNode:
		if skippedWrapper(n) {
			return
		}
		switch n.Data {
		case "p":
			w.flushText(textBlock(domain.StyleNormal))
			w.collect(n, textBlock(domain.StyleNormal))
			w.flushText(textBlock(domain.StyleNormal))
		case "h1", "h2", "h3", "h4", "h5", "h6":
			style := headingStyles[n.Data]
			w.flushText(textBlock(domain.StyleNormal))
			w.collect(n, textBlock(style))
			w.flushText(textBlock(style))
		case "blockquote":
			w.flushText(textBlock(domain.StyleNormal))
			w.collect(n, textBlock(domain.StyleQuote))
			w.flushText(textBlock(domain.StyleQuote))
		case "ul", "ol":
			w.flushText(textBlock(domain.StyleNormal))
			w.walkList(n, n.Data == "ol")
		case "figure":
			w.flushText(textBlock(domain.StyleNormal))
			w.walkFigure(n)
		case "img":
			w.flushText(textBlock(domain.StyleNormal))
			w.emitImage(n, "")
		case "br":
			w.text.WriteString("\n")
		case "script", "style", "noscript", "iframe", "form", "template":
			// never content
		default:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				w.walkBlock(c)
			}
		}
	}
}

// collect gathers inline content beneath a block boundary. An inline image
// splits the open block: accumulated text flushes first, then the image
// emits, and any remainder keeps accumulating for the closing flush.
func (w *walker) collect(n *html.Node, emit func(string) domain.ContentBlock) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			w.text.WriteString(c.Data)
		case html.ElementNode:
			if skippedWrapper(c) {
				continue
			}
			switch c.Data {
			case "img":
				w.flushText(emit)
				w.emitImage(c, "")
			case "figure":
				w.flushText(emit)
				w.walkFigure(c)
			case "br":
				w.text.WriteString("\n")
			case "ul", "ol":
				w.flushText(emit)
				w.walkList(c, c.Data == "ol")
			case "p", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "div":
				// Nested block boundaries flush on both sides so text
				// from adjacent paragraphs never concatenates.
				w.flushText(emit)
				w.collect(c, emit)
				w.flushText(emit)
			case "script", "style", "noscript", "iframe":
				// skip
			default:
				w.collect(c, emit)
			}
		}
	}
}

func (w *walker) walkList(n *html.Node, ordered bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		w.collect(c, listItemBlock(ordered))
		w.flushText(listItemBlock(ordered))
	}
}

func (w *walker) walkFigure(n *html.Node) {
	img := findElement(n, "img")
	if img == nil {
		return
	}
	caption := ""
	if fc := findElement(n, "figcaption"); fc != nil {
		caption = strings.TrimSpace(nodeText(fc))
	}
	w.emitImage(img, caption)
}

func (w *walker) emitImage(n *html.Node, caption string) {
	src := attr(n, "src")
	if src == "" {
		return
	}
	if deniedImage(src) {
		w.logger.Debug("skipping denylisted image", "src", src)
		return
	}
	if caption == "" {
		caption = strings.TrimSpace(attr(n, "alt"))
	}

	assetID, ok := w.assets.Resolve(w.ctx, src)
	if !ok {
		w.logger.Warn("image omitted, asset resolution failed", "src", src)
		return
	}
	w.blocks = append(w.blocks, domain.NewImageBlock(uuid.NewString(), assetID, caption))
}

// flushText decodes and trims the accumulated literal text and emits one
// block; whitespace-only text never produces a block.
func (w *walker) flushText(emit func(string) domain.ContentBlock) {
	text := strings.TrimSpace(w.text.String())
	w.text.Reset()
	if text == "" {
		return
	}
	w.blocks = append(w.blocks, emit(text))
}

func textBlock(style domain.BlockStyle) func(string) domain.ContentBlock {
	return func(text string) domain.ContentBlock {
		return domain.NewTextBlock(uuid.NewString(), style, text)
	}
}

func listItemBlock(ordered bool) func(string) domain.ContentBlock {
	return func(text string) domain.ContentBlock {
		return domain.NewListItemBlock(uuid.NewString(), ordered, text)
	}
}

func skippedWrapper(n *html.Node) bool {
	class := strings.ToLower(attr(n, "class"))
	if class == "" {
		return false
	}
	for _, fragment := range wrapperDenylist {
		if strings.Contains(class, fragment) {
			return true
		}
	}
	return false
}

func deniedImage(src string) bool {
	lowered := strings.ToLower(src)
	for _, fragment := range imageDenylist {
		if strings.Contains(lowered, fragment) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}
