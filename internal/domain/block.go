package domain

// BlockStyle matches the content store's portable-text style names.
type BlockStyle string

const (
	StyleNormal BlockStyle = "normal"
	StyleH1     BlockStyle = "h1"
	StyleH2     BlockStyle = "h2"
	StyleH3     BlockStyle = "h3"
	StyleH4     BlockStyle = "h4"
	StyleH5     BlockStyle = "h5"
	StyleH6     BlockStyle = "h6"
	StyleQuote  BlockStyle = "blockquote"
)

// BlockType tags the ContentBlock variant.
type BlockType string

const (
	BlockText     BlockType = "text"
	BlockListItem BlockType = "listItem"
	BlockImage    BlockType = "image"
)

// ContentBlock is one unit of an article body. Which fields are meaningful
// depends on Type: text and list items carry Style/Text (plus Ordered for
// list items), images carry AssetID and an optional Caption. Order within a
// body is significant and reproduces source reading order.
type ContentBlock struct {
	Key     string
	Type    BlockType
	Style   BlockStyle
	Text    string
	Ordered bool
	AssetID string
	Caption string
}

// NewTextBlock builds a text block with a fresh key.
func NewTextBlock(key string, style BlockStyle, text string) ContentBlock {
	return ContentBlock{Key: key, Type: BlockText, Style: style, Text: text}
}

// NewListItemBlock builds a list-item block with the enclosing list's kind.
func NewListItemBlock(key string, ordered bool, text string) ContentBlock {
	return ContentBlock{Key: key, Type: BlockListItem, Style: StyleNormal, Text: text, Ordered: ordered}
}

// NewImageBlock builds an image block referencing an uploaded asset.
func NewImageBlock(key, assetID, caption string) ContentBlock {
	return ContentBlock{Key: key, Type: BlockImage, AssetID: assetID, Caption: caption}
}

// CountImages reports how many image blocks a body contains.
func CountImages(blocks []ContentBlock) int {
	n := 0
	for _, b := range blocks {
		if b.Type == BlockImage {
			n++
		}
	}
	return n
}
