// Package block defines the in-memory model of one page: an ordered sequence
// of typed blocks with their payloads. This is the wire shape shared with the
// plugin - everything here marshals to the JSON the backend understands.
package block

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// PageID is an opaque page identity assigned by the plugin.
type PageID string

// Block is a single unit of page content. Exactly one payload field is
// non-nil and which one is determined by Type. PairID is set only when
// Layout is side-by-side and is shared by exactly two adjacent blocks.
type Block struct {
	ID     string        `json:"id"`
	Type   BlockType     `json:"type"`
	Layout Layout        `json:"layout,omitempty"`
	PairID string        `json:"pair_id,omitempty"`
	Text   *TextContent  `json:"text,omitempty"`
	List   *ListContent  `json:"list,omitempty"`
	Table  *TableContent `json:"table,omitempty"`
	Image  *ImageContent `json:"image,omitempty"`
}

// TextContent is the payload of paragraph-like blocks. Level is meaningful
// for headings (1..6), Icon for callouts and Language for code blocks.
type TextContent struct {
	Text     string `json:"text"`
	Level    int    `json:"level,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Language string `json:"language,omitempty"`
}

// ImageContent is the payload of image blocks. Width nil means natural size.
// NaturalWidth/NaturalHeight are derived from the fetched bytes and never
// travel to the backend.
type ImageContent struct {
	URL   string `json:"url"`
	Alt   string `json:"alt,omitempty"`
	Width *int   `json:"width,omitempty"`
	Align Align  `json:"align,omitempty"`

	NaturalWidth  int `json:"natural_width,omitempty"`
	NaturalHeight int `json:"natural_height,omitempty"`
}

// Paired reports whether the block is a member of a side-by-side pair.
func (b *Block) Paired() bool {
	return b.Layout == LayoutSideBySide && b.PairID != ""
}

// PlainText returns the block's text payload when it has one.
func (b *Block) PlainText() string {
	switch {
	case b.Text != nil:
		return b.Text.Text
	case b.List != nil:
		return b.List.AsPlainText()
	case b.Table != nil:
		return b.Table.AsPlainText()
	case b.Image != nil:
		return b.Image.Alt
	}
	return ""
}

// NewID generates a fresh identifier for blocks, list items, table rows and
// cells and pair links. IDs are never reused.
func NewID() string {
	return uuid.NewString()
}

// NormalizeText brings user supplied text to NFC form. Every text write into
// the model goes through this, so comparisons and split offsets are stable.
func NormalizeText(s string) string {
	return norm.NFC.String(s)
}

// NewTextBlock creates a block of a text-carrying type seeded with text.
// Returns nil for types that do not carry a text payload.
func NewTextBlock(typ BlockType, text string) *Block {
	if !typ.HasText() {
		return nil
	}
	b := &Block{
		ID:     NewID(),
		Type:   typ,
		Layout: LayoutNormal,
		Text:   &TextContent{Text: NormalizeText(text)},
	}
	if typ == BlockTypeHeading {
		b.Text.Level = 1
	}
	return b
}

// NewHeading creates a heading block clamping level into 1..6.
func NewHeading(level int, text string) *Block {
	b := NewTextBlock(BlockTypeHeading, text)
	b.Text.Level = min(max(level, 1), 6)
	return b
}

// NewImage creates an image block with natural size.
func NewImage(url, alt string) *Block {
	return &Block{
		ID:     NewID(),
		Type:   BlockTypeImage,
		Layout: LayoutNormal,
		Image:  &ImageContent{URL: url, Alt: alt},
	}
}

// NewList creates an empty list block of the given list type.
// Returns nil for non-list types.
func NewList(typ BlockType) *Block {
	if !typ.HasList() {
		return nil
	}
	return &Block{
		ID:     NewID(),
		Type:   typ,
		Layout: LayoutNormal,
		List:   &ListContent{Items: make(map[string]*ListItem)},
	}
}

// NewHorizontalRule creates a rule block. It carries no payload.
func NewHorizontalRule() *Block {
	return &Block{ID: NewID(), Type: BlockTypeHorizontalRule, Layout: LayoutNormal}
}

// Validate reports whether the block is well formed: non-empty id, known
// type and the payload matching the type. Blocks failing validation are
// skipped on load and merge.
func (b *Block) Validate() bool {
	if b == nil || b.ID == "" || !b.Type.IsValid() {
		return false
	}
	switch {
	case b.Type.HasText():
		return b.Text != nil
	case b.Type.HasList():
		return b.List != nil
	case b.Type == BlockTypeTable:
		return b.Table != nil
	case b.Type == BlockTypeImage:
		return b.Image != nil
	default:
		// horizontal-rule and table-of-contents carry no payload
		return true
	}
}

func joinNonEmpty(buf *strings.Builder, text string) {
	if text == "" {
		return
	}
	if buf.Len() > 0 {
		buf.WriteString(" ")
	}
	buf.WriteString(text)
}
