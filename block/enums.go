package block

// Specification of block content type.
// ENUM(paragraph, heading, blockquote, callout, bullet-list, numbered-list, task-list, image, code-block, table, footnote, definition-list, horizontal-rule, table-of-contents)
type BlockType string

// HasText reports whether blocks of this type carry a text payload.
func (t BlockType) HasText() bool {
	switch t {
	case BlockTypeParagraph, BlockTypeHeading, BlockTypeBlockquote, BlockTypeCallout, BlockTypeCodeBlock, BlockTypeFootnote:
		return true
	default:
		return false
	}
}

// HasList reports whether blocks of this type carry a list item tree.
func (t BlockType) HasList() bool {
	switch t {
	case BlockTypeBulletList, BlockTypeNumberedList, BlockTypeTaskList, BlockTypeDefinitionList:
		return true
	default:
		return false
	}
}

// Pairable reports whether blocks of this type may be placed side by side
// with another block.
func (t BlockType) Pairable() bool {
	switch t {
	case BlockTypeTable, BlockTypeHorizontalRule, BlockTypeFootnote:
		return false
	default:
		return true
	}
}

// Specification of block layout.
// ENUM(normal, side-by-side)
type Layout string

// Specification of horizontal alignment for images and table columns.
// ENUM(left, center, right)
type Align string
