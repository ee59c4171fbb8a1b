// Package paste converts clipboard HTML fragments into block sequences.
// Every produced block carries freshly generated ids, so imported content
// can never collide with blocks the document already has.
package paste

import (
	"fmt"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"blockpad/block"
)

// Fragment parses an HTML fragment into blocks. Unknown elements fall
// through to their children, so wrapper divs and spans never block the
// import.
func Fragment(fragment string, log *zap.Logger) ([]*block.Block, error) {
	if log == nil {
		log = zap.NewNop()
	}
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("unable to parse pasted fragment: %w", err)
	}

	im := &importer{log: log.Named("paste")}
	im.walk(findBody(doc))
	return im.blocks, nil
}

type importer struct {
	log    *zap.Logger
	blocks []*block.Block
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}

func (im *importer) walk(n *html.Node) {
	if n == nil {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		im.node(c)
	}
}

func (im *importer) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		// bare text between elements becomes its own paragraph
		if text := strings.TrimSpace(n.Data); text != "" {
			im.append(block.NewTextBlock(block.BlockTypeParagraph, text))
		}
	case html.ElementNode:
		im.element(n)
	}
}

func (im *importer) element(n *html.Node) {
	switch n.DataAtom {

	case atom.P:
		if text := inlineText(n); text != "" {
			im.append(block.NewTextBlock(block.BlockTypeParagraph, text))
		}

	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		im.append(block.NewHeading(level, inlineText(n)))

	case atom.Blockquote:
		if text := inlineText(n); text != "" {
			im.append(block.NewTextBlock(block.BlockTypeBlockquote, text))
		}

	case atom.Pre:
		im.append(codeBlock(n))

	case atom.Ul:
		im.append(listBlock(n, block.BlockTypeBulletList))

	case atom.Ol:
		im.append(listBlock(n, block.BlockTypeNumberedList))

	case atom.Table:
		im.append(im.tableBlock(n))

	case atom.Img:
		im.append(imageBlock(n))

	case atom.Hr:
		im.append(block.NewHorizontalRule())

	case atom.Script, atom.Style:
		// never content

	default:
		im.walk(n)
	}
}

func (im *importer) append(b *block.Block) {
	if b != nil {
		im.blocks = append(im.blocks, b)
	}
}

// inlineText flattens an element's text content. Line breaks survive as
// newlines, nested lists are excluded - they belong to the list builder.
func inlineText(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		switch {
		case c.Type == html.TextNode:
			sb.WriteString(c.Data)
		case c.Type == html.ElementNode && c.DataAtom == atom.Br:
			sb.WriteString("\n")
		case c.Type == html.ElementNode && (c.DataAtom == atom.Ul || c.DataAtom == atom.Ol):
			return
		default:
			for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
				visit(cc)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visit(c)
	}
	return strings.TrimSpace(sb.String())
}

func codeBlock(n *html.Node) *block.Block {
	b := block.NewTextBlock(block.BlockTypeCodeBlock, rawText(n))
	// language carried the highlight.js way: <pre><code class="language-go">
	if code := firstElement(n, atom.Code); code != nil {
		for _, class := range strings.Fields(attr(code, "class")) {
			if lang, ok := strings.CutPrefix(class, "language-"); ok {
				b.Text.Language = lang
				break
			}
		}
	}
	return b
}

// rawText keeps whitespace verbatim - code blocks lose their meaning
// trimmed.
func rawText(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			visit(cc)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visit(c)
	}
	return strings.Trim(sb.String(), "\n")
}

func listBlock(n *html.Node, typ block.BlockType) *block.Block {
	b := block.NewList(typ)
	addListLevel(b.List, "", n)
	if len(b.List.Roots) == 0 {
		return nil
	}
	return b
}

// addListLevel walks one ul/ol level, nesting lists found inside an li
// under that item.
func addListLevel(lc *block.ListContent, parent string, listNode *html.Node) {
	for li := listNode.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		item := lc.AddChild(parent, inlineText(li))
		if item == nil {
			continue
		}
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Ul || c.DataAtom == atom.Ol) {
				addListLevel(lc, item.ID, c)
			}
		}
	}
}

func (im *importer) tableBlock(n *html.Node) *block.Block {
	var header *block.TableRow
	var rows []block.TableRow
	aligns := make(map[int]block.Align)

	columns := 0
	for _, tr := range elements(n, atom.Tr) {
		var cells []block.TableCell
		headerCells := 0
		col := 0
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
				continue
			}
			if c.DataAtom == atom.Th {
				headerCells++
			}
			if align := im.textAlign(attr(c, "style")); align != "" {
				aligns[col] = align
			}
			cells = append(cells, block.TableCell{ID: block.NewID(), Text: inlineText(c)})
			col++
		}
		if len(cells) == 0 {
			continue
		}
		columns = max(columns, len(cells))
		row := block.TableRow{ID: block.NewID(), Cells: cells}
		if headerCells == len(cells) && header == nil && len(rows) == 0 {
			header = &row
			continue
		}
		rows = append(rows, row)
	}
	if columns == 0 {
		return nil
	}

	tc := &block.TableContent{
		Columns:      make([]block.ColumnSpec, columns),
		ColumnWidths: make([]float64, columns),
		ShowHeader:   header != nil,
		HeaderRow:    header,
		Rows:         rows,
	}
	for i := range tc.ColumnWidths {
		tc.ColumnWidths[i] = 1
	}
	for col, align := range aligns {
		if col < columns {
			tc.Columns[col].Align = align
		}
	}
	// ragged rows pad out to the widest one
	for i := range tc.Rows {
		for len(tc.Rows[i].Cells) < columns {
			tc.Rows[i].Cells = append(tc.Rows[i].Cells, block.TableCell{ID: block.NewID()})
		}
	}
	return &block.Block{ID: block.NewID(), Type: block.BlockTypeTable, Layout: block.LayoutNormal, Table: tc}
}

// textAlign extracts a text-align declaration from an inline style
// attribute.
func (im *importer) textAlign(style string) block.Align {
	if style == "" {
		return ""
	}
	p := css.NewParser(parse.NewInput(strings.NewReader(style)), true)
	for {
		gt, _, data := p.Next()
		if gt == css.ErrorGrammar {
			return ""
		}
		if gt != css.DeclarationGrammar || !strings.EqualFold(string(data), "text-align") {
			continue
		}
		for _, val := range p.Values() {
			align, err := block.ParseAlign(strings.ToLower(strings.TrimSpace(string(val.Data))))
			if err == nil {
				return align
			}
		}
		im.log.Debug("Ignoring unknown text-align value", zap.String("style", style))
		return ""
	}
}

func imageBlock(n *html.Node) *block.Block {
	src := attr(n, "src")
	if src == "" {
		return nil
	}
	b := block.NewImage(src, attr(n, "alt"))
	if w, err := strconv.Atoi(attr(n, "width")); err == nil && w > 0 {
		b.Image.Width = &w
	}
	return b
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func firstElement(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if found := firstElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func elements(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
			return
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			visit(cc)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visit(c)
	}
	return out
}
