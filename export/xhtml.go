// Package export renders a page's block sequence to a standalone XHTML
// document: a readable dump for the CLI export command and for eyeballing
// test fixtures.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/beevik/etree"
	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"blockpad/block"
)

// pageShell wraps the rendered body. Body is injected pre-serialized, the
// template only owns the html/head scaffolding.
const pageShell = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
<meta http-equiv="Content-Type" content="text/html; charset=utf-8"/>
<meta name="generator" content="{{ .Generator }}"/>
<meta name="date" content="{{ .Date }}"/>
<title>{{ .Title | default "Untitled" }}</title>
</head>
{{ .Body }}
</html>
`

type shellValues struct {
	Title     string
	Generator string
	Date      string
	Body      string
}

// WriteXHTML renders the block sequence as one XHTML page.
func WriteXHTML(w io.Writer, title string, blocks []*block.Block, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	body, err := renderBody(blocks, log)
	if err != nil {
		return err
	}

	tmpl, err := template.New("page").Funcs(sprig.FuncMap()).Parse(pageShell)
	if err != nil {
		return fmt.Errorf("unable to parse page shell: %w", err)
	}
	return tmpl.Execute(w, shellValues{
		Title:     title,
		Generator: "blockpad",
		Date:      time.Now().Format("2006-01-02"),
		Body:      body,
	})
}

// renderBody builds the body element tree and serializes it indented.
func renderBody(blocks []*block.Block, log *zap.Logger) (string, error) {
	doc := etree.NewDocument()
	body := doc.CreateElement("body")

	anchors := headingAnchors(blocks)

	for i := 0; i < len(blocks); i++ {
		b := blocks[i]
		if b.Paired() && i+1 < len(blocks) && blocks[i+1].PairID == b.PairID {
			pair := body.CreateElement("div")
			pair.CreateAttr("class", "pair")
			appendBlock(pair.CreateElement("div"), b, blocks, anchors, log)
			appendBlock(pair.CreateElement("div"), blocks[i+1], blocks, anchors, log)
			for _, cell := range pair.ChildElements() {
				cell.CreateAttr("class", "pair-cell")
			}
			i++
			continue
		}
		appendBlock(body, b, blocks, anchors, log)
	}

	doc.Indent(2)
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("unable to serialize body: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// headingAnchors assigns a stable slug anchor to every heading block,
// deduplicating repeated titles with a numeric suffix.
func headingAnchors(blocks []*block.Block) map[string]string {
	anchors := make(map[string]string)
	seen := make(map[string]int)
	for _, b := range blocks {
		if b.Type != block.BlockTypeHeading || b.Text == nil {
			continue
		}
		anchor := slug.Make(b.Text.Text)
		if anchor == "" {
			anchor = "heading"
		}
		seen[anchor]++
		if n := seen[anchor]; n > 1 {
			anchor = fmt.Sprintf("%s-%d", anchor, n)
		}
		anchors[b.ID] = anchor
	}
	return anchors
}

func appendBlock(parent *etree.Element, b *block.Block, all []*block.Block, anchors map[string]string, log *zap.Logger) {
	switch b.Type {

	case block.BlockTypeParagraph:
		parent.CreateElement("p").SetText(textOf(b))

	case block.BlockTypeHeading:
		level := 1
		if b.Text != nil {
			level = min(max(b.Text.Level, 1), 6)
		}
		h := parent.CreateElement(fmt.Sprintf("h%d", level))
		h.CreateAttr("id", anchors[b.ID])
		h.SetText(textOf(b))

	case block.BlockTypeBlockquote:
		parent.CreateElement("blockquote").CreateElement("p").SetText(textOf(b))

	case block.BlockTypeCallout:
		div := parent.CreateElement("div")
		div.CreateAttr("class", "callout")
		if b.Text != nil && b.Text.Icon != "" {
			icon := div.CreateElement("span")
			icon.CreateAttr("class", "callout-icon")
			icon.SetText(b.Text.Icon)
		}
		div.CreateElement("p").SetText(textOf(b))

	case block.BlockTypeCodeBlock:
		code := parent.CreateElement("pre").CreateElement("code")
		if b.Text != nil && b.Text.Language != "" {
			code.CreateAttr("class", "language-"+b.Text.Language)
		}
		code.SetText(textOf(b))

	case block.BlockTypeBulletList, block.BlockTypeNumberedList, block.BlockTypeTaskList:
		appendList(parent, b)

	case block.BlockTypeDefinitionList:
		appendDefinitionList(parent, b)

	case block.BlockTypeImage:
		appendImage(parent, b)

	case block.BlockTypeTable:
		appendTable(parent, b)

	case block.BlockTypeFootnote:
		aside := parent.CreateElement("aside")
		aside.CreateAttr("class", "footnote")
		aside.CreateElement("p").SetText(textOf(b))

	case block.BlockTypeHorizontalRule:
		parent.CreateElement("hr")

	case block.BlockTypeTableOfContents:
		appendTOC(parent, all, anchors)

	default:
		log.Warn("Skipping block of unknown type", zap.String("id", b.ID), zap.String("type", string(b.Type)))
	}
}

func textOf(b *block.Block) string {
	if b.Text == nil {
		return ""
	}
	return b.Text.Text
}

func appendList(parent *etree.Element, b *block.Block) {
	if b.List == nil {
		return
	}
	tag := "ul"
	if b.Type == block.BlockTypeNumberedList {
		tag = "ol"
	}
	list := parent.CreateElement(tag)
	if b.Type == block.BlockTypeTaskList {
		list.CreateAttr("class", "task-list")
	}
	appendListLevel(list, b, b.List.Roots, tag)
}

func appendListLevel(parent *etree.Element, b *block.Block, ids []string, tag string) {
	for _, id := range ids {
		item := b.List.Item(id)
		if item == nil {
			continue
		}
		li := parent.CreateElement("li")
		if b.Type == block.BlockTypeTaskList && item.Checked {
			li.CreateAttr("class", "checked")
		}
		li.SetText(item.Text)
		if len(item.Children) > 0 {
			appendListLevel(li.CreateElement(tag), b, item.Children, tag)
		}
	}
}

// appendDefinitionList renders root items as terms and their children as
// definitions.
func appendDefinitionList(parent *etree.Element, b *block.Block) {
	if b.List == nil {
		return
	}
	dl := parent.CreateElement("dl")
	for _, id := range b.List.Roots {
		term := b.List.Item(id)
		if term == nil {
			continue
		}
		dl.CreateElement("dt").SetText(term.Text)
		for _, cid := range term.Children {
			if def := b.List.Item(cid); def != nil {
				dl.CreateElement("dd").SetText(def.Text)
			}
		}
	}
}

func appendImage(parent *etree.Element, b *block.Block) {
	if b.Image == nil {
		return
	}
	figure := parent.CreateElement("figure")
	if b.Image.Align != "" {
		figure.CreateAttr("class", "align-"+string(b.Image.Align))
	}
	img := figure.CreateElement("img")
	img.CreateAttr("src", b.Image.URL)
	img.CreateAttr("alt", b.Image.Alt)
	if b.Image.Width != nil {
		img.CreateAttr("width", fmt.Sprintf("%d", *b.Image.Width))
	}
}

func appendTable(parent *etree.Element, b *block.Block) {
	if b.Table == nil {
		return
	}
	tableElem := parent.CreateElement("table")
	if b.Table.AlternatingRows {
		tableElem.CreateAttr("class", "alternating")
	}

	if widths := b.Table.ColumnWidths; len(widths) == len(b.Table.Columns) {
		var total float64
		for _, w := range widths {
			total += w
		}
		if total > 0 {
			colgroup := tableElem.CreateElement("colgroup")
			for _, w := range widths {
				col := colgroup.CreateElement("col")
				col.CreateAttr("style", fmt.Sprintf("width: %.0f%%", w/total*100))
			}
		}
	}

	if b.Table.ShowHeader && b.Table.HeaderRow != nil {
		tr := tableElem.CreateElement("thead").CreateElement("tr")
		for _, cell := range b.Table.HeaderRow.Cells {
			tr.CreateElement("th").SetText(cell.Text)
		}
	}
	tbody := tableElem.CreateElement("tbody")
	for _, row := range b.Table.Rows {
		tr := tbody.CreateElement("tr")
		for i, cell := range row.Cells {
			td := tr.CreateElement("td")
			if i < len(b.Table.Columns) && b.Table.Columns[i].Align != "" {
				td.CreateAttr("style", "text-align: "+string(b.Table.Columns[i].Align))
			}
			td.SetText(cell.Text)
		}
	}
}

// appendTOC renders the list of heading anchors collected from the whole
// document.
func appendTOC(parent *etree.Element, all []*block.Block, anchors map[string]string) {
	nav := parent.CreateElement("nav")
	nav.CreateAttr("class", "toc")
	ul := nav.CreateElement("ul")
	for _, b := range all {
		anchor, ok := anchors[b.ID]
		if !ok {
			continue
		}
		a := ul.CreateElement("li").CreateElement("a")
		a.CreateAttr("href", "#"+anchor)
		a.SetText(textOf(b))
	}
}
