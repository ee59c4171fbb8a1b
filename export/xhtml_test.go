package export

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"blockpad/block"
)

func render(t *testing.T, blocks []*block.Block) string {
	t.Helper()
	var sb strings.Builder
	if err := WriteXHTML(&sb, "Test page", blocks, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("render: %v", err)
	}
	return sb.String()
}

func TestWriteXHTMLShell(t *testing.T) {
	out := render(t, []*block.Block{block.NewTextBlock(block.BlockTypeParagraph, "Hello")})

	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<title>Test page</title>`,
		`<p>Hello</p>`,
		`</html>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output misses %q:\n%s", want, out)
		}
	}
}

func TestWriteXHTMLEmptyTitleFallsBack(t *testing.T) {
	var sb strings.Builder
	if err := WriteXHTML(&sb, "", nil, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(sb.String(), "<title>Untitled</title>") {
		t.Fatal("empty title must fall back to Untitled")
	}
}

func TestHeadingAnchorsAreDeduplicated(t *testing.T) {
	out := render(t, []*block.Block{
		block.NewHeading(1, "Setup"),
		block.NewHeading(2, "Setup"),
		block.NewHeading(2, "Usage"),
	})

	for _, want := range []string{`id="setup"`, `id="setup-2"`, `id="usage"`, "<h1", "<h2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output misses %q:\n%s", want, out)
		}
	}
}

func TestTableOfContentsListsHeadings(t *testing.T) {
	out := render(t, []*block.Block{
		{ID: block.NewID(), Type: block.BlockTypeTableOfContents, Layout: block.LayoutNormal},
		block.NewHeading(1, "One"),
		block.NewHeading(1, "Two"),
	})

	for _, want := range []string{`class="toc"`, `href="#one"`, `href="#two"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output misses %q:\n%s", want, out)
		}
	}
}

func TestSideBySidePairRendersOneRow(t *testing.T) {
	a := block.NewTextBlock(block.BlockTypeParagraph, "left")
	b := block.NewTextBlock(block.BlockTypeParagraph, "right")
	a.Layout, b.Layout = block.LayoutSideBySide, block.LayoutSideBySide
	a.PairID, b.PairID = "pp", "pp"

	out := render(t, []*block.Block{a, b})
	if strings.Count(out, `class="pair"`) != 1 {
		t.Fatalf("expected one pair row:\n%s", out)
	}
	if strings.Count(out, `class="pair-cell"`) != 2 {
		t.Fatalf("expected two pair cells:\n%s", out)
	}
}

func TestListRendering(t *testing.T) {
	b := block.NewList(block.BlockTypeTaskList)
	done := b.List.AddRoot("done")
	done.Checked = true
	open := b.List.AddRoot("open")
	b.List.AddChild(open.ID, "nested")

	out := render(t, []*block.Block{b})
	for _, want := range []string{`class="task-list"`, `<li class="checked">done`, "<li>open", "<li>nested</li>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output misses %q:\n%s", want, out)
		}
	}
}

func TestTableRendering(t *testing.T) {
	b := block.NewTable(2, 1)
	b.Table.Columns[1].Align = block.AlignRight
	b.Table.Rows[0].Cells[0].Text = "a"
	b.Table.Rows[0].Cells[1].Text = "b"

	out := render(t, []*block.Block{b})
	for _, want := range []string{"<colgroup>", `width: 50%`, `style="text-align: right">b</td>`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output misses %q:\n%s", want, out)
		}
	}
}

func TestImageRendering(t *testing.T) {
	b := block.NewImage("http://example.com/pic.png", "a picture")
	w := 200
	b.Image.Width = &w
	b.Image.Align = block.AlignCenter

	out := render(t, []*block.Block{b})
	for _, want := range []string{`class="align-center"`, `src="http://example.com/pic.png"`, `width="200"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output misses %q:\n%s", want, out)
		}
	}
}

func TestCodeBlockLanguage(t *testing.T) {
	b := block.NewTextBlock(block.BlockTypeCodeBlock, "fmt.Println()")
	b.Text.Language = "go"

	out := render(t, []*block.Block{b})
	if !strings.Contains(out, `class="language-go"`) {
		t.Fatalf("output misses the language class:\n%s", out)
	}
}
