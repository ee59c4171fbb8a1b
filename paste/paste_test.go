package paste

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"blockpad/block"
)

func fragment(t *testing.T, html string) []*block.Block {
	t.Helper()
	blocks, err := Fragment(html, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("fragment: %v", err)
	}
	return blocks
}

func TestFragmentBasicElements(t *testing.T) {
	blocks := fragment(t, `
		<h2>Title</h2>
		<p>First paragraph</p>
		<blockquote>quoted</blockquote>
		<hr>
		<img src="http://example.com/a.png" alt="pic" width="120">
	`)

	if len(blocks) != 5 {
		t.Fatalf("got %d blocks", len(blocks))
	}
	if blocks[0].Type != block.BlockTypeHeading || blocks[0].Text.Level != 2 || blocks[0].Text.Text != "Title" {
		t.Fatalf("heading: %+v", blocks[0])
	}
	if blocks[1].Type != block.BlockTypeParagraph || blocks[1].Text.Text != "First paragraph" {
		t.Fatalf("paragraph: %+v", blocks[1])
	}
	if blocks[2].Type != block.BlockTypeBlockquote {
		t.Fatalf("blockquote: %+v", blocks[2])
	}
	if blocks[3].Type != block.BlockTypeHorizontalRule {
		t.Fatalf("rule: %+v", blocks[3])
	}
	img := blocks[4]
	if img.Type != block.BlockTypeImage || img.Image.Alt != "pic" || img.Image.Width == nil || *img.Image.Width != 120 {
		t.Fatalf("image: %+v", img)
	}
}

func TestFragmentUnknownElementsFallThrough(t *testing.T) {
	blocks := fragment(t, `<div><section><p>wrapped</p></section></div>`)
	if len(blocks) != 1 || blocks[0].Text.Text != "wrapped" {
		t.Fatalf("blocks: %+v", blocks)
	}
}

func TestFragmentNestedList(t *testing.T) {
	blocks := fragment(t, `
		<ul>
			<li>one</li>
			<li>two
				<ol>
					<li>two-a</li>
					<li>two-b</li>
				</ol>
			</li>
		</ul>
	`)

	if len(blocks) != 1 || blocks[0].Type != block.BlockTypeBulletList {
		t.Fatalf("blocks: %+v", blocks)
	}
	lc := blocks[0].List
	if len(lc.Roots) != 2 {
		t.Fatalf("roots: %v", lc.Roots)
	}
	two := lc.Item(lc.Roots[1])
	if two.Text != "two" || len(two.Children) != 2 {
		t.Fatalf("nested item: %+v", two)
	}
	if lc.Item(two.Children[0]).Text != "two-a" {
		t.Fatalf("child: %+v", lc.Item(two.Children[0]))
	}
}

func TestFragmentCodeBlock(t *testing.T) {
	blocks := fragment(t, "<pre><code class=\"language-go\">package main\n\nfunc main() {}</code></pre>")
	if len(blocks) != 1 || blocks[0].Type != block.BlockTypeCodeBlock {
		t.Fatalf("blocks: %+v", blocks)
	}
	if blocks[0].Text.Language != "go" {
		t.Fatalf("language: %q", blocks[0].Text.Language)
	}
	if blocks[0].Text.Text != "package main\n\nfunc main() {}" {
		t.Fatalf("code text: %q", blocks[0].Text.Text)
	}
}

func TestFragmentTable(t *testing.T) {
	blocks := fragment(t, `
		<table>
			<tr><th>Name</th><th>Count</th></tr>
			<tr><td>apples</td><td style="text-align: right">3</td></tr>
			<tr><td>pears</td><td>5</td></tr>
		</table>
	`)

	if len(blocks) != 1 || blocks[0].Type != block.BlockTypeTable {
		t.Fatalf("blocks: %+v", blocks)
	}
	tc := blocks[0].Table
	if !tc.ShowHeader || tc.HeaderRow == nil || tc.HeaderRow.Cells[0].Text != "Name" {
		t.Fatalf("header: %+v", tc.HeaderRow)
	}
	if len(tc.Rows) != 2 || tc.Rows[0].Cells[1].Text != "3" {
		t.Fatalf("rows: %+v", tc.Rows)
	}
	if tc.Columns[1].Align != block.AlignRight {
		t.Fatalf("column align: %+v", tc.Columns)
	}
}

func TestFragmentGeneratesFreshIDs(t *testing.T) {
	first := fragment(t, `<p>same</p>`)
	second := fragment(t, `<p>same</p>`)
	if first[0].ID == second[0].ID {
		t.Fatal("imports must never share ids")
	}
}

func TestFragmentEmptyInput(t *testing.T) {
	if blocks := fragment(t, "   "); len(blocks) != 0 {
		t.Fatalf("blocks from whitespace: %+v", blocks)
	}
}
