package block

import "strings"

// Nested list items are kept in an arena indexed by item id with parent id
// back-references and ordered child id lists per node. Reparenting on
// indent/outdent happens by id lookup, never through live pointers.

// ListContent is the payload of bullet, numbered, task and definition lists.
type ListContent struct {
	Items map[string]*ListItem `json:"items"`
	Roots []string             `json:"roots"`
}

// ListItem is one entry of a list tree. Parent is empty for root items.
// Checked is meaningful for task lists only.
type ListItem struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Checked  bool     `json:"checked,omitempty"`
	Parent   string   `json:"parent,omitempty"`
	Children []string `json:"children,omitempty"`
}

// Item looks an item up by id, nil when absent.
func (lc *ListContent) Item(id string) *ListItem {
	if lc == nil || lc.Items == nil {
		return nil
	}
	return lc.Items[id]
}

// AddRoot appends a new root level item and returns it.
func (lc *ListContent) AddRoot(text string) *ListItem {
	return lc.AddChild("", text)
}

// AddChild appends a new item under parent (root level when parent is empty)
// and returns it. Unknown parent returns nil.
func (lc *ListContent) AddChild(parent, text string) *ListItem {
	if lc.Items == nil {
		lc.Items = make(map[string]*ListItem)
	}
	if parent != "" && lc.Items[parent] == nil {
		return nil
	}
	item := &ListItem{
		ID:     NewID(),
		Text:   NormalizeText(text),
		Parent: parent,
	}
	lc.Items[item.ID] = item
	if parent == "" {
		lc.Roots = append(lc.Roots, item.ID)
	} else {
		p := lc.Items[parent]
		p.Children = append(p.Children, item.ID)
	}
	return item
}

// siblings returns the ordered id list the item currently lives in.
func (lc *ListContent) siblings(item *ListItem) []string {
	if item.Parent == "" {
		return lc.Roots
	}
	if p := lc.Items[item.Parent]; p != nil {
		return p.Children
	}
	return nil
}

func (lc *ListContent) setSiblings(parent string, ids []string) {
	if parent == "" {
		lc.Roots = ids
		return
	}
	if p := lc.Items[parent]; p != nil {
		p.Children = ids
	}
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// Indent moves the item one level deeper: it becomes the last child of its
// previous sibling. Reports whether anything changed - an item with no
// previous sibling stays where it is.
func (lc *ListContent) Indent(id string) bool {
	item := lc.Item(id)
	if item == nil {
		return false
	}
	sibs := lc.siblings(item)
	pos := indexOf(sibs, id)
	if pos <= 0 {
		// first among siblings, nothing to indent under
		return false
	}
	newParent := lc.Items[sibs[pos-1]]
	if newParent == nil {
		return false
	}
	lc.setSiblings(item.Parent, append(sibs[:pos:pos], sibs[pos+1:]...))
	item.Parent = newParent.ID
	newParent.Children = append(newParent.Children, id)
	return true
}

// Outdent moves the item one level shallower: it is reinserted right after
// its current parent among the parent's siblings, keeping its own subtree.
// Outdenting a root level item is a no-op.
func (lc *ListContent) Outdent(id string) bool {
	item := lc.Item(id)
	if item == nil || item.Parent == "" {
		return false
	}
	parent := lc.Items[item.Parent]
	if parent == nil {
		return false
	}
	pos := indexOf(parent.Children, id)
	if pos < 0 {
		return false
	}
	parent.Children = append(parent.Children[:pos:pos], parent.Children[pos+1:]...)

	upper := lc.siblings(parent)
	ppos := indexOf(upper, parent.ID)
	out := make([]string, 0, len(upper)+1)
	out = append(out, upper[:ppos+1]...)
	out = append(out, id)
	out = append(out, upper[ppos+1:]...)
	lc.setSiblings(parent.Parent, out)
	item.Parent = parent.Parent
	return true
}

// Walk visits the tree depth first in display order.
func (lc *ListContent) Walk(visit func(item *ListItem, depth int)) {
	if lc == nil {
		return
	}
	var rec func(ids []string, depth int)
	rec = func(ids []string, depth int) {
		for _, id := range ids {
			item := lc.Items[id]
			if item == nil {
				continue
			}
			visit(item, depth)
			rec(item.Children, depth+1)
		}
	}
	rec(lc.Roots, 0)
}

// AsPlainText extracts the text of all items in display order.
func (lc *ListContent) AsPlainText() string {
	var buf strings.Builder
	lc.Walk(func(item *ListItem, _ int) {
		joinNonEmpty(&buf, strings.TrimSpace(item.Text))
	})
	return buf.String()
}
