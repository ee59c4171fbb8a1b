package placement

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"blockpad/block"
	"blockpad/config"
	"blockpad/shadow"
)

// three stacked paragraphs, 100 wide, 40 tall each
func stack() []Target {
	return []Target{
		{BlockID: "b1", Type: block.BlockTypeParagraph, Bounds: Rect{X: 0, Y: 0, W: 100, H: 40}},
		{BlockID: "b2", Type: block.BlockTypeParagraph, Bounds: Rect{X: 0, Y: 40, W: 100, H: 40}},
		{BlockID: "b3", Type: block.BlockTypeParagraph, Bounds: Rect{X: 0, Y: 80, W: 100, H: 40}},
	}
}

func TestResolveBeforeAfter(t *testing.T) {
	s := NewSession("drag", block.BlockTypeParagraph, Point{})

	cases := []struct {
		name string
		p    Point
		want Intent
	}{
		{"above midpoint is before", Point{X: 50, Y: 45}, Intent{IntentBefore, "b2"}},
		{"below midpoint is after", Point{X: 50, Y: 75}, Intent{IntentAfter, "b2"}},
		{"past every span falls to the last target", Point{X: 50, Y: 500}, Intent{IntentAfter, "b3"}},
		{"above every span resolves on the first", Point{X: 50, Y: -10}, Intent{IntentBefore, "b1"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := s.Resolve(c.p, stack(), Options{}); got != c.want {
				t.Fatalf("got %+v, want %+v", got, c.want)
			}
		})
	}
}

func TestResolvePairZones(t *testing.T) {
	s := NewSession("drag", block.BlockTypeParagraph, Point{})

	// pointer at 10% of target width resolves to pairing, not reorder
	if got := s.Resolve(Point{X: 10, Y: 20}, stack(), Options{}); got.Kind != IntentPair || got.TargetID != "b1" {
		t.Fatalf("left edge zone: %+v", got)
	}
	if got := s.Resolve(Point{X: 95, Y: 20}, stack(), Options{}); got.Kind != IntentPair {
		t.Fatalf("right edge zone: %+v", got)
	}
	// the middle 60% reorders
	if got := s.Resolve(Point{X: 50, Y: 10}, stack(), Options{}); got.Kind != IntentBefore {
		t.Fatalf("center: %+v", got)
	}
}

func TestPairExclusions(t *testing.T) {
	targets := []Target{
		{BlockID: "t1", Type: block.BlockTypeTable, Bounds: Rect{X: 0, Y: 0, W: 100, H: 40}},
	}

	t.Run("excluded target type", func(t *testing.T) {
		s := NewSession("drag", block.BlockTypeParagraph, Point{})
		if got := s.Resolve(Point{X: 5, Y: 10}, targets, Options{}); got.Kind == IntentPair {
			t.Fatal("a table must never be a pairing target")
		}
	})

	t.Run("excluded dragged type", func(t *testing.T) {
		s := NewSession("drag", block.BlockTypeHorizontalRule, Point{})
		if got := s.Resolve(Point{X: 5, Y: 10}, stack(), Options{}); got.Kind == IntentPair {
			t.Fatal("a dragged horizontal rule must never pair")
		}
	})
}

func TestResolveSkipsDraggedBlock(t *testing.T) {
	s := NewSession("b1", block.BlockTypeParagraph, Point{})
	if got := s.Resolve(Point{X: 50, Y: 10}, stack(), Options{}); got.TargetID == "b1" {
		t.Fatal("the dragged block must never target itself")
	}
}

func TestResolveTreeMode(t *testing.T) {
	s := NewSession("drag", block.BlockTypeParagraph, Point{})
	targets := []Target{{BlockID: "page1", Type: block.BlockTypeParagraph, Bounds: Rect{X: 0, Y: 0, W: 100, H: 40}}}

	cases := []struct {
		name string
		y    float64
		want IntentKind
	}{
		{"top quarter", 5, IntentBefore},
		{"middle half", 20, IntentChild},
		{"bottom quarter", 35, IntentAfter},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := s.Resolve(Point{X: 50, Y: c.y}, targets, Options{Tree: true})
			if got.Kind != c.want {
				t.Fatalf("got %s, want %s", got.Kind, c.want)
			}
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	s := NewSession("drag", block.BlockTypeParagraph, Point{})
	p := Point{X: 13, Y: 57}
	first := s.Resolve(p, stack(), Options{})
	for range 10 {
		if got := s.Resolve(p, stack(), Options{}); got != first {
			t.Fatalf("identical inputs resolved differently: %+v vs %+v", got, first)
		}
	}
}

func TestDropAndCancel(t *testing.T) {
	t.Run("drop emits the last intent once", func(t *testing.T) {
		s := NewSession("drag", block.BlockTypeParagraph, Point{})
		s.Resolve(Point{X: 50, Y: 45}, stack(), Options{})

		intent, ok := s.Drop()
		if !ok || intent.Kind != IntentBefore || intent.TargetID != "b2" {
			t.Fatalf("drop: %+v, ok %v", intent, ok)
		}
		if _, ok := s.Drop(); ok {
			t.Fatal("a second drop must emit nothing")
		}
	})

	t.Run("drop without resolution emits nothing", func(t *testing.T) {
		s := NewSession("drag", block.BlockTypeParagraph, Point{})
		if _, ok := s.Drop(); ok {
			t.Fatal("unresolved gesture must emit nothing")
		}
	})

	t.Run("cancel discards the intent", func(t *testing.T) {
		s := NewSession("drag", block.BlockTypeParagraph, Point{})
		s.Resolve(Point{X: 50, Y: 45}, stack(), Options{})
		s.Cancel()
		if _, ok := s.Drop(); ok {
			t.Fatal("cancelled gesture must emit nothing")
		}
	})
}

func TestCommit(t *testing.T) {
	mk := func(t *testing.T) *shadow.Store {
		t.Helper()
		s := shadow.New(zaptest.NewLogger(t))
		s.Load("p1", []*block.Block{
			{ID: "b1", Type: block.BlockTypeParagraph, Layout: block.LayoutNormal, Text: &block.TextContent{Text: "a"}},
			{ID: "b2", Type: block.BlockTypeParagraph, Layout: block.LayoutNormal, Text: &block.TextContent{Text: "b"}},
		})
		return s
	}

	t.Run("before reorders", func(t *testing.T) {
		s := mk(t)
		if !Commit(s, "b2", Intent{IntentBefore, "b1"}) {
			t.Fatal("commit failed")
		}
		if s.Snapshot()[0].ID != "b2" {
			t.Fatal("reorder not applied")
		}
	})

	t.Run("pair pairs", func(t *testing.T) {
		s := mk(t)
		if !Commit(s, "b1", Intent{IntentPair, "b2"}) {
			t.Fatal("commit failed")
		}
		if !s.Block("b1").Paired() {
			t.Fatal("pair not applied")
		}
	})

	t.Run("none commits nothing", func(t *testing.T) {
		s := mk(t)
		if Commit(s, "b1", Intent{Kind: IntentNone}) {
			t.Fatal("none must not commit")
		}
		if s.Dirty() {
			t.Fatal("store touched")
		}
	})
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.EditorConfig{PairEdgeZone: 0.3, AutoScrollZone: 50})
	s := NewSession("drag", block.BlockTypeParagraph, Point{})

	// x at 25% of the target width: inside a 0.3 edge zone, outside the
	// default 0.2 one
	if got := s.Resolve(Point{X: 25, Y: 20}, stack(), Options{}); got.Kind == IntentPair {
		t.Fatalf("default zone: %+v", got)
	}
	if got := s.Resolve(Point{X: 25, Y: 20}, stack(), opts); got.Kind != IntentPair {
		t.Fatalf("widened zone: %+v", got)
	}

	viewport := Rect{X: 0, Y: 0, W: 100, H: 400}
	if got := opts.ScrollSpeed(Point{X: 50, Y: 25}, viewport); got != -0.5 {
		t.Fatalf("scroll speed %v, want -0.5", got)
	}
	if got := (Options{}).ScrollSpeed(Point{X: 50, Y: 25}, viewport); got != 0 {
		t.Fatalf("zero zone must not scroll, got %v", got)
	}
}

func TestAutoScroll(t *testing.T) {
	viewport := Rect{X: 0, Y: 0, W: 100, H: 400}

	cases := []struct {
		name string
		y    float64
		want float64
	}{
		{"center is still", 200, 0},
		{"top edge scrolls up at full speed", 0, -1},
		{"half into the top zone", 25, -0.5},
		{"bottom edge scrolls down at full speed", 400, 1},
		{"half into the bottom zone", 375, 0.5},
		{"just outside the zone", 50, 0},
		{"outside the viewport", 500, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := AutoScroll(Point{X: 50, Y: c.y}, viewport, 50)
			if got != c.want {
				t.Fatalf("speed %v, want %v", got, c.want)
			}
		})
	}
}
