package shadow

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"blockpad/block"
	"blockpad/plugin"
)

func para(id, text string) *block.Block {
	return &block.Block{ID: id, Type: block.BlockTypeParagraph, Layout: block.LayoutNormal, Text: &block.TextContent{Text: text}}
}

func newStore(t *testing.T, blocks ...*block.Block) *Store {
	t.Helper()
	s := New(zaptest.NewLogger(t))
	if !s.Load("p1", blocks) {
		t.Fatal("initial load failed")
	}
	return s
}

// drain drains the store to nowhere, failing the test when there was
// nothing to drain.
func drain(t *testing.T, s *Store) []plugin.Command {
	t.Helper()
	pageID, cmds, ok := s.BeginDrain()
	if !ok {
		t.Fatal("expected a drainable document")
	}
	s.EndDrain(pageID, cmds, nil)
	return cmds
}

func TestLoadSemantics(t *testing.T) {
	t.Run("reload of same non-empty page is a no-op", func(t *testing.T) {
		s := newStore(t, para("b1", "local"))
		if s.Load("p1", []*block.Block{para("b9", "stale")}) {
			t.Fatal("store must not overwrite its own authoritative copy")
		}
		if b := s.Block("b1"); b == nil || b.Text.Text != "local" {
			t.Fatal("authoritative copy was clobbered")
		}
	})

	t.Run("different page replaces wholesale", func(t *testing.T) {
		s := newStore(t, para("b1", "one"))
		if !s.Load("p2", []*block.Block{para("c1", "two")}) {
			t.Fatal("load of a different page must replace")
		}
		if s.PageID() != "p2" || s.Block("b1") != nil {
			t.Fatal("previous document leaked into the new one")
		}
	})

	t.Run("malformed input loads an empty document", func(t *testing.T) {
		s := New(zaptest.NewLogger(t))
		if !s.Load("p1", []*block.Block{{ID: "", Type: "bogus"}}) {
			t.Fatal("load failed")
		}
		if s.Len() != 0 {
			t.Fatalf("expected empty document, got %d blocks", s.Len())
		}
	})

	t.Run("load does not dirty the document", func(t *testing.T) {
		s := newStore(t, para("b1", "x"))
		if s.Dirty() {
			t.Fatal("freshly loaded document must be clean")
		}
	})
}

func TestDirtyFlagCorrectness(t *testing.T) {
	s := newStore(t, para("b1", "Hello"))

	if s.Dirty() {
		t.Fatal("clean after load")
	}
	if !s.UpdateText("b1", "Hello world") {
		t.Fatal("update failed")
	}
	if !s.Dirty() {
		t.Fatal("dirty after mutation")
	}

	drain(t, s)
	if s.Dirty() {
		t.Fatal("clean after drain with no intervening mutations")
	}

	// read accessors never touch dirty state
	_ = s.Block("b1")
	if _, err := s.SerializeAll(); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if _, err := s.SerializeBlock("b1"); err != nil {
		t.Fatalf("serialize block: %v", err)
	}
	_ = s.Snapshot()
	if s.Dirty() {
		t.Fatal("read accessors dirtied the document")
	}
}

func TestDrainCycle(t *testing.T) {
	t.Run("update then split drains exactly one split command", func(t *testing.T) {
		s := newStore(t, para("b1", "Hello"))
		s.UpdateText("b1", "Hello world")
		if !s.Split("b1", "world", "b2") {
			t.Fatal("split failed")
		}

		if got := s.Block("b1").Text.Text; got != "Hello " {
			t.Fatalf("source text after split: %q", got)
		}
		if got := s.Block("b2").Text.Text; got != "world" {
			t.Fatalf("new block text after split: %q", got)
		}

		cmds := drain(t, s)
		if len(cmds) != 1 || cmds[0].Name != plugin.CmdSplitBlock {
			t.Fatalf("expected exactly one split_block, got %v", names(cmds))
		}
		if s.Dirty() {
			t.Fatal("document still dirty after drain")
		}
	})

	t.Run("text updates coalesce to one command per block", func(t *testing.T) {
		s := newStore(t, para("b1", ""), para("b2", ""))
		s.UpdateText("b1", "a")
		s.UpdateText("b2", "x")
		s.UpdateText("b1", "ab")
		s.UpdateText("b1", "abc")

		cmds := drain(t, s)
		if len(cmds) != 2 {
			t.Fatalf("expected 2 coalesced commands, got %v", names(cmds))
		}
		// first-touch order
		var a1, a2 plugin.TextArgs
		decodeArgs(t, cmds[0], &a1)
		decodeArgs(t, cmds[1], &a2)
		if a1.BlockID != "b1" || a1.Text != "abc" {
			t.Fatalf("first command wrong: %+v", a1)
		}
		if a2.BlockID != "b2" || a2.Text != "x" {
			t.Fatalf("second command wrong: %+v", a2)
		}
	})

	t.Run("text edit after a structural fold still drains one command", func(t *testing.T) {
		s := newStore(t, para("b1", "Hello"))
		s.UpdateText("b1", "Hello world")
		if !s.Split("b1", "world", "b2") {
			t.Fatal("split failed")
		}
		// the split consumed the pending slot; this is a fresh touch
		s.UpdateText("b1", "Hello there")

		cmds := drain(t, s)
		if got := names(cmds); len(cmds) != 2 || cmds[0].Name != plugin.CmdSplitBlock || cmds[1].Name != plugin.CmdUpdateBlock {
			t.Fatalf("expected [split_block update_block], got %v", got)
		}
		var args plugin.TextArgs
		decodeArgs(t, cmds[1], &args)
		if args.BlockID != "b1" || args.Text != "Hello there" {
			t.Fatalf("update command wrong: %+v", args)
		}
	})

	t.Run("failed drain keeps dirty and requeues commands", func(t *testing.T) {
		s := newStore(t, para("b1", ""))
		s.UpdateText("b1", "x")

		pageID, cmds, ok := s.BeginDrain()
		if !ok {
			t.Fatal("expected drainable document")
		}
		s.EndDrain(pageID, cmds, errFake)

		if !s.Dirty() {
			t.Fatal("failed drain must leave document dirty")
		}
		again := drain(t, s)
		if len(again) != 1 {
			t.Fatalf("requeued batch lost: %v", names(again))
		}
		if again[0].ID != cmds[0].ID {
			t.Fatal("retried command should be the original one")
		}
	})

	t.Run("mutation during in-flight drain stays dirty for the next tick", func(t *testing.T) {
		s := newStore(t, para("b1", ""), para("b2", ""))
		s.UpdateText("b1", "x")

		pageID, cmds, ok := s.BeginDrain()
		if !ok {
			t.Fatal("expected drainable document")
		}
		// overlapping drain must be refused
		if _, _, ok := s.BeginDrain(); ok {
			t.Fatal("drains must never overlap")
		}
		s.UpdateText("b2", "y")
		s.EndDrain(pageID, cmds, nil)

		if !s.Dirty() {
			t.Fatal("mutation captured mid-drain must keep document dirty")
		}
		next := drain(t, s)
		if len(next) != 1 {
			t.Fatalf("next drain should carry the captured mutation, got %v", names(next))
		}
	})
}

func TestSnapshotIsolation(t *testing.T) {
	s := newStore(t, para("b1", "Hello"))
	s.UpdateText("b1", "pending")

	snap := s.Snapshot()
	if snap[0].Text.Text != "pending" {
		t.Fatalf("snapshot does not fold in pending text: %q", snap[0].Text.Text)
	}
	snap[0].Text.Text = "tampered"
	if s.Block("b1").Text.Text == "tampered" {
		t.Fatal("snapshot aliases store memory")
	}
}

func TestClearDropsEverything(t *testing.T) {
	s := newStore(t, para("b1", "x"))
	s.UpdateText("b1", "y")
	s.Clear()

	if s.Loaded() || s.Dirty() {
		t.Fatal("clear must drop document and dirtiness")
	}
	if _, _, ok := s.BeginDrain(); ok {
		t.Fatal("nothing to drain after clear")
	}
}

func TestSubscriptions(t *testing.T) {
	s := newStore(t, para("b1", "x"))

	var events []Event
	cancel := s.Subscribe(func(ev Event) { events = append(events, ev) })

	s.UpdateText("b1", "y")
	s.UpdateText("missing", "z") // no-op must not notify
	cancel()
	s.UpdateText("b1", "after cancel")

	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d", len(events))
	}
	if events[0].Kind != EventBlocksChanged || events[0].PageID != "p1" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}
