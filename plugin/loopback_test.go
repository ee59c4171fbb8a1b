package plugin

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"blockpad/block"
)

func TestLoopbackSendAndLoad(t *testing.T) {
	l := NewLoopback(zaptest.NewLogger(t))
	l.SeedPage("p1", page("Hello world"))

	err := l.Send(context.Background(), []Command{
		NewCommand(CmdSplitBlock, SplitArgs{PageID: "p1", BlockID: "a", NewBlockID: "b", Text: "Hello ", AfterText: "world"}),
		NewCommand(CmdSavePage, SaveArgs{PageID: "p1"}),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	got, err := l.LoadPage(context.Background(), "p1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[1].Text.Text != "world" {
		t.Fatalf("page after apply: %v", ids(got))
	}
	if l.SaveCount("p1") != 1 {
		t.Fatalf("save count: %d", l.SaveCount("p1"))
	}

	// loaded copy must not alias backend memory
	got[0].Text.Text = "tampered"
	again, _ := l.LoadPage(context.Background(), "p1")
	if again[0].Text.Text == "tampered" {
		t.Fatal("LoadPage aliases backend state")
	}
}

func TestLoopbackFailSends(t *testing.T) {
	l := NewLoopback(zaptest.NewLogger(t))
	l.SeedPage("p1", page("x"))
	l.FailSends = true

	cmds := []Command{NewCommand(CmdUpdateBlock, TextArgs{PageID: "p1", BlockID: "a", Text: "y"})}
	if err := l.Send(context.Background(), cmds); err == nil {
		t.Fatal("expected send failure")
	}
	if len(l.Sent()) != 0 {
		t.Fatal("failed batch must not be recorded")
	}

	l.FailSends = false
	if err := l.Send(context.Background(), cmds); err != nil {
		t.Fatalf("retry: %v", err)
	}
	got, _ := l.LoadPage(context.Background(), "p1")
	if got[0].Text.Text != "y" {
		t.Fatal("retried batch not applied")
	}
}

func TestLoopbackPush(t *testing.T) {
	l := NewLoopback(zaptest.NewLogger(t))
	l.SeedPage("p1", page("a"))

	var gotPage string
	var gotBlocks []*block.Block
	l.OnPush(func(pageID string, blocks []*block.Block) {
		gotPage, gotBlocks = pageID, blocks
	})

	l.PushBlocks("p1", []*block.Block{block.NewTextBlock(block.BlockTypeParagraph, "pushed")})
	if gotPage != "p1" || len(gotBlocks) != 2 {
		t.Fatalf("push handler got %s with %d blocks", gotPage, len(gotBlocks))
	}
}

func TestLoopbackClosed(t *testing.T) {
	l := NewLoopback(nil)
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.Send(context.Background(), nil); err == nil {
		t.Fatal("send after close must fail")
	}
}
