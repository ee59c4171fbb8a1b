package pluginserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"blockpad/block"
	"blockpad/plugin"
)

func startTestServer(t *testing.T, token string) (*Server, *httptest.Server) {
	t.Helper()
	store := openTestStore(t)
	srv := NewServer(store, token, zaptest.NewLogger(t))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestServerAuthorization(t *testing.T) {
	_, ts := startTestServer(t, "secret")

	resp, err := http.Get(ts.URL + "/pages/p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated read got %s", resp.Status)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/pages/p1", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated read got %s", resp.Status)
	}
}

func TestServerCommandRoundTrip(t *testing.T) {
	srv, ts := startTestServer(t, "")
	if err := srv.store.SavePage("p1", []*block.Block{block.NewTextBlock(block.BlockTypeParagraph, "Hello world")}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sock, err := plugin.DialSocket(ctx, plugin.SocketConfig{Endpoint: wsURL(ts)}, nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer sock.Close()

	loaded, err := sock.LoadPage(ctx, "p1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d blocks", len(loaded))
	}
	src := loaded[0].ID

	err = sock.Send(ctx, []plugin.Command{
		plugin.NewCommand(plugin.CmdSplitBlock, plugin.SplitArgs{
			PageID: "p1", BlockID: src, NewBlockID: block.NewID(),
			Text: "Hello ", AfterText: "world",
		}),
		plugin.NewCommand(plugin.CmdSavePage, plugin.SaveArgs{PageID: "p1"}),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	// application is asynchronous on the server's read loop
	deadline := time.Now().Add(3 * time.Second)
	for {
		persisted, err := srv.store.LoadPage("p1")
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if len(persisted) == 2 {
			if persisted[0].Text.Text != "Hello " || persisted[1].Text.Text != "world" {
				t.Fatalf("persisted texts: %q %q", persisted[0].Text.Text, persisted[1].Text.Text)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("batch never persisted, page has %d blocks", len(persisted))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServerPushesToOtherEditors(t *testing.T) {
	srv, ts := startTestServer(t, "")
	if err := srv.store.SavePage("p1", []*block.Block{block.NewTextBlock(block.BlockTypeParagraph, "x")}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var pushed []string
	observer, err := plugin.DialSocket(ctx, plugin.SocketConfig{Endpoint: wsURL(ts)}, func(pageID string, _ []*block.Block) {
		mu.Lock()
		pushed = append(pushed, pageID)
		mu.Unlock()
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("dial observer: %v", err)
	}
	defer observer.Close()

	editor, err := plugin.DialSocket(ctx, plugin.SocketConfig{Endpoint: wsURL(ts)}, nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("dial editor: %v", err)
	}
	defer editor.Close()

	nb := block.NewTextBlock(block.BlockTypeParagraph, "new")
	err = editor.Send(ctx, []plugin.Command{
		plugin.NewCommand(plugin.CmdAddBlock, plugin.AddBlockArgs{PageID: "p1", Block: nb}),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		mu.Lock()
		n := len(pushed)
		mu.Unlock()
		if n > 0 {
			mu.Lock()
			got := pushed[0]
			mu.Unlock()
			if got != "p1" {
				t.Fatalf("pushed page: %s", got)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("observer never received a push")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
