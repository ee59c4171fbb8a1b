package plugin

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"blockpad/block"
)

// Loopback is an in-memory backend applying every command to its own page
// map. It backs unit and integration tests and the CLI replay command,
// where a real plugin process would be in the way.
type Loopback struct {
	log *zap.Logger

	mu     sync.Mutex
	pages  map[string][]*block.Block
	saved  map[string]int
	sent   []Command
	closed bool

	// FailSends makes every Send return an error without applying
	// anything - used to exercise the dirty-retry path.
	FailSends bool

	push PushHandler
}

// NewLoopback creates an empty in-memory backend.
func NewLoopback(log *zap.Logger) *Loopback {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loopback{
		log:   log.Named("loopback"),
		pages: make(map[string][]*block.Block),
		saved: make(map[string]int),
	}
}

// SeedPage installs the authoritative copy of a page.
func (l *Loopback) SeedPage(pageID string, blocks []*block.Block) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pages[pageID] = block.CloneBlocks(blocks)
}

// Send applies the batch in order. The whole batch is rejected when sends
// are failing, mirroring a transport outage.
func (l *Loopback) Send(ctx context.Context, cmds []Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("loopback backend is closed")
	}
	if l.FailSends {
		return fmt.Errorf("loopback send failure requested")
	}
	for _, cmd := range cmds {
		pageID := pageOf(cmd)
		updated, err := Apply(l.pages[pageID], cmd)
		if err != nil {
			return fmt.Errorf("unable to apply %s: %w", cmd.Name, err)
		}
		l.pages[pageID] = updated
		if cmd.Name == CmdSavePage {
			l.saved[pageID]++
		}
		l.sent = append(l.sent, cmd)
	}
	l.log.Debug("Applied command batch", zap.Int("commands", len(cmds)))
	return nil
}

// LoadPage returns a deep copy of the authoritative page.
func (l *Loopback) LoadPage(ctx context.Context, pageID string) ([]*block.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return block.CloneBlocks(l.pages[pageID]), nil
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// OnPush registers the handler receiving simulated backend pushes.
func (l *Loopback) OnPush(h PushHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.push = h
}

// PushBlocks simulates the backend independently creating blocks: they are
// appended to its own copy and announced through the push handler.
func (l *Loopback) PushBlocks(pageID string, blocks []*block.Block) {
	l.mu.Lock()
	for _, b := range blocks {
		if find(l.pages[pageID], b.ID) == nil {
			l.pages[pageID] = append(l.pages[pageID], b.Clone())
		}
	}
	snapshot := block.CloneBlocks(l.pages[pageID])
	h := l.push
	l.mu.Unlock()
	if h != nil {
		h(pageID, snapshot)
	}
}

// Sent returns every command accepted so far, in delivery order.
func (l *Loopback) Sent() []Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Command(nil), l.sent...)
}

// SentNames returns the names of accepted commands, in delivery order.
func (l *Loopback) SentNames() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, len(l.sent))
	for i, cmd := range l.sent {
		names[i] = cmd.Name
	}
	return names
}

// SaveCount reports how many save_page commands a page has seen.
func (l *Loopback) SaveCount(pageID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saved[pageID]
}

// pageOf extracts the page id every arg payload carries.
func pageOf(cmd Command) string {
	var a struct {
		PageID string `json:"page_id"`
	}
	_ = decode(cmd, &a)
	return a.PageID
}
