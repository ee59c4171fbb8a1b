package plugin

import (
	"context"

	"blockpad/block"
)

// Backend is the plugin side of the wire. Send delivers a drained command
// batch in order; the core treats delivery as fire-and-forget and a failed
// send simply leaves the shadow dirty for the next drain to retry.
type Backend interface {
	// Send delivers commands in order. Either the whole batch is accepted
	// by the transport or an error is returned and nothing is considered
	// delivered.
	Send(ctx context.Context, cmds []Command) error
	// LoadPage fetches the authoritative block array for a page.
	LoadPage(ctx context.Context, pageID string) ([]*block.Block, error)
	Close() error
}

// PushHandler receives backend-initiated block pushes (the backend created
// blocks on its own, e.g. in response to a command we just sent). The
// receiver is expected to feed these to the merge reconciler.
type PushHandler func(pageID string, blocks []*block.Block)
