// Package syncer drains the shadow store's pending commands to the backend
// of record: periodically on a ticker and forced through Flush on focus
// loss, page switches and explicit saves. The store supplies the batches
// and owns dirtiness, the scheduler owns delivery and retry timing.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"blockpad/block"
	"blockpad/plugin"
	"blockpad/shadow"
)

// DefaultInterval is the tick period used when the configuration does not
// set one.
const DefaultInterval = 2 * time.Second

// Scheduler moves one document through Clean -> Dirty -> Clean. Drains are
// serialized: a forced Flush waits for an in-flight periodic drain instead
// of overlapping it.
type Scheduler struct {
	log      *zap.Logger
	store    *shadow.Store
	backend  plugin.Backend
	interval time.Duration

	drainMu sync.Mutex

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// New creates a scheduler over the store and backend. It does not tick
// until Start is called.
func New(store *shadow.Store, backend plugin.Backend, interval time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		log:      log.Named("syncer"),
		store:    store,
		backend:  backend,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the periodic drain loop. Safe to call once; subsequent
// calls are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.loop(ctx)
	})
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.drain(ctx, "tick"); err != nil {
				s.log.Warn("Periodic drain failed, will retry", zap.Error(err))
			}
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

// Flush forces a drain right now and reports its outcome. A clean document
// flushes successfully without touching the backend.
func (s *Scheduler) Flush(ctx context.Context, reason string) error {
	return s.drain(ctx, reason)
}

// SwitchPage drains the outgoing page, then replaces the document with the
// incoming page fetched from the backend. The switch is refused when the
// outgoing drain fails - pending edits must never be dropped silently.
func (s *Scheduler) SwitchPage(ctx context.Context, pageID string) error {
	if err := s.drain(ctx, "page_switch"); err != nil {
		return fmt.Errorf("unable to flush outgoing page: %w", err)
	}
	blocks, err := s.backend.LoadPage(ctx, pageID)
	if err != nil {
		return fmt.Errorf("unable to load page '%s': %w", pageID, err)
	}
	s.store.Clear()
	s.store.Load(pageID, blocks)
	return nil
}

// HandlePush is the backend push handler: authoritative block arrays for
// the open page run through the merge reconciler, pushes for other pages
// are ignored. Pass it to the transport as its plugin.PushHandler.
func (s *Scheduler) HandlePush(pageID string, blocks []*block.Block) {
	if pageID == "" || pageID != s.store.PageID() {
		s.log.Debug("Ignoring push for a page that is not open", zap.String("page", pageID))
		return
	}
	if added := s.store.MergeNewBlocks(blocks); len(added) > 0 {
		s.log.Debug("Merged backend blocks", zap.String("page", pageID), zap.Int("added", len(added)))
	}
}

// drain takes the pending batch, appends the trailing persist and delivers
// everything as one send. Failure leaves the document dirty with the batch
// requeued, so the next tick retries naturally.
func (s *Scheduler) drain(ctx context.Context, reason string) error {
	s.drainMu.Lock()
	defer s.drainMu.Unlock()

	pageID, cmds, ok := s.store.BeginDrain()
	if !ok {
		return nil
	}

	started := time.Now()
	outgoing := append(append([]plugin.Command(nil), cmds...),
		plugin.NewCommand(plugin.CmdSavePage, plugin.SaveArgs{PageID: pageID}))

	err := s.backend.Send(ctx, outgoing)
	s.store.EndDrain(pageID, cmds, err)

	if err != nil {
		s.log.Warn("Drain failed",
			zap.String("page", pageID),
			zap.String("reason", reason),
			zap.Int("commands", len(outgoing)),
			zap.Error(err))
		return err
	}
	s.log.Debug("Drained",
		zap.String("page", pageID),
		zap.String("reason", reason),
		zap.Int("commands", len(outgoing)),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

// Stop halts the ticker and waits for an in-flight drain to finish. It does
// not flush - callers wanting durability flush first.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

// Close flushes what it can, stops the loop and closes the backend.
func (s *Scheduler) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.Flush(ctx, "shutdown")
	s.Stop()
	return multierr.Append(err, s.backend.Close())
}
