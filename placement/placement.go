// Package placement turns drag gesture geometry into structural intents.
// It is pure decision logic: pointer positions and target bounds in, one of
// before/after/child/pair out. Rendering the ghost and tracking pointer
// capture stay with the host - identical inputs always resolve to the
// identical intent, which keeps every rule testable without a UI.
package placement

import (
	"blockpad/block"
	"blockpad/config"
	"blockpad/shadow"
)

// Point is a pointer position in viewport coordinates.
type Point struct {
	X, Y float64
}

// Rect is an on-screen bounding box.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) top() float64    { return r.Y }
func (r Rect) bottom() float64 { return r.Y + r.H }
func (r Rect) right() float64  { return r.X + r.W }

// Target is one candidate drop target: a block and its current bounds.
// Candidates are passed in visual order, top to bottom.
type Target struct {
	BlockID string
	Type    block.BlockType
	Bounds  Rect
}

// IntentKind is the relationship a drop would establish with the target.
type IntentKind string

const (
	IntentNone   IntentKind = "none"
	IntentBefore IntentKind = "before"
	IntentAfter  IntentKind = "after"
	IntentChild  IntentKind = "child"
	IntentPair   IntentKind = "pair"
)

// Intent is one resolved placement decision.
type Intent struct {
	Kind     IntentKind
	TargetID string
}

// Options tune the resolution rules.
type Options struct {
	// Tree switches to hierarchical resolution: vertical quarters map to
	// before/after and the middle half nests under the target.
	Tree bool
	// PairZone is the fraction of the target width forming each horizontal
	// pairing edge zone. Zero means the default of 0.2.
	PairZone float64
	// ScrollZone is the viewport edge band, in pixels, inside which dragging
	// triggers auto-scroll. Zero disables it.
	ScrollZone float64
}

// OptionsFromConfig maps the editor section of the configuration onto
// resolver options.
func OptionsFromConfig(cfg config.EditorConfig) Options {
	return Options{
		PairZone:   cfg.PairEdgeZone,
		ScrollZone: cfg.AutoScrollZone,
	}
}

// ScrollSpeed feeds the configured edge band into AutoScroll.
func (o Options) ScrollSpeed(p Point, viewport Rect) float64 {
	return AutoScroll(p, viewport, o.ScrollZone)
}

// pairZone applies the default edge zone width.
func (o Options) pairZone() float64 {
	if o.PairZone <= 0 {
		return 0.2
	}
	return o.PairZone
}

// Session tracks one drag gesture: the dragged block, the pointer's grab
// offset inside it and the last resolved intent.
type Session struct {
	blockID   string
	blockType block.BlockType
	grab      Point

	last Intent
}

// NewSession starts a gesture for the given block. grab is the pointer
// offset inside the block's bounds at gesture start.
func NewSession(blockID string, typ block.BlockType, grab Point) *Session {
	return &Session{
		blockID:   blockID,
		blockType: typ,
		grab:      grab,
		last:      Intent{Kind: IntentNone},
	}
}

// BlockID returns the dragged block.
func (s *Session) BlockID() string { return s.blockID }

// GrabOffset returns the pointer offset recorded at gesture start; the host
// positions the ghost with it.
func (s *Session) GrabOffset() Point { return s.grab }

// Resolve computes the intent for the current pointer position and records
// it as the gesture's latest. Targets are scanned by vertical extent: the
// first whose span contains the pointer wins, a pointer past every span
// falls to the last target. The dragged block itself is never a target.
func (s *Session) Resolve(p Point, targets []Target, opts Options) Intent {
	s.last = s.resolve(p, targets, opts)
	return s.last
}

func (s *Session) resolve(p Point, targets []Target, opts Options) Intent {
	var candidates []Target
	for _, t := range targets {
		if t.BlockID != s.blockID {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return Intent{Kind: IntentNone}
	}

	target := candidates[len(candidates)-1]
	for _, t := range candidates {
		if p.Y < t.Bounds.bottom() {
			target = t
			break
		}
	}

	if opts.Tree {
		return Intent{Kind: treeKind(p, target.Bounds), TargetID: target.BlockID}
	}
	if s.pairable(target) && inPairZone(p, target.Bounds, opts.pairZone()) {
		return Intent{Kind: IntentPair, TargetID: target.BlockID}
	}
	if p.Y < target.Bounds.Y+target.Bounds.H/2 {
		return Intent{Kind: IntentBefore, TargetID: target.BlockID}
	}
	return Intent{Kind: IntentAfter, TargetID: target.BlockID}
}

// treeKind splits the target's span into quarters: the middle half nests.
func treeKind(p Point, b Rect) IntentKind {
	switch {
	case p.Y < b.Y+b.H/4:
		return IntentBefore
	case p.Y >= b.bottom()-b.H/4:
		return IntentAfter
	default:
		return IntentChild
	}
}

func (s *Session) pairable(t Target) bool {
	return s.blockType.Pairable() && t.Type.Pairable()
}

// inPairZone reports whether the pointer sits in either outer horizontal
// edge zone of the target.
func inPairZone(p Point, b Rect, zone float64) bool {
	if p.X < b.X || p.X > b.right() {
		return false
	}
	edge := b.W * zone
	return p.X < b.X+edge || p.X > b.right()-edge
}

// Drop finishes the gesture with its last resolved intent. It reports false
// when the gesture never resolved onto a target - the host restores the
// pre-drag visuals and nothing is emitted.
func (s *Session) Drop() (Intent, bool) {
	intent := s.last
	s.last = Intent{Kind: IntentNone}
	if intent.Kind == IntentNone {
		return Intent{Kind: IntentNone}, false
	}
	return intent, true
}

// Cancel abandons the gesture. The next Drop emits nothing.
func (s *Session) Cancel() {
	s.last = Intent{Kind: IntentNone}
}

// Commit translates a dropped intent into exactly one structural operation
// on the store. Child intents are hierarchical moves - they only make sense
// in tree mode, where the targets are pages.
func Commit(store *shadow.Store, blockID string, intent Intent) bool {
	switch intent.Kind {
	case IntentBefore:
		return store.Reorder(blockID, intent.TargetID, "before")
	case IntentAfter:
		return store.Reorder(blockID, intent.TargetID, "after")
	case IntentPair:
		return store.Pair(blockID, intent.TargetID)
	case IntentChild:
		return store.MovePage(intent.TargetID, "child")
	default:
		return false
	}
}

// AutoScroll returns the scroll speed for the pointer's proximity to the
// viewport's top or bottom edge: -1..0 scrolling up, 0..1 scrolling down,
// scaled linearly within the edge zone and exactly zero outside it.
func AutoScroll(p Point, viewport Rect, zone float64) float64 {
	if zone <= 0 || p.Y < viewport.top() || p.Y > viewport.bottom() {
		return 0
	}
	if d := p.Y - viewport.top(); d < zone {
		return -(zone - d) / zone
	}
	if d := viewport.bottom() - p.Y; d < zone {
		return (zone - d) / zone
	}
	return 0
}
