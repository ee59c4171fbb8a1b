package shadow

import (
	"go.uber.org/zap"

	"blockpad/block"
	"blockpad/plugin"
	imgutil "blockpad/utils/images"
)

// Image metadata operations are pure payload replacements.

func (s *Store) imageOp(op, blockID string, apply func(ic *block.ImageContent) (string, any, bool)) bool {
	return s.mutate(op, func(d *document) (Event, bool) {
		b := d.find(blockID)
		if b == nil || b.Image == nil {
			return Event{}, false
		}
		name, args, changed := apply(b.Image)
		if !changed {
			return Event{}, false
		}
		d.enqueue(name, args)
		return Event{Kind: EventBlocksChanged, BlockIDs: []string{blockID}}, true
	})
}

// UpdateImageURL replaces the image source location.
func (s *Store) UpdateImageURL(blockID, url string) bool {
	return s.imageOp("update_image_url", blockID, func(ic *block.ImageContent) (string, any, bool) {
		ic.URL = url
		return plugin.CmdUpdateImageURL, plugin.ImageValueArgs{PageID: s.doc.pageID, BlockID: blockID, Value: url}, true
	})
}

// UpdateImageAlt replaces the alternative text.
func (s *Store) UpdateImageAlt(blockID, alt string) bool {
	return s.imageOp("update_image_alt", blockID, func(ic *block.ImageContent) (string, any, bool) {
		ic.Alt = block.NormalizeText(alt)
		return plugin.CmdUpdateImageAlt, plugin.ImageValueArgs{PageID: s.doc.pageID, BlockID: blockID, Value: ic.Alt}, true
	})
}

// UpdateImageAlign sets the horizontal alignment.
func (s *Store) UpdateImageAlign(blockID string, align block.Align) bool {
	return s.imageOp("update_image_align", blockID, func(ic *block.ImageContent) (string, any, bool) {
		if !align.IsValid() {
			return "", nil, false
		}
		ic.Align = align
		return plugin.CmdUpdateImageAlign, plugin.ImageValueArgs{PageID: s.doc.pageID, BlockID: blockID, Value: align.String()}, true
	})
}

// RecordImageIntrinsics sniffs fetched image bytes and records the natural
// dimensions on the block. This is derived metadata for the rendering host:
// it does not dirty the page and sends nothing to the backend.
func (s *Store) RecordImageIntrinsics(blockID string, data []byte) bool {
	info, err := imgutil.Sniff(data)
	if err != nil {
		s.log.Warn("Unrecognized image data", zap.String("block", blockID), zap.Error(err))
		return false
	}

	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return false
	}
	b := s.doc.find(blockID)
	if b == nil || b.Image == nil {
		s.mu.Unlock()
		s.log.Debug("Image intrinsics for unknown block", zap.String("block", blockID))
		return false
	}
	b.Image.NaturalWidth = info.Width
	b.Image.NaturalHeight = info.Height
	ev := Event{Kind: EventBlocksChanged, PageID: s.doc.pageID, BlockIDs: []string{blockID}}
	subs := s.subscribers()
	s.mu.Unlock()

	emit(subs, ev)
	return true
}

// UpdateImageWidth sets the display width; nil means natural size.
func (s *Store) UpdateImageWidth(blockID string, width *int) bool {
	return s.imageOp("update_image_width", blockID, func(ic *block.ImageContent) (string, any, bool) {
		if width != nil && *width <= 0 {
			return "", nil, false
		}
		if width == nil {
			ic.Width = nil
		} else {
			w := *width
			ic.Width = &w
		}
		return plugin.CmdUpdateImageWidth, plugin.ImageWidthArgs{PageID: s.doc.pageID, BlockID: blockID, Width: ic.Width}, true
	})
}
