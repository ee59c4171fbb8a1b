// Package images identifies image bytes handed over by the host: mime type
// and intrinsic pixel size. The store records natural dimensions from it
// when an image block has no explicit width.
package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/webp"
)

// Info describes sniffed image bytes. Width and Height are zero when the
// format is recognized but its dimensions cannot be decoded.
type Info struct {
	Mime   string
	Ext    string
	Width  int
	Height int
}

// Sniff identifies the image format and intrinsic size of data. Bytes that
// are not an image return an error.
func Sniff(data []byte) (Info, error) {
	if isSVG(data) {
		// vector, no intrinsic pixel size
		return Info{Mime: "image/svg+xml", Ext: "svg"}, nil
	}

	kind, err := filetype.Match(data)
	if err != nil {
		return Info{}, fmt.Errorf("unable to sniff image data: %w", err)
	}
	if kind == filetype.Unknown || !filetype.IsImage(data) {
		return Info{}, fmt.Errorf("data is not a recognized image format")
	}

	info := Info{Mime: kind.MIME.Value, Ext: kind.Extension}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		info.Width, info.Height = cfg.Width, cfg.Height
	}
	return info, nil
}

// isSVG peeks for an svg root element; filetype only matches binary magic.
func isSVG(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	s := strings.TrimSpace(string(bytes.ToLower(head)))
	return strings.HasPrefix(s, "<svg") || (strings.HasPrefix(s, "<?xml") && strings.Contains(s, "<svg"))
}
