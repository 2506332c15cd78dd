package source

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Kind is the decodable format of a source file.
type Kind string

const (
	KindJPEG        Kind = "jpeg"
	KindPNG         Kind = "png"
	KindUnsupported Kind = "unsupported"
)

// TypeInfo contains detected file type information
type TypeInfo struct {
	MIMEType    string
	Kind        Kind
	MultiFrame  bool
	Description string
}

// Supported reports whether the content can be decoded into a page.
func (t TypeInfo) Supported() bool { return t.Kind != KindUnsupported }

// mpfMarker identifies the APP2 Multi-Picture Format segment that phone cameras use to
// append secondary frames after the primary JPEG.
var mpfMarker = []byte("MPF\x00")

// mpfScanLimit bounds how far into the file the MPF segment is looked for; it sits in
// the primary frame's header.
const mpfScanLimit = 64 << 10

// Detect identifies the content using magic bytes, not the filename.
func Detect(id string, data []byte) TypeInfo {
	mtype := mimetype.Detect(data)
	info := TypeInfo{MIMEType: mtype.String()}

	switch {
	case mtype.Is("image/jpeg"):
		info.Kind = KindJPEG
		info.Description = "JPEG image"
		head := data
		if len(head) > mpfScanLimit {
			head = head[:mpfScanLimit]
		}
		if bytes.Contains(head, mpfMarker) {
			info.MultiFrame = true
			info.Description = "multi-frame JPEG (MPO)"
		}
	case mtype.Is("image/png"):
		info.Kind = KindPNG
		info.Description = "PNG image"
	case strings.HasPrefix(info.MIMEType, "image/"):
		info.Kind = KindUnsupported
		info.Description = fmt.Sprintf("Unsupported image type: %s", info.MIMEType)
	default:
		info.Kind = KindUnsupported
		info.Description = fmt.Sprintf("Unsupported file type: %s", info.MIMEType)
	}

	log.Debug().
		Str("image", id).
		Str("mime", info.MIMEType).
		Bool("multi_frame", info.MultiFrame).
		Msg("detected file type")
	return info
}
