// Extension Wire Protocol
//
// The extension talks to the bridge with raw HTTP-like requests:
// - GET  polls the host page (keep-alive)
// - POST either asks for the next command or carries a result
// Result bodies end with a "\nEOResponse\n" trailer.

package wire

import (
	"strings"
)

// Trailer marks the end of a POSTed result body.
const Trailer = "\nEOResponse\n"

// headerEnd separates headers from body.
const headerEnd = "\r\n\r\n"

// Method classifies a connection by its first byte.
type Method int

const (
	Unknown Method = iota
	Get
	Post
)

func (m Method) String() string {
	switch m {
	case Get:
		return "GET"
	case Post:
		return "POST"
	default:
		return "UNKNOWN"
	}
}

// Frame accumulates the bytes received on one connection.
type Frame struct {
	ID       string
	method   Method
	buf      strings.Builder
	complete bool
}

// NewFrame creates an empty frame with the given connection id.
func NewFrame(id string) *Frame {
	return &Frame{ID: id}
}

// Feed appends chunk and reports whether the frame is complete. pending is
// the number of bytes already received but not yet fed.
func (f *Frame) Feed(chunk []byte, pending int) bool {
	if f.complete {
		return true
	}
	if len(chunk) > 0 {
		if f.method == Unknown {
			if chunk[0] == 'G' || chunk[0] == 'g' {
				f.method = Get
			} else {
				f.method = Post
			}
		}
		f.buf.Write(chunk)
	}
	if pending > 0 || f.method == Unknown {
		return false
	}

	text := f.buf.String()
	switch f.method {
	case Get:
		// A poll is answered once its request line is in.
		f.complete = strings.Contains(text, "\n")
	case Post:
		f.complete = strings.Contains(text, Trailer)
	}
	return f.complete
}

// Method returns the classification, Unknown before the first byte.
func (f *Frame) Method() Method { return f.method }

// Complete reports whether the frame has been fully received.
func (f *Frame) Complete() bool { return f.complete }

// Text returns everything accumulated so far.
func (f *Frame) Text() string { return f.buf.String() }

// Len returns the number of accumulated bytes.
func (f *Frame) Len() int { return f.buf.Len() }
