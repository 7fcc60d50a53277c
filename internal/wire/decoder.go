package wire

import "bytes"

// Decoder turns an arbitrarily chunked device->host byte stream into a
// sequence of well-formed input frames. Bytes that cannot belong to a frame
// (noise before a sync byte, leftovers from a device reboot) are discarded;
// a partial frame is held in the buffer until more bytes arrive.
//
// The protocol has no checksum, so a corrupted byte inside a frame is
// accepted as data. The decoder only recovers from corruption that breaks
// the sync position.
type Decoder struct {
	buf []byte
}

// NewDecoder returns a decoder with an empty buffer.
func NewDecoder() *Decoder {
	return &Decoder{buf: make([]byte, 0, 4*InputPacketSize)}
}

// Feed appends a chunk of bytes from the transport and returns every
// complete frame now available, in stream order. It is safe to call with an
// empty chunk (for example after a zero-byte read) and after read errors:
// buffered bytes survive and scanning resumes with the next chunk.
func (d *Decoder) Feed(chunk []byte) []InputFrame {
	d.buf = append(d.buf, chunk...)

	var frames []InputFrame
	for len(d.buf) >= InputPacketSize {
		idx := bytes.IndexByte(d.buf, SyncDeviceToHost)
		if idx < 0 {
			// Nothing recoverable in the buffer.
			d.buf = d.buf[:0]
			break
		}
		if idx > 0 {
			// Resync: everything before the sync byte is noise.
			d.buf = append(d.buf[:0], d.buf[idx:]...)
		}
		if len(d.buf) < InputPacketSize {
			break
		}

		frame, err := ParseInputFrame(d.buf[:InputPacketSize])
		d.buf = append(d.buf[:0], d.buf[InputPacketSize:]...)
		if err != nil {
			// Unreachable: the slice starts at a sync byte and is
			// exactly one packet long.
			continue
		}
		frames = append(frames, frame)
	}
	return frames
}

// Buffered reports how many undecoded bytes the decoder is holding.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}
