package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"kittens-server/matcherrors"
)

// Reader consumes big-endian fields from an inbound payload. The first failed
// read sticks: later reads return zero values and Err reports the failure.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if len(r.buf)-r.off < n {
		r.err = fmt.Errorf("need %d bytes at offset %d, have %d: %w", n, r.off, len(r.buf)-r.off, matcherrors.ErrShortPacket)
		return false
	}
	return true
}

// Byte reads one byte.
func (r *Reader) Byte() byte {
	if !r.need(1) {
		return 0
	}
	b := r.buf[r.off]
	r.off++
	return b
}

// Uint16 reads a big-endian uint16.
func (r *Reader) Uint16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

// Uint32 reads a big-endian uint32.
func (r *Reader) Uint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

// Bytes reads exactly n bytes. The returned slice is a copy.
func (r *Reader) Bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out
}

// String reads a uint16 length followed by that many bytes, rejecting
// strings longer than max.
func (r *Reader) String(max int) string {
	n := int(r.Uint16())
	if r.err != nil {
		return ""
	}
	if n > max {
		r.err = fmt.Errorf("string of %d bytes, limit %d: %w", n, max, matcherrors.ErrFieldTooLong)
		return ""
	}
	return string(r.Bytes(n))
}

// Err returns the first read error, if any.
func (r *Reader) Err() error { return r.err }

// Rest returns the bytes following the consumed fields; they belong to the
// next coalesced message.
func (r *Reader) Rest() []byte {
	if r.off >= len(r.buf) {
		return nil
	}
	return r.buf[r.off:]
}

// Writer builds an outbound message.
type Writer struct {
	buf []byte
}

// NewWriter starts a message with the given downstream code.
func NewWriter(code byte) *Writer {
	return &Writer{buf: []byte{code}}
}

// Byte appends one byte.
func (w *Writer) Byte(b byte) *Writer {
	w.buf = append(w.buf, b)
	return w
}

// Bool appends 1 for true and 0 for false.
func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.Byte(1)
	}
	return w.Byte(0)
}

// Uint16 appends a big-endian uint16.
func (w *Writer) Uint16(v uint16) *Writer {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
	return w
}

// Uint32 appends a big-endian uint32.
func (w *Writer) Uint32(v uint32) *Writer {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
	return w
}

// Raw appends b verbatim.
func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// String appends a uint16 length prefix and the string bytes, truncating at
// the largest length a uint16 can describe.
func (w *Writer) String(s string) *Writer {
	if len(s) > math.MaxUint16 {
		s = s[:math.MaxUint16]
	}
	w.Uint16(uint16(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

// Bytes returns the encoded message.
func (w *Writer) Bytes() []byte { return w.buf }
