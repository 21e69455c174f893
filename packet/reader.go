package packet

import (
	"io"

	"nullprogram.com/x/openpgp/errors"
)

// Reader reads packets from an io.Reader and allows packets to be 'unread' so
// that they result from the next call to Next. Composite packets (compressed
// data, encrypted data) push their decrypted or decompressed contents as a
// new layer, which is read to completion before the enclosing layer resumes.
type Reader struct {
	q       []Packet
	readers []io.Reader
	allowed map[uint8]bool
}

// maxReaders is the maximum number of packet layers that may be nested.
// This ensures that a malicious packet sequence does not cause arbitrary
// recursion.
const maxReaders = 32

// Next returns the most recently unread Packet, or reads another packet from
// the top-most io.Reader. Unknown, non-critical packet types are skipped.
func (r *Reader) Next() (p Packet, err error) {
	if len(r.q) > 0 {
		p = r.q[len(r.q)-1]
		r.q = r.q[:len(r.q)-1]
		return
	}

	for len(r.readers) > 0 {
		p, err = readWithCheck(r.readers[len(r.readers)-1], r.allowed)
		if err == nil {
			return
		}
		if err == io.EOF {
			r.readers = r.readers[:len(r.readers)-1]
			continue
		}
		if _, ok := err.(errors.UnknownPacketTypeError); ok {
			continue
		}
		return nil, err
	}

	return nil, io.EOF
}

// Push causes the Reader to start reading from a new io.Reader. When an EOF
// error is seen from the new io.Reader, it is popped and the Reader continues
// to read from the next most recent io.Reader. Push returns a StructuralError
// if pushing the reader would exceed the maximum recursion level, otherwise it
// returns nil.
func (r *Reader) Push(reader io.Reader) (err error) {
	if len(r.readers) >= maxReaders {
		return errors.StructuralError("too many layers of packets")
	}
	r.readers = append(r.readers, reader)
	return nil
}

// Unread causes the given Packet to be returned from the next call to
// Next.
func (r *Reader) Unread(p Packet) {
	r.q = append(r.q, p)
}

// NewReader returns a new Reader wrapping the given io.Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		q:       nil,
		readers: []io.Reader{r},
	}
}

// NewCheckReader returns a Reader that only yields packets whose tags are in
// the allowed set. A recognized packet outside the set causes a
// StructuralError from Next, raised after the framing but before any of the
// packet body has been interpreted; private-use tags outside the set are
// silently dropped.
func NewCheckReader(r io.Reader, allowed []uint8) *Reader {
	set := make(map[uint8]bool, len(allowed))
	for _, tag := range allowed {
		set[tag] = true
	}
	return &Reader{
		q:       nil,
		readers: []io.Reader{r},
		allowed: set,
	}
}
