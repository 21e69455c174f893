package packet

import (
	"bytes"
	"io"
	"testing"
)

func TestSerializeLengthRoundTrip(t *testing.T) {
	lengths := []int{0, 1, 191, 192, 193, 8383, 8384, 65535, 1 << 20}
	for _, length := range lengths {
		var buf bytes.Buffer
		if err := serializeLength(&buf, length); err != nil {
			t.Fatalf("serializeLength(%d): %s", length, err)
		}
		parsed, isPartial, err := readLength(&buf)
		if err != nil {
			t.Fatalf("readLength(%d): %s", length, err)
		}
		if isPartial {
			t.Errorf("length %d parsed as partial", length)
		}
		if parsed != int64(length) {
			t.Errorf("length %d round-tripped to %d", length, parsed)
		}
	}
}

func TestReadHeaderNewFormat(t *testing.T) {
	// A new-format literal data packet with a 5-byte body.
	input := []byte{0xc0 | 11, 5, 1, 2, 3, 4, 5}
	tag, length, contents, err := readHeader(bytes.NewBuffer(input))
	if err != nil {
		t.Fatalf("readHeader: %s", err)
	}
	if tag != packetTypeLiteralData || length != 5 {
		t.Errorf("got tag %d length %d", tag, length)
	}
	body, err := io.ReadAll(contents)
	if err != nil || !bytes.Equal(body, input[2:]) {
		t.Errorf("contents = %x, %v", body, err)
	}
}

func TestReadHeaderOldFormat(t *testing.T) {
	// An old-format packet: tag 11, one-byte length.
	input := []byte{0x80 | 11<<2 | 0, 3, 9, 9, 9}
	tag, length, contents, err := readHeader(bytes.NewBuffer(input))
	if err != nil {
		t.Fatalf("readHeader: %s", err)
	}
	if tag != packetTypeLiteralData || length != 3 {
		t.Errorf("got tag %d length %d", tag, length)
	}
	if body, _ := io.ReadAll(contents); !bytes.Equal(body, []byte{9, 9, 9}) {
		t.Errorf("contents = %x", body)
	}
}

func TestReadHeaderRejectsBadTagByte(t *testing.T) {
	if _, _, _, err := readHeader(bytes.NewBuffer([]byte{0x11})); err == nil {
		t.Errorf("tag byte without MSB accepted")
	}
}

func TestPartialLengthRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := &partialLengthWriter{w: noOpCloser{&buf}}

	data := make([]byte, 30000)
	for i := range data {
		data[i] = byte(i)
	}
	chunks := []int{1, 300, 10000, 19699}
	offset := 0
	for _, n := range chunks {
		if _, err := w.Write(data[offset : offset+n]); err != nil {
			t.Fatalf("Write: %s", err)
		}
		offset += n
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %s", err)
	}

	r := &partialLengthReader{r: &buf, remaining: 0, isPartial: true}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %s", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("partial length round trip mismatch: %d bytes vs %d", len(got), len(data))
	}
}

func TestReadWithCheckRejectsDisallowed(t *testing.T) {
	var buf bytes.Buffer
	uid := &UserId{Id: "test <test@example.com>"}
	if err := uid.Serialize(&buf); err != nil {
		t.Fatal(err)
	}

	allowed := map[uint8]bool{uint8(packetTypeLiteralData): true}
	if _, err := readWithCheck(&buf, allowed); err == nil {
		t.Errorf("disallowed packet type parsed without error")
	}
}

func TestReaderSkipsMarkerPacket(t *testing.T) {
	var buf bytes.Buffer
	// Marker packet, then a user id packet.
	buf.Write([]byte{0xc0 | 10, 3, 'P', 'G', 'P'})
	uid := &UserId{Id: "x"}
	if err := uid.Serialize(&buf); err != nil {
		t.Fatal(err)
	}

	r := NewReader(&buf)
	p, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %s", err)
	}
	if _, ok := p.(*UserId); !ok {
		t.Errorf("got %T, want *UserId", p)
	}
}
