package encoding

import (
	"bytes"
	"math/big"
	"testing"
)

func TestMPIRoundTrip(t *testing.T) {
	tests := []struct {
		value     []byte
		bitLength uint16
		encoded   []byte
	}{
		{[]byte{0x01}, 1, []byte{0x00, 0x01, 0x01}},
		{[]byte{0x01, 0xff}, 9, []byte{0x00, 0x09, 0x01, 0xff}},
		{[]byte{0xff, 0x00}, 16, []byte{0x00, 0x10, 0xff, 0x00}},
	}

	for _, test := range tests {
		m := NewMPI(test.value)
		if m.BitLength() != test.bitLength {
			t.Errorf("NewMPI(%x).BitLength() = %d, want %d", test.value, m.BitLength(), test.bitLength)
		}
		if !bytes.Equal(m.EncodedBytes(), test.encoded) {
			t.Errorf("NewMPI(%x).EncodedBytes() = %x, want %x", test.value, m.EncodedBytes(), test.encoded)
		}

		parsed := new(MPI)
		if _, err := parsed.ReadFrom(bytes.NewBuffer(m.EncodedBytes())); err != nil {
			t.Fatalf("ReadFrom(%x): %s", m.EncodedBytes(), err)
		}
		if !bytes.Equal(parsed.Bytes(), test.value) || parsed.BitLength() != test.bitLength {
			t.Errorf("round trip of %x gave %x/%d", test.value, parsed.Bytes(), parsed.BitLength())
		}
	}
}

func TestMPIStripsLeadingZeroes(t *testing.T) {
	m := NewMPI([]byte{0x00, 0x00, 0x01})
	if m.BitLength() != 1 || len(m.Bytes()) != 1 {
		t.Errorf("leading zeroes not stripped: %x (%d bits)", m.Bytes(), m.BitLength())
	}
}

func TestMPIRejectsZero(t *testing.T) {
	// A declared 8-bit MPI whose payload is all zero.
	encoded := []byte{0x00, 0x08, 0x00}
	m := new(MPI)
	if _, err := m.ReadFrom(bytes.NewBuffer(encoded)); err == nil {
		t.Errorf("zero-valued MPI did not error")
	}
}

func TestMPISetBig(t *testing.T) {
	n := new(big.Int).SetInt64(0x1ffff)
	m := new(MPI).SetBig(n)
	if m.BitLength() != 17 {
		t.Errorf("SetBig bit length = %d, want 17", m.BitLength())
	}

	parsed := new(MPI)
	if _, err := parsed.ReadFrom(bytes.NewBuffer(m.EncodedBytes())); err != nil {
		t.Fatalf("ReadFrom: %s", err)
	}
	if new(big.Int).SetBytes(parsed.Bytes()).Cmp(n) != 0 {
		t.Errorf("round trip through big.Int failed")
	}
}

func TestOIDRoundTrip(t *testing.T) {
	oid := NewOID([]byte{0x2b, 0x06, 0x01, 0x04, 0x01, 0xda, 0x47, 0x0f, 0x01})
	parsed := new(OID)
	if _, err := parsed.ReadFrom(bytes.NewBuffer(oid.EncodedBytes())); err != nil {
		t.Fatalf("ReadFrom: %s", err)
	}
	if !bytes.Equal(parsed.Bytes(), oid.Bytes()) {
		t.Errorf("OID round trip gave %x", parsed.Bytes())
	}
}

func TestOIDRejectsReservedLength(t *testing.T) {
	for _, b := range []byte{0x00, 0xff} {
		parsed := new(OID)
		if _, err := parsed.ReadFrom(bytes.NewBuffer([]byte{b})); err == nil {
			t.Errorf("reserved OID length %x did not error", b)
		}
	}
}
