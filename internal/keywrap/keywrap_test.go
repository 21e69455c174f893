package keywrap

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// Test vectors from RFC 3394, section 4.
var wrapTests = []struct {
	kek        string
	plaintext  string
	ciphertext string
}{
	{
		"000102030405060708090A0B0C0D0E0F",
		"00112233445566778899AABBCCDDEEFF",
		"1FA68B0A8112B447AEF34BD8FB5A7B829D3E862371D2CFE5",
	},
	{
		"000102030405060708090A0B0C0D0E0F1011121314151617",
		"00112233445566778899AABBCCDDEEFF",
		"96778B25AE6CA435F92B5B97C050AED2468AB8A17AD84E5D",
	},
	{
		"000102030405060708090A0B0C0D0E0F101112131415161718191A1B1C1D1E1F",
		"00112233445566778899AABBCCDDEEFF",
		"64E8C3F9CE0F5BA263E9777905818A2A93C8191E7D6E8AE7",
	},
}

func fromHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %s", s, err)
	}
	return b
}

func TestWrap(t *testing.T) {
	for i, test := range wrapTests {
		wrapped, err := Wrap(fromHex(t, test.kek), fromHex(t, test.plaintext))
		if err != nil {
			t.Fatalf("#%d: Wrap: %s", i, err)
		}
		if !bytes.Equal(wrapped, fromHex(t, test.ciphertext)) {
			t.Errorf("#%d: Wrap = %X, want %s", i, wrapped, test.ciphertext)
		}
	}
}

func TestUnwrap(t *testing.T) {
	for i, test := range wrapTests {
		unwrapped, err := Unwrap(fromHex(t, test.kek), fromHex(t, test.ciphertext))
		if err != nil {
			t.Fatalf("#%d: Unwrap: %s", i, err)
		}
		if !bytes.Equal(unwrapped, fromHex(t, test.plaintext)) {
			t.Errorf("#%d: Unwrap = %X, want %s", i, unwrapped, test.plaintext)
		}
	}
}

func TestUnwrapTamperDetected(t *testing.T) {
	test := wrapTests[0]
	ciphertext := fromHex(t, test.ciphertext)
	ciphertext[0] ^= 0x01
	if _, err := Unwrap(fromHex(t, test.kek), ciphertext); err != ErrUnwrapFailed {
		t.Errorf("tampered unwrap returned %v, want ErrUnwrapFailed", err)
	}
}

func TestWrapRejectsPartialBlocks(t *testing.T) {
	if _, err := Wrap(fromHex(t, wrapTests[0].kek), []byte{1, 2, 3}); err != ErrWrapPlaintext {
		t.Errorf("partial block wrap returned %v, want ErrWrapPlaintext", err)
	}
}
