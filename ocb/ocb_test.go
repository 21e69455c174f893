package ocb

import (
	"bytes"
	"crypto/aes"
	"crypto/rand"
	"encoding/hex"
	"testing"
)

// Test vectors from RFC 7253, appendix A, for AES-128 with the fixed key
// 000102030405060708090A0B0C0D0E0F.
var ocbVectors = []struct {
	nonce, adata, msg, cipher string
}{
	{
		"BBAA99887766554433221100",
		"",
		"",
		"785407BFFFC8AD9EDCC5520AC9111EE6",
	},
	{
		"BBAA99887766554433221101",
		"0001020304050607",
		"0001020304050607",
		"6820B3657B6F615A5725BDA0D3B4EB3A257C9AF1F8F03009",
	},
	{
		"BBAA99887766554433221102",
		"0001020304050607",
		"",
		"81017F8203F081277152FADE694A0A00",
	},
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %s", err)
	}
	return b
}

func TestOCBVectors(t *testing.T) {
	key := mustHex(t, "000102030405060708090A0B0C0D0E0F")
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range ocbVectors {
		aead, err := NewOCBWithNonceAndTagSize(block, 12, 16)
		if err != nil {
			t.Fatal(err)
		}
		ct := aead.Seal(nil, mustHex(t, v.nonce), mustHex(t, v.msg), mustHex(t, v.adata))
		if !bytes.Equal(ct, mustHex(t, v.cipher)) {
			t.Errorf("#%d: Seal = %X, want %s", i, ct, v.cipher)
		}
		pt, err := aead.Open(nil, mustHex(t, v.nonce), ct, mustHex(t, v.adata))
		if err != nil {
			t.Errorf("#%d: Open: %s", i, err)
		}
		if !bytes.Equal(pt, mustHex(t, v.msg)) {
			t.Errorf("#%d: Open = %X, want %s", i, pt, v.msg)
		}
	}
}

func TestOCBRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	nonce := make([]byte, 15)
	adata := []byte("header")
	rand.Read(key)
	rand.Read(nonce)

	block, _ := aes.NewCipher(key)
	aead, err := NewOCB(block)
	if err != nil {
		t.Fatal(err)
	}

	for _, n := range []int{0, 1, 15, 16, 17, 100, 1000} {
		msg := make([]byte, n)
		rand.Read(msg)
		ct := aead.Seal(nil, nonce, msg, adata)
		pt, err := aead.Open(nil, nonce, ct, adata)
		if err != nil {
			t.Fatalf("len %d: Open: %s", n, err)
		}
		if !bytes.Equal(pt, msg) {
			t.Fatalf("len %d: round trip mismatch", n)
		}
	}
}

func TestOCBTamperDetected(t *testing.T) {
	key := make([]byte, 16)
	nonce := make([]byte, 15)
	block, _ := aes.NewCipher(key)
	aead, _ := NewOCB(block)

	ct := aead.Seal(nil, nonce, []byte("attack at dawn"), nil)
	for i := range ct {
		ct[i] ^= 0x01
		if _, err := aead.Open(nil, nonce, ct, nil); err == nil {
			t.Fatalf("bit flip at %d not detected", i)
		}
		ct[i] ^= 0x01
	}
}
