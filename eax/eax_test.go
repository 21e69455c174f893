package eax

import (
	"bytes"
	"crypto/aes"
	"crypto/rand"
	"encoding/hex"
	"testing"
)

// Test vectors from "THE EAX MODE OF OPERATION", appendix test vectors.
var eaxVectors = []struct {
	key, nonce, header, msg, cipher string
}{
	{
		"233952DEE4D5ED5F9B9C6D6FF80FF478",
		"62EC67F9C3A4A407FCB2A8C49031A8B3",
		"6BFB914FD07EAE6B",
		"",
		"E037830E8389F27B025A2D6527E79D01",
	},
	{
		"91945D3F4DCBEE0BF45EF52255F095A4",
		"BECAF043B0A23D843194BA972C66DEBD",
		"FA3BFD4806EB53FA",
		"F7FB",
		"19DD5C4C9331049D0BDAB0277408F67967E5",
	},
	{
		"01F74AD64077F2E704C0F60ADA3DD523",
		"70C3DB4F0D26368400A10ED05D2BFF5E",
		"234A3463C1264AC6",
		"1A47CB4933",
		"D851D5BAE03A59F238A23E39199DC9266626C40F80",
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

func TestEAXVectors(t *testing.T) {
	for i, v := range eaxVectors {
		block, err := aes.NewCipher(mustHex(t, v.key))
		if err != nil {
			t.Fatal(err)
		}
		aead, err := NewEAX(block)
		if err != nil {
			t.Fatal(err)
		}
		ct := aead.Seal(nil, mustHex(t, v.nonce), mustHex(t, v.msg), mustHex(t, v.header))
		if !bytes.Equal(ct, mustHex(t, v.cipher)) {
			t.Errorf("#%d: Seal = %X, want %s", i, ct, v.cipher)
		}
		pt, err := aead.Open(nil, mustHex(t, v.nonce), ct, mustHex(t, v.header))
		if err != nil {
			t.Errorf("#%d: Open: %s", i, err)
		}
		if !bytes.Equal(pt, mustHex(t, v.msg)) {
			t.Errorf("#%d: Open = %X, want %s", i, pt, v.msg)
		}
	}
}

func TestEAXRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	nonce := make([]byte, 16)
	adata := []byte("associated data")
	rand.Read(key)
	rand.Read(nonce)

	block, _ := aes.NewCipher(key)
	aead, err := NewEAX(block)
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

func TestEAXTamperDetected(t *testing.T) {
	key := make([]byte, 16)
	nonce := make([]byte, 16)
	block, _ := aes.NewCipher(key)
	aead, _ := NewEAX(block)

	ct := aead.Seal(nil, nonce, []byte("attack at dawn"), nil)
	for i := range ct {
		ct[i] ^= 0x40
		if _, err := aead.Open(nil, nonce, ct, nil); err == nil {
			t.Fatalf("bit flip at %d not detected", i)
		}
		ct[i] ^= 0x40
	}
}
