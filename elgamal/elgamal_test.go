package elgamal

import (
	"bytes"
	"crypto/rand"
	"math/big"
	"testing"
)

// The group used here is the 1536-bit MODP group from RFC 3526. Any prime
// order group works for a round-trip test; this one is the size deployed
// keys actually use.
const primeHex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7EDEE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB9ED529077096966D670C354E4ABC9804F1746C08CA237327FFFFFFFFFFFFFFFF"

func testKey(t *testing.T) *PrivateKey {
	t.Helper()
	p, ok := new(big.Int).SetString(primeHex, 16)
	if !ok {
		t.Fatal("bad prime constant")
	}
	g := big.NewInt(2)

	x, err := rand.Int(rand.Reader, p)
	if err != nil {
		t.Fatal(err)
	}
	priv := &PrivateKey{
		PublicKey: PublicKey{
			G: g,
			P: p,
			Y: new(big.Int).Exp(g, x, p),
		},
		X: x,
	}
	return priv
}

func TestEncryptDecrypt(t *testing.T) {
	priv := testKey(t)

	message := []byte("hello world")
	c1, c2, err := Encrypt(rand.Reader, &priv.PublicKey, message)
	if err != nil {
		t.Fatalf("Encrypt: %s", err)
	}
	decrypted, err := Decrypt(priv, c1, c2)
	if err != nil {
		t.Fatalf("Decrypt: %s", err)
	}
	if !bytes.Equal(decrypted, message) {
		t.Errorf("decryption yielded %x, want %x", decrypted, message)
	}
}

func TestRejectsOversizedMessage(t *testing.T) {
	priv := testKey(t)
	long := make([]byte, (priv.P.BitLen()+7)/8)
	if _, _, err := Encrypt(rand.Reader, &priv.PublicKey, long); err == nil {
		t.Errorf("oversized message accepted")
	}
}

func TestDecryptBadCiphertext(t *testing.T) {
	priv := testKey(t)
	// A ciphertext that cannot carry valid PKCS#1 padding.
	c1 := big.NewInt(1)
	c2 := big.NewInt(1)
	if _, err := Decrypt(priv, c1, c2); err == nil {
		t.Errorf("invalid padding accepted")
	}
}
