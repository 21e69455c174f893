package ecdh

import (
	"bytes"
	"crypto/rand"
	"testing"

	"nullprogram.com/x/openpgp/internal/ecc"
)

var testFingerprint = make([]byte, 20)

func testCurve(t *testing.T, name string) {
	ci := ecc.FindByName(name)
	if ci == nil {
		t.Fatalf("unknown curve %q", name)
	}
	priv, err := GenerateKey(rand.Reader, ci)
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}

	// A 16-byte session key, as carried for AES-128.
	sessionKey := bytes.Repeat([]byte{0xAB}, 16)
	oid := ci.Oid.EncodedBytes()

	vsG, c, err := Encrypt(rand.Reader, &priv.PublicKey, sessionKey, oid, testFingerprint)
	if err != nil {
		t.Fatalf("Encrypt: %s", err)
	}

	decrypted, err := Decrypt(priv, vsG, c, oid, testFingerprint)
	if err != nil {
		t.Fatalf("Decrypt: %s", err)
	}
	if !bytes.Equal(decrypted, sessionKey) {
		t.Errorf("decrypted session key %X, want %X", decrypted, sessionKey)
	}
}

func TestCurve25519(t *testing.T) { testCurve(t, "Curve25519") }
func TestP256(t *testing.T)       { testCurve(t, "P256") }
func TestP384(t *testing.T)       { testCurve(t, "P384") }
func TestP521(t *testing.T)       { testCurve(t, "P521") }

func TestDecryptRejectsTamperedWrap(t *testing.T) {
	ci := ecc.FindByName("Curve25519")
	priv, err := GenerateKey(rand.Reader, ci)
	if err != nil {
		t.Fatal(err)
	}
	sessionKey := make([]byte, 32)
	oid := ci.Oid.EncodedBytes()

	vsG, c, err := Encrypt(rand.Reader, &priv.PublicKey, sessionKey, oid, testFingerprint)
	if err != nil {
		t.Fatal(err)
	}
	c[0] ^= 0x01
	if _, err := Decrypt(priv, vsG, c, oid, testFingerprint); err == nil {
		t.Errorf("tampered key wrap decrypted")
	}
}

func TestDecryptRejectsWrongFingerprint(t *testing.T) {
	ci := ecc.FindByName("Curve25519")
	priv, err := GenerateKey(rand.Reader, ci)
	if err != nil {
		t.Fatal(err)
	}
	sessionKey := make([]byte, 32)
	oid := ci.Oid.EncodedBytes()

	vsG, c, err := Encrypt(rand.Reader, &priv.PublicKey, sessionKey, oid, testFingerprint)
	if err != nil {
		t.Fatal(err)
	}
	other := bytes.Repeat([]byte{1}, 20)
	if _, err := Decrypt(priv, vsG, c, oid, other); err == nil {
		t.Errorf("wrong recipient fingerprint accepted")
	}
}
