package packet

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"golang.org/x/crypto/ed25519"

	"nullprogram.com/x/openpgp/internal/algorithm"
)

func testEdDSAKey(t *testing.T) *PrivateKey {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i * 7)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return NewEdDSAPrivateKey(time.Unix(1500000000, 0), priv)
}

func TestSignatureSignAndVerify(t *testing.T) {
	priv := testEdDSAKey(t)

	sig := &Signature{
		SigType:      SigTypeBinary,
		PubKeyAlgo:   PubKeyAlgoEdDSA,
		Hash:         algorithm.SHA256,
		CreationTime: time.Unix(1500000100, 0),
		IssuerKeyId:  &priv.KeyId,
	}

	message := make([]byte, 256)
	for i := range message {
		message[i] = byte(i)
	}
	h := sig.Hash.New()
	h.Write(message)
	if err := sig.Sign(h, priv, nil); err != nil {
		t.Fatalf("Sign: %s", err)
	}

	h = sig.Hash.New()
	h.Write(message)
	if err := priv.PublicKey.VerifySignature(h, sig); err != nil {
		t.Fatalf("VerifySignature: %s", err)
	}

	// Flipping any bit of the message must break verification.
	message[17] ^= 0x01
	h = sig.Hash.New()
	h.Write(message)
	if err := priv.PublicKey.VerifySignature(h, sig); err == nil {
		t.Errorf("verification succeeded over mutated message")
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	priv := testEdDSAKey(t)

	sig := &Signature{
		SigType:      SigTypeBinary,
		PubKeyAlgo:   PubKeyAlgoEdDSA,
		Hash:         algorithm.SHA256,
		CreationTime: time.Unix(1500000100, 0),
		IssuerKeyId:  &priv.KeyId,
	}
	h := sig.Hash.New()
	h.Write([]byte("signed data"))
	if err := sig.Sign(h, priv, nil); err != nil {
		t.Fatalf("Sign: %s", err)
	}

	var buf bytes.Buffer
	if err := sig.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %s", err)
	}
	serialized := buf.Bytes()

	p, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %s", err)
	}
	parsed, ok := p.(*Signature)
	if !ok {
		t.Fatalf("got %T, want *Signature", p)
	}

	if parsed.SigType != sig.SigType || parsed.PubKeyAlgo != sig.PubKeyAlgo {
		t.Errorf("parsed header fields differ")
	}
	if parsed.IssuerKeyId == nil || *parsed.IssuerKeyId != priv.KeyId {
		t.Errorf("issuer lost in round trip")
	}
	if !parsed.CreationTime.Equal(sig.CreationTime) {
		t.Errorf("creation time lost in round trip")
	}

	// Verification works after a round trip.
	h = parsed.Hash.New()
	h.Write([]byte("signed data"))
	if err := priv.PublicKey.VerifySignature(h, parsed); err != nil {
		t.Errorf("round-tripped signature does not verify: %s", err)
	}

	// Re-serialization is byte identical.
	var buf2 bytes.Buffer
	if err := parsed.Serialize(&buf2); err != nil {
		t.Fatalf("re-Serialize: %s", err)
	}
	if !bytes.Equal(serialized, buf2.Bytes()) {
		t.Errorf("signature round trip not byte identical")
	}
}

func TestSignatureRSA(t *testing.T) {
	rsaPriv, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatal(err)
	}
	priv := NewRSAPrivateKey(time.Unix(1500000000, 0), rsaPriv)

	sig := &Signature{
		SigType:      SigTypeBinary,
		PubKeyAlgo:   PubKeyAlgoRSA,
		Hash:         algorithm.SHA256,
		CreationTime: time.Unix(1500000100, 0),
		IssuerKeyId:  &priv.KeyId,
	}
	h := sig.Hash.New()
	h.Write([]byte("rsa signed data"))
	if err := sig.Sign(h, priv, nil); err != nil {
		t.Fatalf("Sign: %s", err)
	}

	h = sig.Hash.New()
	h.Write([]byte("rsa signed data"))
	if err := priv.PublicKey.VerifySignature(h, sig); err != nil {
		t.Fatalf("VerifySignature: %s", err)
	}

	h = sig.Hash.New()
	h.Write([]byte("rsa signed datA"))
	if err := priv.PublicKey.VerifySignature(h, sig); err == nil {
		t.Errorf("verification succeeded over different message")
	}
}

func TestSignatureExpiry(t *testing.T) {
	priv := testEdDSAKey(t)

	lifetime := uint32(3600)
	sig := &Signature{
		SigType:         SigTypeBinary,
		PubKeyAlgo:      PubKeyAlgoEdDSA,
		Hash:            algorithm.SHA256,
		CreationTime:    time.Unix(1500000000, 0),
		SigLifetimeSecs: &lifetime,
		IssuerKeyId:     &priv.KeyId,
	}
	h := sig.Hash.New()
	h.Write([]byte("x"))
	if err := sig.Sign(h, priv, nil); err != nil {
		t.Fatal(err)
	}

	if sig.SigExpired(time.Unix(1500000000+1800, 0)) {
		t.Errorf("signature expired during its lifetime")
	}
	if !sig.SigExpired(time.Unix(1500000000+7200, 0)) {
		t.Errorf("signature still valid after expiry")
	}
	if !sig.SigExpired(time.Unix(1400000000, 0)) {
		t.Errorf("future signature considered valid")
	}
}

func TestUnknownCriticalSubpacket(t *testing.T) {
	sig := new(Signature)
	// Subpacket type 100 with the critical bit set.
	subpackets := []byte{2, 0x80 | 100, 0}
	_, err := parseSignatureSubpacket(sig, subpackets, true)
	if err == nil {
		t.Errorf("unknown critical subpacket did not error")
	}

	// Without the critical bit it is ignored.
	subpackets = []byte{2, 100, 0}
	if _, err := parseSignatureSubpacket(sig, subpackets, true); err != nil {
		t.Errorf("unknown non-critical subpacket errored: %s", err)
	}
}
