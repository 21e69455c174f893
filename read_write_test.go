package openpgp

import (
	"bytes"
	"crypto/sha256"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nullprogram.com/x/openpgp/packet"
)

func TestSignAndVerifyOnePass(t *testing.T) {
	e := ed25519Entity(t)

	message := make([]byte, 256)
	for i := range message {
		message[i] = byte(i)
	}

	var signed bytes.Buffer
	w, err := Sign(&signed, e, &FileHints{IsBinary: true}, testConfig)
	require.NoError(t, err)
	_, err = w.Write(message)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	md, err := ReadMessage(bytes.NewReader(signed.Bytes()), EntityList{e}, nil, testConfig)
	require.NoError(t, err)
	assert.True(t, md.IsSigned)
	assert.Equal(t, e.PrimaryKey.KeyId, md.SignedByKeyId)
	require.NotNil(t, md.SignedBy)

	got, err := io.ReadAll(md.UnverifiedBody)
	require.NoError(t, err)
	assert.Equal(t, message, got)
	assert.NoError(t, md.SignatureError)

	// Mutate one byte of the embedded literal data; verification must
	// fail. The message bytes 16..23 appear exactly once in the stream.
	tampered := append([]byte(nil), signed.Bytes()...)
	idx := bytes.Index(tampered, []byte{16, 17, 18, 19, 20, 21, 22, 23})
	require.NotEqual(t, -1, idx)
	tampered[idx+1] ^= 0x01

	md, err = ReadMessage(bytes.NewReader(tampered), EntityList{e}, nil, testConfig)
	require.NoError(t, err)
	_, err = io.ReadAll(md.UnverifiedBody)
	require.NoError(t, err)
	assert.Error(t, md.SignatureError)
}

func TestDetachedSignature(t *testing.T) {
	e := ed25519Entity(t)
	message := []byte("detached message contents")

	var sig bytes.Buffer
	require.NoError(t, DetachSign(&sig, e, bytes.NewReader(message), testConfig))

	signer, err := CheckDetachedSignature(EntityList{e}, bytes.NewReader(message), bytes.NewReader(sig.Bytes()), testConfig)
	require.NoError(t, err)
	assert.Equal(t, e.PrimaryKey.Fingerprint, signer.PrimaryKey.Fingerprint)

	// A flipped message bit fails.
	message[3] ^= 0x20
	_, err = CheckDetachedSignature(EntityList{e}, bytes.NewReader(message), bytes.NewReader(sig.Bytes()), testConfig)
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	e := ed25519Entity(t)
	plaintext := []byte("secret message for round-tripping")

	var ciphertext bytes.Buffer
	w, err := Encrypt(&ciphertext, []*Entity{e}, nil, &FileHints{IsBinary: true}, testConfig)
	require.NoError(t, err)
	_, err = w.Write(plaintext)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	md, err := ReadMessage(&ciphertext, EntityList{e}, nil, testConfig)
	require.NoError(t, err)
	assert.True(t, md.IsEncrypted)

	got, err := io.ReadAll(md.UnverifiedBody)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestEncryptSignDecryptVerify(t *testing.T) {
	e := ed25519Entity(t)
	plaintext := []byte("signed and encrypted")

	var ciphertext bytes.Buffer
	w, err := Encrypt(&ciphertext, []*Entity{e}, e, &FileHints{IsBinary: true}, testConfig)
	require.NoError(t, err)
	_, err = w.Write(plaintext)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	md, err := ReadMessage(&ciphertext, EntityList{e}, nil, testConfig)
	require.NoError(t, err)
	assert.True(t, md.IsEncrypted)
	assert.True(t, md.IsSigned)

	got, err := io.ReadAll(md.UnverifiedBody)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
	assert.NoError(t, md.SignatureError)
}

func TestEncryptAEAD(t *testing.T) {
	aeadConfig := &packet.Config{
		Time:       testConfig.Time,
		AEADConfig: &packet.AEADConfig{DefaultMode: packet.AEADModeEAX, ChunkSizeByte: 14},
	}
	e, err := NewEd25519Entity("Carol Example", "", "carol@example.com", aeadConfig)
	require.NoError(t, err)

	plaintext := []byte("Hello, World!\n")
	var ciphertext bytes.Buffer
	w, err := Encrypt(&ciphertext, []*Entity{e}, nil, &FileHints{IsBinary: true}, aeadConfig)
	require.NoError(t, err)
	_, err = w.Write(plaintext)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	md, err := ReadMessage(&ciphertext, EntityList{e}, nil, aeadConfig)
	require.NoError(t, err)
	got, err := io.ReadAll(md.UnverifiedBody)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestSymmetricallyEncryptDecrypt(t *testing.T) {
	passphrase := []byte("correct horse battery staple")
	plaintext := []byte("passphrase protected data")

	var ciphertext bytes.Buffer
	w, err := SymmetricallyEncrypt(&ciphertext, passphrase, &FileHints{IsBinary: true}, testConfig)
	require.NoError(t, err)
	_, err = w.Write(plaintext)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	prompts := 0
	prompt := func(keys []Key, symmetric bool) ([]byte, error) {
		prompts++
		require.True(t, symmetric)
		return passphrase, nil
	}

	md, err := ReadMessage(&ciphertext, nil, prompt, testConfig)
	require.NoError(t, err)
	assert.True(t, md.IsSymmetricallyEncrypted)

	got, err := io.ReadAll(md.UnverifiedBody)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
	assert.Equal(t, 1, prompts)
}

func TestUnauthenticatedMessageRejected(t *testing.T) {
	// A bare tag 9 packet (no MDC) must be refused by default. Build
	// SKESK + tag 9 by hand: first a valid SKESK.
	var skesk bytes.Buffer
	key, err := packet.SerializeSymmetricKeyEncrypted(&skesk, []byte("pw"), testConfig)
	require.NoError(t, err)
	_ = key

	legacy := append([]byte(nil), skesk.Bytes()...)
	// Tag 9 with a small dummy body.
	legacy = append(legacy, 0xc0|9, 4, 1, 2, 3, 4)

	_, err = ReadMessage(bytes.NewReader(legacy), nil, func([]Key, bool) ([]byte, error) {
		return []byte("pw"), nil
	}, testConfig)
	assert.Error(t, err)
}

func TestCanonicalTextHash(t *testing.T) {
	h := NewCanonicalTextHash(sha256.New())
	h.Write([]byte("line one\nline two\n"))
	got := h.Sum(nil)

	expected := sha256.Sum256([]byte("line one\r\nline two\r\n"))
	assert.Equal(t, expected[:], got)

	// Already canonical input is unchanged.
	h = NewCanonicalTextHash(sha256.New())
	h.Write([]byte("line one\r\nline two\r\n"))
	assert.Equal(t, expected[:], h.Sum(nil))
}
