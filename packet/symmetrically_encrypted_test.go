package packet

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nullprogram.com/x/openpgp/errors"
)

func roundTripSEIPD(t *testing.T, plaintext []byte, key []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := SerializeSymmetricallyEncrypted(&buf, CipherAES256, key, nil)
	require.NoError(t, err)
	_, err = w.Write(plaintext)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestSymmetricallyEncryptedRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0xA5}, 32)
	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	serialized := roundTripSEIPD(t, plaintext, key)

	p, err := Read(bytes.NewReader(serialized))
	require.NoError(t, err)
	se, ok := p.(*SymmetricallyEncrypted)
	require.True(t, ok, "got %T", p)
	assert.True(t, se.MDC)

	contents, err := se.Decrypt(CipherAES256, key)
	require.NoError(t, err)

	got, err := io.ReadAll(contents)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
	require.NoError(t, contents.Close())
}

func TestSymmetricallyEncryptedMDCTamper(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	plaintext := []byte("integrity protected data")
	serialized := roundTripSEIPD(t, plaintext, key)

	// Invert every bit of the last ciphertext byte, which lands in the
	// encrypted MDC trailer.
	serialized[len(serialized)-1] ^= 0xff

	p, err := Read(bytes.NewReader(serialized))
	require.NoError(t, err)
	se := p.(*SymmetricallyEncrypted)

	contents, err := se.Decrypt(CipherAES256, key)
	require.NoError(t, err)

	// Reading may succeed: the failure must surface at Close, before any
	// caller treats the plaintext as authenticated.
	io.ReadAll(contents)
	err = contents.Close()
	require.Error(t, err)
	_, isIntegrity := err.(errors.IntegrityError)
	assert.True(t, isIntegrity, "got %T: %v", err, err)
}

func TestSymmetricallyEncryptedWrongKeySize(t *testing.T) {
	se := &SymmetricallyEncrypted{MDC: true, Contents: bytes.NewReader(nil)}
	_, err := se.Decrypt(CipherAES256, make([]byte, 16))
	assert.Error(t, err)
}
