package packet

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nullprogram.com/x/openpgp/errors"
)

func serializeAEAD(t *testing.T, plaintext, key []byte, mode AEADMode, chunkSizeByte byte) []byte {
	t.Helper()
	config := &Config{AEADConfig: &AEADConfig{DefaultMode: mode, ChunkSizeByte: chunkSizeByte}}
	var buf bytes.Buffer
	w, err := SerializeAEADEncrypted(&buf, key, CipherAES256, mode, config)
	require.NoError(t, err)
	_, err = w.Write(plaintext)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func decryptAEAD(t *testing.T, serialized, key []byte) ([]byte, error) {
	t.Helper()
	p, err := Read(bytes.NewReader(serialized))
	require.NoError(t, err)
	ae, ok := p.(*AEADEncrypted)
	require.True(t, ok, "got %T", p)

	contents, err := ae.Decrypt(CipherAES256, key)
	if err != nil {
		return nil, err
	}
	got, err := io.ReadAll(contents)
	if err != nil {
		return got, err
	}
	return got, contents.Close()
}

func TestAEADEncryptedRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x77}, 32)
	plaintext := []byte("Hello, World!\n")

	for _, mode := range []AEADMode{AEADModeEAX, AEADModeOCB, AEADModeExperimentalGCM} {
		serialized := serializeAEAD(t, plaintext, key, mode, 14)
		got, err := decryptAEAD(t, serialized, key)
		require.NoError(t, err, "mode %d", mode)
		assert.Equal(t, plaintext, got, "mode %d", mode)
	}
}

func TestAEADEncryptedMultiChunk(t *testing.T) {
	key := bytes.Repeat([]byte{0x13}, 32)
	// Chunk size byte 6 gives 4 KiB chunks; span several of them.
	plaintext := bytes.Repeat([]byte("0123456789abcdef"), 1024)

	serialized := serializeAEAD(t, plaintext, key, AEADModeEAX, 6)
	got, err := decryptAEAD(t, serialized, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestAEADChunkSizeIndependence(t *testing.T) {
	key := bytes.Repeat([]byte{0x99}, 32)
	plaintext := bytes.Repeat([]byte("chunk boundary test. "), 512)

	c1 := serializeAEAD(t, plaintext, key, AEADModeOCB, 6)
	c2 := serializeAEAD(t, plaintext, key, AEADModeOCB, 8)
	assert.NotEqual(t, c1, c2)

	got1, err := decryptAEAD(t, c1, key)
	require.NoError(t, err)
	got2, err := decryptAEAD(t, c2, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got1)
	assert.Equal(t, plaintext, got2)
}

func TestAEADFinalTagTamper(t *testing.T) {
	key := bytes.Repeat([]byte{0x55}, 32)
	plaintext := []byte("Hello, World!\n")

	serialized := serializeAEAD(t, plaintext, key, AEADModeEAX, 14)
	serialized[len(serialized)-1] ^= 0x01

	_, err := decryptAEAD(t, serialized, key)
	require.Error(t, err)
	_, isIntegrity := err.(errors.IntegrityError)
	assert.True(t, isIntegrity, "got %T: %v", err, err)
}

func TestAEADChunkTamperYieldsNoPlaintext(t *testing.T) {
	key := bytes.Repeat([]byte{0x31}, 32)
	plaintext := bytes.Repeat([]byte("sensitive"), 100)

	serialized := serializeAEAD(t, plaintext, key, AEADModeEAX, 6)

	p, err := Read(bytes.NewReader(serialized))
	require.NoError(t, err)
	ae := p.(*AEADEncrypted)

	// Corrupt a ciphertext byte inside the first chunk, well past the
	// packet header and nonce.
	all, err := io.ReadAll(ae.Contents)
	require.NoError(t, err)
	all[40] ^= 0x01
	ae.Contents = bytes.NewReader(all)

	contents, err := ae.Decrypt(CipherAES256, key)
	require.NoError(t, err)
	got, err := io.ReadAll(contents)
	require.Error(t, err)
	assert.Empty(t, got)
}

func TestAEADRejectsHugeChunkSize(t *testing.T) {
	// version, cipher, mode, chunk size byte 0x3f
	header := []byte{0xc0 | 20, 4, 1, 9, 1, 0x3f}
	_, err := Read(bytes.NewReader(header))
	require.Error(t, err)
}
