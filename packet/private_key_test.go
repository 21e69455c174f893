package packet

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nullprogram.com/x/openpgp/errors"
)

func TestPrivateKeyRoundTrip(t *testing.T) {
	priv := testEdDSAKey(t)

	var buf bytes.Buffer
	require.NoError(t, priv.Serialize(&buf))
	serialized := append([]byte(nil), buf.Bytes()...)

	p, err := Read(&buf)
	require.NoError(t, err)
	parsed, ok := p.(*PrivateKey)
	require.True(t, ok, "got %T, want *PrivateKey", p)

	assert.Equal(t, priv.Fingerprint, parsed.Fingerprint)
	assert.Equal(t, priv.KeyId, parsed.KeyId)
	assert.False(t, parsed.Encrypted)

	// Re-serialization is byte identical.
	var buf2 bytes.Buffer
	require.NoError(t, parsed.Serialize(&buf2))
	assert.Equal(t, serialized, buf2.Bytes())
}

func TestPrivateKeyEncryptDecrypt(t *testing.T) {
	passphrase := []byte("hello world")
	priv := testEdDSAKey(t)
	fingerprint := append([]byte(nil), priv.Fingerprint...)

	require.NoError(t, priv.Encrypt(passphrase, nil))
	assert.True(t, priv.Encrypted)
	assert.Nil(t, priv.PrivateKey)

	// Serialize the protected key and read it back.
	var buf bytes.Buffer
	require.NoError(t, priv.Serialize(&buf))
	serialized := append([]byte(nil), buf.Bytes()...)

	p, err := Read(&buf)
	require.NoError(t, err)
	parsed := p.(*PrivateKey)
	assert.True(t, parsed.Encrypted)
	assert.Equal(t, fingerprint, parsed.Fingerprint)

	// The wrong passphrase must fail with an integrity error.
	err = parsed.Decrypt([]byte("wrong passphrase"))
	require.Error(t, err)
	_, isIntegrity := err.(errors.IntegrityError)
	assert.True(t, isIntegrity, "got %T", err)

	// The right passphrase recovers the key.
	require.NoError(t, parsed.Decrypt(passphrase))
	assert.False(t, parsed.Encrypted)
	require.NotNil(t, parsed.PrivateKey)

	// An encrypted key round-trips bytewise while still encrypted.
	p2, err := Read(bytes.NewReader(serialized))
	require.NoError(t, err)
	var buf2 bytes.Buffer
	require.NoError(t, p2.(*PrivateKey).Serialize(&buf2))
	assert.Equal(t, serialized, buf2.Bytes())
}

func TestPrivateKeyAEADProtection(t *testing.T) {
	passphrase := []byte("chunky passphrase")
	priv := testEdDSAKey(t)

	config := &Config{AEADConfig: &AEADConfig{DefaultMode: AEADModeOCB}}
	require.NoError(t, priv.EncryptWithAEAD(passphrase, config))
	assert.True(t, priv.Encrypted)

	var buf bytes.Buffer
	require.NoError(t, priv.Serialize(&buf))

	p, err := Read(&buf)
	require.NoError(t, err)
	parsed := p.(*PrivateKey)

	err = parsed.Decrypt([]byte("not it"))
	require.Error(t, err)

	require.NoError(t, parsed.Decrypt(passphrase))
	assert.False(t, parsed.Encrypted)
}

func TestPublicKeyFromPrivate(t *testing.T) {
	priv := testEdDSAKey(t)

	var buf bytes.Buffer
	require.NoError(t, priv.PublicKey.Serialize(&buf))

	p, err := Read(&buf)
	require.NoError(t, err)
	pub, ok := p.(*PublicKey)
	require.True(t, ok)

	// Property: the fingerprint is stable across encoding paths.
	assert.Equal(t, priv.Fingerprint, pub.Fingerprint)
	assert.Equal(t, priv.KeyId, pub.KeyId)
	assert.Equal(t, 4, pub.Version)
	assert.Equal(t, time.Unix(1500000000, 0).Unix(), pub.CreationTime.Unix())
}
