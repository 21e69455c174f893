package openpgp

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nullprogram.com/x/openpgp/packet"
)

var testConfig = &packet.Config{
	Time: func() time.Time { return time.Unix(1500000000, 0) },
}

func ed25519Entity(t *testing.T) *Entity {
	t.Helper()
	e, err := NewEd25519Entity("Alice Example", "", "alice@example.com", testConfig)
	require.NoError(t, err)
	return e
}

func TestNewEd25519Entity(t *testing.T) {
	e := ed25519Entity(t)

	assert.Equal(t, packet.PubKeyAlgoEdDSA, e.PrimaryKey.PubKeyAlgo)
	require.Len(t, e.Subkeys, 1)
	assert.Equal(t, packet.PubKeyAlgoECDH, e.Subkeys[0].PublicKey.PubKeyAlgo)

	ident := e.PrimaryIdentity()
	require.NotNil(t, ident)
	assert.Equal(t, "Alice Example <alice@example.com>", ident.Name)
	assert.True(t, ident.SelfSignature.FlagSign)
	assert.True(t, ident.SelfSignature.FlagCertify)
}

func TestEntityRoundTrip(t *testing.T) {
	e := ed25519Entity(t)

	var buf bytes.Buffer
	require.NoError(t, e.SerializePrivateWithoutSigning(&buf))
	serialized := append([]byte(nil), buf.Bytes()...)

	el, err := ReadKeyRing(&buf)
	require.NoError(t, err)
	require.Len(t, el, 1)
	parsed := el[0]

	// Property: fingerprints and the set of valid bindings survive the
	// round trip.
	assert.Equal(t, e.PrimaryKey.Fingerprint, parsed.PrimaryKey.Fingerprint)
	require.Len(t, parsed.Subkeys, 1)
	assert.Equal(t, e.Subkeys[0].PublicKey.Fingerprint, parsed.Subkeys[0].PublicKey.Fingerprint)
	assert.Len(t, parsed.Identities, 1)
	require.NotNil(t, parsed.PrivateKey)

	// And serialization is stable.
	var buf2 bytes.Buffer
	require.NoError(t, parsed.SerializePrivateWithoutSigning(&buf2))
	assert.Equal(t, serialized, buf2.Bytes())
}

func TestKeySelection(t *testing.T) {
	e := ed25519Entity(t)
	require.NoError(t, e.AddSigningSubkey(testConfig))
	require.NoError(t, e.addUserId("Alice Work", "", "alice@example.org", testConfig))

	// Revoke the second user id.
	workIdent := e.Identities["Alice Work <alice@example.org>"]
	require.NotNil(t, workIdent)
	reason := uint8(32)
	revocation := &packet.Signature{
		Version:              e.PrimaryKey.Version,
		SigType:              packet.SigTypeCertificationRevocation,
		PubKeyAlgo:           e.PrimaryKey.PubKeyAlgo,
		Hash:                 hashForConfig(testConfig),
		CreationTime:         testConfig.Now(),
		IssuerKeyId:          &e.PrimaryKey.KeyId,
		RevocationReason:     &reason,
		RevocationReasonText: "no longer at this address",
	}
	require.NoError(t, revocation.SignUserId(workIdent.UserId.Id, e.PrimaryKey, e.PrivateKey, testConfig))
	workIdent.Revocations = append(workIdent.Revocations, revocation)

	now := testConfig.Now()

	// The encryption key must be the ECDH subkey, not the primary.
	encKey, ok := e.EncryptionKey(now, nil)
	require.True(t, ok)
	assert.Equal(t, e.Subkeys[0].PublicKey.Fingerprint, encKey.PublicKey.Fingerprint)

	// The signing key must be the signing subkey with its back-signature.
	sigKey, ok := e.SigningKey(now, nil)
	require.True(t, ok)
	assert.Equal(t, e.Subkeys[1].PublicKey.Fingerprint, sigKey.PublicKey.Fingerprint)
	require.NotNil(t, sigKey.SelfSignature.EmbeddedSignature)

	// Only the unrevoked identity is listed as valid.
	valid := e.ValidIdentities(now)
	require.Len(t, valid, 1)
	assert.Equal(t, "Alice Example <alice@example.com>", valid[0].Name)

	// The same holds after a serialization round trip.
	var buf bytes.Buffer
	require.NoError(t, e.Serialize(&buf))
	el, err := ReadKeyRing(&buf)
	require.NoError(t, err)
	require.Len(t, el, 1)
	valid = el[0].ValidIdentities(now)
	require.Len(t, valid, 1)
	assert.Equal(t, "Alice Example <alice@example.com>", valid[0].Name)
}

func TestSigningSubkeyRequiresBackSignature(t *testing.T) {
	e := ed25519Entity(t)
	require.NoError(t, e.AddSigningSubkey(testConfig))

	// Rebuild the binding signature without the embedded back-signature;
	// reading the key must now fail the binding check for the signing
	// subkey.
	sk := &e.Subkeys[1]
	sk.Sig = &packet.Signature{
		Version:      e.PrimaryKey.Version,
		CreationTime: testConfig.Now(),
		SigType:      packet.SigTypeSubkeyBinding,
		PubKeyAlgo:   e.PrimaryKey.PubKeyAlgo,
		Hash:         hashForConfig(testConfig),
		FlagsValid:   true,
		FlagSign:     true,
		IssuerKeyId:  &e.PrimaryKey.KeyId,
	}
	require.NoError(t, sk.Sig.SignKey(sk.PublicKey, e.PrivateKey, testConfig))

	var tampered bytes.Buffer
	require.NoError(t, e.Serialize(&tampered))
	_, err := ReadKeyRing(&tampered)
	assert.Error(t, err)
}

func TestEntityMerge(t *testing.T) {
	e := ed25519Entity(t)

	var buf bytes.Buffer
	require.NoError(t, e.SerializePrivateWithoutSigning(&buf))
	el, err := ReadKeyRing(&buf)
	require.NoError(t, err)
	copy1 := el[0]

	require.NoError(t, e.AddSigningSubkey(testConfig))
	var buf2 bytes.Buffer
	require.NoError(t, e.SerializePrivateWithoutSigning(&buf2))
	el2, err := ReadKeyRing(&buf2)
	require.NoError(t, err)
	copy2 := el2[0]

	require.NoError(t, copy1.Merge(copy2))
	assert.Len(t, copy1.Subkeys, 2)

	// Merging again must not duplicate anything.
	require.NoError(t, copy1.Merge(copy2))
	assert.Len(t, copy1.Subkeys, 2)

	// Merging a different key must fail.
	other := ed25519Entity(t)
	assert.Error(t, copy1.Merge(other))
}

func TestRevokeKey(t *testing.T) {
	e := ed25519Entity(t)
	require.NoError(t, e.RevokeKey(0x02, "key compromised", testConfig))

	assert.True(t, e.Revoked(testConfig.Now()))

	var buf bytes.Buffer
	require.NoError(t, e.Serialize(&buf))
	el, err := ReadKeyRing(&buf)
	require.NoError(t, err)
	assert.True(t, el[0].Revoked(testConfig.Now()))
}

func TestRSAEntityWithPassphrase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping RSA key generation in short mode")
	}
	passphrase := []byte("hello world")
	e, err := NewEntity("Bob Example", "", "bob@example.com", &packet.Config{
		Time:    testConfig.Time,
		RSABits: 2048,
	})
	require.NoError(t, err)

	require.NoError(t, e.PrivateKey.Encrypt(passphrase, nil))
	for i := range e.Subkeys {
		require.NoError(t, e.Subkeys[i].PrivateKey.Encrypt(passphrase, nil))
	}

	var buf bytes.Buffer
	require.NoError(t, e.SerializePrivateWithoutSigning(&buf))
	serialized := append([]byte(nil), buf.Bytes()...)

	el, err := ReadKeyRing(&buf)
	require.NoError(t, err)
	parsed := el[0]
	require.True(t, parsed.PrivateKey.Encrypted)

	require.Error(t, parsed.PrivateKey.Decrypt([]byte("not the passphrase")))
	require.NoError(t, parsed.PrivateKey.Decrypt(passphrase))
	for i := range parsed.Subkeys {
		require.NoError(t, parsed.Subkeys[i].PrivateKey.Decrypt(passphrase))
	}

	// Still-encrypted copies re-serialize bytewise identically.
	el2, err := ReadKeyRing(bytes.NewReader(serialized))
	require.NoError(t, err)
	var buf2 bytes.Buffer
	require.NoError(t, el2[0].SerializePrivateWithoutSigning(&buf2))
	assert.Equal(t, serialized, buf2.Bytes())
}
