package openpgp

import (
	"crypto/rsa"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/crypto/ed25519"

	"nullprogram.com/x/openpgp/ecdh"
	"nullprogram.com/x/openpgp/errors"
	"nullprogram.com/x/openpgp/internal/algorithm"
	"nullprogram.com/x/openpgp/internal/ecc"
	"nullprogram.com/x/openpgp/packet"
)

// hashForConfig resolves the configured hash id to its implementation.
func hashForConfig(config *packet.Config) algorithm.Hash {
	h, ok := algorithm.HashById[config.Hash()]
	if !ok {
		panic("unknown configured hash function")
	}
	return h
}

// NewEntity returns an Entity that contains a fresh RSA/RSA keypair with a
// single identity composed of the given full name, comment and email, any of
// which may be empty but must not contain any of "()<>\x00".
// If config is nil, sensible defaults will be used.
func NewEntity(name, comment, email string, config *packet.Config) (*Entity, error) {
	creationTime := config.Now()

	bits := config.RSAModulusBits()
	if bits < int(config.MinimumRSABits()) {
		return nil, errors.PolicyError("requested RSA key size below configured minimum")
	}

	signingPriv, err := rsa.GenerateKey(config.Random(), bits)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "generating RSA signing key")
	}
	encryptingPriv, err := rsa.GenerateKey(config.Random(), bits)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "generating RSA encryption subkey")
	}

	e := &Entity{
		PrimaryKey: packet.NewRSAPublicKey(creationTime, &signingPriv.PublicKey),
		PrivateKey: packet.NewRSAPrivateKey(creationTime, signingPriv),
		Identities: make(map[string]*Identity),
	}
	if err := e.addUserId(name, comment, email, config); err != nil {
		return nil, err
	}

	e.Subkeys = make([]Subkey, 1)
	e.Subkeys[0] = Subkey{
		PublicKey:  packet.NewRSAPublicKey(creationTime, &encryptingPriv.PublicKey),
		PrivateKey: packet.NewRSAPrivateKey(creationTime, encryptingPriv),
	}
	e.Subkeys[0].PublicKey.IsSubkey = true
	e.Subkeys[0].PrivateKey.IsSubkey = true
	if err := e.signEncryptionSubkey(&e.Subkeys[0], config); err != nil {
		return nil, err
	}

	return e, nil
}

// NewEd25519Entity returns an Entity with an Ed25519 signing primary key and
// a curve25519 ECDH encryption subkey, the pairing modern implementations
// default to.
// If config is nil, sensible defaults will be used.
func NewEd25519Entity(name, comment, email string, config *packet.Config) (*Entity, error) {
	creationTime := config.Now()

	_, signingPriv, err := ed25519.GenerateKey(config.Random())
	if err != nil {
		return nil, pkgerrors.Wrap(err, "generating Ed25519 key")
	}
	encryptingPriv, err := ecdh.GenerateKey(config.Random(), ecc.FindByName("Curve25519"))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "generating curve25519 subkey")
	}

	e := &Entity{
		PrimaryKey: packet.NewEdDSAPublicKey(creationTime, signingPriv.Public().(ed25519.PublicKey)),
		PrivateKey: packet.NewEdDSAPrivateKey(creationTime, signingPriv),
		Identities: make(map[string]*Identity),
	}
	if err := e.addUserId(name, comment, email, config); err != nil {
		return nil, err
	}

	e.Subkeys = make([]Subkey, 1)
	e.Subkeys[0] = Subkey{
		PublicKey:  packet.NewECDHPublicKey(creationTime, &encryptingPriv.PublicKey),
		PrivateKey: packet.NewECDHPrivateKey(creationTime, encryptingPriv),
	}
	e.Subkeys[0].PublicKey.IsSubkey = true
	e.Subkeys[0].PrivateKey.IsSubkey = true
	if err := e.signEncryptionSubkey(&e.Subkeys[0], config); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Entity) addUserId(name, comment, email string, config *packet.Config) error {
	uid := packet.NewUserId(name, comment, email)
	if uid == nil {
		return errors.InvalidArgumentError("user id field contained invalid characters")
	}
	if _, ok := e.Identities[uid.Id]; ok {
		return errors.InvalidArgumentError("user id exist")
	}

	creationTime := config.Now()
	isPrimaryId := len(e.Identities) == 0
	selfSignature := &packet.Signature{
		Version:      e.PrimaryKey.Version,
		SigType:      packet.SigTypePositiveCert,
		PubKeyAlgo:   e.PrimaryKey.PubKeyAlgo,
		Hash:         hashForConfig(config),
		CreationTime: creationTime,
		IssuerKeyId:  &e.PrimaryKey.KeyId,
		IsPrimaryId:  &isPrimaryId,
		FlagsValid:   true,
		FlagSign:     true,
		FlagCertify:  true,
		MDC:          true, // true by default, see 5.8 vs. 5.14
		AEAD:         config.AEAD() != nil,
	}
	if config != nil && config.KeyLifetimeSecs() > 0 {
		keyLifetime := config.KeyLifetimeSecs()
		selfSignature.KeyLifetimeSecs = &keyLifetime
	}

	// Set the PreferredHash for the SelfSignature from the packet.Config.
	selfSignature.PreferredHash = []uint8{config.Hash()}
	if config.Hash() != algorithm.SHA256.Id() {
		selfSignature.PreferredHash = append(selfSignature.PreferredHash, algorithm.SHA256.Id())
	}

	// Likewise for DefaultCipher.
	selfSignature.PreferredSymmetric = []uint8{uint8(config.Cipher())}
	if config.Cipher() != packet.CipherAES256 {
		selfSignature.PreferredSymmetric = append(selfSignature.PreferredSymmetric, uint8(packet.CipherAES256))
	}

	// And for DefaultMode.
	if config.AEAD() != nil {
		selfSignature.PreferredAEAD = []uint8{uint8(config.AEAD().Mode())}
		if config.AEAD().Mode() != packet.AEADModeEAX {
			selfSignature.PreferredAEAD = append(selfSignature.PreferredAEAD, uint8(packet.AEADModeEAX))
		}
	}

	// User ID binding signature
	err := selfSignature.SignUserId(uid.Id, e.PrimaryKey, e.PrivateKey, config)
	if err != nil {
		return err
	}
	e.Identities[uid.Id] = &Identity{
		Name:          uid.Id,
		UserId:        uid,
		SelfSignature: selfSignature,
		Signatures:    []*packet.Signature{selfSignature},
	}
	return nil
}

// AddEncryptionSubkey adds a fresh encryption subkey matching the primary
// key's algorithm family.
// If config is nil, sensible defaults will be used.
func (e *Entity) AddEncryptionSubkey(config *packet.Config) error {
	creationTime := config.Now()

	var subkey Subkey
	switch e.PrimaryKey.PubKeyAlgo {
	case packet.PubKeyAlgoEdDSA:
		priv, err := ecdh.GenerateKey(config.Random(), ecc.FindByName("Curve25519"))
		if err != nil {
			return pkgerrors.Wrap(err, "generating curve25519 subkey")
		}
		subkey.PublicKey = packet.NewECDHPublicKey(creationTime, &priv.PublicKey)
		subkey.PrivateKey = packet.NewECDHPrivateKey(creationTime, priv)
	default:
		priv, err := rsa.GenerateKey(config.Random(), config.RSAModulusBits())
		if err != nil {
			return pkgerrors.Wrap(err, "generating RSA subkey")
		}
		subkey.PublicKey = packet.NewRSAPublicKey(creationTime, &priv.PublicKey)
		subkey.PrivateKey = packet.NewRSAPrivateKey(creationTime, priv)
	}
	subkey.PublicKey.IsSubkey = true
	subkey.PrivateKey.IsSubkey = true

	e.Subkeys = append(e.Subkeys, subkey)
	if err := e.signEncryptionSubkey(&e.Subkeys[len(e.Subkeys)-1], config); err != nil {
		e.Subkeys = e.Subkeys[:len(e.Subkeys)-1]
		return err
	}
	return nil
}

// AddSigningSubkey adds a fresh signing subkey, cross-signed with the
// required primary-key-binding back-signature.
// If config is nil, sensible defaults will be used.
func (e *Entity) AddSigningSubkey(config *packet.Config) error {
	creationTime := config.Now()

	var subkey Subkey
	switch e.PrimaryKey.PubKeyAlgo {
	case packet.PubKeyAlgoEdDSA:
		_, priv, err := ed25519.GenerateKey(config.Random())
		if err != nil {
			return pkgerrors.Wrap(err, "generating Ed25519 subkey")
		}
		subkey.PublicKey = packet.NewEdDSAPublicKey(creationTime, priv.Public().(ed25519.PublicKey))
		subkey.PrivateKey = packet.NewEdDSAPrivateKey(creationTime, priv)
	default:
		priv, err := rsa.GenerateKey(config.Random(), config.RSAModulusBits())
		if err != nil {
			return pkgerrors.Wrap(err, "generating RSA subkey")
		}
		subkey.PublicKey = packet.NewRSAPublicKey(creationTime, &priv.PublicKey)
		subkey.PrivateKey = packet.NewRSAPrivateKey(creationTime, priv)
	}
	subkey.PublicKey.IsSubkey = true
	subkey.PrivateKey.IsSubkey = true

	subkey.Sig = &packet.Signature{
		Version:      e.PrimaryKey.Version,
		CreationTime: creationTime,
		SigType:      packet.SigTypeSubkeyBinding,
		PubKeyAlgo:   e.PrimaryKey.PubKeyAlgo,
		Hash:         hashForConfig(config),
		FlagsValid:   true,
		FlagSign:     true,
		IssuerKeyId:  &e.PrimaryKey.KeyId,
		EmbeddedSignature: &packet.Signature{
			Version:      e.PrimaryKey.Version,
			CreationTime: creationTime,
			SigType:      packet.SigTypePrimaryKeyBinding,
			PubKeyAlgo:   subkey.PublicKey.PubKeyAlgo,
			Hash:         hashForConfig(config),
			IssuerKeyId:  &subkey.PublicKey.KeyId,
		},
	}

	err := subkey.Sig.EmbeddedSignature.CrossSignKey(subkey.PublicKey, e.PrimaryKey, subkey.PrivateKey, config)
	if err != nil {
		return err
	}

	err = subkey.Sig.SignKey(subkey.PublicKey, e.PrivateKey, config)
	if err != nil {
		return err
	}

	e.Subkeys = append(e.Subkeys, subkey)
	return nil
}

func (e *Entity) signEncryptionSubkey(subkey *Subkey, config *packet.Config) error {
	subkey.Sig = &packet.Signature{
		Version:                   e.PrimaryKey.Version,
		CreationTime:              config.Now(),
		SigType:                   packet.SigTypeSubkeyBinding,
		PubKeyAlgo:                e.PrimaryKey.PubKeyAlgo,
		Hash:                      hashForConfig(config),
		FlagsValid:                true,
		FlagEncryptStorage:        true,
		FlagEncryptCommunications: true,
		IssuerKeyId:               &e.PrimaryKey.KeyId,
	}
	return subkey.Sig.SignKey(subkey.PublicKey, e.PrivateKey, config)
}
