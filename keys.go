// Package openpgp implements high level operations on OpenPGP messages and
// transferable keys: parsing and serializing key rings, creating and checking
// binding signatures, encrypting, decrypting, signing and verifying messages
// per RFC 4880.
package openpgp

import (
	"bytes"
	"io"
	"time"

	pkgerrors "github.com/pkg/errors"

	"nullprogram.com/x/openpgp/errors"
	"nullprogram.com/x/openpgp/packet"
)

// An Entity represents the components of an OpenPGP key: a primary public key
// (which must be a signing key), one or more identities claimed by that key,
// and zero or more subkeys, which may be encryption keys.
type Entity struct {
	PrimaryKey  *packet.PublicKey
	PrivateKey  *packet.PrivateKey
	Identities  map[string]*Identity // indexed by Identity.Name
	Revocations []*packet.Signature
	Subkeys     []Subkey
}

// An Identity represents an identity claimed by an Entity and zero or more
// assertions by other entities about that claim.
type Identity struct {
	Name          string // by convention, has the form "Full Name (comment) <email@example.com>"
	UserId        *packet.UserId
	SelfSignature *packet.Signature
	Signatures    []*packet.Signature
	Revocations   []*packet.Signature
}

// Revoked returns whether the identity has been revoked by a self-signature.
// Note that third-party revocation signatures are not supported.
func (i *Identity) Revoked(now time.Time) bool {
	for _, revocation := range i.Revocations {
		if !revocation.SigExpired(now) {
			return true
		}
	}
	return false
}

// A Subkey is an additional public key in an Entity. Subkeys can be used for
// encryption.
type Subkey struct {
	PublicKey   *packet.PublicKey
	PrivateKey  *packet.PrivateKey
	Sig         *packet.Signature
	Revocations []*packet.Signature
}

// Revoked returns whether the subkey has been revoked by a self-signature.
func (s *Subkey) Revoked(now time.Time) bool {
	for _, revocation := range s.Revocations {
		if !revocation.SigExpired(now) {
			return true
		}
	}
	return false
}

// Revoked returns whether the entity has been revoked by a self-signature.
// Note that third-party revocation signatures are not supported.
func (e *Entity) Revoked(now time.Time) bool {
	for _, revocation := range e.Revocations {
		if !revocation.SigExpired(now) {
			return true
		}
	}
	return false
}

// A Key identifies a specific public key in an Entity. This is either the
// Entity's primary key or a subkey.
type Key struct {
	Entity        *Entity
	PublicKey     *packet.PublicKey
	PrivateKey    *packet.PrivateKey
	SelfSignature *packet.Signature
}

// A KeyRing provides access to public and private keys.
type KeyRing interface {
	// KeysById returns the set of keys that have the given key id.
	KeysById(id uint64) []Key
	// KeysByIdUsage returns the set of keys with the given id
	// that also meet the key usage given by requiredUsage.
	// The requiredUsage is expressed as the bitwise-OR of
	// packet.KeyFlag* values.
	KeysByIdUsage(id uint64, requiredUsage byte) []Key
	// DecryptionKeys returns all private keys that are valid for
	// decryption.
	DecryptionKeys() []Key
}

// PrimaryIdentity returns the Identity marked as primary, or, if none is so
// marked, the first identity met in map iteration order. Revocations are
// not considered.
func (e *Entity) PrimaryIdentity() *Identity {
	var firstIdentity *Identity
	for _, ident := range e.Identities {
		if firstIdentity == nil {
			firstIdentity = ident
		}
		if ident.SelfSignature.IsPrimaryId != nil && *ident.SelfSignature.IsPrimaryId {
			return ident
		}
	}
	return firstIdentity
}

// ValidIdentities returns the identities whose certification is
// intact at the given time: self-signed, not revoked and not expired.
func (e *Entity) ValidIdentities(now time.Time) []*Identity {
	var valid []*Identity
	for _, ident := range e.Identities {
		if ident.SelfSignature == nil || ident.SelfSignature.SigExpired(now) {
			continue
		}
		if ident.Revoked(now) {
			continue
		}
		valid = append(valid, ident)
	}
	return valid
}

// EncryptionKey returns the best candidate Key for encrypting a message to
// the given Entity.
func (e *Entity) EncryptionKey(now time.Time, config *packet.Config) (Key, bool) {
	if checkKeyPolicy(e.PrimaryKey, config) != nil {
		return Key{}, false
	}

	// Iterate the keys to find the newest, unexpired one
	candidateSubkey := -1
	var maxTime time.Time
	for i, subkey := range e.Subkeys {
		if subkey.Sig.FlagsValid &&
			subkey.Sig.FlagEncryptCommunications &&
			subkey.PublicKey.PubKeyAlgo.CanEncrypt() &&
			!subkey.PublicKey.KeyExpired(subkey.Sig, now) &&
			!subkey.Sig.SigExpired(now) &&
			!subkey.Revoked(now) &&
			checkKeyPolicy(subkey.PublicKey, config) == nil &&
			(maxTime.IsZero() || subkey.Sig.CreationTime.After(maxTime)) {
			candidateSubkey = i
			maxTime = subkey.Sig.CreationTime
		}
	}

	if candidateSubkey != -1 {
		subkey := e.Subkeys[candidateSubkey]
		return Key{e, subkey.PublicKey, subkey.PrivateKey, subkey.Sig}, true
	}

	// If we don't have any candidate subkeys for encryption and
	// the primary key doesn't have any usage metadata then we
	// assume that the primary key is ok. Or, if the primary key is
	// marked as ok to encrypt with, then we can obviously use it.
	i := e.PrimaryIdentity()
	if i == nil {
		return Key{}, false
	}
	if (!i.SelfSignature.FlagsValid || i.SelfSignature.FlagEncryptCommunications) &&
		e.PrimaryKey.PubKeyAlgo.CanEncrypt() &&
		!e.PrimaryKey.KeyExpired(i.SelfSignature, now) &&
		!e.Revoked(now) {
		return Key{e, e.PrimaryKey, e.PrivateKey, i.SelfSignature}, true
	}

	// This Entity appears to be signing only.
	return Key{}, false
}

// SigningKey return the best candidate Key for signing a message with this
// Entity.
func (e *Entity) SigningKey(now time.Time, config *packet.Config) (Key, bool) {
	return e.SigningKeyById(now, 0, config)
}

// SigningKeyById return the Key for signing a message with this
// Entity and keyID.
func (e *Entity) SigningKeyById(now time.Time, id uint64, config *packet.Config) (Key, bool) {
	if checkKeyPolicy(e.PrimaryKey, config) != nil {
		return Key{}, false
	}

	// Iterate the keys to find the newest, unexpired one
	candidateSubkey := -1
	var maxTime time.Time
	for i, subkey := range e.Subkeys {
		if subkey.Sig.FlagsValid &&
			subkey.Sig.FlagSign &&
			subkey.PublicKey.PubKeyAlgo.CanSign() &&
			!subkey.PublicKey.KeyExpired(subkey.Sig, now) &&
			!subkey.Sig.SigExpired(now) &&
			!subkey.Revoked(now) &&
			checkKeyPolicy(subkey.PublicKey, config) == nil &&
			(maxTime.IsZero() || subkey.Sig.CreationTime.After(maxTime)) &&
			(id == 0 || subkey.PublicKey.KeyId == id) {
			candidateSubkey = i
			maxTime = subkey.Sig.CreationTime
		}
	}

	if candidateSubkey != -1 {
		subkey := e.Subkeys[candidateSubkey]
		return Key{e, subkey.PublicKey, subkey.PrivateKey, subkey.Sig}, true
	}

	// If we have no candidate subkey then we assume that it's ok to sign
	// with the primary key.
	i := e.PrimaryIdentity()
	if i == nil {
		return Key{}, false
	}
	if (!i.SelfSignature.FlagsValid || i.SelfSignature.FlagSign) &&
		e.PrimaryKey.PubKeyAlgo.CanSign() &&
		!e.PrimaryKey.KeyExpired(i.SelfSignature, now) &&
		!e.Revoked(now) &&
		(id == 0 || e.PrimaryKey.KeyId == id) {
		return Key{e, e.PrimaryKey, e.PrivateKey, i.SelfSignature}, true
	}

	return Key{}, false
}

// VerifyPrimaryKey reports whether the primary key is usable at the given
// time, returning a structured reason when it is not.
func (e *Entity) VerifyPrimaryKey(now time.Time, config *packet.Config) error {
	i := e.PrimaryIdentity()
	if i == nil || i.SelfSignature == nil {
		return errors.StructuralError("no valid self-certification")
	}
	if e.Revoked(now) {
		return errors.SignatureError("primary key is revoked")
	}
	if e.PrimaryKey.KeyExpired(i.SelfSignature, now) {
		return errors.SignatureError("primary key is expired")
	}
	return checkKeyPolicy(e.PrimaryKey, config)
}

// VerifyUser reports whether the identity's certification holds at the
// given time.
func (e *Entity) VerifyUser(i *Identity, now time.Time) error {
	if i.SelfSignature == nil {
		return errors.StructuralError("user id has no self-certification")
	}
	if i.Revoked(now) {
		return errors.SignatureError("user id is revoked")
	}
	if i.SelfSignature.SigExpired(now) {
		return errors.SignatureError("user id certification is expired")
	}
	return nil
}

// VerifySubkey reports whether the subkey's binding chain holds at the
// given time. The cryptographic binding (including the back-signature for
// signing subkeys) was already verified when the key was read.
func (e *Entity) VerifySubkey(s *Subkey, now time.Time, config *packet.Config) error {
	if s.Sig == nil {
		return errors.StructuralError("subkey has no binding signature")
	}
	if s.Revoked(now) {
		return errors.SignatureError("subkey is revoked")
	}
	if s.Sig.SigExpired(now) || s.PublicKey.KeyExpired(s.Sig, now) {
		return errors.SignatureError("subkey is expired")
	}
	return checkKeyPolicy(s.PublicKey, config)
}

// checkKeyPolicy applies the configured minimum-strength and reject rules to
// a key.
func checkKeyPolicy(pk *packet.PublicKey, config *packet.Config) error {
	switch pk.PubKeyAlgo {
	case packet.PubKeyAlgoRSA, packet.PubKeyAlgoRSAEncryptOnly, packet.PubKeyAlgoRSASignOnly:
		bits, err := pk.BitLength()
		if err != nil {
			return err
		}
		if bits < config.MinimumRSABits() {
			return errors.PolicyError("RSA modulus below configured minimum")
		}
	case packet.PubKeyAlgoECDSA, packet.PubKeyAlgoEdDSA, packet.PubKeyAlgoECDH:
		if name := pk.CurveName(); name != "" && config.RejectCurve(name) {
			return errors.PolicyError("curve is on the reject list")
		}
	}
	return nil
}

// An EntityList contains one or more Entities.
type EntityList []*Entity

// KeysById returns the set of keys that have the given key id.
func (el EntityList) KeysById(id uint64) (keys []Key) {
	for _, e := range el {
		if e.PrimaryKey.KeyId == id {
			ident := e.PrimaryIdentity()
			var selfSig *packet.Signature
			if ident != nil {
				selfSig = ident.SelfSignature
			}
			keys = append(keys, Key{e, e.PrimaryKey, e.PrivateKey, selfSig})
		}

		for _, subKey := range e.Subkeys {
			if subKey.PublicKey.KeyId == id {
				keys = append(keys, Key{e, subKey.PublicKey, subKey.PrivateKey, subKey.Sig})
			}
		}
	}
	return
}

// KeysByIdUsage returns the set of keys with the given id that also meet
// the key usage given by requiredUsage.  The requiredUsage is expressed as
// the bitwise-OR of packet.KeyFlag* values.
func (el EntityList) KeysByIdUsage(id uint64, requiredUsage byte) (keys []Key) {
	for _, key := range el.KeysById(id) {
		if key.SelfSignature != nil && key.SelfSignature.FlagsValid && requiredUsage != 0 {
			var usage byte
			if key.SelfSignature.FlagCertify {
				usage |= packet.KeyFlagCertify
			}
			if key.SelfSignature.FlagSign {
				usage |= packet.KeyFlagSign
			}
			if key.SelfSignature.FlagEncryptCommunications {
				usage |= packet.KeyFlagEncryptCommunications
			}
			if key.SelfSignature.FlagEncryptStorage {
				usage |= packet.KeyFlagEncryptStorage
			}
			if usage&requiredUsage != requiredUsage {
				continue
			}
		}

		keys = append(keys, key)
	}
	return
}

// DecryptionKeys returns all private keys that are valid for decryption.
func (el EntityList) DecryptionKeys() (keys []Key) {
	for _, e := range el {
		for _, subKey := range e.Subkeys {
			if subKey.PrivateKey != nil && subKey.Sig.FlagsValid && (subKey.Sig.FlagEncryptStorage || subKey.Sig.FlagEncryptCommunications) {
				keys = append(keys, Key{e, subKey.PublicKey, subKey.PrivateKey, subKey.Sig})
			}
		}
	}
	return
}

// ReadKeyRing reads one or more public/private keys. Unsupported keys are
// ignored as long as at least a single valid key is found.
func ReadKeyRing(r io.Reader) (el EntityList, err error) {
	packets := packet.NewReader(r)
	var lastUnsupportedError error

	for {
		var e *Entity
		e, err = ReadEntity(packets)
		if err != nil {
			// TODO: warn about skipped unsupported/unreadable keys
			if _, ok := err.(errors.UnsupportedError); ok {
				lastUnsupportedError = err
				err = readToNextPublicKey(packets)
			} else if _, ok := err.(errors.StructuralError); ok {
				// Skip unreadable, badly-formatted keys
				lastUnsupportedError = err
				err = readToNextPublicKey(packets)
			}
			if err == io.EOF {
				err = nil
				break
			}
			if err != nil {
				el = nil
				break
			}
		} else {
			el = append(el, e)
		}
	}

	if len(el) == 0 && err == nil {
		err = lastUnsupportedError
	}
	return
}

// readToNextPublicKey reads packets until the start of the entity and leaves
// the first packet of the new entity in the Reader.
func readToNextPublicKey(packets *packet.Reader) (err error) {
	var p packet.Packet
	for {
		p, err = packets.Next()
		if err == io.EOF {
			return
		} else if err != nil {
			if _, ok := err.(errors.UnsupportedError); ok {
				err = nil
				continue
			}
			return
		}

		if pk, ok := p.(*packet.PublicKey); ok && !pk.IsSubkey {
			packets.Unread(p)
			return
		}
	}
}

// ReadEntity reads an entity (public key, identities, subkeys etc) from the
// given Reader.
func ReadEntity(packets *packet.Reader) (*Entity, error) {
	e := new(Entity)
	e.Identities = make(map[string]*Identity)

	p, err := packets.Next()
	if err != nil {
		return nil, err
	}

	var ok bool
	if e.PrimaryKey, ok = p.(*packet.PublicKey); !ok {
		if e.PrivateKey, ok = p.(*packet.PrivateKey); !ok {
			packets.Unread(p)
			return nil, errors.StructuralError("first packet was not a public/private key")
		}
		e.PrimaryKey = &e.PrivateKey.PublicKey
	}

	if !e.PrimaryKey.PubKeyAlgo.CanSign() {
		return nil, errors.StructuralError("primary key cannot be used for signatures")
	}

	var revocations []*packet.Signature
EachPacket:
	for {
		p, err := packets.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		switch pkt := p.(type) {
		case *packet.UserId:
			if err := addUserID(e, packets, pkt); err != nil {
				return nil, err
			}
		case *packet.Signature:
			if pkt.SigType == packet.SigTypeKeyRevocation {
				revocations = append(revocations, pkt)
			} else if pkt.SigType == packet.SigTypeDirectSignature {
				// TODO: RFC4880 5.2.1 permits signatures
				// directly on keys (eg. to bind additional
				// revocation keys).
			}
			// Else, ignoring the signature as it does not follow anything
			// we would know to attach it to.
		case *packet.PrivateKey:
			if !pkt.IsSubkey {
				packets.Unread(p)
				break EachPacket
			}
			err = addSubkey(e, packets, &pkt.PublicKey, pkt)
			if err != nil {
				return nil, err
			}
		case *packet.PublicKey:
			if !pkt.IsSubkey {
				packets.Unread(p)
				break EachPacket
			}
			err = addSubkey(e, packets, pkt, nil)
			if err != nil {
				return nil, err
			}
		default:
			// we ignore unknown packets
		}
	}

	if len(e.Identities) == 0 {
		return nil, errors.StructuralError("entity without any identities")
	}

	for _, revocation := range revocations {
		err = e.PrimaryKey.VerifyRevocationSignature(revocation)
		if err == nil {
			e.Revocations = append(e.Revocations, revocation)
		} else {
			return nil, errors.StructuralError("revocation signature signed by alternate key")
		}
	}

	return e, nil
}

func addUserID(e *Entity, packets *packet.Reader, pkt *packet.UserId) error {
	// Make a new Identity object, that we might wind up throwing away.
	// We'll only add it if we get a valid self-signature over this
	// userID.
	identity := new(Identity)
	identity.Name = pkt.Id
	identity.UserId = pkt

	for {
		p, err := packets.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}

		sig, ok := p.(*packet.Signature)
		if !ok {
			packets.Unread(p)
			break
		}

		if sig.SigType == packet.SigTypeCertificationRevocation {
			if err = e.PrimaryKey.VerifyUserIdSignature(pkt.Id, e.PrimaryKey, sig); err == nil {
				identity.Revocations = append(identity.Revocations, sig)
			} else {
				return errors.StructuralError("user ID revocation signed by alternate key")
			}
		} else if sig.SigType >= packet.SigTypeGenericCert && sig.SigType <= packet.SigTypePositiveCert {
			if sig.IssuerKeyId == nil || *sig.IssuerKeyId == e.PrimaryKey.KeyId {
				if err = e.PrimaryKey.VerifyUserIdSignature(pkt.Id, e.PrimaryKey, sig); err != nil {
					return errors.StructuralError("user ID self-signature invalid: " + err.Error())
				}
				if identity.SelfSignature == nil || sig.CreationTime.After(identity.SelfSignature.CreationTime) {
					identity.SelfSignature = sig
				}
				identity.Signatures = append(identity.Signatures, sig)
				e.Identities[pkt.Id] = identity
			} else {
				identity.Signatures = append(identity.Signatures, sig)
			}
		}
	}

	return nil
}

func addSubkey(e *Entity, packets *packet.Reader, pub *packet.PublicKey, priv *packet.PrivateKey) error {
	var subKey Subkey
	subKey.PublicKey = pub
	subKey.PrivateKey = priv

	for {
		p, err := packets.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.StructuralError("subkey signature invalid: " + err.Error())
		}

		sig, ok := p.(*packet.Signature)
		if !ok {
			packets.Unread(p)
			break
		}

		if sig.SigType != packet.SigTypeSubkeyBinding && sig.SigType != packet.SigTypeSubkeyRevocation {
			return errors.StructuralError("subkey signature with wrong type")
		}

		if err := e.PrimaryKey.VerifyKeySignature(subKey.PublicKey, sig); err != nil {
			return errors.StructuralError("subkey signature invalid: " + err.Error())
		}

		switch sig.SigType {
		case packet.SigTypeSubkeyRevocation:
			subKey.Revocations = append(subKey.Revocations, sig)
		case packet.SigTypeSubkeyBinding:
			if subKey.Sig == nil || sig.CreationTime.After(subKey.Sig.CreationTime) {
				subKey.Sig = sig
			}
		}
	}

	if subKey.Sig == nil {
		return errors.StructuralError("subkey packet not followed by signature")
	}

	e.Subkeys = append(e.Subkeys, subKey)

	return nil
}

// Merge updates e with the identities, subkeys and signatures of other,
// which must hold a second copy of the same primary key. New elements are
// unioned in; duplicates, identified by their signed content, are dropped.
func (e *Entity) Merge(other *Entity) error {
	if !bytes.Equal(e.PrimaryKey.Fingerprint, other.PrimaryKey.Fingerprint) {
		return pkgerrors.Wrap(
			errors.InvalidArgumentError("primary key fingerprints differ"), "merging entities")
	}

	for name, otherIdent := range other.Identities {
		ident, ok := e.Identities[name]
		if !ok {
			e.Identities[name] = otherIdent
			continue
		}
		ident.Signatures = mergeSignatures(ident.Signatures, otherIdent.Signatures)
		ident.Revocations = mergeSignatures(ident.Revocations, otherIdent.Revocations)
		if otherIdent.SelfSignature != nil &&
			(ident.SelfSignature == nil || otherIdent.SelfSignature.CreationTime.After(ident.SelfSignature.CreationTime)) {
			ident.SelfSignature = otherIdent.SelfSignature
		}
	}

	for i := range other.Subkeys {
		otherSub := &other.Subkeys[i]
		var existing *Subkey
		for j := range e.Subkeys {
			if bytes.Equal(e.Subkeys[j].PublicKey.Fingerprint, otherSub.PublicKey.Fingerprint) {
				existing = &e.Subkeys[j]
				break
			}
		}
		if existing == nil {
			e.Subkeys = append(e.Subkeys, *otherSub)
			continue
		}
		existing.Revocations = mergeSignatures(existing.Revocations, otherSub.Revocations)
		if otherSub.Sig != nil && (existing.Sig == nil || otherSub.Sig.CreationTime.After(existing.Sig.CreationTime)) {
			existing.Sig = otherSub.Sig
		}
		if existing.PrivateKey == nil {
			existing.PrivateKey = otherSub.PrivateKey
		}
	}

	e.Revocations = mergeSignatures(e.Revocations, other.Revocations)
	if e.PrivateKey == nil {
		e.PrivateKey = other.PrivateKey
	}
	return nil
}

// mergeSignatures unions two signature lists, deduplicating by serialized
// content.
func mergeSignatures(into, from []*packet.Signature) []*packet.Signature {
	seen := make(map[string]bool, len(into))
	for _, sig := range into {
		if key, err := signatureContentKey(sig); err == nil {
			seen[key] = true
		}
	}
	for _, sig := range from {
		key, err := signatureContentKey(sig)
		if err != nil || seen[key] {
			continue
		}
		seen[key] = true
		into = append(into, sig)
	}
	return into
}

func signatureContentKey(sig *packet.Signature) (string, error) {
	var buf bytes.Buffer
	if err := sig.Serialize(&buf); err != nil {
		return "", err
	}
	return string(buf.Bytes()), nil
}

// Serialize writes the public part of the given Entity to w, including
// signatures from other entities. No private key material will be output.
func (e *Entity) Serialize(w io.Writer) error {
	err := e.PrimaryKey.Serialize(w)
	if err != nil {
		return err
	}
	for _, revocation := range e.Revocations {
		err = revocation.Serialize(w)
		if err != nil {
			return err
		}
	}
	for _, ident := range e.Identities {
		err = ident.UserId.Serialize(w)
		if err != nil {
			return err
		}
		for _, sig := range ident.Revocations {
			if err = sig.Serialize(w); err != nil {
				return err
			}
		}
		for _, sig := range ident.Signatures {
			err = sig.Serialize(w)
			if err != nil {
				return err
			}
		}
	}
	for _, subkey := range e.Subkeys {
		err = subkey.PublicKey.Serialize(w)
		if err != nil {
			return err
		}
		for _, sig := range subkey.Revocations {
			if err = sig.Serialize(w); err != nil {
				return err
			}
		}
		err = subkey.Sig.Serialize(w)
		if err != nil {
			return err
		}
	}
	return nil
}

// SerializePrivate serializes an Entity, including private key material, but
// excluding signatures from other entities, to the given Writer.
// For now, it must only be used on an Entity returned from NewEntity.
// If config is nil, sensible defaults will be used.
func (e *Entity) SerializePrivate(w io.Writer, config *packet.Config) (err error) {
	return e.serializePrivate(w, config, true)
}

// SerializePrivateWithoutSigning serializes an Entity, including private key
// material, but excluding signatures from other entities, to the given
// Writer. Self-signatures of identities and subkeys are reused verbatim
// instead of being re-created.
func (e *Entity) SerializePrivateWithoutSigning(w io.Writer) (err error) {
	return e.serializePrivate(w, nil, false)
}

func (e *Entity) serializePrivate(w io.Writer, config *packet.Config, reSign bool) (err error) {
	if e.PrivateKey == nil {
		return errors.InvalidArgumentError("entity without private key")
	}
	if e.PrivateKey.Dummy() && reSign {
		return errors.ErrDummyPrivateKey("dummy private key cannot re-sign identities")
	}
	err = e.PrivateKey.Serialize(w)
	if err != nil {
		return
	}
	for _, revocation := range e.Revocations {
		if err = revocation.Serialize(w); err != nil {
			return err
		}
	}
	for _, ident := range e.Identities {
		err = ident.UserId.Serialize(w)
		if err != nil {
			return
		}
		for _, sig := range ident.Revocations {
			if err = sig.Serialize(w); err != nil {
				return err
			}
		}
		if reSign {
			if ident.SelfSignature == nil {
				return errors.InvalidArgumentError("can't re-sign identity without valid self-signature")
			}
			err = ident.SelfSignature.SignUserId(ident.UserId.Id, e.PrimaryKey, e.PrivateKey, config)
			if err != nil {
				return
			}
		}
		for _, sig := range ident.Signatures {
			err = sig.Serialize(w)
			if err != nil {
				return err
			}
		}
	}
	for _, subkey := range e.Subkeys {
		if subkey.PrivateKey != nil {
			err = subkey.PrivateKey.Serialize(w)
		} else {
			err = subkey.PublicKey.Serialize(w)
		}
		if err != nil {
			return
		}
		if reSign {
			err = subkey.Sig.SignKey(subkey.PublicKey, e.PrivateKey, config)
			if err != nil {
				return
			}
			if subkey.Sig.EmbeddedSignature != nil {
				err = subkey.Sig.EmbeddedSignature.CrossSignKey(subkey.PublicKey, e.PrimaryKey,
					subkey.PrivateKey, config)
				if err != nil {
					return
				}
			}
		}
		for _, sig := range subkey.Revocations {
			if err = sig.Serialize(w); err != nil {
				return err
			}
		}
		err = subkey.Sig.Serialize(w)
		if err != nil {
			return
		}
	}
	return nil
}

// RevokeKey generates a key revocation signature (packet.SigTypeKeyRevocation)
// with the specified reason code and text (RFC4880 section-5.2.3.23).
// If config is nil, sensible defaults will be used.
func (e *Entity) RevokeKey(reason uint8, reasonText string, config *packet.Config) error {
	revSig := &packet.Signature{
		Version:              e.PrimaryKey.Version,
		CreationTime:         config.Now(),
		SigType:              packet.SigTypeKeyRevocation,
		PubKeyAlgo:           e.PrimaryKey.PubKeyAlgo,
		Hash:                 hashForConfig(config),
		RevocationReason:     &reason,
		RevocationReasonText: reasonText,
		IssuerKeyId:          &e.PrimaryKey.KeyId,
	}
	if err := revSig.RevokeKey(e.PrimaryKey, e.PrivateKey, config); err != nil {
		return err
	}
	e.Revocations = append(e.Revocations, revSig)
	return nil
}

// RevokeSubkey generates a subkey revocation signature for the given subkey.
// If config is nil, sensible defaults will be used.
func (e *Entity) RevokeSubkey(sk *Subkey, reason uint8, reasonText string, config *packet.Config) error {
	if err := e.PrimaryKey.VerifyKeySignature(sk.PublicKey, sk.Sig); err != nil {
		return errors.InvalidArgumentError("given subkey is not associated with this key")
	}

	revSig := &packet.Signature{
		Version:              e.PrimaryKey.Version,
		CreationTime:         config.Now(),
		SigType:              packet.SigTypeSubkeyRevocation,
		PubKeyAlgo:           e.PrimaryKey.PubKeyAlgo,
		Hash:                 hashForConfig(config),
		RevocationReason:     &reason,
		RevocationReasonText: reasonText,
		IssuerKeyId:          &e.PrimaryKey.KeyId,
	}
	if err := revSig.SignKey(sk.PublicKey, e.PrivateKey, config); err != nil {
		return err
	}

	sk.Revocations = append(sk.Revocations, revSig)
	return nil
}
