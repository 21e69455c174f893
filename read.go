package openpgp

import (
	"crypto"
	_ "crypto/sha256"
	"hash"
	"io"
	"strconv"

	"nullprogram.com/x/openpgp/errors"
	"nullprogram.com/x/openpgp/packet"
)

// MessageDetails contains the result of parsing an OpenPGP encrypted and/or
// signed message.
type MessageDetails struct {
	IsEncrypted              bool                // true if the message was encrypted.
	EncryptedToKeyIds        []uint64            // the list of recipient key ids.
	IsSymmetricallyEncrypted bool                // true if a passphrase could have decrypted the message.
	DecryptedWith            Key                 // the private key used to decrypt the message, if any.
	IsSigned                 bool                // true if the message is signed.
	SignedByKeyId            uint64              // the key id of the signer, if any.
	SignedBy                 *Key                // the key of the signer, if available.
	LiteralData              *packet.LiteralData // the metadata of the contents
	UnverifiedBody           io.Reader           // the contents of the message.

	// If IsSigned is true and SignedBy is non-zero then the signature will
	// be verified as UnverifiedBody is read. The signature cannot be
	// checked until the whole of UnverifiedBody is read so UnverifiedBody
	// must be consumed until EOF before the data can be trusted. Even if a
	// message isn't signed (or the signer is unknown) it is still possible
	// for an attacker to change the message. Next to the signature, it is
	// also important to consider every message as not authenticated until
	// an integrity protection check has passed: any failure to read
	// UnverifiedBody to completion voids all bets.
	SignatureError error             // nil if the signature is good.
	Signature      *packet.Signature // the signature packet itself.

	decrypted io.ReadCloser
}

// A PromptFunction is used as a callback by functions that may need to decrypt
// a private key, or prompt for a passphrase. It is called with a list of
// acceptable, encrypted private keys and a boolean that indicates whether a
// passphrase is usable. It should either decrypt a private key or return a
// passphrase to try. If the decrypted private key or given passphrase isn't
// correct, the function will be called again, forever. Any error returned will
// be passed up.
type PromptFunction func(keys []Key, symmetric bool) ([]byte, error)

// ReadMessage parses an OpenPGP message that may be signed and/or encrypted.
// The given KeyRing should contain both public keys (for signature
// verification) and, possibly encrypted, private keys for decrypting.
// If config is nil, sensible defaults will be used.
func ReadMessage(r io.Reader, keyring KeyRing, prompt PromptFunction, config *packet.Config) (md *MessageDetails, err error) {
	var p packet.Packet

	var symKeys []*packet.SymmetricKeyEncrypted
	var pubKeys []keyEnvelopePair
	// Integrity protected encrypted packet: SymmetricallyEncrypted or AEADEncrypted
	var edp packet.EncryptedDataPacket

	packets := packet.NewReader(r)
	md = new(MessageDetails)
	md.IsEncrypted = false

	// The message, if encrypted, starts with a number of packets
	// containing an encrypted decryption key. The decryption key is either
	// encrypted to a public key, or with a passphrase. This loop
	// collects these packets.
ParsePackets:
	for {
		p, err = packets.Next()
		if err != nil {
			return nil, err
		}
		switch p := p.(type) {
		case *packet.SymmetricKeyEncrypted:
			// This packet contains the decryption key encrypted with a passphrase.
			md.IsSymmetricallyEncrypted = true
			symKeys = append(symKeys, p)
		case *packet.EncryptedKey:
			// This packet contains the decryption key encrypted to a public key.
			md.EncryptedToKeyIds = append(md.EncryptedToKeyIds, p.KeyId)
			switch p.Algo {
			case packet.PubKeyAlgoRSA, packet.PubKeyAlgoRSAEncryptOnly, packet.PubKeyAlgoElGamal, packet.PubKeyAlgoECDH:
				break
			default:
				continue
			}
			if keyring != nil {
				var keys []Key
				if p.KeyId == 0 {
					keys = keyring.DecryptionKeys()
				} else {
					keys = keyring.KeysById(p.KeyId)
				}
				for _, k := range keys {
					pubKeys = append(pubKeys, keyEnvelopePair{k, p})
				}
			}
		case *packet.SymmetricallyEncrypted:
			if !p.MDC && !config.UnauthenticatedMessagesAllowed() {
				return nil, errors.ErrMDCMissing
			}
			md.IsEncrypted = true
			edp = p
			break ParsePackets
		case *packet.AEADEncrypted:
			md.IsEncrypted = true
			edp = p
			break ParsePackets
		case *packet.Compressed, *packet.LiteralData, *packet.OnePassSignature:
			// This message isn't encrypted.
			if len(symKeys) != 0 || len(pubKeys) != 0 {
				return nil, errors.StructuralError("key material not followed by encrypted message")
			}
			packets.Unread(p)
			return readSignedMessage(packets, nil, keyring, config)
		}
	}

	var candidates []Key
	var decrypted io.ReadCloser

	// Now that we have the list of encrypted keys we need to decrypt at
	// least one of them or, if we cannot, we need to call the prompt
	// function so that it can decrypt a key or give us a passphrase.
FindKey:
	for {
		// See if any of the keys already have a private key available
		candidates = candidates[:0]
		candidateFingerprints := make(map[string]bool)

		for _, pk := range pubKeys {
			if pk.key.PrivateKey == nil {
				continue
			}
			if !pk.key.PrivateKey.Encrypted {
				if pk.key.SelfSignature == nil {
					continue
				}
				canDecrypt := pk.key.SelfSignature.FlagEncryptCommunications || pk.key.SelfSignature.FlagEncryptStorage || !pk.key.SelfSignature.FlagsValid
				if !canDecrypt && !config.DecryptionWithSigningKeysAllowed() {
					continue
				}
				if len(pk.encryptedKey.Key) == 0 {
					errDec := pk.encryptedKey.Decrypt(pk.key.PrivateKey, config)
					if errDec != nil {
						continue
					}
				}
				// Try to decrypt symmetrically encrypted
				decrypted, err = edp.Decrypt(pk.encryptedKey.CipherFunc, pk.encryptedKey.Key)
				if err != nil && err != errors.ErrKeyIncorrect {
					return nil, err
				}
				if decrypted != nil {
					md.DecryptedWith = pk.key
					break FindKey
				}
			} else {
				fpr := string(pk.key.PublicKey.Fingerprint[:])
				if v := candidateFingerprints[fpr]; v {
					continue
				}
				candidates = append(candidates, pk.key)
				candidateFingerprints[fpr] = true
			}
		}

		if len(candidates) == 0 && len(symKeys) == 0 {
			return nil, errors.ErrKeyIncorrect
		}

		if prompt == nil {
			return nil, errors.ErrKeyIncorrect
		}

		passphrase, err := prompt(candidates, len(symKeys) != 0)
		if err != nil {
			return nil, err
		}

		// Try the symmetric keys
		if len(symKeys) != 0 && passphrase != nil {
			for _, s := range symKeys {
				key, cipherFunc, err := s.Decrypt(passphrase)
				// In v4, on wrong passphrase, session key decryption is very likely to result in an invalid cipherFunc
				if err == nil {
					decrypted, err = edp.Decrypt(cipherFunc, key)
					if err != nil && err != errors.ErrKeyIncorrect {
						return nil, err
					}
					if decrypted != nil {
						break FindKey
					}
				}
			}
		}
	}

	md.decrypted = decrypted
	if err := packets.Push(decrypted); err != nil {
		return nil, err
	}
	mdFinal, sensitiveParsingErr := readSignedMessage(packets, md, keyring, config)
	if sensitiveParsingErr != nil {
		return nil, errors.StructuralError("parsing error")
	}
	return mdFinal, nil
}

// keyEnvelopePair is used to store a private key with the PKESK packet that
// may hold a session key encrypted to it.
type keyEnvelopePair struct {
	key          Key
	encryptedKey *packet.EncryptedKey
}

// readSignedMessage reads a possibly signed message if mdin is non-zero then
// that structure is updated and returned. Otherwise a fresh MessageDetails is
// used.
func readSignedMessage(packets *packet.Reader, mdin *MessageDetails, keyring KeyRing, config *packet.Config) (md *MessageDetails, err error) {
	if mdin == nil {
		mdin = new(MessageDetails)
	}
	md = mdin

	var hashes []crypto.Hash
	var wrappedHash hash.Hash
	var prevLast bool
FindLiteralData:
	for {
		p, err := packets.Next()
		if err != nil {
			return nil, err
		}
		switch p := p.(type) {
		case *packet.Compressed:
			if err := packets.Push(p.Body); err != nil {
				return nil, err
			}
		case *packet.OnePassSignature:
			if prevLast {
				return nil, errors.StructuralError("nested signature packets")
			}

			if p.IsLast {
				prevLast = true
			}

			h := p.Hash.HashFunc()
			hashes = append(hashes, h)

			md.IsSigned = true
			md.SignedByKeyId = p.KeyId
		case *packet.LiteralData:
			md.LiteralData = p
			break FindLiteralData
		case *packet.Signature:
			// Old style signature-then-data. Keep for verification after
			// the literal data is consumed (not supported streamed; the
			// signature packet is recorded for callers).
			md.Signature = p
		}
	}

	if md.IsSigned && keyring != nil {
		keys := keyring.KeysByIdUsage(md.SignedByKeyId, packet.KeyFlagSign)
		if len(keys) > 0 {
			md.SignedBy = &keys[0]
		}
	}

	if md.IsSigned {
		hashFunc := hashes[len(hashes)-1]
		if !hashFunc.Available() {
			return nil, errors.UnsupportedError("hash function " + strconv.Itoa(int(hashFunc)))
		}
		if config.RejectMessageHashAlgorithm(hashIdForCryptoHash(hashFunc)) {
			return nil, errors.PolicyError("insecure hash algorithm for message signature")
		}
		h := hashFunc.New()
		wrappedHash, err = wrapHashForSignature(h, md.LiteralData.IsBinary)
		if err != nil {
			return nil, err
		}
		md.UnverifiedBody = &signatureCheckReader{packets, h, wrappedHash, md, config}
	} else if md.decrypted != nil {
		md.UnverifiedBody = checkReader{md}
	} else {
		md.UnverifiedBody = md.LiteralData.Body
	}

	return md, nil
}

// hashIdForCryptoHash maps a crypto.Hash back to its wire id for policy
// checks.
func hashIdForCryptoHash(h crypto.Hash) uint8 {
	switch h {
	case crypto.MD5:
		return 1
	case crypto.SHA1:
		return 2
	case crypto.RIPEMD160:
		return 3
	case crypto.SHA256:
		return 8
	case crypto.SHA384:
		return 9
	case crypto.SHA512:
		return 10
	case crypto.SHA224:
		return 11
	}
	return 0
}

// wrapHashForSignature wraps a hash so that text-mode signatures hash with
// canonicalized CRLF line endings.
func wrapHashForSignature(h hash.Hash, isBinary bool) (hash.Hash, error) {
	if isBinary {
		return h, nil
	}
	return NewCanonicalTextHash(h), nil
}

// checkReader wraps an io.Reader from a LiteralData packet. When it sees EOF
// it closes the ReadCloser from the SymmetricallyEncrypted packet so that the
// MDC or AEAD check is performed.
type checkReader struct {
	md *MessageDetails
}

func (cr checkReader) Read(buf []byte) (n int, err error) {
	n, err = cr.md.LiteralData.Body.Read(buf)
	if err == io.EOF {
		mdcErr := cr.md.decrypted.Close()
		if mdcErr != nil {
			err = mdcErr
		}
	}
	return
}

// signatureCheckReader wraps an io.Reader from a LiteralData packet and hashes
// the data as it is read. When it sees an EOF from the underlying io.Reader
// it parses and checks a trailing Signature packet and triggers any MDC
// checks.
type signatureCheckReader struct {
	packets     *packet.Reader
	h           hash.Hash // the raw hash context the signature closes over
	wrappedHash hash.Hash // h, possibly wrapped for text canonicalization
	md          *MessageDetails
	config      *packet.Config
}

func (scr *signatureCheckReader) Read(buf []byte) (n int, err error) {
	n, err = scr.md.LiteralData.Body.Read(buf)
	scr.wrappedHash.Write(buf[:n])
	if err == io.EOF {
		var p packet.Packet
		var readError error
		var sig *packet.Signature

		p, readError = scr.packets.Next()
		for readError == nil {
			var ok bool
			if sig, ok = p.(*packet.Signature); ok {
				// If signature KeyID matches
				if scr.md.SignedBy != nil && *sig.IssuerKeyId == scr.md.SignedByKeyId {
					scr.md.Signature = sig
					scr.md.SignatureError = scr.md.SignedBy.PublicKey.VerifySignature(scr.h, sig)
					if scr.md.SignatureError == nil && scr.md.Signature.SigExpired(scr.config.Now()) {
						scr.md.SignatureError = errors.SignatureError("signature expired")
					}
					break
				}
			}

			p, readError = scr.packets.Next()
		}

		if scr.md.SignedBy != nil && scr.md.Signature == nil {
			if scr.md.IsSigned {
				scr.md.SignatureError = errors.StructuralError("LiteralData not followed by signature")
			}
		}

		// Ensure that the MDC or AEAD check is run and that all trailing
		// packets are consumed.
		if scr.md.decrypted != nil {
			mdcErr := scr.md.decrypted.Close()
			if mdcErr != nil {
				err = mdcErr
			}
		}
	}
	return
}

// CheckDetachedSignature takes a signed file and a detached signature and
// returns the signer if the signature is valid. If the signer isn't known,
// ErrUnknownIssuer is returned.
func CheckDetachedSignature(keyring KeyRing, signed, signature io.Reader, config *packet.Config) (signer *Entity, err error) {
	var issuerKeyId uint64
	var hashFunc hash.Hash
	var sigType packet.SignatureType
	var keys []Key
	var p packet.Packet

	packets := packet.NewReader(signature)
	for {
		p, err = packets.Next()
		if err == io.EOF {
			return nil, errors.ErrUnknownIssuer
		}
		if err != nil {
			return nil, err
		}

		sig, ok := p.(*packet.Signature)
		if !ok {
			return nil, errors.StructuralError("non signature packet found")
		}
		if sig.IssuerKeyId == nil {
			return nil, errors.StructuralError("signature doesn't have an issuer")
		}
		issuerKeyId = *sig.IssuerKeyId
		if config.RejectMessageHashAlgorithm(sig.Hash.Id()) {
			return nil, errors.PolicyError("insecure hash algorithm for message signature")
		}
		hashFunc, err = sig.PrepareVerify()
		if err != nil {
			return nil, err
		}
		sigType = sig.SigType

		keys = keyring.KeysByIdUsage(issuerKeyId, packet.KeyFlagSign)
		if len(keys) > 0 {
			break
		}
	}

	if len(keys) == 0 {
		panic("unreachable")
	}

	wrappedHash, err := wrapHashForSignature(hashFunc, sigType == packet.SigTypeBinary)
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(wrappedHash, signed); err != nil && err != io.EOF {
		return nil, err
	}

	sig := p.(*packet.Signature)
	for _, key := range keys {
		err = key.PublicKey.VerifySignature(hashFunc, sig)
		if err == nil {
			if sig.SigExpired(config.Now()) {
				return key.Entity, errors.SignatureError("signature expired")
			}
			return key.Entity, nil
		}
	}

	return nil, err
}
