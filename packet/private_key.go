package packet

import (
	"bytes"
	"crypto/cipher"
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/subtle"
	"io"
	"math/big"
	"strconv"
	"time"

	"gitlab.com/yawning/secp256k1-voi/secec"
	"golang.org/x/crypto/ed25519"

	"nullprogram.com/x/openpgp/ecdh"
	"nullprogram.com/x/openpgp/elgamal"
	"nullprogram.com/x/openpgp/errors"
	"nullprogram.com/x/openpgp/internal/algorithm"
	"nullprogram.com/x/openpgp/internal/encoding"
	"nullprogram.com/x/openpgp/s2k"
)

// PrivateKey represents a possibly encrypted private key. See RFC 4880,
// section 5.5.3.
type PrivateKey struct {
	PublicKey
	Encrypted     bool // if true then the private key is unavailable until Decrypt has been called.
	encryptedData []byte
	cipher        CipherFunction
	s2k           func(out, in []byte)
	// An *rsa.PrivateKey, *dsa.PrivateKey, *ecdsa.PrivateKey,
	// *secec.PrivateKey, ed25519.PrivateKey, *ecdh.PrivateKey or
	// *elgamal.PrivateKey.
	PrivateKey   interface{}
	sha1Checksum bool
	iv           []byte
	s2kParams    *s2k.Params
	// s2kType charaterizes the S2K usage octet that protected the secret
	// material on the wire.
	s2kType S2KType
	// aeadMode is set when s2kType is S2KAEAD.
	aeadMode AEADMode
	dummy    bool
}

// S2KType represents the S2K usage octet of a secret key packet.
type S2KType uint8

const (
	// S2KNON unencrypted
	S2KNON S2KType = 0
	// S2KAEAD use authenticated encryption (crypto refresh)
	S2KAEAD S2KType = 253
	// S2KSHA1 sha1 sum check
	S2KSHA1 S2KType = 254
	// S2KCHECKSUM sum check
	S2KCHECKSUM S2KType = 255
)

func NewRSAPrivateKey(creationTime time.Time, priv *rsa.PrivateKey) *PrivateKey {
	pk := new(PrivateKey)
	pk.PublicKey = *NewRSAPublicKey(creationTime, &priv.PublicKey)
	pk.PrivateKey = priv
	return pk
}

func NewDSAPrivateKey(creationTime time.Time, priv *dsa.PrivateKey) *PrivateKey {
	pk := new(PrivateKey)
	pk.PublicKey = *NewDSAPublicKey(creationTime, &priv.PublicKey)
	pk.PrivateKey = priv
	return pk
}

func NewECDSAPrivateKey(creationTime time.Time, priv *ecdsa.PrivateKey) *PrivateKey {
	pk := new(PrivateKey)
	pk.PublicKey = *NewECDSAPublicKey(creationTime, &priv.PublicKey)
	pk.PrivateKey = priv
	return pk
}

func NewSecp256k1PrivateKey(creationTime time.Time, priv *secec.PrivateKey) *PrivateKey {
	pk := new(PrivateKey)
	pk.PublicKey = *NewSecp256k1PublicKey(creationTime, priv.PublicKey())
	pk.PrivateKey = priv
	return pk
}

func NewECDHPrivateKey(creationTime time.Time, priv *ecdh.PrivateKey) *PrivateKey {
	pk := new(PrivateKey)
	pk.PublicKey = *NewECDHPublicKey(creationTime, &priv.PublicKey)
	pk.PrivateKey = priv
	return pk
}

func NewEdDSAPrivateKey(creationTime time.Time, priv ed25519.PrivateKey) *PrivateKey {
	pk := new(PrivateKey)
	pub := priv.Public().(ed25519.PublicKey)
	pk.PublicKey = *NewEdDSAPublicKey(creationTime, pub)
	pk.PrivateKey = priv
	return pk
}

// Dummy returns true if the private key is a GNU dummy key, whose material
// is held elsewhere (for example on a smartcard).
func (pk *PrivateKey) Dummy() bool {
	return pk.dummy
}

func (pk *PrivateKey) parse(r io.Reader) (err error) {
	err = (&pk.PublicKey).parse(r)
	if err != nil {
		return
	}
	v5 := pk.PublicKey.Version == 5

	var buf [1]byte
	_, err = readFull(r, buf[:])
	if err != nil {
		return
	}
	pk.s2kType = S2KType(buf[0])
	var optCount [1]byte
	if v5 {
		if _, err = readFull(r, optCount[:]); err != nil {
			return
		}
	}

	switch pk.s2kType {
	case S2KNON:
		pk.s2k = nil
		pk.Encrypted = false
	case S2KSHA1, S2KCHECKSUM, S2KAEAD:
		if v5 && pk.s2kType == S2KCHECKSUM {
			return errors.StructuralError("wrong s2k identifier for version 5")
		}
		_, err = readFull(r, buf[:])
		if err != nil {
			return
		}
		pk.cipher = CipherFunction(buf[0])
		if !pk.cipher.IsSupported() {
			return errors.UnsupportedError("unsupported cipher function in private key")
		}
		if pk.s2kType == S2KAEAD {
			_, err = readFull(r, buf[:])
			if err != nil {
				return
			}
			pk.aeadMode = AEADMode(buf[0])
			if !pk.aeadMode.IsSupported() {
				return errors.UnsupportedError("unsupported aead mode in private key")
			}
		}
		pk.s2kParams, err = s2k.ParseIntoParams(r)
		if err != nil {
			return
		}
		if pk.s2kParams.Dummy() {
			pk.Encrypted = false
			pk.dummy = true
			return
		}
		pk.s2k, err = pk.s2kParams.Function()
		if err != nil {
			return
		}
		pk.Encrypted = true
		if pk.s2kType == S2KSHA1 {
			pk.sha1Checksum = true
		}
	default:
		cipher := CipherFunction(pk.s2kType)
		if !cipher.IsSupported() {
			return errors.UnsupportedError("unsupported cipher function in private key")
		}
		// Legacy encoding: the usage octet is the symmetric algorithm id
		// and the passphrase is hashed with MD5 without salt.
		pk.cipher = cipher
		pk.s2kType = S2KCHECKSUM
		pk.s2k = func(out, in []byte) {
			s2k.Simple(out, algorithm.MD5.New(), in)
		}
		pk.Encrypted = true
	}

	if pk.Encrypted || pk.s2kType == S2KAEAD {
		var ivSize int
		if pk.s2kType == S2KAEAD {
			ivSize = pk.aeadMode.NonceLength()
		} else {
			ivSize = pk.cipher.blockSize()
		}
		blockSize := ivSize
		if blockSize == 0 {
			return errors.UnsupportedError("unsupported cipher in private key: " + strconv.Itoa(int(pk.cipher)))
		}
		pk.iv = make([]byte, blockSize)
		_, err = readFull(r, pk.iv)
		if err != nil {
			return
		}
	}

	pk.encryptedData, err = io.ReadAll(r)
	if err != nil {
		return
	}

	if !pk.Encrypted {
		if pk.dummy {
			return
		}
		return pk.parsePrivateKey(pk.encryptedData)
	}

	return
}

// Serialize writes pk, including the packet header, to w.
func (pk *PrivateKey) Serialize(w io.Writer) (err error) {
	if pk.Encrypted && pk.s2kParams == nil {
		// Keys protected with the legacy cipher-id usage octet are
		// decrypt-only.
		return errors.UnsupportedError("serializing legacy CFB-protected private key")
	}
	contents := bytes.NewBuffer(nil)
	err = pk.PublicKey.serializeWithoutHeaders(contents)
	if err != nil {
		return
	}
	if _, err = contents.Write([]byte{uint8(pk.s2kType)}); err != nil {
		return
	}

	optional := bytes.NewBuffer(nil)
	if pk.Encrypted || pk.Dummy() {
		if _, err = optional.Write([]byte{uint8(pk.cipher)}); err != nil {
			return
		}
		if pk.s2kType == S2KAEAD {
			if _, err = optional.Write([]byte{uint8(pk.aeadMode)}); err != nil {
				return
			}
		}
		if err = pk.s2kParams.Serialize(optional); err != nil {
			return
		}
		if pk.Encrypted {
			if _, err = optional.Write(pk.iv); err != nil {
				return
			}
		}
	}
	if pk.Version == 5 {
		contents.Write([]byte{uint8(optional.Len())})
	}
	io.Copy(contents, optional)

	if !pk.Dummy() {
		l := 0
		var priv []byte
		if !pk.Encrypted {
			buf := bytes.NewBuffer(nil)
			err = pk.serializePrivateKey(buf)
			if err != nil {
				return err
			}
			l = buf.Len()
			checksum := mod64kHash(buf.Bytes())
			buf.Write([]byte{byte(checksum >> 8), byte(checksum)})
			priv = buf.Bytes()
		} else {
			priv, l = pk.encryptedData, len(pk.encryptedData)
		}

		if pk.Version == 5 {
			contents.Write([]byte{byte(l >> 24), byte(l >> 16), byte(l >> 8), byte(l)})
		}
		contents.Write(priv)
	}

	ptype := packetTypePrivateKey
	if pk.IsSubkey {
		ptype = packetTypePrivateSubkey
	}
	err = serializeHeader(w, ptype, contents.Len())
	if err != nil {
		return
	}
	_, err = io.Copy(w, contents)
	return
}

func (pk *PrivateKey) serializePrivateKey(w io.Writer) (err error) {
	switch priv := pk.PrivateKey.(type) {
	case *rsa.PrivateKey:
		err = serializeRSAPrivateKey(w, priv)
	case *dsa.PrivateKey:
		err = serializeDSAPrivateKey(w, priv)
	case *elgamal.PrivateKey:
		err = serializeElGamalPrivateKey(w, priv)
	case *ecdsa.PrivateKey:
		err = serializeECDSAPrivateKey(w, priv)
	case *secec.PrivateKey:
		_, err = w.Write(encoding.NewMPI(priv.Bytes()).EncodedBytes())
	case ed25519.PrivateKey:
		err = serializeEdDSAPrivateKey(w, priv)
	case *ecdh.PrivateKey:
		_, err = w.Write(encoding.NewMPI(priv.D).EncodedBytes())
	default:
		err = errors.InvalidArgumentError("unknown private key type")
	}
	return
}

func serializeRSAPrivateKey(w io.Writer, priv *rsa.PrivateKey) error {
	if _, err := w.Write(new(encoding.MPI).SetBig(priv.D).EncodedBytes()); err != nil {
		return err
	}
	if _, err := w.Write(new(encoding.MPI).SetBig(priv.Primes[0]).EncodedBytes()); err != nil {
		return err
	}
	if _, err := w.Write(new(encoding.MPI).SetBig(priv.Primes[1]).EncodedBytes()); err != nil {
		return err
	}
	u := new(big.Int).ModInverse(priv.Primes[0], priv.Primes[1])
	_, err := w.Write(new(encoding.MPI).SetBig(u).EncodedBytes())
	return err
}

func serializeDSAPrivateKey(w io.Writer, priv *dsa.PrivateKey) error {
	_, err := w.Write(new(encoding.MPI).SetBig(priv.X).EncodedBytes())
	return err
}

func serializeElGamalPrivateKey(w io.Writer, priv *elgamal.PrivateKey) error {
	_, err := w.Write(new(encoding.MPI).SetBig(priv.X).EncodedBytes())
	return err
}

func serializeECDSAPrivateKey(w io.Writer, priv *ecdsa.PrivateKey) error {
	_, err := w.Write(new(encoding.MPI).SetBig(priv.D).EncodedBytes())
	return err
}

func serializeEdDSAPrivateKey(w io.Writer, priv ed25519.PrivateKey) error {
	_, err := w.Write(encoding.NewMPI(priv.Seed()).EncodedBytes())
	return err
}

// Decrypt decrypts an encrypted private key using a passphrase.
func (pk *PrivateKey) Decrypt(passphrase []byte) error {
	if pk.Dummy() {
		return errors.ErrDummyPrivateKey("dummy key found")
	}
	if !pk.Encrypted {
		return nil
	}

	key := make([]byte, pk.cipher.KeySize())
	pk.s2k(key, passphrase)

	if pk.s2kType == S2KAEAD {
		aead := pk.aeadMode.new(pk.cipher.new(key))
		ad := pk.associatedData()
		data, err := aead.Open(nil, pk.iv, pk.encryptedData, ad)
		if err != nil {
			return errors.IntegrityError("wrong passphrase or corrupt private key")
		}
		err = pk.parsePrivateKey(data)
		zeroSlice(data)
		zeroSlice(key)
		if err != nil {
			return err
		}
		pk.Encrypted = false
		pk.encryptedData = nil
		return nil
	}

	block := pk.cipher.new(key)
	zeroSlice(key)
	cfb := cipher.NewCFBDecrypter(block, pk.iv)

	data := make([]byte, len(pk.encryptedData))
	cfb.XORKeyStream(data, pk.encryptedData)

	if pk.sha1Checksum {
		if len(data) < sha1.Size {
			return errors.StructuralError("truncated private key data")
		}
		h := sha1.New()
		h.Write(data[:len(data)-sha1.Size])
		sum := h.Sum(nil)
		if subtle.ConstantTimeCompare(sum, data[len(data)-sha1.Size:]) != 1 {
			return errors.IntegrityError("private key checksum failure")
		}
		data = data[:len(data)-sha1.Size]
	} else {
		if len(data) < 2 {
			return errors.StructuralError("truncated private key data")
		}
		var sum uint16
		for i := 0; i < len(data)-2; i++ {
			sum += uint16(data[i])
		}
		if data[len(data)-2] != uint8(sum>>8) ||
			data[len(data)-1] != uint8(sum) {
			return errors.IntegrityError("private key checksum failure")
		}
		data = data[:len(data)-2]
	}

	err := pk.parsePrivateKey(data)
	zeroSlice(data)
	if _, ok := err.(errors.UnsupportedError); ok {
		return err
	}
	if err != nil {
		return errors.IntegrityError("wrong passphrase or corrupt private key")
	}
	pk.Encrypted = false
	pk.encryptedData = nil

	return nil
}

// Encrypt encrypts an unencrypted private key using a passphrase.
// If config is nil, sensible defaults will be used.
func (pk *PrivateKey) Encrypt(passphrase []byte, config *Config) error {
	if pk.Dummy() {
		return errors.ErrDummyPrivateKey("dummy key found")
	}
	if pk.Encrypted {
		return nil
	}

	privateKeyBuf := bytes.NewBuffer(nil)
	err := pk.serializePrivateKey(privateKeyBuf)
	if err != nil {
		return err
	}

	pk.cipher = config.Cipher()
	s2kConfig := &s2k.Config{S2KCount: config.PasswordHashIterations()}
	pk.s2kParams, err = s2k.Generate(config.Random(), s2kConfig)
	if err != nil {
		return err
	}
	pk.s2k, err = pk.s2kParams.Function()
	if err != nil {
		return err
	}

	key := make([]byte, pk.cipher.KeySize())
	pk.s2k(key, passphrase)

	privateKeyBytes := privateKeyBuf.Bytes()
	pk.s2kType = S2KSHA1
	pk.sha1Checksum = true

	pk.iv = make([]byte, pk.cipher.blockSize())
	if _, err = io.ReadFull(config.Random(), pk.iv); err != nil {
		return err
	}

	h := sha1.New()
	h.Write(privateKeyBytes)
	sum := h.Sum(nil)
	privateKeyBytes = append(privateKeyBytes, sum...)

	block := pk.cipher.new(key)
	zeroSlice(key)
	cfb := cipher.NewCFBEncrypter(block, pk.iv)
	pk.encryptedData = make([]byte, len(privateKeyBytes))
	cfb.XORKeyStream(pk.encryptedData, privateKeyBytes)
	zeroSlice(privateKeyBytes)

	pk.Encrypted = true
	pk.PrivateKey = nil
	return nil
}

// EncryptWithAEAD protects the secret key material with the S2K-usage 253
// scheme from the crypto refresh: the serialized secret material is sealed
// with the configured AEAD mode, bound to the public key body.
func (pk *PrivateKey) EncryptWithAEAD(passphrase []byte, config *Config) error {
	if pk.Dummy() {
		return errors.ErrDummyPrivateKey("dummy key found")
	}
	if pk.Encrypted {
		return nil
	}

	privateKeyBuf := bytes.NewBuffer(nil)
	if err := pk.serializePrivateKey(privateKeyBuf); err != nil {
		return err
	}

	var err error
	pk.cipher = config.Cipher()
	pk.aeadMode = config.AEAD().Mode()
	s2kConfig := &s2k.Config{S2KCount: config.PasswordHashIterations()}
	pk.s2kParams, err = s2k.Generate(config.Random(), s2kConfig)
	if err != nil {
		return err
	}
	pk.s2k, err = pk.s2kParams.Function()
	if err != nil {
		return err
	}

	key := make([]byte, pk.cipher.KeySize())
	pk.s2k(key, passphrase)

	pk.s2kType = S2KAEAD
	pk.iv = make([]byte, pk.aeadMode.NonceLength())
	if _, err = io.ReadFull(config.Random(), pk.iv); err != nil {
		return err
	}

	aead := pk.aeadMode.new(pk.cipher.new(key))
	zeroSlice(key)
	pk.encryptedData = aead.Seal(nil, pk.iv, privateKeyBuf.Bytes(), pk.associatedData())

	pk.Encrypted = true
	pk.PrivateKey = nil
	return nil
}

// associatedData binds the AEAD-protected secret material to the enclosing
// public key packet.
func (pk *PrivateKey) associatedData() []byte {
	buf := bytes.NewBuffer(nil)
	ptype := packetTypePrivateKey
	if pk.IsSubkey {
		ptype = packetTypePrivateSubkey
	}
	buf.Write([]byte{0x80 | 0x40 | byte(ptype)})
	pk.PublicKey.serializeWithoutHeaders(buf)
	return buf.Bytes()
}

func (pk *PrivateKey) parsePrivateKey(data []byte) (err error) {
	switch pk.PublicKey.PubKeyAlgo {
	case PubKeyAlgoRSA, PubKeyAlgoRSASignOnly, PubKeyAlgoRSAEncryptOnly:
		return pk.parseRSAPrivateKey(data)
	case PubKeyAlgoDSA:
		return pk.parseDSAPrivateKey(data)
	case PubKeyAlgoElGamal:
		return pk.parseElGamalPrivateKey(data)
	case PubKeyAlgoECDSA:
		return pk.parseECDSAPrivateKey(data)
	case PubKeyAlgoECDH:
		return pk.parseECDHPrivateKey(data)
	case PubKeyAlgoEdDSA:
		return pk.parseEdDSAPrivateKey(data)
	}
	panic("impossible")
}

func (pk *PrivateKey) parseRSAPrivateKey(data []byte) (err error) {
	rsaPub := pk.PublicKey.PublicKey.(*rsa.PublicKey)
	rsaPriv := new(rsa.PrivateKey)
	rsaPriv.PublicKey = *rsaPub

	buf := bytes.NewBuffer(data)
	d := new(encoding.MPI)
	if _, err := d.ReadFrom(buf); err != nil {
		return err
	}
	p := new(encoding.MPI)
	if _, err := p.ReadFrom(buf); err != nil {
		return err
	}
	q := new(encoding.MPI)
	if _, err := q.ReadFrom(buf); err != nil {
		return err
	}

	rsaPriv.D = new(big.Int).SetBytes(d.Bytes())
	rsaPriv.Primes = make([]*big.Int, 2)
	rsaPriv.Primes[0] = new(big.Int).SetBytes(p.Bytes())
	rsaPriv.Primes[1] = new(big.Int).SetBytes(q.Bytes())
	if err := rsaPriv.Validate(); err != nil {
		return errors.StructuralError("invalid RSA parameters: " + err.Error())
	}
	rsaPriv.Precompute()
	pk.PrivateKey = rsaPriv

	return nil
}

func (pk *PrivateKey) parseDSAPrivateKey(data []byte) (err error) {
	dsaPub := pk.PublicKey.PublicKey.(*dsa.PublicKey)
	dsaPriv := new(dsa.PrivateKey)
	dsaPriv.PublicKey = *dsaPub

	buf := bytes.NewBuffer(data)
	x := new(encoding.MPI)
	if _, err := x.ReadFrom(buf); err != nil {
		return err
	}

	dsaPriv.X = new(big.Int).SetBytes(x.Bytes())
	if err := validateDSAParameters(dsaPriv); err != nil {
		return err
	}
	pk.PrivateKey = dsaPriv

	return nil
}

func (pk *PrivateKey) parseElGamalPrivateKey(data []byte) (err error) {
	pub := pk.PublicKey.PublicKey.(*elgamal.PublicKey)
	priv := new(elgamal.PrivateKey)
	priv.PublicKey = *pub

	buf := bytes.NewBuffer(data)
	x := new(encoding.MPI)
	if _, err := x.ReadFrom(buf); err != nil {
		return err
	}

	priv.X = new(big.Int).SetBytes(x.Bytes())
	if err := validateElGamalParameters(priv); err != nil {
		return err
	}
	pk.PrivateKey = priv

	return nil
}

func (pk *PrivateKey) parseECDSAPrivateKey(data []byte) (err error) {
	buf := bytes.NewBuffer(data)
	d := new(encoding.MPI)
	if _, err := d.ReadFrom(buf); err != nil {
		return err
	}

	switch pub := pk.PublicKey.PublicKey.(type) {
	case *ecdsa.PublicKey:
		ecdsaPriv := new(ecdsa.PrivateKey)
		ecdsaPriv.PublicKey = *pub
		ecdsaPriv.D = new(big.Int).SetBytes(d.Bytes())
		if err := validateECDSAParameters(ecdsaPriv); err != nil {
			return err
		}
		pk.PrivateKey = ecdsaPriv
	case *secec.PublicKey:
		priv, err := secec.NewPrivateKey(padScalarBytes(d.Bytes()))
		if err != nil {
			return errors.StructuralError("invalid secp256k1 scalar")
		}
		if !bytes.Equal(priv.PublicKey().Bytes(), pub.Bytes()) {
			return errors.StructuralError("secp256k1 private key does not match public key")
		}
		pk.PrivateKey = priv
	default:
		return errors.StructuralError("unexpected ECDSA public key type")
	}

	return nil
}

func (pk *PrivateKey) parseECDHPrivateKey(data []byte) (err error) {
	ecdhPub := pk.PublicKey.PublicKey.(*ecdh.PublicKey)
	ecdhPriv := new(ecdh.PrivateKey)
	ecdhPriv.PublicKey = *ecdhPub

	buf := bytes.NewBuffer(data)
	d := new(encoding.MPI)
	if _, err := d.ReadFrom(buf); err != nil {
		return err
	}

	ecdhPriv.D = d.Bytes()
	pk.PrivateKey = ecdhPriv

	return nil
}

func (pk *PrivateKey) parseEdDSAPrivateKey(data []byte) (err error) {
	eddsaPub := pk.PublicKey.PublicKey.(ed25519.PublicKey)

	buf := bytes.NewBuffer(data)
	d := new(encoding.MPI)
	if _, err := d.ReadFrom(buf); err != nil {
		return err
	}

	priv := d.Bytes()
	if len(priv) > ed25519.SeedSize {
		return errors.StructuralError("invalid EdDSA key size")
	}
	seed := make([]byte, ed25519.SeedSize)
	copy(seed[ed25519.SeedSize-len(priv):], priv)
	eddsaPriv := ed25519.NewKeyFromSeed(seed)
	if !bytes.Equal(eddsaPriv.Public().(ed25519.PublicKey), eddsaPub) {
		return errors.StructuralError("EdDSA private key does not match public key")
	}
	pk.PrivateKey = eddsaPriv

	return nil
}

func validateECDSAParameters(priv *ecdsa.PrivateKey) error {
	x, y := priv.Curve.ScalarBaseMult(priv.D.Bytes())
	if x.Cmp(priv.X) != 0 || y.Cmp(priv.Y) != 0 {
		return errors.StructuralError("ECDSA private key does not match public key")
	}
	return nil
}

func validateDSAParameters(priv *dsa.PrivateKey) error {
	p := priv.P
	if p.Sign() <= 0 {
		return errors.StructuralError("DSA prime is invalid")
	}
	y := new(big.Int).Exp(priv.G, priv.X, p)
	if y.Cmp(priv.Y) != 0 {
		return errors.StructuralError("DSA private key does not match public key")
	}
	return nil
}

func validateElGamalParameters(priv *elgamal.PrivateKey) error {
	p := priv.P
	if p.Sign() <= 0 {
		return errors.StructuralError("ElGamal prime is invalid")
	}
	y := new(big.Int).Exp(priv.G, priv.X, p)
	if y.Cmp(priv.Y) != 0 {
		return errors.StructuralError("ElGamal private key does not match public key")
	}
	return nil
}

// padScalarBytes left pads a scalar to the 32-byte length the secp256k1
// backend expects.
func padScalarBytes(b []byte) []byte {
	if len(b) >= 32 {
		return b
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// mod64kHash returns the 16-bit checksum, mod 65536, of data, per RFC 4880,
// section 5.5.3.
func mod64kHash(data []byte) uint16 {
	var value uint16
	for _, b := range data {
		value += uint16(b)
	}
	return value
}

// zeroSlice wipes key material once it is no longer needed.
func zeroSlice(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
