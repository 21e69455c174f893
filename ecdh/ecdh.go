// Package ecdh implements ECDH encryption, suitable for OpenPGP, as
// specified in RFC 6637, section 8.
package ecdh

import (
	"bytes"
	"crypto/elliptic"
	"errors"
	"io"
	"math/big"

	"golang.org/x/crypto/curve25519"

	"nullprogram.com/x/openpgp/internal/algorithm"
	"nullprogram.com/x/openpgp/internal/ecc"
	"nullprogram.com/x/openpgp/internal/keywrap"
)

// KDF contains the key derivation parameters advertised in an ECDH public
// key. See RFC 6637, section 9.
type KDF struct {
	Hash   algorithm.Hash
	Cipher algorithm.Cipher
}

// PublicKey represents an ECDH public key.
type PublicKey struct {
	CurveType ecc.CurveType
	Curve     elliptic.Curve // nil when CurveType is Curve25519
	X, Y      *big.Int
	KDF
}

// PrivateKey represents an ECDH private key.
type PrivateKey struct {
	PublicKey
	D []byte
}

// GenerateKey generates a fresh ECDH key pair on the given registry curve.
func GenerateKey(random io.Reader, ci *ecc.CurveInfo) (priv *PrivateKey, err error) {
	priv = new(PrivateKey)
	priv.PublicKey.CurveType = ci.CurveType
	priv.PublicKey.KDF = KDF{Hash: ci.KDFHash, Cipher: ci.KDFCipher}

	if ci.CurveType == ecc.Curve25519 {
		var secret [32]byte
		if _, err = io.ReadFull(random, secret[:]); err != nil {
			return nil, err
		}
		// Clamp per curve25519 convention.
		secret[0] &= 248
		secret[31] &= 127
		secret[31] |= 64
		point, err := curve25519.X25519(secret[:], curve25519.Basepoint)
		if err != nil {
			return nil, err
		}
		priv.D = secret[:]
		// The wire point is 0x40 || native u-coordinate.
		priv.PublicKey.X = new(big.Int).SetBytes(append([]byte{0x40}, point...))
		return priv, nil
	}

	priv.PublicKey.Curve = ci.Curve
	d, x, y, err := elliptic.GenerateKey(ci.Curve, random)
	if err != nil {
		return nil, err
	}
	priv.D = d
	priv.PublicKey.X = x
	priv.PublicKey.Y = y
	return priv, nil
}

// Encrypt shared-secret-encrypts msg for pub: it generates an ephemeral
// scalar, derives a KEK per RFC 6637 and wraps the padded msg with RFC 3394
// key wrap. It returns the ephemeral point (wire encoding) and the wrapped
// key.
func Encrypt(random io.Reader, pub *PublicKey, msg, curveOID, fingerprint []byte) (vsG, c []byte, err error) {
	if len(msg) > 40 {
		return nil, nil, errors.New("ecdh: message too long")
	}
	// the sender MAY use 21, 13, and 5 bytes of padding for AES-128,
	// AES-192, and AES-256, respectively, to provide the same number of
	// octets, 40 total, as an input to the key wrapping method.
	padding := make([]byte, 40-len(msg))
	for i := range padding {
		padding[i] = byte(40 - len(msg))
	}
	m := append(msg, padding...)

	if pub.CurveType == ecc.Curve25519 {
		var ephemeral [32]byte
		if _, err = io.ReadFull(random, ephemeral[:]); err != nil {
			return nil, nil, err
		}
		ephemeral[0] &= 248
		ephemeral[31] &= 127
		ephemeral[31] |= 64

		ephemeralPoint, err := curve25519.X25519(ephemeral[:], curve25519.Basepoint)
		if err != nil {
			return nil, nil, err
		}
		theirPoint := pub.X.Bytes()
		if len(theirPoint) != 33 || theirPoint[0] != 0x40 {
			return nil, nil, errors.New("ecdh: invalid curve25519 public point")
		}
		zb, err := curve25519.X25519(ephemeral[:], theirPoint[1:])
		if err != nil {
			return nil, nil, err
		}

		vsG = append([]byte{0x40}, ephemeralPoint...)
		z, err := buildKey(pub, zb, curveOID, fingerprint)
		if err != nil {
			return nil, nil, err
		}
		c, err = keywrap.Wrap(z, m)
		return vsG, c, err
	}

	d, x, y, err := elliptic.GenerateKey(pub.Curve, random)
	if err != nil {
		return nil, nil, err
	}

	vsG = elliptic.Marshal(pub.Curve, x, y)
	zbBig, _ := pub.Curve.ScalarMult(pub.X, pub.Y, d)

	byteLen := (pub.Curve.Params().BitSize + 7) >> 3
	zb := make([]byte, byteLen)
	zbBytes := zbBig.Bytes()
	copy(zb[byteLen-len(zbBytes):], zbBytes)

	z, err := buildKey(pub, zb, curveOID, fingerprint)
	if err != nil {
		return nil, nil, err
	}
	c, err = keywrap.Wrap(z, m)
	return vsG, c, err
}

// Decrypt reverses Encrypt using the private scalar.
func Decrypt(priv *PrivateKey, vsG, m, curveOID, fingerprint []byte) (msg []byte, err error) {
	var zb []byte
	if priv.CurveType == ecc.Curve25519 {
		if len(vsG) != 33 || vsG[0] != 0x40 {
			return nil, errors.New("ecdh: invalid curve25519 ephemeral point")
		}
		zb, err = curve25519.X25519(priv.D, vsG[1:])
		if err != nil {
			return nil, err
		}
	} else {
		x, y := elliptic.Unmarshal(priv.Curve, vsG)
		if x == nil {
			return nil, errors.New("ecdh: invalid ephemeral point")
		}
		zbBig, _ := priv.Curve.ScalarMult(x, y, priv.D)
		byteLen := (priv.Curve.Params().BitSize + 7) >> 3
		zb = make([]byte, byteLen)
		zbBytes := zbBig.Bytes()
		copy(zb[byteLen-len(zbBytes):], zbBytes)
	}

	z, err := buildKey(&priv.PublicKey, zb, curveOID, fingerprint)
	if err != nil {
		return nil, err
	}

	c, err := keywrap.Unwrap(z, m)
	if err != nil {
		return nil, err
	}

	// Unpad the message. Each padding byte holds the padding length.
	if len(c) == 0 {
		return nil, errors.New("ecdh: empty wrapped key")
	}
	padLen := int(c[len(c)-1])
	if padLen < 1 || padLen > len(c) {
		return nil, errors.New("ecdh: invalid padding")
	}
	for _, v := range c[len(c)-padLen:] {
		if int(v) != padLen {
			return nil, errors.New("ecdh: invalid padding")
		}
	}
	return c[:len(c)-padLen], nil
}

// buildKey derives the key encryption key. See RFC 6637, section 7.
func buildKey(pub *PublicKey, zb, curveOID, fingerprint []byte) ([]byte, error) {
	// Param = curve_OID_len || curve_OID || public_key_alg_ID || 03
	// || 01 || KDF_hash_ID || KEK_alg_ID for AESKeyWrap
	// || "Anonymous Sender    " || recipient_fingerprint;
	// The recipient fingerprint is truncated to 20 bytes; a v4
	// fingerprint is exactly that long already.
	param := new(bytes.Buffer)
	if _, err := param.Write(curveOID); err != nil {
		return nil, err
	}
	algKDF := []byte{18, 3, 1, pub.KDF.Hash.Id(), pub.KDF.Cipher.Id()}
	if _, err := param.Write(algKDF); err != nil {
		return nil, err
	}
	if _, err := param.Write([]byte("Anonymous Sender    ")); err != nil {
		return nil, err
	}
	if len(fingerprint) > 20 {
		fingerprint = fingerprint[:20]
	}
	if _, err := param.Write(fingerprint); err != nil {
		return nil, err
	}

	// MB = Hash ( 00 || 00 || 00 || 01 || ZB || Param );
	h := pub.KDF.Hash.New()
	if _, err := h.Write([]byte{0x0, 0x0, 0x0, 0x1}); err != nil {
		return nil, err
	}
	if _, err := h.Write(zb); err != nil {
		return nil, err
	}
	if _, err := h.Write(param.Bytes()); err != nil {
		return nil, err
	}
	mb := h.Sum(nil)

	return mb[:pub.KDF.Cipher.KeySize()], nil
}
