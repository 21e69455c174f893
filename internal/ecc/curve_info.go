// Package ecc provides the registry of elliptic curves recognized by the
// packet layer: each curve's canonical OID prefix, the signature or
// encryption algorithm it pairs with, and its preferred KDF parameters.
package ecc

import (
	"bytes"
	"crypto/elliptic"

	"nullprogram.com/x/openpgp/internal/algorithm"
	"nullprogram.com/x/openpgp/internal/brainpool"
	"nullprogram.com/x/openpgp/internal/encoding"
)

// CurveType designates the implementation family a curve belongs to. NIST
// and brainpool curves flow through crypto/elliptic; the 25519 family and
// secp256k1 have dedicated backends.
type CurveType uint8

const (
	NISTCurve CurveType = iota + 1
	Curve25519
	BrainpoolCurve
	BitCurve // secp256k1
)

// SigAlgorithm is the signature algorithm family a curve is usable with.
type SigAlgorithm uint8

const (
	ECDSA SigAlgorithm = iota + 1
	EdDSA
)

// CurveInfo is one entry of the curve registry.
type CurveInfo struct {
	Name         string
	Oid          *encoding.OID
	Curve        elliptic.Curve // nil for Curve25519 and BitCurve types
	CurveType    CurveType
	SigAlgorithm SigAlgorithm

	// Preferred KDF parameters for ECDH on this curve. See RFC 6637,
	// section 8.
	KDFHash   algorithm.Hash
	KDFCipher algorithm.Cipher
}

var Curves = []CurveInfo{
	{
		// NIST curve P-256
		Name:         "P256",
		Oid:          encoding.NewOID([]byte{0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x03, 0x01, 0x07}),
		Curve:        elliptic.P256(),
		CurveType:    NISTCurve,
		SigAlgorithm: ECDSA,
		KDFHash:      algorithm.SHA256,
		KDFCipher:    algorithm.AES128,
	},
	{
		// NIST curve P-384
		Name:         "P384",
		Oid:          encoding.NewOID([]byte{0x2B, 0x81, 0x04, 0x00, 0x22}),
		Curve:        elliptic.P384(),
		CurveType:    NISTCurve,
		SigAlgorithm: ECDSA,
		KDFHash:      algorithm.SHA384,
		KDFCipher:    algorithm.AES192,
	},
	{
		// NIST curve P-521
		Name:         "P521",
		Oid:          encoding.NewOID([]byte{0x2B, 0x81, 0x04, 0x00, 0x23}),
		Curve:        elliptic.P521(),
		CurveType:    NISTCurve,
		SigAlgorithm: ECDSA,
		KDFHash:      algorithm.SHA512,
		KDFCipher:    algorithm.AES256,
	},
	{
		Name:         "Secp256k1",
		Oid:          encoding.NewOID([]byte{0x2B, 0x81, 0x04, 0x00, 0x0A}),
		CurveType:    BitCurve,
		SigAlgorithm: ECDSA,
		KDFHash:      algorithm.SHA256,
		KDFCipher:    algorithm.AES128,
	},
	{
		Name:         "BrainpoolP256",
		Oid:          encoding.NewOID([]byte{0x2B, 0x24, 0x03, 0x03, 0x02, 0x08, 0x01, 0x01, 0x07}),
		Curve:        brainpool.P256r1(),
		CurveType:    BrainpoolCurve,
		SigAlgorithm: ECDSA,
		KDFHash:      algorithm.SHA256,
		KDFCipher:    algorithm.AES128,
	},
	{
		Name:         "BrainpoolP384",
		Oid:          encoding.NewOID([]byte{0x2B, 0x24, 0x03, 0x03, 0x02, 0x08, 0x01, 0x01, 0x0B}),
		Curve:        brainpool.P384r1(),
		CurveType:    BrainpoolCurve,
		SigAlgorithm: ECDSA,
		KDFHash:      algorithm.SHA384,
		KDFCipher:    algorithm.AES192,
	},
	{
		Name:         "BrainpoolP512",
		Oid:          encoding.NewOID([]byte{0x2B, 0x24, 0x03, 0x03, 0x02, 0x08, 0x01, 0x01, 0x0D}),
		Curve:        brainpool.P512r1(),
		CurveType:    BrainpoolCurve,
		SigAlgorithm: ECDSA,
		KDFHash:      algorithm.SHA512,
		KDFCipher:    algorithm.AES256,
	},
	{
		// Ed25519 (1.3.6.1.4.1.11591.15.1)
		Name:         "Ed25519",
		Oid:          encoding.NewOID([]byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0xDA, 0x47, 0x0F, 0x01}),
		CurveType:    Curve25519,
		SigAlgorithm: EdDSA,
		KDFHash:      algorithm.SHA256,
		KDFCipher:    algorithm.AES128,
	},
	{
		// Curve25519 (1.3.6.1.4.1.3029.1.5.1)
		Name:      "Curve25519",
		Oid:       encoding.NewOID([]byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0x97, 0x55, 0x01, 0x05, 0x01}),
		CurveType: Curve25519,
		KDFHash:   algorithm.SHA256,
		KDFCipher: algorithm.AES128,
	},
}

// FindByCurve finds the CurveInfo for the given crypto/elliptic curve.
func FindByCurve(curve elliptic.Curve) *CurveInfo {
	for i := range Curves {
		if Curves[i].Curve == curve {
			return &Curves[i]
		}
	}
	return nil
}

// FindByOid finds the CurveInfo for the given OID field.
func FindByOid(oid encoding.Field) *CurveInfo {
	for i := range Curves {
		if bytes.Equal(Curves[i].Oid.Bytes(), oid.Bytes()) {
			return &Curves[i]
		}
	}
	return nil
}

// FindByName finds the CurveInfo for a registry name.
func FindByName(name string) *CurveInfo {
	for i := range Curves {
		if Curves[i].Name == name {
			return &Curves[i]
		}
	}
	return nil
}
