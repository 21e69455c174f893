// Package errors contains common error types for the OpenPGP packages.
package errors

import (
	"strconv"
)

// A StructuralError is returned when OpenPGP data is found to be
// syntactically invalid.
type StructuralError string

func (s StructuralError) Error() string {
	return "openpgp: invalid data: " + string(s)
}

// UnsupportedError indicates that, although the OpenPGP data is valid, it
// makes use of currently unimplemented features.
type UnsupportedError string

func (s UnsupportedError) Error() string {
	return "openpgp: unsupported feature: " + string(s)
}

// InvalidArgumentError indicates that the caller is in error and passed an
// incorrect value.
type InvalidArgumentError string

func (i InvalidArgumentError) Error() string {
	return "openpgp: invalid argument: " + string(i)
}

// SignatureError indicates that a syntactically valid signature failed to
// validate.
type SignatureError string

func (b SignatureError) Error() string {
	return "openpgp: invalid signature: " + string(b)
}

// IntegrityError indicates that protected data failed an integrity check:
// an AEAD tag mismatch, an MDC failure, or a session-key checksum error.
// No plaintext beyond the failing chunk is ever released alongside one.
type IntegrityError string

func (i IntegrityError) Error() string {
	return "openpgp: integrity check failed: " + string(i)
}

// PolicyError indicates that an algorithm or key is valid on the wire but
// falls below the configured minimum strength or is on a reject list.
type PolicyError string

func (p PolicyError) Error() string {
	return "openpgp: policy violation: " + string(p)
}

// ErrKeyIncorrect is returned when none of the available keys can decrypt
// a message.
var ErrKeyIncorrect error = keyIncorrectError(0)

type keyIncorrectError int

func (ki keyIncorrectError) Error() string {
	return "openpgp: incorrect key"
}

// ErrUnknownIssuer is returned when a signature's issuer is not among the
// candidate keys.
var ErrUnknownIssuer error = unknownIssuerError(0)

type unknownIssuerError int

func (unknownIssuerError) Error() string {
	return "openpgp: signature made by unknown entity"
}

// ErrMDCMissing is returned when an encrypted packet carries no integrity
// protection and unauthenticated messages are not allowed.
var ErrMDCMissing error = mdcMissingError(0)

type mdcMissingError int

func (mdcMissingError) Error() string {
	return "openpgp: missing or stripped integrity protection"
}

// ErrDummyPrivateKey results when operations are attempted on a private key
// that is just a dummy key. See s2k's GNU extension.
type ErrDummyPrivateKey string

func (dke ErrDummyPrivateKey) Error() string {
	return "openpgp: s2k GNU dummy key: " + string(dke)
}

// UnknownPacketTypeError indicates that an unknown packet type was found.
type UnknownPacketTypeError uint8

func (upte UnknownPacketTypeError) Error() string {
	return "openpgp: unknown packet type: " + strconv.Itoa(int(upte))
}
