package packet

import (
	"crypto/rand"
	"io"
	"time"
)

// Config collects a number of parameters along with sensible defaults.
// The zero value and a nil *Config are both valid, and operations take the
// record explicitly; there is no process-global mutable state.
type Config struct {
	// Rand provides the source of entropy.
	// If nil, the crypto/rand Reader is used.
	Rand io.Reader
	// DefaultHash is the default hash function to be used.
	// If zero, SHA-256 is used.
	DefaultHash uint8
	// DefaultCipher is the cipher to be used.
	// If zero, AES-256 is used.
	DefaultCipher CipherFunction
	// Time returns the current time. If Time is nil, time.Now is used.
	Time func() time.Time
	// DefaultCompressionAlgo is the compression algorithm to be
	// applied to the plaintext before encryption. If zero, no
	// compression is done.
	DefaultCompressionAlgo CompressionAlgo
	// CompressionConfig configures the compression engine.
	CompressionConfig *CompressionConfig
	// S2KCount is the single-octet encoding of the iteration count used for
	// passphrase hashing. The encoded count must be between 0 and 255; zero
	// selects the maximum strength encoding.
	S2KCount uint8
	// RSABits is the number of bits in new RSA keys made with NewEntity.
	// If zero, then 2048 bit keys are created.
	RSABits int
	// KeyLifetime is the validity period, in seconds, of keys made with
	// NewEntity. Zero means the keys never expire.
	KeyLifetime uint32
	// SigLifetime is the validity period, in seconds, of new document
	// signatures. Zero means the signatures never expire.
	SigLifetime uint32
	// SigningKey is the key id to sign with when the signing entity has
	// several candidate keys. Zero selects the best candidate.
	SigningKey uint64
	// MinRSABits is the minimum modulus size accepted on parsed keys.
	// If zero, 2047 is used, admitting nominally-3072/2048 bit keys with a
	// short leading byte.
	MinRSABits uint16
	// AEADConfig, if non-nil, enables AEAD protection of new messages and
	// selects the mode and chunk size.
	AEADConfig *AEADConfig
	// V5Keys, if true, makes NewEntity generate version 5 keys.
	V5Keys bool
	// RejectCurves is the set of curve names that must not be used.
	RejectCurves map[string]bool
	// RejectHashAlgorithms is the set of hash ids refused in any context.
	RejectHashAlgorithms map[uint8]bool
	// RejectMessageHashAlgorithms is the set of hash ids refused for
	// document signatures only.
	RejectMessageHashAlgorithms map[uint8]bool
	// AllowUnauthenticatedMessages, if true, allows decryption of messages
	// without any integrity protection (a bare tag 9 packet). Never enable
	// this unless the plaintext is authenticated by other means.
	AllowUnauthenticatedMessages bool
	// AllowDecryptionWithSigningKeys, if true, allows decryption with keys
	// flagged for signing only. This is insecure and exists for
	// compatibility with broken senders.
	AllowDecryptionWithSigningKeys bool
	// ConstantTimePkcs1v15Decryption, if true, replaces a failed RSA
	// session-key decryption with a random session key of a plausible
	// length instead of returning an error, so that the failure is only
	// observable through the following integrity check.
	ConstantTimePkcs1v15Decryption bool
	// ConstantTimePkcs1v15DecryptionSupportedCiphers is the set of symmetric
	// algorithms whose key sizes the constant-time path may fabricate.
	// If empty, AES-128, AES-192 and AES-256 are assumed.
	ConstantTimePkcs1v15DecryptionSupportedCiphers map[CipherFunction]bool
}

// CompressionConfig contains compression settings.
type CompressionConfig struct {
	// Level is the compression level to use. It must be set to between -1
	// and 9, with -1 causing the compressor to use the default compression
	// level, 0 causing the compressor to use no compression and 1 to 9
	// representing increasing (better, slower) compression levels. If Level
	// is less than -1 or more then 9, a non-nil error will be returned during
	// encryption.
	Level int
}

// AEADConfig collects a number of AEAD parameters along with sensible
// defaults.
type AEADConfig struct {
	// DefaultMode is the AEAD mode of operation. If zero, EAX is used.
	DefaultMode AEADMode
	// ChunkSizeByte is the single-octet encoding of the chunk size: chunks
	// hold 1 << (ChunkSizeByte + 6) bytes. Values outside 6..56 are clamped
	// per the draft; if zero, 12 (256 KiB chunks) is used.
	ChunkSizeByte byte
}

// Mode returns the AEAD mode of operation.
func (conf *AEADConfig) Mode() AEADMode {
	if conf == nil || conf.DefaultMode == 0 {
		return AEADModeEAX
	}
	mode := conf.DefaultMode
	if !mode.IsSupported() {
		panic("AEAD mode unsupported")
	}
	return mode
}

// ChunkSizeByteValue returns the byte indicating the chunk size. The effective
// chunk size is computed with the formula uint64(1) << (chunkSizeByte + 6)
func (conf *AEADConfig) ChunkSizeByteValue() byte {
	if conf == nil || conf.ChunkSizeByte == 0 {
		return 12 // 1 << 18 == 256 KiB chunks
	}
	chunkSizeByte := conf.ChunkSizeByte
	if chunkSizeByte < 6 {
		chunkSizeByte = 6
	}
	if chunkSizeByte > 56 {
		chunkSizeByte = 56
	}
	return chunkSizeByte
}

func (c *Config) Random() io.Reader {
	if c == nil || c.Rand == nil {
		return rand.Reader
	}
	return c.Rand
}

func (c *Config) Hash() uint8 {
	if c == nil || c.DefaultHash == 0 {
		return 8 // SHA-256
	}
	return c.DefaultHash
}

func (c *Config) Cipher() CipherFunction {
	if c == nil || uint8(c.DefaultCipher) == 0 {
		return CipherAES256
	}
	return c.DefaultCipher
}

func (c *Config) Now() time.Time {
	if c == nil || c.Time == nil {
		return time.Now()
	}
	return c.Time()
}

func (c *Config) Compression() CompressionAlgo {
	if c == nil {
		return CompressionNone
	}
	return c.DefaultCompressionAlgo
}

func (c *Config) PasswordHashIterations() uint8 {
	if c == nil || c.S2KCount == 0 {
		return 0xff
	}
	return c.S2KCount
}

func (c *Config) RSAModulusBits() int {
	if c == nil || c.RSABits == 0 {
		return 2048
	}
	return c.RSABits
}

func (c *Config) MinimumRSABits() uint16 {
	if c == nil || c.MinRSABits == 0 {
		return 2047
	}
	return c.MinRSABits
}

func (c *Config) KeyLifetimeSecs() uint32 {
	if c == nil {
		return 0
	}
	return c.KeyLifetime
}

func (c *Config) SigLifetimeSecs() uint32 {
	if c == nil {
		return 0
	}
	return c.SigLifetime
}

func (c *Config) SigningKeyId() uint64 {
	if c == nil {
		return 0
	}
	return c.SigningKey
}

func (c *Config) AEAD() *AEADConfig {
	if c == nil {
		return nil
	}
	return c.AEADConfig
}

func (c *Config) RejectCurve(name string) bool {
	if c == nil {
		return false
	}
	return c.RejectCurves[name]
}

func (c *Config) RejectHashAlgorithm(id uint8) bool {
	if c == nil {
		return false
	}
	return c.RejectHashAlgorithms[id]
}

func (c *Config) RejectMessageHashAlgorithm(id uint8) bool {
	if c == nil {
		return false
	}
	return c.RejectMessageHashAlgorithms[id] || c.RejectHashAlgorithms[id]
}

func (c *Config) UnauthenticatedMessagesAllowed() bool {
	return c != nil && c.AllowUnauthenticatedMessages
}

func (c *Config) DecryptionWithSigningKeysAllowed() bool {
	return c != nil && c.AllowDecryptionWithSigningKeys
}

func (c *Config) ConstantTimePkcs1v15DecryptionEnabled() bool {
	return c != nil && c.ConstantTimePkcs1v15Decryption
}

// ConstantTimeSessionKeyLength returns the fabricated session-key length for
// the constant-time PKCS#1 path, or 0 if cipher is not in the supported set.
func (c *Config) ConstantTimeSessionKeyLength(cipher CipherFunction) int {
	if c == nil {
		return 0
	}
	supported := c.ConstantTimePkcs1v15DecryptionSupportedCiphers
	if len(supported) == 0 {
		switch cipher {
		case CipherAES128, CipherAES192, CipherAES256:
			return cipher.KeySize()
		}
		return 0
	}
	if supported[cipher] {
		return cipher.KeySize()
	}
	return 0
}
