package s2k

import "nullprogram.com/x/openpgp/internal/algorithm"

// Config collects configuration parameters for the string-to-key functions.
// A nil *Config is valid and results in all default values.
type Config struct {
	// Hash is the hash function used by the S2K modes that hash. If zero,
	// SHA-256 is used.
	Hash algorithm.Hash
	// S2KCount is the single-octet encoding of the iteration count for the
	// iterated and salted mode. If zero, the maximum strength 0xff is used,
	// matching what the key generator emits.
	S2KCount uint8
}

func (c *Config) hash() algorithm.Hash {
	if c == nil || c.Hash == nil {
		return algorithm.SHA256
	}
	return c.Hash
}

func (c *Config) encodedCount() uint8 {
	if c == nil || c.S2KCount == 0 {
		return 0xff // maximum strength
	}
	return c.S2KCount
}
