package packet

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"io"
	"strconv"

	"nullprogram.com/x/openpgp/errors"
)

// AEADEncrypted represents an AEAD Encrypted Data packet (tag 20). The
// plaintext is split into chunks of 2^(chunkSizeByte+6) bytes, each sealed
// with its own nonce and chunk index, and a final zero-length chunk
// authenticates the total plaintext length.
type AEADEncrypted struct {
	cipher        CipherFunction
	mode          AEADMode
	chunkSizeByte byte
	Contents      io.Reader // Encrypted chunks and tags
	initialNonce  []byte    // Referred to as IV in RFC4880-bis
}

// Only currently defined version
const aeadEncryptedVersion = 1

// maxChunkSizeByte bounds the chunk sizes accepted on parse, so that a
// hostile stream cannot demand absurd buffer allocations.
const maxChunkSizeByte = 0x10

func (ae *AEADEncrypted) parse(buf io.Reader) error {
	headerData := make([]byte, 4)
	if n, err := io.ReadFull(buf, headerData); n < 4 {
		return errors.StructuralError("could not read aead header: " + err.Error())
	}
	// Read initial nonce
	if headerData[0] != aeadEncryptedVersion {
		return errors.UnsupportedError("unknown aead version: " + strconv.Itoa(int(headerData[0])))
	}
	ae.cipher = CipherFunction(headerData[1])
	if !ae.cipher.IsSupported() {
		return errors.UnsupportedError("unknown cipher: " + strconv.Itoa(int(headerData[1])))
	}
	ae.mode = AEADMode(headerData[2])
	if !ae.mode.IsSupported() {
		return errors.UnsupportedError("unknown aead mode: " + strconv.Itoa(int(headerData[2])))
	}
	ae.chunkSizeByte = headerData[3]
	if ae.chunkSizeByte > maxChunkSizeByte {
		return errors.UnsupportedError("unsupported aead chunk size byte: " + strconv.Itoa(int(ae.chunkSizeByte)))
	}

	nonceLen := ae.mode.NonceLength()
	initialNonce := make([]byte, nonceLen)
	if n, err := io.ReadFull(buf, initialNonce); n < nonceLen {
		return errors.StructuralError("could not read aead nonce: " + err.Error())
	}
	ae.initialNonce = initialNonce
	ae.Contents = buf
	return nil
}

// Decrypt returns a io.ReadCloser from which the decrypted data can be read.
// The session key must match the cipher declared in the packet. Every chunk
// tag is verified before its plaintext is surfaced; a failure aborts the
// stream with an IntegrityError.
func (ae *AEADEncrypted) Decrypt(c CipherFunction, key []byte) (io.ReadCloser, error) {
	if c != ae.cipher {
		return nil, errors.InvalidArgumentError("AEADEncrypted: cipher does not match session key")
	}
	if len(key) != ae.cipher.KeySize() {
		return nil, errors.InvalidArgumentError("AEADEncrypted: incorrect key length")
	}
	aead := ae.mode.new(ae.cipher.new(key))

	// Carry the first tagLen bytes
	tagLen := ae.mode.TagLength()
	peekedBytes := make([]byte, tagLen)
	n, err := io.ReadFull(ae.Contents, peekedBytes)
	if n < tagLen || (err != nil && err != io.EOF) {
		return nil, errors.StructuralError("broken aead stream")
	}
	return &aeadDecrypter{
		aeadCrypter: aeadCrypter{
			aead:           aead,
			chunkSize:      decodeAEADChunkSize(ae.chunkSizeByte),
			initialNonce:   ae.initialNonce,
			associatedData: ae.associatedData(),
			packetTag:      packetTypeAEADEncrypted,
		},
		reader:      ae.Contents,
		peekedBytes: peekedBytes,
	}, nil
}

// associatedData for chunks: tag, version, cipher, mode, chunk size byte
func (ae *AEADEncrypted) associatedData() []byte {
	return []byte{
		0x80 | 0x40 | byte(packetTypeAEADEncrypted),
		aeadEncryptedVersion,
		byte(ae.cipher),
		byte(ae.mode),
		ae.chunkSizeByte}
}

func decodeAEADChunkSize(c byte) int {
	size := uint64(1 << (uint64(c) + 6))
	return int(size)
}

// aeadCrypter is an AEAD opener/sealer, its configuration, and data for en/decryption.
type aeadCrypter struct {
	aead           cipher.AEAD
	chunkSize      int
	initialNonce   []byte
	associatedData []byte     // Chunk-independent associated data
	chunkIndex     [8]byte    // Chunk counter
	packetTag      packetType // SEIPD (v2) or AEAD (v1) alias for this module
	bytesProcessed int        // Amount of plaintext bytes encrypted/decrypted
	buffer         bytes.Buffer
}

// computeNextNonce takes the incremental index and computes an eXclusive OR with
// the least significant 8 bytes of the receivers' initial nonce (see sec.
// 5.16.1 and 5.16.2). It returns the resulting nonce.
func (wo *aeadCrypter) computeNextNonce() (nonce []byte) {
	nonce = make([]byte, 0, len(wo.initialNonce))
	nonce = append(nonce, wo.initialNonce...)
	offset := len(wo.initialNonce) - 8
	for i := 0; i < 8; i++ {
		nonce[i+offset] ^= wo.chunkIndex[i]
	}
	return
}

// incrementIndex performs an integer increment by 1 of the integer represented by the
// slice, modifying it accordingly.
func (wo *aeadCrypter) incrementIndex() error {
	index := wo.chunkIndex[:]
	if len(index) == 0 {
		return errors.InvalidArgumentError("index empty")
	}
	n := len(index) - 1
	for ; n >= 0; n-- {
		index[n]++
		if index[n] != 0 {
			return nil
		}
	}
	return errors.InvalidArgumentError("cannot further increment index")
}

// aeadDecrypter reads and decrypts bytes. It buffers extra decrypted bytes when
// necessary, similar to aeadEncrypter.
type aeadDecrypter struct {
	aeadCrypter           // Embedded ciphertext opener
	reader      io.Reader // 'reader' is a partialLengthReader
	peekedBytes []byte    // Used to detect last chunk
	eof         bool
}

// Read decrypts bytes and reads them into dst. It decrypts when necessary and
// buffers extra decrypted bytes. It returns the number of bytes copied into dst
// and an error.
func (ar *aeadDecrypter) Read(dst []byte) (n int, err error) {
	// Return buffered plaintext bytes from previous calls
	if ar.buffer.Len() > 0 {
		return ar.buffer.Read(dst)
	}

	// Return EOF if we've previously validated the final tag
	if ar.eof {
		return 0, io.EOF
	}

	// Read a chunk
	tagLen := ar.aead.Overhead()
	cipherChunkBuf := new(bytes.Buffer)
	_, errRead := io.CopyN(cipherChunkBuf, ar.reader, int64(ar.chunkSize+tagLen))
	cipherChunk := cipherChunkBuf.Bytes()
	if errRead != nil && errRead != io.EOF {
		return 0, errRead
	}
	if len(cipherChunk) == 0 && errRead == io.EOF {
		// The stream ended on a chunk boundary; only the final tag is left.
		if errChunk := ar.validateFinalTag(ar.peekedBytes); errChunk != nil {
			return 0, errChunk
		}
		ar.eof = true
		return 0, io.EOF
	}
	decrypted, errChunk := ar.openChunk(cipherChunk)
	if errChunk != nil {
		return 0, errChunk
	}

	// Return decrypted bytes, buffering if necessary
	if len(dst) < len(decrypted) {
		n = copy(dst, decrypted[:len(dst)])
		ar.buffer.Write(decrypted[len(dst):])
	} else {
		n = copy(dst, decrypted)
	}

	// Check final authentication tag
	if errRead == io.EOF {
		errChunk := ar.validateFinalTag(ar.peekedBytes)
		if errChunk != nil {
			return n, errChunk
		}
		ar.eof = true // Mark EOF for when we've returned all buffered data
	}
	return
}

// Close checks the final authentication tag of the stream, if not yet checked.
// An error reports a missing or failed verification.
func (ar *aeadDecrypter) Close() (err error) {
	if ar.eof {
		return nil
	}
	// Drain the remaining stream so that tampering is always surfaced.
	var buf [1024]byte
	for {
		_, err := ar.Read(buf[:])
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// openChunk decrypts and checks integrity of an encrypted chunk, returning
// the underlying plaintext and an error. It accesses peeked bytes from next
// chunk, to identify the last chunk and decrypt/validate accordingly.
func (ar *aeadDecrypter) openChunk(data []byte) ([]byte, error) {
	tagLen := ar.aead.Overhead()
	// Restore carried bytes from last call
	chunkExtra := append(ar.peekedBytes, data...)
	// 'chunk' contains encrypted bytes, followed by an authentication tag.
	chunk := chunkExtra[:len(chunkExtra)-tagLen]
	ar.peekedBytes = chunkExtra[len(chunkExtra)-tagLen:]

	adata := make([]byte, 13)
	copy(adata, ar.associatedData)
	copy(adata[5:], ar.chunkIndex[:])

	nonce := ar.computeNextNonce()
	plainChunk, err := ar.aead.Open(nil, nonce, chunk, adata)
	if err != nil {
		return nil, errors.IntegrityError("chunk tag mismatch")
	}
	ar.bytesProcessed += len(plainChunk)
	if err = ar.aeadCrypter.incrementIndex(); err != nil {
		return nil, err
	}
	return plainChunk, nil
}

// Checks the summary tag. It takes into account the total decrypted bytes into
// the associated data. It returns an error, or nil if the tag is valid.
func (ar *aeadDecrypter) validateFinalTag(tag []byte) error {
	// Associated: tag, version, cipher, aead, chunk size, index, and octets
	amountBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(amountBytes, uint64(ar.bytesProcessed))

	adata := make([]byte, 21)
	copy(adata, ar.associatedData)
	copy(adata[5:], ar.chunkIndex[:])
	copy(adata[13:], amountBytes)

	nonce := ar.computeNextNonce()
	_, err := ar.aead.Open(nil, nonce, tag, adata)
	if err != nil {
		return errors.IntegrityError("final tag mismatch")
	}
	return nil
}

// aeadEncrypter encrypts and writes bytes. It encrypts when necessary according
// to the AEAD block size, and buffers the extra encrypted bytes for next write.
type aeadEncrypter struct {
	aeadCrypter                // Embedded plaintext sealer
	writer      io.WriteCloser // 'writer' is a partialLengthWriter
}

// Write encrypts and writes bytes. It encrypts when necessary and buffers extra
// plaintext bytes for next call. When the stream is finished, Close() MUST be
// called to append the final tag.
func (aw *aeadEncrypter) Write(plaintextBytes []byte) (n int, err error) {
	// Append plaintextBytes to existing buffered bytes
	n, err = aw.buffer.Write(plaintextBytes)
	if err != nil {
		return n, err
	}
	// Encrypt and write chunks
	for aw.buffer.Len() >= aw.chunkSize {
		plainChunk := aw.buffer.Next(aw.chunkSize)
		encryptedChunk, err := aw.sealChunk(plainChunk)
		if err != nil {
			return n, err
		}
		_, err = aw.writer.Write(encryptedChunk)
		if err != nil {
			return n, err
		}
	}
	return
}

// Close encrypts and writes the remaining buffered plaintext if any, appends
// the final authentication tag, and closes the embedded writer. This function
// MUST be called at the end of a stream.
func (aw *aeadEncrypter) Close() (err error) {
	// Encrypt and write a chunk if there's buffered data left, or if we haven't
	// written any chunks yet.
	if aw.buffer.Len() > 0 || aw.bytesProcessed == 0 {
		plainChunk := aw.buffer.Bytes()
		encryptedChunk, err := aw.sealChunk(plainChunk)
		if err != nil {
			return err
		}
		_, err = aw.writer.Write(encryptedChunk)
		if err != nil {
			return err
		}
	}
	// Compute final tag (associated data: packet tag, version, cipher, aead,
	// chunk size...
	adata := make([]byte, 21)
	copy(adata, aw.associatedData)
	copy(adata[5:], aw.chunkIndex[:])
	binary.BigEndian.PutUint64(adata[13:], uint64(aw.bytesProcessed))

	nonce := aw.computeNextNonce()
	finalTag := aw.aead.Seal(nil, nonce, nil, adata)
	_, err = aw.writer.Write(finalTag)
	if err != nil {
		return err
	}
	return aw.writer.Close()
}

// sealChunk Encrypts and authenticates the given chunk.
func (aw *aeadEncrypter) sealChunk(data []byte) ([]byte, error) {
	if len(data) > aw.chunkSize {
		return nil, errors.InvalidArgumentError("chunk exceeds maximum length")
	}
	if aw.associatedData == nil {
		return nil, errors.InvalidArgumentError("can't seal without headers")
	}
	adata := make([]byte, 13)
	copy(adata, aw.associatedData)
	copy(adata[5:], aw.chunkIndex[:])

	nonce := aw.computeNextNonce()
	encrypted := aw.aead.Seal(nil, nonce, data, adata)
	aw.bytesProcessed += len(data)
	if err := aw.aeadCrypter.incrementIndex(); err != nil {
		return nil, err
	}
	return encrypted, nil
}

// SerializeAEADEncrypted initializes the aeadCrypter and returns a writer.
// This writer encrypts and writes bytes (see aeadEncrypter.Write()).
func SerializeAEADEncrypted(w io.Writer, key []byte, cipher CipherFunction, mode AEADMode, config *Config) (io.WriteCloser, error) {
	writeCloser := noOpCloser{w}
	writer, err := serializeStreamHeader(writeCloser, packetTypeAEADEncrypted)
	if err != nil {
		return nil, err
	}

	aeadConf := config.AEAD()
	prefix := []byte{
		aeadEncryptedVersion,
		byte(cipher),
		byte(mode),
		aeadConf.ChunkSizeByteValue(),
	}
	n, err := writer.Write(prefix)
	if err != nil || n < 4 {
		return nil, errors.InvalidArgumentError("could not write aead headers")
	}
	// Data for en/decryption: tag, version, cipher, aead mode, chunk size
	aead := mode.new(cipher.new(key))

	// Generate random nonce
	nonceLen := mode.NonceLength()
	nonce := make([]byte, nonceLen)
	if _, err = io.ReadFull(config.Random(), nonce); err != nil {
		return nil, err
	}

	_, err = writer.Write(nonce)
	if err != nil {
		return nil, err
	}

	alteredPrefix := []byte{
		0x80 | 0x40 | byte(packetTypeAEADEncrypted),
		aeadEncryptedVersion,
		byte(cipher),
		byte(mode),
		aeadConf.ChunkSizeByteValue(),
	}
	return &aeadEncrypter{
		aeadCrypter: aeadCrypter{
			aead:           aead,
			chunkSize:      decodeAEADChunkSize(aeadConf.ChunkSizeByteValue()),
			associatedData: alteredPrefix,
			initialNonce:   nonce,
			packetTag:      packetTypeAEADEncrypted,
		},
		writer: writer,
	}, nil
}
