package packet

import (
	"bytes"
	"crypto/aes"
	"crypto/rand"
	"testing"
)

func testOCFB(t *testing.T, resync OCFBResyncOption) {
	block, err := aes.NewCipher(commonKey128)
	if err != nil {
		t.Error(err)
		return
	}

	plaintext := []byte("this is the plaintext, which is long enough to span several blocks.")
	randData := make([]byte, block.BlockSize())
	rand.Reader.Read(randData)
	ocfb, prefix := NewOCFBEncrypter(block, randData, resync)
	ciphertext := make([]byte, len(plaintext))
	ocfb.XORKeyStream(ciphertext, plaintext)

	ocfbdecrypt := NewOCFBDecrypter(block, prefix, resync)
	if ocfbdecrypt == nil {
		t.Errorf("NewOCFBDecrypter failed (resync: %t)", resync)
		return
	}
	plaintextCopy := make([]byte, len(plaintext))
	ocfbdecrypt.XORKeyStream(plaintextCopy, ciphertext)

	if !bytes.Equal(plaintextCopy, plaintext) {
		t.Errorf("got: %x, want: %x (resync: %t)", plaintextCopy, plaintext, resync)
	}
}

func TestOCFB(t *testing.T) {
	testOCFB(t, OCFBNoResync)
	testOCFB(t, OCFBResync)
}

func TestOCFBDecrypterRejectsBadPrefix(t *testing.T) {
	block, _ := aes.NewCipher(commonKey128)
	prefix := make([]byte, block.BlockSize()+2)
	// The repeated check bytes will not match for a random prefix with
	// overwhelming probability.
	prefix[block.BlockSize()] = 0xde
	prefix[block.BlockSize()+1] = 0xad
	prefix[block.BlockSize()-2] = 0x01
	prefix[block.BlockSize()-1] = 0x02
	if s := NewOCFBDecrypter(block, prefix, OCFBResync); s != nil {
		t.Errorf("bad prefix accepted")
	}
}

var commonKey128 = []byte{0x2b, 0x7e, 0x15, 0x16, 0x28, 0xae, 0xd2, 0xa6, 0xab, 0xf7, 0x15, 0x88, 0x09, 0xcf, 0x4f, 0x3c}
