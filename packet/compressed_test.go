package packet

import (
	"bytes"
	"io"
	"testing"
)

func testCompressed(t *testing.T, algo CompressionAlgo) {
	payload := bytes.Repeat([]byte("compressible compressible compressible. "), 64)

	var buf bytes.Buffer
	w, err := SerializeCompressed(noOpCloser{&buf}, algo, &CompressionConfig{Level: DefaultCompression})
	if err != nil {
		t.Fatalf("SerializeCompressed: %s", err)
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("Write: %s", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %s", err)
	}

	p, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %s", err)
	}
	c, ok := p.(*Compressed)
	if !ok {
		t.Fatalf("got %T, want *Compressed", p)
	}
	got, err := io.ReadAll(c.Body)
	if err != nil {
		t.Fatalf("decompress: %s", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("decompressed payload mismatch")
	}
}

func TestCompressedZIP(t *testing.T)  { testCompressed(t, CompressionZIP) }
func TestCompressedZLIB(t *testing.T) { testCompressed(t, CompressionZLIB) }

func TestCompressedBZIP2WriteUnsupported(t *testing.T) {
	var buf bytes.Buffer
	if _, err := SerializeCompressed(noOpCloser{&buf}, CompressionBZIP2, nil); err == nil {
		t.Errorf("bzip2 serialization did not error")
	}
}

func TestLiteralRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := SerializeLiteral(noOpCloser{&buf}, true, "file.txt", 1500000000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("literal contents")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	p, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %s", err)
	}
	l, ok := p.(*LiteralData)
	if !ok {
		t.Fatalf("got %T, want *LiteralData", p)
	}
	if !l.IsBinary || l.FileName != "file.txt" || l.Time != 1500000000 {
		t.Errorf("metadata mismatch: %+v", l)
	}
	body, err := io.ReadAll(l.Body)
	if err != nil || !bytes.Equal(body, []byte("literal contents")) {
		t.Errorf("body = %q, %v", body, err)
	}
}
