// Package digest computes and parses the BLAKE3 content digests carried by
// manifest records in their blake3= attribute.
package digest

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Size is the length in bytes of a digest.
const Size = 32

// Digest is a 32-byte BLAKE3 digest.
type Digest [Size]byte

// String returns the lowercase hex encoding used in manifests.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Parse decodes a manifest digest. The input must be exactly 2*Size hex
// characters; both cases are accepted.
func Parse(s string) (Digest, error) {
	var d Digest
	if len(s) != 2*Size {
		return d, fmt.Errorf("digest has %d characters, want %d", len(s), 2*Size)
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return d, fmt.Errorf("parsing digest: %w", err)
	}
	return d, nil
}

// Hasher accumulates a digest over written bytes.
type Hasher struct {
	h hash.Hash
}

// NewHasher returns an empty Hasher.
func NewHasher() *Hasher {
	return &Hasher{h: blake3.New()}
}

// Write implements io.Writer. It never fails.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Sum returns the digest of everything written so far.
func (h *Hasher) Sum() Digest {
	var d Digest
	copy(d[:], h.h.Sum(nil))
	return d
}

// Reader hashes everything read from r until EOF and returns the digest and
// the number of bytes read.
func Reader(r io.Reader) (Digest, int64, error) {
	h := NewHasher()
	n, err := io.Copy(h, r)
	if err != nil {
		return Digest{}, n, err
	}
	return h.Sum(), n, nil
}

// File computes the digest of the file at path, streaming it through the
// hash so memory stays constant regardless of file size.
func File(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer func() {
		_ = f.Close()
	}()

	d, _, err := Reader(f)
	if err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return d, nil
}

// Bytes returns the digest of b.
func Bytes(b []byte) Digest {
	return Digest(blake3.Sum256(b))
}
