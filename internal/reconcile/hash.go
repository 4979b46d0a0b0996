package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/go-git/go-billy/v5"
	"github.com/zeebo/xxh3"

	"github.com/schaermu/treepack/internal/config"
)

// chunkSize is the read size used while hashing
const chunkSize = 4096

// HashFile computes the content digest of the file at name inside fsys.
// Digests are only compared for equality.
func HashFile(fsys billy.Filesystem, name string, algo config.HashAlgorithm) (string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	buf := make([]byte, chunkSize)

	switch algo {
	case config.HashXXH3:
		h := xxh3.New()
		if err := copyChunks(h, f, buf); err != nil {
			return "", err
		}
		sum := h.Sum128().Bytes()
		return hex.EncodeToString(sum[:]), nil

	case config.HashSHA256, "":
		h := sha256.New()
		if err := copyChunks(h, f, buf); err != nil {
			return "", err
		}
		return hex.EncodeToString(h.Sum(nil)), nil

	default:
		return "", fmt.Errorf("unknown hash algorithm: %s", algo)
	}
}

// copyChunks feeds r into h buf-sized reads at a time until EOF
func copyChunks(h hash.Hash, r io.Reader, buf []byte) error {
	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
