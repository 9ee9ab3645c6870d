package versions

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
)

// Supported hash algorithms
const (
	HashSHA256 = "sha256"
	HashBLAKE3 = "blake3"
)

// hashLen is the number of hex characters kept from the digest
const hashLen = 16

// ValidHash reports whether name is a supported algorithm
func ValidHash(name string) bool {
	return name == HashSHA256 || name == HashBLAKE3
}

func newHasher(algo string) (hash.Hash, error) {
	switch algo {
	case "", HashSHA256:
		return sha256.New(), nil
	case HashBLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algo)
	}
}

// HashFile returns the shortened hex digest of the file at path
func HashFile(fs afero.Fs, path, algo string) (string, error) {
	h, err := newHasher(algo)
	if err != nil {
		return "", err
	}
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil))[:hashLen], nil
}
