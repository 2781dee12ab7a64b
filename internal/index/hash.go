package index

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Digest computes the sha256 hex digest of everything readable from r.
// This is the content identity used to tell real changes apart from
// spurious filesystem events.
func Digest(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return Digest(f)
}
