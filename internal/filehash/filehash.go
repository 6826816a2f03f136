// Package filehash computes content digests used as dedup/cache keys.
package filehash

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const chunkSize = 4096

// Hash returns the hex MD5 digest of the file at path, folding the content
// in 4096-byte chunks. The digest identifies file bytes for deduplication;
// it is not used for anything security-sensitive.
func Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hashing: %w", err)
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
