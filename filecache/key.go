package filecache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	maxPrefixLen = 48
	hashLen      = 16
)

// fileName maps key to a file name that is safe on every platform.
func fileName(key string, f Format) string {
	var b strings.Builder
	for _, r := range key {
		if b.Len() >= maxPrefixLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	sum := sha256.Sum256([]byte(key))
	return b.String() + "-" + hex.EncodeToString(sum[:])[:hashLen] + f.Ext()
}

// within reports an error unless path is a direct child of dir.
func within(dir, path string) error {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel != filepath.Base(path) || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%w: %s", ErrUnsafePath, path)
	}
	return nil
}
