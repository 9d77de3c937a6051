package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const codeBytes = 32

// NewCode returns a random one-time code and the hash to persist.
func NewCode() (code string, hash string, err error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate code: %w", err)
	}
	code = hex.EncodeToString(buf)
	return code, HashCode(code), nil
}

// HashCode 只保存一次性码的 SHA-256
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}
