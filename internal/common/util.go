package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString returns a hex string built from size cryptographically
// random bytes, so the result is 2*size characters long. Session tokens use
// size 32, giving 256 bits of entropy; the string carries no decodable
// structure and is only ever used as a lookup key.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
