package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is the SHA-256 of a unit file's bytes.
type Digest [32]byte

func HashBytes(data []byte) Digest {
	return sha256.Sum256(data)
}

// Short is the first 12 hex digits, used in backup file names.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:6])
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}
