package fingerprint

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// HashAlgorithm names the digest applied to a peak pair.
type HashAlgorithm string

const (
	SHA1    HashAlgorithm = "sha1"
	SHA256  HashAlgorithm = "sha256"
	BLAKE2b HashAlgorithm = "blake2b"
)

func (a HashAlgorithm) valid() bool {
	switch a {
	case SHA1, SHA256, BLAKE2b:
		return true
	}
	return false
}

// HexLen is the length of the hex digest the algorithm produces.
func (a HashAlgorithm) HexLen() int {
	switch a {
	case SHA1:
		return sha1.Size * 2
	case SHA256:
		return sha256.Size * 2
	case BLAKE2b:
		return blake2b.Size256 * 2
	}
	return 0
}

// ParseHashAlgorithm accepts the names used in config files and flags.
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	a := HashAlgorithm(name)
	if !a.valid() {
		return "", configError("hash_algorithm", name, "unsupported digest")
	}
	return a, nil
}

// pairKey is the canonical serialisation "anchorFreq|targetFreq|delta".
func pairKey(anchorFreq, targetFreq, delta int) []byte {
	buf := make([]byte, 0, 24)
	buf = strconv.AppendInt(buf, int64(anchorFreq), 10)
	buf = append(buf, '|')
	buf = strconv.AppendInt(buf, int64(targetFreq), 10)
	buf = append(buf, '|')
	buf = strconv.AppendInt(buf, int64(delta), 10)
	return buf
}

// createHash digests the ordered (anchor, target, delta) triple and returns
// lowercase hex. Swapping anchor and target yields a different hash.
func createHash(algo HashAlgorithm, anchorFreq, targetFreq, delta int) string {
	key := pairKey(anchorFreq, targetFreq, delta)
	switch algo {
	case SHA256:
		sum := sha256.Sum256(key)
		return hex.EncodeToString(sum[:])
	case BLAKE2b:
		sum := blake2b.Sum256(key)
		return hex.EncodeToString(sum[:])
	default:
		sum := sha1.Sum(key)
		return hex.EncodeToString(sum[:])
	}
}
