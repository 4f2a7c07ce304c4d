// Package security holds the credential hasher and the access token signer.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	argon2idPrefix = "$argon2id$"
	saltLength     = 16
	keyLength      = 32
)

var errMalformedDigest = errors.New("malformed password digest")

// HashParams are the argon2id cost parameters.
type HashParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultHashParams suits interactive logins.
var DefaultHashParams = HashParams{MemoryKiB: 64 * 1024, Iterations: 3, Parallelism: 2}

// Hasher hashes secrets with argon2id and verifies both argon2id digests and
// legacy bcrypt digests ($2a$, $2b$, $2y$). Callers must not log or persist
// plaintext secrets.
type Hasher struct {
	params HashParams
}

// NewHasher returns a Hasher, filling zero parameters from DefaultHashParams.
func NewHasher(p HashParams) *Hasher {
	if p.MemoryKiB == 0 {
		p.MemoryKiB = DefaultHashParams.MemoryKiB
	}
	if p.Iterations == 0 {
		p.Iterations = DefaultHashParams.Iterations
	}
	if p.Parallelism == 0 {
		p.Parallelism = DefaultHashParams.Parallelism
	}
	return &Hasher{params: p}
}

// Hash produces a PHC-formatted argon2id digest of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(plaintext), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, keyLength)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2idPrefix,
		argon2.Version,
		h.params.MemoryKiB, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches digest. Malformed or unknown
// digests never match.
func (h *Hasher) Verify(plaintext, digest string) bool {
	switch {
	case strings.HasPrefix(digest, argon2idPrefix):
		d, err := decodeArgon2id(digest)
		if err != nil {
			return false
		}
		key := argon2.IDKey([]byte(plaintext), d.salt, d.params.Iterations, d.params.MemoryKiB, d.params.Parallelism, uint32(len(d.key)))
		return subtle.ConstantTimeCompare(key, d.key) == 1
	case isBcrypt(digest):
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
	default:
		return false
	}
}

// NeedsRehash reports whether digest was produced by another algorithm or
// with parameters other than the hasher's.
func (h *Hasher) NeedsRehash(digest string) bool {
	if !strings.HasPrefix(digest, argon2idPrefix) {
		return true
	}
	d, err := decodeArgon2id(digest)
	if err != nil {
		return true
	}
	return d.version != argon2.Version || d.params != h.params || len(d.key) != keyLength
}

type argon2idDigest struct {
	version int
	params  HashParams
	salt    []byte
	key     []byte
}

// decodeArgon2id parses $argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>.
func decodeArgon2id(digest string) (*argon2idDigest, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return nil, errMalformedDigest
	}

	var d argon2idDigest
	if _, err := fmt.Sscanf(parts[2], "v=%d", &d.version); err != nil {
		return nil, errMalformedDigest
	}
	var par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &d.params.MemoryKiB, &d.params.Iterations, &par); err != nil {
		return nil, errMalformedDigest
	}
	if par == 0 || par > 255 || d.params.Iterations == 0 {
		return nil, errMalformedDigest
	}
	d.params.Parallelism = uint8(par)

	var err error
	if d.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, errMalformedDigest
	}
	if d.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(d.key) == 0 {
		return nil, errMalformedDigest
	}
	return &d, nil
}

func isBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}
