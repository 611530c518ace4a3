package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// ErrUnknownHashVersion means a stored credential references a hash version
// this build doesn't know about. It indicates corruption or a downgrade and
// must never be treated as a failed login.
var ErrUnknownHashVersion = errors.New("unknown password hash version")

// Hasher is one password hashing strategy
type Hasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) (bool, error)
}

// Versions is the append-only list of hashing strategies. The index of a
// strategy is the hash_version stored next to every credential, so entries
// must never be removed or reordered.
type Versions []Hasher

// Параметры Argon2id
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// Argon2KeyLen - длина выходного ключа в байтах
	Argon2KeyLen = 32
	// SaltSize - размер соли в байтах
	SaltSize = 16

	// BcryptCost is the work factor for hash version 0
	BcryptCost = 10
)

// DefaultVersions is the registry used by the server. The last entry is the
// one new credentials are hashed with.
var DefaultVersions = Versions{
	BcryptSHA256{Cost: BcryptCost},
	Argon2idSHA512{
		Time:    Argon2Time,
		Memory:  Argon2Memory,
		Threads: Argon2Threads,
		KeyLen:  Argon2KeyLen,
	},
}

// Current returns the hash version new credentials are written with
func (v Versions) Current() int {
	return len(v) - 1
}

// Get returns the strategy for a stored hash version
func (v Versions) Get(version int) (Hasher, error) {
	if version < 0 || version >= len(v) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHashVersion, version)
	}
	return v[version], nil
}

// Hash hashes password with the current version
func (v Versions) Hash(password string) (string, int, error) {
	version := v.Current()
	h, err := v.Get(version)
	if err != nil {
		return "", 0, err
	}

	hash, err := h.Hash(password)
	if err != nil {
		return "", 0, err
	}
	return hash, version, nil
}

// Compare checks password against hash using the strategy that produced it
func (v Versions) Compare(version int, password, hash string) (bool, error) {
	h, err := v.Get(version)
	if err != nil {
		return false, err
	}
	return h.Compare(password, hash)
}

// PreHash returns the hex encoded SHA256 of password. bcrypt ignores
// everything past 72 bytes, the 64 character digest always fits.
func PreHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// BcryptSHA256 is hash version 0: bcrypt over a SHA256 pre-hash
type BcryptSHA256 struct {
	Cost int
}

// Hash implements Hasher
func (b BcryptSHA256) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(PreHash(password)), b.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Compare implements Hasher
func (b BcryptSHA256) Compare(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(PreHash(password)))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("failed to compare password: %w", err)
}

// Argon2idSHA512 is hash version 1: Argon2id over a SHA512 pre-hash, stored
// in the PHC string format
// $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
type Argon2idSHA512 struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

// Hash implements Hasher
func (a Argon2idSHA512) Hash(password string) (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	pre := sha512.Sum512([]byte(password))
	key := argon2.IDKey(pre[:], salt, a.Time, a.Memory, a.Threads, a.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, a.Memory, a.Time, a.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Compare implements Hasher. The parameters encoded in hash win over the
// receiver's, so tuning the defaults doesn't break stored credentials.
func (a Argon2idSHA512) Compare(password, hash string) (bool, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("invalid argon2id hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("invalid argon2id version: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("invalid argon2id parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("failed to decode key: %w", err)
	}

	pre := sha512.Sum512([]byte(password))
	got := argon2.IDKey(pre[:], salt, time, memory, threads, uint32(len(want)))

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
