package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
)

// Argon2Params is the single, explicit cost parameter set. The stored
// hash string embeds it, so already-persisted hashes stay verifiable
// after the configuration changes.
type Argon2Params struct {
	Time        uint32
	MemoryKB    uint32
	Parallelism uint8
}

// DefaultArgon2Params follows the OWASP recommendation.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Time: 1, MemoryKB: 64 * 1024, Parallelism: 4}
}

type Argon2CryptoService struct {
	params Argon2Params
}

func NewArgon2CryptoService(params Argon2Params) outbound.CryptoService {
	if params.Time == 0 || params.MemoryKB == 0 || params.Parallelism == 0 {
		params = DefaultArgon2Params()
	}
	return &Argon2CryptoService{params: params}
}

const hashKeyLen = 32

// HashPassword returns "argon2id$t=<t>,m=<m>,p=<p>$<hex>".
func (c *Argon2CryptoService) HashPassword(password string, salt [16]byte) string {
	p := c.params
	key := argon2.IDKey([]byte(password), salt[:], p.Time, p.MemoryKB, p.Parallelism, hashKeyLen)
	return fmt.Sprintf("argon2id$t=%d,m=%d,p=%d$%s", p.Time, p.MemoryKB, p.Parallelism, hex.EncodeToString(key))
}

func (c *Argon2CryptoService) VerifyPassword(password, hash string, salt [16]byte) bool {
	params, encoded, err := parseHash(hash)
	if err != nil {
		return false
	}

	expected, err := hex.DecodeString(encoded)
	if err != nil {
		return false
	}

	key := argon2.IDKey([]byte(password), salt[:], params.Time, params.MemoryKB, params.Parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1
}

func parseHash(hash string) (Argon2Params, string, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 3 || parts[0] != "argon2id" {
		return Argon2Params{}, "", fmt.Errorf("unrecognized hash format")
	}

	var p Argon2Params
	if _, err := fmt.Sscanf(parts[1], "t=%d,m=%d,p=%d", &p.Time, &p.MemoryKB, &p.Parallelism); err != nil {
		return Argon2Params{}, "", fmt.Errorf("malformed hash parameters: %w", err)
	}
	if p.Time == 0 || p.MemoryKB == 0 || p.Parallelism == 0 {
		return Argon2Params{}, "", fmt.Errorf("invalid hash parameters")
	}
	return p, parts[2], nil
}

func (c *Argon2CryptoService) GenerateSalt() [16]byte {
	var salt [16]byte
	rand.Read(salt[:])
	return salt
}

func (c *Argon2CryptoService) Encrypt(data []byte, key [32]byte) (encrypted []byte, nonce []byte, err error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	nonceBytes := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, nil, err
	}

	ciphertext := gcm.Seal(nil, nonceBytes, data, nil)
	return ciphertext, nonceBytes, nil
}

func (c *Argon2CryptoService) Decrypt(encrypted []byte, nonce []byte, key [32]byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return gcm.Open(nil, nonce, encrypted, nil)
}

func (c *Argon2CryptoService) DeriveKey(machineID string) [32]byte {
	// 32 byte cipher key bound to this host
	return sha256.Sum256([]byte(machineID + "authgate-encryption-key"))
}
