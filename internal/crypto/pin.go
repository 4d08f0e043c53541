package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Параметры PBKDF2 для хеширования PIN
const (
	// PinHashIterations - количество итераций PBKDF2
	PinHashIterations = 100000
	// PinSaltSize - размер соли в байтах
	PinSaltSize = 16
	// PinKeyLen - длина производного ключа в байтах
	PinKeyLen = 32
	// PinLength - длина PIN в символах
	PinLength = 4
)

// CreatePinHash derives a salted PBKDF2-SHA256 hash of the PIN.
// The result has the form "<hex salt>:<hex digest>".
func CreatePinHash(pin string) (string, error) {
	salt := make([]byte, PinSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	digest := derivePin(pin, salt)

	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(digest), nil
}

// VerifyPin reports whether candidate matches the stored hash.
// Malformed stored hashes never match.
func VerifyPin(candidate, stored string) bool {
	saltHex, digestHex, ok := strings.Cut(stored, ":")
	if !ok || saltHex == "" || digestHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(digestHex)
	if err != nil || len(expected) != PinKeyLen {
		return false
	}

	computed := derivePin(candidate, salt)

	return subtle.ConstantTimeCompare(computed, expected) == 1
}

// IsValidPin reports whether pin is exactly four ASCII digits.
func IsValidPin(pin string) bool {
	if len(pin) != PinLength {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}

// GeneratePin returns a random four-digit PIN
func GeneratePin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate PIN: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

func derivePin(pin string, salt []byte) []byte {
	return pbkdf2.Key([]byte(pin), salt, PinHashIterations, PinKeyLen, sha256.New)
}
