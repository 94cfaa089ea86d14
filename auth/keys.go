package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/curve25519"
)

// KeyPair is the server's X25519 key material. The public half is sent to
// every client in the Pubkey message.
type KeyPair struct {
	private [curve25519.ScalarSize]byte
	Public  [curve25519.PointSize]byte
}

// GenerateKeyPair creates a fresh key pair from crypto/rand.
func GenerateKeyPair() (*KeyPair, error) {
	var seed [curve25519.ScalarSize]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("read key seed: %w", err)
	}
	return newKeyPair(seed)
}

// ParseKeyPair restores a key pair from a hex-encoded private key.
func ParseKeyPair(hexKey string) (*KeyPair, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode server key: %w", err)
	}
	if len(raw) != curve25519.ScalarSize {
		return nil, fmt.Errorf("server key must be %d bytes, got %d", curve25519.ScalarSize, len(raw))
	}
	var seed [curve25519.ScalarSize]byte
	copy(seed[:], raw)
	return newKeyPair(seed)
}

// LoadOrGenerate parses hexKey, or generates a key pair when it is empty.
func LoadOrGenerate(hexKey string) (*KeyPair, error) {
	if hexKey == "" {
		return GenerateKeyPair()
	}
	return ParseKeyPair(hexKey)
}

func newKeyPair(seed [curve25519.ScalarSize]byte) (*KeyPair, error) {
	pub, err := curve25519.X25519(seed[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	kp := &KeyPair{private: seed}
	copy(kp.Public[:], pub)
	return kp, nil
}

// Identity derives a stable, non-reversible identifier from a client secret,
// keyed by the server's private key. It is what bans and result history store
// instead of the secret itself.
func (k *KeyPair) Identity(secret []byte) string {
	h, err := blake2b.New(16, k.private[:])
	if err != nil {
		// Only reachable with a key longer than 64 bytes.
		panic(err)
	}
	h.Write(secret)
	return hex.EncodeToString(h.Sum(nil))
}
