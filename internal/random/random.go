package random

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// InviteCodeLength is the length of generated room invite codes.
const InviteCodeLength = 8

// inviteAlphabet omits easily-confused characters (I, O, 0, 1).
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewID returns a new opaque record identifier.
func NewID() string {
	return uuid.NewString()
}

// Hex returns n cryptographically random bytes as a hex string.
func Hex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// SHA256 returns the hex-encoded SHA-256 digest of value.
func SHA256(value []byte) string {
	sum := sha256.Sum256(value)
	return hex.EncodeToString(sum[:])
}

// SignDigest returns the hex-encoded HMAC-SHA256 of value under key.
func SignDigest(key, value []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(value)
	return hex.EncodeToString(mac.Sum(nil))
}

// InviteCode generates a fixed-length alphanumeric invite code.
func InviteCode() (string, error) {
	buf := make([]byte, InviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	code := make([]byte, InviteCodeLength)
	for i, b := range buf {
		code[i] = inviteAlphabet[int(b)%len(inviteAlphabet)]
	}
	return string(code), nil
}

// Shuffle returns a new slice with the elements of items in a
// cryptographically random order. The input slice is not modified.
func Shuffle[T any](items []T) ([]T, error) {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return nil, err
		}
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Pick returns a uniformly random element of items.
func Pick[T any](items []T) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, fmt.Errorf("pick from empty slice")
	}
	i, err := randInt(len(items))
	if err != nil {
		return zero, err
	}
	return items[i], nil
}

func randInt(n int) (int, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("read random bytes: %w", err)
	}
	return int(binary.BigEndian.Uint32(buf[:]) % uint32(n)), nil
}
