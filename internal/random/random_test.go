package random

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := InviteCode()
		require.NoError(t, err)
		assert.Len(t, code, InviteCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(inviteAlphabet, r), "unexpected character %q", r)
		}
		seen[code] = true
	}
	// 50 draws from a 32^8 space should never collide.
	assert.Len(t, seen, 50)
}

func TestShufflePreservesElements(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	shuffled, err := Shuffle(items)
	require.NoError(t, err)

	assert.ElementsMatch(t, items, shuffled)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h"}, items, "input must not be modified")
}

func TestShuffleIndependentDraws(t *testing.T) {
	items := make([]int, 32)
	for i := range items {
		items[i] = i
	}

	same := 0
	first, err := Shuffle(items)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		next, err := Shuffle(items)
		require.NoError(t, err)
		if assert.ObjectsAreEqual(first, next) {
			same++
		}
	}
	assert.Less(t, same, 10, "shuffles should not be deterministic")
}

func TestPick(t *testing.T) {
	_, err := Pick([]string{})
	assert.Error(t, err)

	picked, err := Pick([]string{"only"})
	require.NoError(t, err)
	assert.Equal(t, "only", picked)

	items := []string{"x", "y"}
	picked, err = Pick(items)
	require.NoError(t, err)
	assert.Contains(t, items, picked)
}

func TestSHA256(t *testing.T) {
	digest := SHA256([]byte("abc"))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", digest)
}

func TestSignDigestKeyed(t *testing.T) {
	a := SignDigest([]byte("key-a"), []byte("payload"))
	b := SignDigest([]byte("key-b"), []byte("payload"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, SignDigest([]byte("key-a"), []byte("payload")))
}
