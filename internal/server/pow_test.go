package server

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/sha3"
)

func TestSolveProofOfWorkEasyDifficulty(t *testing.T) {
	// Every hex string of this length is <= "ffffffff", so the very first
	// candidate satisfies the challenge.
	token, degraded := solveProofOfWork(3000, "test-seed", "ffffffff")

	assert.False(t, degraded)
	require.True(t, strings.HasPrefix(token, powTokenPrefix))

	encoded := strings.TrimPrefix(token, powTokenPrefix)
	payload, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "[3000,"))
	assert.Contains(t, string(payload), browserUserAgent)

	// The returned token must verify against the difficulty.
	hasher := sha3.New512()
	hasher.Write([]byte("test-seed"))
	hasher.Write([]byte(encoded))
	sum := hasher.Sum(nil)
	assert.LessOrEqual(t, hex.EncodeToString(sum[:4]), "ffffffff")
}

func TestSolveProofOfWorkFallsBackAfterBound(t *testing.T) {
	// No candidate hashes below an all-zero difficulty within a tiny bound.
	token, degraded := solveProofOfWorkBounded(3000, "test-seed", "00000000", 25)

	assert.True(t, degraded)
	require.True(t, strings.HasPrefix(token, powFallbackPrefix))

	suffix := strings.TrimPrefix(token, powFallbackPrefix)
	payload, err := base64.StdEncoding.DecodeString(suffix)
	require.NoError(t, err)
	assert.Equal(t, `"test-seed"`, string(payload))
}

func TestSolveProofOfWorkNeverReturnsUnverifiedToken(t *testing.T) {
	// Difficulty with a realistic prefix length; whether or not a solution
	// is found within the bound, the result must be either a verifying
	// token or the explicit fallback.
	const difficulty = "0fffff"
	token, degraded := solveProofOfWorkBounded(4242, "another-seed", difficulty, 2000)

	if degraded {
		assert.True(t, strings.HasPrefix(token, powFallbackPrefix))
		return
	}

	encoded := strings.TrimPrefix(token, powTokenPrefix)
	hasher := sha3.New512()
	hasher.Write([]byte("another-seed"))
	hasher.Write([]byte(encoded))
	sum := hasher.Sum(nil)
	assert.LessOrEqual(t, hex.EncodeToString(sum[:len(difficulty)/2]), difficulty)
}

func TestNewProofSeedRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		seed := NewProofSeed()
		assert.GreaterOrEqual(t, seed, 2000)
		assert.Less(t, seed, 8000)
	}
}
