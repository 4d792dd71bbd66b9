package auth

import (
	"testing"
	"time"

	"github.com/price-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, hasher.Compare(hash, "correct horse battery staple"))
	assert.False(t, hasher.Compare(hash, "wrong password"))
	assert.False(t, hasher.Compare("not a hash", "anything"))
}

func TestHasher_InvalidCostFallsBack(t *testing.T) {
	hasher := NewHasher(999)

	hash, err := hasher.Hash("password123")
	require.NoError(t, err)
	assert.True(t, hasher.Compare(hash, "password123"))
}

func testUser() *models.User {
	return &models.User{
		ID:        7,
		Email:     "user@example.com",
		IsPremium: true,
	}
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)

	token, err := manager.Issue(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.True(t, claims.IsPremium)
}

func TestTokenManager_ExpiredToken(t *testing.T) {
	manager := NewTokenManager("test-secret", -time.Minute)

	token, err := manager.Issue(testUser())
	require.NoError(t, err)

	_, err = manager.Verify(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token expired")
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", time.Hour).Issue(testUser())
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", time.Hour).Verify(token)
	assert.Error(t, err)
}

func TestTokenManager_GarbageToken(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := manager.Verify(token)
		assert.Error(t, err, "token %q should be rejected", token)
	}
}
