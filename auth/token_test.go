package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_Issue_Then_Validate(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("test-secret", time.Hour)
	userID := uuid.NewString()

	token, err := manager.Issue(userID)
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := manager.Validate(token)
	req.NoError(err)
	req.Equal(userID, claims.UserID)
}

func TestTokenManager_Wrong_Secret_Is_Rejected(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)

	token, err := issuer.Issue(uuid.NewString())
	req.NoError(err)

	_, err = verifier.Validate(token)
	req.Error(err)
}

func TestTokenManager_Expired_Token_Is_Rejected(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("test-secret", -time.Minute)

	token, err := manager.Issue(uuid.NewString())
	req.NoError(err)

	_, err = manager.Validate(token)
	req.Error(err)
}

func TestTokenManager_Other_Signing_Method_Is_Rejected(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("test-secret", time.Hour)

	// Given a token signed with a different HMAC variant on the same secret
	claims := &Claims{
		UserID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    issuer,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte("test-secret"))
	req.NoError(err)

	// Then validation refuses it, only HS256 is accepted
	_, err = manager.Validate(token)
	req.Error(err)
}

func TestTokenManager_Garbage_Is_Rejected(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("test-secret", time.Hour)

	_, err := manager.Validate("not.a.token")
	req.Error(err)
}
