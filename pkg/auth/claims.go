package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Marketplace roles carried by an access token.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

var (
	errMissingUser     = errors.New("token carries no user id")
	errSubjectMismatch = errors.New("token subject does not match user id")
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	IsSeller bool
	JTI      string
}

// AccessTokenClaims is the JWT body issued by the identity service.
type AccessTokenClaims struct {
	UserID   uuid.UUID `json:"user_id"`
	IsSeller bool      `json:"is_seller"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims pass; the jwt parser calls it.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errMissingUser
	}
	if c.Subject != "" && c.Subject != c.UserID.String() {
		return errSubjectMismatch
	}
	return nil
}

func (c AccessTokenClaims) Role() string {
	if c.IsSeller {
		return RoleSeller
	}
	return RoleBuyer
}
