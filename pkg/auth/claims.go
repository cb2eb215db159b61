package auth

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims represents the typed JWT presented by clients. StoreID is
// set for store admins and names the one store they manage.
type AccessTokenClaims struct {
	UserID  uuid.UUID       `json:"user_id"`
	Role    enums.ActorRole `json:"role"`
	StoreID *uuid.UUID      `json:"store_id,omitempty"`
	jwt.RegisteredClaims
}
