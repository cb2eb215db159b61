package middleware

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
	ctxStore  contextKey = "store_scope"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.ActorRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.ActorRole); ok {
		return v
	}
	return ""
}

// CustomerIDFromContext returns the caller's id when the caller is a customer.
// Other actors price carts anonymously.
func CustomerIDFromContext(ctx context.Context) *uuid.UUID {
	if RoleFromContext(ctx) != enums.ActorRoleCustomer {
		return nil
	}
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil || id == uuid.Nil {
		return nil
	}
	return &id
}

// WithIdentity injects the caller identity into the context.
func WithIdentity(ctx context.Context, userID string, role enums.ActorRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxRole, role)
}

// StoreScopeFromContext returns the store named by the caller's token, if any.
func StoreScopeFromContext(ctx context.Context) *uuid.UUID {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxStore).(uuid.UUID); ok {
		return &v
	}
	return nil
}

func WithStoreScope(ctx context.Context, storeID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStore, storeID)
}
