package middleware

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// RequireStoreAccess keeps store admins on the store their token names. The
// route must carry a {param} path segment; other roles pass through.
func RequireStoreAccess(logg *logger.Logger, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if RoleFromContext(ctx) != enums.ActorRoleStoreAdmin {
				next.ServeHTTP(w, r)
				return
			}
			storeID, err := validators.UUIDParam(r, param)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if scope := StoreScopeFromContext(ctx); scope == nil || *scope != storeID {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "store not managed by caller"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
