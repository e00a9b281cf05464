package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tradehub/tradehub-backend/api/responses"
	pkgAuth "github.com/tradehub/tradehub-backend/pkg/auth"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
	"github.com/tradehub/tradehub-backend/pkg/logger"
)

// RoleFromContext derives the marketplace role from the seller flag.
func RoleFromContext(ctx context.Context) string {
	if IsSellerFromContext(ctx) {
		return pkgAuth.RoleSeller
	}
	return pkgAuth.RoleBuyer
}

// RequireRole rejects callers whose token does not carry role.
func RequireRole(role string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != role {
				err := pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("%s account required", role))
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSeller gates stock management surfaces.
func RequireSeller(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRole(pkgAuth.RoleSeller, logg)
}
