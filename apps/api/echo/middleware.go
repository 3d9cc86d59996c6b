package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/udereva/core/school"
)

var (
	contextMemberKey = "member"

	errMbrNotFoundInCtx = errors.New("member object not found in echo.Context")
)

// memberGuard builds middleware restricting a route to school members holding
// one of the given roles (any active member when none given).
type memberGuard func(roles ...string) echo.MiddlewareFunc

// membershipMiddleware is the single tenancy guard: it resolves the caller's
// active membership once and stores it in the context for handlers to use.
func membershipMiddleware(svc *school.Service) memberGuard {
	return func(roles ...string) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(ctx echo.Context) error {
				claims, err := getContextClaims(ctx)
				if err != nil {
					return errors.Wrap(err, "getting context claims")
				}

				mbr, err := svc.ActiveMembership(ctx.Request().Context(), claims.Subject)
				if err != nil {
					if errors.Cause(err) == school.ErrNoActiveMembership {
						return errNoMembership
					}
					return errors.Wrap(err, "getting active membership")
				}

				if len(roles) > 0 && !hasAnyRole(mbr, roles) {
					return errHttpForbidden
				}

				ctx.Set(contextMemberKey, mbr)
				return next(ctx)
			}
		}
	}
}

func hasAnyRole(mbr school.Member, roles []string) bool {
	for _, role := range roles {
		if mbr.Role == role {
			return true
		}
	}
	return false
}

func getContextMember(ctx echo.Context) (school.Member, error) {
	if mbr, ok := ctx.Get(contextMemberKey).(school.Member); ok {
		return mbr, nil
	}
	return school.Member{}, errors.Wrap(errMbrNotFoundInCtx, "retrieving member from context")
}

// superuserMiddleware restricts a route to the cross-tenant admin surface.
func superuserMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !claims.IsSuperuser {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
