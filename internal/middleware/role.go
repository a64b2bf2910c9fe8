package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns a middleware that rejects requests whose token
// carries none of the given roles.  It assumes JWTAuth already stored
// the normalized role list under "roles".  Failures come back in the
// backend's envelope shape so the client surfaces the message as-is.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got, _ := c.Get("roles").([]string)
			for _, r := range got {
				if allowed[r] {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"statusCode": http.StatusForbidden, "message": "forbidden"})
		}
	}
}
