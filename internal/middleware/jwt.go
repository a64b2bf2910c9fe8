package middleware // middleware provides request processing shared by the stub backend's handlers

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token signed with HS256 and injects the subject and normalized role
// list into the request context under "user_id" and "roles".  The
// stub backend uses it to mirror the real backend's auth behavior so
// client-side error paths can be exercised end to end.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"statusCode": http.StatusUnauthorized, "message": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"statusCode": http.StatusUnauthorized, "message": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"statusCode": http.StatusUnauthorized, "message": "invalid claims"})
			}

			c.Set("user_id", claims["sub"])
			c.Set("roles", normalizedRoles(claims))
			return next(c)
		}
	}
}

// normalizedRoles pulls the role list out of the claims, accepting the
// same shapes the client-side identity package does: "roles" array,
// "role" string, or a space/comma separated "scope".
func normalizedRoles(claims jwt.MapClaims) []string {
	var raw []string
	switch v := claims["roles"].(type) {
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = append(raw, v)
	}
	if len(raw) == 0 {
		if s, ok := claims["role"].(string); ok {
			raw = append(raw, s)
		}
	}
	if len(raw) == 0 {
		if s, ok := claims["scope"].(string); ok {
			raw = strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
		}
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.ToUpper(strings.TrimPrefix(r, "ROLE_"))
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}
