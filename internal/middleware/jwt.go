package middleware // middleware provides shared request processing for handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by the auth middleware.
const (
	ctxUserID        = "user_id"
	ctxAuthenticated = "authenticated"
)

var errNoBearer = errors.New("missing bearer token")

// JWTAuth returns an Echo middleware that validates a Bearer access token
// issued by the account service and stores its subject under "user_id".
// Requests without a valid token are rejected with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, err := parseBearer(c.Request(), secret)
			if errors.Is(err, errNoBearer) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ctxUserID, uid)
			c.Set(ctxAuthenticated, true)
			return next(c)
		}
	}
}

// OptionalJWT authenticates the caller when a valid bearer token is present
// and lets anonymous requests through. Participants joining a room are
// usually guests; a token only changes which rooms they may enter directly.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid, err := parseBearer(c.Request(), secret); err == nil {
				c.Set(ctxUserID, uid)
				c.Set(ctxAuthenticated, true)
			}
			return next(c)
		}
	}
}

// IsAuthenticated reports whether an auth middleware accepted a token.
func IsAuthenticated(c echo.Context) bool {
	ok, _ := c.Get(ctxAuthenticated).(bool)
	return ok
}

func parseBearer(r *http.Request, secret string) (string, error) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", errNoBearer
	}
	raw := strings.TrimPrefix(auth, "Bearer ")

	// Only HMAC tokens signed with our secret are accepted.
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !tok.Valid {
		return "", errors.New("invalid token")
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}
