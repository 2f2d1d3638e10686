package middleware

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user's id, or "" for guests.
func UserID(c echo.Context) string {
	s, _ := c.Get(ctxUserID).(string)
	return s
}

// userID returns the authenticated subject, "guest" otherwise.
func userID(c echo.Context) string {
	if s := UserID(c); s != "" {
		return s
	}
	return "guest"
}
