package middleware

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user's ID, or "" when JWTAuth did not
// run or rejected the request.
func UserID(c echo.Context) string {
	s, _ := c.Get(KeyUserID).(string)
	return s
}

// Email returns the email claim of the access token.
func Email(c echo.Context) string {
	s, _ := c.Get(KeyEmail).(string)
	return s
}

// principal is the identity used in rate limit keys.
func principal(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
