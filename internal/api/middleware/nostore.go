package middleware

import "github.com/labstack/echo/v4"

// NoStore marks every response as uncacheable by browsers and shared
// caches. Result caching happens server-side only.
func NoStore() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("Cache-Control", "no-store")
			return next(c)
		}
	}
}
