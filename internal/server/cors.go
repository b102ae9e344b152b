package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AllowedHeaders is the Access-Control-Allow-Headers value sent on every response.
const AllowedHeaders = "authorization, x-client-info, apikey, content-type"

// CORS adds the CORS headers to every response and answers any OPTIONS
// request with an empty 200, before routing.
func CORS(allowOrigin string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, allowOrigin)
			h.Set(echo.HeaderAccessControlAllowHeaders, AllowedHeaders)

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	}
}
