package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/cors"
)

// CORS returns an Echo middleware answering cross-origin requests from browser
// clients. An origin of "*" allows any origin.
func CORS(allowedOrigins []string) echo.MiddlewareFunc {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	})
	return echo.WrapMiddleware(c.Handler)
}
