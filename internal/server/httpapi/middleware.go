package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/server/auth"
	"github.com/dmitrijs2005/gophgallery/internal/server/metrics"
)

const userIDKey = "userID"

// accessTokenMiddleware resolves the bearer token to a principal id and
// stores it on the context. Routes that use it reject anonymous calls.
func accessTokenMiddleware(gate *auth.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := auth.BearerToken(c.Request().Header.Get(common.AuthorizationHeaderName))

			userID, err := gate.Authorize(token)
			if err != nil {
				switch {
				case errors.Is(err, common.ErrMissingToken):
					return echo.NewHTTPError(http.StatusUnauthorized, "access denied, no token provided")
				case errors.Is(err, common.ErrTokenExpired):
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
				default:
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
			}

			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

// principal returns the id stored by accessTokenMiddleware.
func principal(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

func metricsMiddleware(mc *metrics.Collector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			mc.RecordHTTPRequest(c.Request().Method, path, status, time.Since(start))
			return err
		}
	}
}
