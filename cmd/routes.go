package cmd

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/go-arrower/ipquery"
	"github.com/go-arrower/ipquery/store"
)

// latestFinder is implemented by the stores, that can read their records back.
type latestFinder interface {
	Latest(ctx context.Context, ip string) (ipquery.Record, error)
}

// skipUnobservedRoutes excludes the routes from the middleware,
// that are called by infrastructure and by the operators of the server.
func skipUnobservedRoutes(c echo.Context) bool {
	path := c.Path()

	return path == "/health" || strings.HasPrefix(path, "/lookups")
}

func registerRoutes(router *echo.Echo, st ipquery.Store) {
	router.GET("/health", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// a demo page: each visit is looked up and stored
	router.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Hello, your visit has been recorded.\n")
	})

	router.GET("/lookups/:ip", func(c echo.Context) error {
		finder, ok := st.(latestFinder)
		if !ok {
			return echo.NewHTTPError(http.StatusNotImplemented, "the configured store can not read lookups")
		}

		record, err := finder.Latest(c.Request().Context(), c.Param("ip"))
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no lookup for ip")
		}

		if err != nil {
			return err //nolint:wrapcheck // handled by echo's error handler
		}

		return c.JSON(http.StatusOK, record)
	})
}
