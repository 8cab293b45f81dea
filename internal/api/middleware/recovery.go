package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/storefront-proxy/internal/metrics"
)

type panicBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Recovery turns a handler panic into a 500 failure envelope. The stack is
// logged and the panic counted against the matched route. When the handler
// already committed a response nothing more is written.
func Recovery(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if e, ok := r.(error); ok && errors.Is(e, http.ErrAbortHandler) {
					panic(r)
				}

				route := c.Path()
				if route == "" {
					route = c.Request().URL.Path
				}
				metrics.HTTPPanicsTotal.WithLabelValues(route).Inc()

				log.Error("panic recovered",
					"error", fmt.Sprint(r),
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
					"request_id", c.Get("request_id"),
					"committed", c.Response().Committed,
					"stack", string(debug.Stack()),
				)

				if c.Response().Committed {
					err = nil
					return
				}
				err = c.JSON(http.StatusInternalServerError, panicBody{Error: "internal server error"})
			}()
			return next(c)
		}
	}
}
