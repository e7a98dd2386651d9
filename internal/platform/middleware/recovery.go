package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery converts a handler panic into a 500 carrying the panic as its
// internal error. http.ErrAbortHandler is re-raised so net/http can abort
// the connection. When the handler already wrote a response only the log
// entry is produced.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				perr, ok := r.(error)
				if !ok {
					perr = fmt.Errorf("%v", r)
				}

				req := c.Request()
				logger.Error().
					Err(perr).
					Str("request_id", requestID(c)).
					Str("method", req.Method).
					Str("path", req.URL.Path).
					Bool("committed", c.Response().Committed).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")

				if c.Response().Committed {
					err = nil
					return
				}
				err = &echo.HTTPError{
					Code:     http.StatusInternalServerError,
					Message:  http.StatusText(http.StatusInternalServerError),
					Internal: fmt.Errorf("panic: %w", perr),
				}
			}()
			return next(c)
		}
	}
}

