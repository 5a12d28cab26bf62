package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/contentplan/backend/pkg/logger"
)

// classifyError maps err to a status code and the log level it deserves.
func classifyError(err error) (int, slog.Level) {
	status := http.StatusInternalServerError
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
	}
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return status, slog.LevelWarn
	}
	return status, slog.LevelError
}

// NewErrorHandler returns an ErrorHandler that logs the failure and answers
// with a JSON error document. Client errors are logged at warn level.
func NewErrorHandler(log *slog.Logger) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		status, level := classifyError(err)

		log.LogAttrs(r.Context(), level, "request error",
			logger.RequestID(middleware.GetReqID(r.Context())),
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		if renderErr := JSONError(err).Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.Error("failed to render error response",
				logger.Error(renderErr),
				logger.Component("error_handler"),
			)
		}
	}
}
