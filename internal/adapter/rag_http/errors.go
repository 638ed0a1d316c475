package rag_http

import (
	"context"
	"errors"
	"net/http"

	"rubric-orchestrator/internal/domain"

	"github.com/labstack/echo/v4"
)

// mapDomainError converts usecase errors into HTTP errors. Unknown errors
// become a 500 without their message.
func mapDomainError(err error) *echo.HTTPError {
	var authErr *domain.AuthError
	switch {
	case errors.As(err, &authErr):
		status := authErr.StatusCode
		if status < 400 {
			status = http.StatusUnauthorized
		}
		return echo.NewHTTPError(status, authErr.Message).SetInternal(err)
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrEmptyMessages),
		errors.Is(err, domain.ErrInvalidRetrievalMode),
		errors.Is(err, domain.ErrUnsupportedDocument),
		errors.Is(err, domain.ErrEmptyDocument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrContentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "upstream call timed out").SetInternal(err)
	case errors.Is(err, domain.ErrUpstream),
		errors.Is(err, domain.ErrEmptyCompletion),
		errors.Is(err, domain.ErrEmptyEmbedding):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error()).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}
