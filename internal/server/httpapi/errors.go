package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/gophgallery/internal/common"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Message string `json:"message"`
}

// upstreamMessages hides driver and provider detail behind the sentinel text.
var upstreamMessages = []error{
	common.ErrBlobWriteFailed,
	common.ErrBlobDeleteFailed,
	common.ErrMetadataWriteFailed,
}

// toHTTPError maps the error taxonomy onto status codes. Unknown errors are
// reported as 500 without detail.
func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, common.ErrDuplicateUsername):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, common.ErrSweepUnsupported):
		return echo.NewHTTPError(http.StatusNotImplemented, err.Error())
	case errors.Is(err, common.ErrorUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrorForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrorValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorUpstream):
		msg := common.ErrorUpstream.Error()
		for _, e := range upstreamMessages {
			if errors.Is(err, e) {
				msg = e.Error()
				break
			}
		}
		return echo.NewHTTPError(http.StatusBadGateway, msg)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
