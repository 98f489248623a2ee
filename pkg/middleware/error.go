package middleware

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	appctx "github.com/saikilaru/TAMcust/pkg/context"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/tracing"
)

type ErrorResponse struct {
	Message   string         `json:"message"`
	RequestID string         `json:"request_id"`
	TraceID   string         `json:"trace_id"`
	Meta      map[string]any `json:"meta"`
}

// Error renders every error as an ErrorResponse. Domain errors keep their localized message;
// anything unclassified becomes a 500 with the generic localized message.
func Error(logger ectologger.Logger, tr apperrors.Translator) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		ctx := c.Request().Context()
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := tr.Translate(ctx, apperrors.KeyDefault)
		meta := map[string]any{}

		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		default:
			if httpErr, ok := apperrors.ToHTTPError(ctx, err, tr); ok {
				err = httpErr
			}
			if httperror.IsHTTPError(err) {
				httpErr := httperror.ToHTTPError(err)
				code = httperror.GetStatusCode(err)
				message = httpErr.Message
				if httpErr.Meta != nil {
					meta = httpErr.Meta
				}
			}
		}

		entry := logger.WithContext(ctx).WithError(err).WithField("status", code)
		if code >= http.StatusInternalServerError {
			entry.Error("api is returning an error")
		} else {
			entry.Warn("api is returning an error")
		}

		if code == http.StatusTooManyRequests {
			var tooMany *apperrors.TooManyRequestsError
			if errors.As(err, &tooMany) {
				c.Response().Header().Set("Retry-After", retryAfter(tooMany))
			}
		}

		_ = c.JSON(code, ErrorResponse{
			Message:   message,
			RequestID: appctx.GetRequestID(ctx),
			TraceID:   tracing.GetTraceID(ctx),
			Meta:      meta,
		})
	}
}
