package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/service"
)

// errInvalidBody is returned when the request body cannot be decoded.
var errInvalidBody = errors.New("invalid request body")

// errorResp is the body of every failed request.
type errorResp struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{errInvalidBody, http.StatusBadRequest, "INVALID_BODY"},
	{service.ErrMissingFields, http.StatusBadRequest, "MISSING_FIELDS"},
	{service.ErrDuplicateAccount, http.StatusBadRequest, "DUPLICATE_ACCOUNT"},
	{service.ErrInvalidCredential, http.StatusBadRequest, "INVALID_CREDENTIAL"},
	{service.ErrAlreadyVerified, http.StatusBadRequest, "ALREADY_VERIFIED"},
	{service.ErrInvalidOTP, http.StatusBadRequest, "INVALID_OTP"},
	{service.ErrOTPExpired, http.StatusBadRequest, "OTP_EXPIRED"},
	{service.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{service.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
}

// classify maps err to a status, a stable code and a client-safe message.
// The message of an operation error is the sentinel's text, never the
// wrapped detail.
func classify(err error) (status int, code, message string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code, m.err.Error()
		}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return he.Code, codeForStatus(he.Code), msg
	}
	return http.StatusInternalServerError, "INTERNAL", "internal server error"
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "UNAUTHENTICATED"
	case http.StatusInternalServerError:
		return "INTERNAL"
	}
	text := http.StatusText(status)
	if text == "" {
		return "HTTP_ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}

// HTTPErrorHandler renders every error returned by a handler or middleware
// as an errorResp. Unexpected faults are logged with their oops context and
// reported to the client as a bare 500.
func HTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, code, msg := classify(err)
		if status >= http.StatusInternalServerError {
			logging.LogError(log, "request failed", err,
				"method", c.Request().Method, "path", c.Path())
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, errorResp{Success: false, Code: code, Message: msg})
		}
		if err != nil {
			log.Error("write error response", "error", err)
		}
	}
}
