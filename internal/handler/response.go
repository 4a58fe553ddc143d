package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/skillswap-backend/internal/service"
	"go.uber.org/zap"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrInvalidArgument, http.StatusBadRequest, "bad_request"},
	{service.ErrUnauthorized, http.StatusForbidden, "forbidden"},
	{service.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{service.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{service.ErrAlreadyRated, http.StatusConflict, "already_rated"},
	{service.ErrConflict, http.StatusConflict, "conflict"},
	{service.ErrBanned, http.StatusForbidden, "banned"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{service.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
}

// writeError maps service errors onto the JSON error envelope. Unknown errors
// are logged and reported as internal_error without detail.
func writeError(c echo.Context, logger *zap.Logger, err error) error {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return c.JSON(m.status, NewErrorResponse(m.code, err.Error()))
		}
	}
	logger.Error("unhandled error",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "internal server error"))
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", message))
}

func requireUID(c echo.Context) (string, bool) {
	uid, _ := c.Get("uid").(string)
	return uid, uid != ""
}

func missingUID(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
}

const maxBodyBytes = 1 << 20

// bindStrict decodes a JSON body into dst and rejects unknown fields or trailing data.
func bindStrict(c echo.Context, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(c.Request().Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid json: %s", strings.TrimPrefix(err.Error(), "json: "))
	}
	if dec.More() {
		return errors.New("invalid json: unexpected data after body")
	}
	return nil
}
