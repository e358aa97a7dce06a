package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// DownstreamErrorResponse mirrors the {"error":{"code","message"}} envelope
// returned by the commerce API. It is used to parse structured error bodies.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError. If the body matches the standard error envelope, the
// code and message are preserved. Otherwise an UPSTREAM_ERROR carrying the
// status code and raw body is returned.
//
// The caller should only invoke this when resp.StatusCode is not 2xx. The
// response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return apperrors.Upstream(
			fmt.Sprintf("%s returned status %d", serviceName, resp.StatusCode),
			fmt.Errorf("read body: %w", err),
		)
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(bodyBytes, &downstream) == nil && downstream.Error != nil {
		return mapDownstreamError(resp.StatusCode, downstream.Error.Code, downstream.Error.Message, serviceName)
	}

	return apperrors.Upstream(
		fmt.Sprintf("%s returned status %d: %s", serviceName, resp.StatusCode, string(bodyBytes)),
		nil,
	)
}

// mapDownstreamError translates the commerce API's status code and error code
// into an AppError that preserves the error semantics.
func mapDownstreamError(status int, code, message, serviceName string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case status == http.StatusNotFound:
		appErr := apperrors.NotFound(serviceName, message)
		appErr.Message = qualifiedMsg
		return appErr
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(qualifiedMsg)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualifiedMsg)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualifiedMsg)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualifiedMsg)
	case status == http.StatusServiceUnavailable:
		appErr := apperrors.Unavailable(qualifiedMsg)
		appErr.Code = code
		return appErr
	case status >= 500:
		return apperrors.Upstream(fmt.Sprintf("%s server error (%d/%s): %s", serviceName, status, code, message), nil)
	default:
		return &apperrors.AppError{
			Code:    code,
			Message: qualifiedMsg,
			Status:  status,
		}
	}
}
