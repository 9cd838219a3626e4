package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/k1shan-k/lsspoing/pkg/errors"
)

// remoteErrorBody mirrors the error payload shape returned by the remote
// identity and catalog collaborators: a single human-readable message field.
type remoteErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// RemoteMessage reads the body of a non-2xx HTTP response and extracts the
// remote service's human-readable message, if any. The response body is fully
// consumed and closed.
func RemoteMessage(resp *http.Response) string {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return ""
	}

	var body remoteErrorBody
	if json.Unmarshal(bodyBytes, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return ""
}

// ParseResponseError translates a non-2xx HTTP response from a remote
// collaborator into an AppError. The caller should only invoke this when
// resp.StatusCode indicates an error. The response body is consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	message := RemoteMessage(resp)
	if message == "" {
		message = fmt.Sprintf("%s returned status %d", serviceName, resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case resp.StatusCode == http.StatusBadRequest:
		return apperrors.InvalidInput(fmt.Sprintf("%s: %s", serviceName, message))
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return apperrors.TokenExpired(message)
	case resp.StatusCode >= 500:
		return apperrors.NetworkUnavailable(fmt.Errorf("%s server error %d: %s", serviceName, resp.StatusCode, message))
	default:
		return &apperrors.AppError{
			Code:    "UPSTREAM_ERROR",
			Message: fmt.Sprintf("%s: %s", serviceName, message),
			Status:  resp.StatusCode,
		}
	}
}
