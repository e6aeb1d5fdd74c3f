package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrorKind is the closed set of failure classes callers branch on.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindCanceled
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
	KindInvalidOldPassword
	KindRateLimited
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindCanceled:
		return "canceled"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindInvalidOldPassword:
		return "invalid_old_password"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	}
	return "unknown"
}

// Backend error codes with a dedicated kind.
const (
	CodeInvalidOldPassword    = "INVALID_OLD_PASSWORD"
	CodeDuplicateVIN          = "DUPLICATE_VIN"
	CodeDuplicateLicensePlate = "DUPLICATE_LICENSE_PLATE"
	CodeValidation            = "VALIDATION_ERROR"
	CodeInsufficientBalance   = "INSUFFICIENT_BALANCE"
)

// APIError is a non-2xx response from a marketplace service.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string
	Kind    ErrorKind
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %d", e.Method, e.Path, e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, " %s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

// kindRule maps a status and backend code to a kind. Zero Status or empty
// Code match anything.
type kindRule struct {
	Status int
	Code   string
	Kind   ErrorKind
}

// kindTable is evaluated top to bottom; the first match wins.
var kindTable = []kindRule{
	{Code: CodeInvalidOldPassword, Kind: KindInvalidOldPassword},
	{Code: CodeDuplicateVIN, Kind: KindConflict},
	{Code: CodeDuplicateLicensePlate, Kind: KindConflict},
	{Code: CodeInsufficientBalance, Kind: KindValidation},
	{Code: CodeValidation, Kind: KindValidation},
	{Status: http.StatusBadRequest, Kind: KindValidation},
	{Status: http.StatusUnprocessableEntity, Kind: KindValidation},
	{Status: http.StatusUnauthorized, Kind: KindUnauthorized},
	{Status: http.StatusForbidden, Kind: KindForbidden},
	{Status: http.StatusNotFound, Kind: KindNotFound},
	{Status: http.StatusConflict, Kind: KindConflict},
	{Status: http.StatusTooManyRequests, Kind: KindRateLimited},
}

// Classify returns the kind for a status and backend code.
func Classify(status int, code string) ErrorKind {
	for _, r := range kindTable {
		if r.Status != 0 && r.Status != status {
			continue
		}
		if r.Code != "" && !strings.EqualFold(r.Code, code) {
			continue
		}
		return r.Kind
	}
	if status >= 500 {
		return KindServer
	}
	return KindUnknown
}

// newAPIError builds an APIError from a response body. The backend is not
// consistent about where it puts the code and message, so a few shapes are
// tried in order.
func newAPIError(method, path string, status int, body []byte) *APIError {
	e := &APIError{Method: method, Path: path, Status: status}
	if gjson.ValidBytes(body) {
		e.Code = firstString(body, "code", "errorCode", "error.code")
		e.Message = firstString(body, "message", "error.message", "error", "detail")
	} else {
		e.Message = strings.TrimSpace(string(body))
	}
	e.Kind = Classify(status, e.Code)
	return e
}

func firstString(body []byte, paths ...string) string {
	for _, p := range paths {
		r := gjson.GetBytes(body, p)
		if r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

// KindOf classifies any error returned by this package.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	if errors.Is(err, ErrTransport) {
		return KindNetwork
	}
	return KindUnknown
}

// ErrTransport wraps failures to reach a service at all.
var ErrTransport = errors.New("transport error")
