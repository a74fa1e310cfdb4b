package apierr

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code so callers can use errors.Is against the
// package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Sentinel codes matched by calling layers. Parameterised codes use the
// prefixes below followed by the value.
const (
	CodeLimitReached     = "LIMIT_REACHED"
	CodeDocumentNotFound = "DOCUMENT_NOT_FOUND"
	CodeDocumentNotReady = "DOCUMENT_NOT_READY"
	CodeArtifactsEmpty   = "ARTIFACTS_EMPTY"
	CodeReviewNotFound   = "REVIEW_ITEM_NOT_FOUND"
	CodeInvalidQuality   = "INVALID_QUALITY"
	CodeInvalidMode      = "INVALID_MODE"

	PrefixRateLimited     = "RATE_LIMITED_RETRY_AFTER_"
	PrefixFileTooLarge    = "FILE_TOO_LARGE_MAX_"
	PrefixUnsupportedMime = "UNSUPPORTED_MIME_TYPE_"
)

var (
	ErrLimitReached     = New(http.StatusPaymentRequired, CodeLimitReached, nil)
	ErrDocumentNotFound = New(http.StatusNotFound, CodeDocumentNotFound, nil)
	ErrDocumentNotReady = New(http.StatusConflict, CodeDocumentNotReady, nil)
	ErrArtifactsEmpty   = New(http.StatusUnprocessableEntity, CodeArtifactsEmpty, nil)
	ErrReviewNotFound   = New(http.StatusNotFound, CodeReviewNotFound, nil)
)

// RateLimited renders RATE_LIMITED_RETRY_AFTER_<n>_SECONDS, rounding up so a
// client never retries early.
func RateLimited(retryAfter time.Duration) *Error {
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return New(http.StatusTooManyRequests, fmt.Sprintf("%s%d_SECONDS", PrefixRateLimited, secs), nil)
}

// FileTooLarge renders FILE_TOO_LARGE_MAX_<n>_MB from a byte limit.
func FileTooLarge(maxBytes int64) *Error {
	mb := maxBytes / (1024 * 1024)
	if mb < 1 {
		mb = 1
	}
	return New(http.StatusRequestEntityTooLarge, fmt.Sprintf("%s%d_MB", PrefixFileTooLarge, mb), nil)
}

func UnsupportedMimeType(mimeType string) *Error {
	mt := strings.TrimSpace(mimeType)
	if mt == "" {
		mt = "unknown"
	}
	return New(http.StatusUnsupportedMediaType, PrefixUnsupportedMime+mt, nil)
}

func InvalidQuality(q int) *Error {
	return New(http.StatusBadRequest, CodeInvalidQuality, fmt.Errorf("quality %d outside [0,5]", q))
}

func InvalidMode(mode string) *Error {
	return New(http.StatusBadRequest, CodeInvalidMode, fmt.Errorf("unknown generation mode %q", mode))
}

// CodeOf returns the sentinel code carried by err, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return ""
}

// StatusOf returns the HTTP status carried by err, defaulting to 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e != nil && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}
