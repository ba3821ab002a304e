// Package handlers defines HTTP-layer error codes used across all API
// endpoints.
//
// These symbolic constants are mapped to HTTP responses via the fail()
// helper and give clients a stable, machine-readable error taxonomy that
// supplements human-readable messages. Generic codes mirror common HTTP
// status semantics; domain-specific codes cover the generation-service and
// storage failure classes the submission workflow distinguishes (auth
// versus throttle versus generic upstream failure), so the caller can
// decide whether to retry immediately, retry later, or stop.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	// ErrCodeRateLimited is emitted by the rate-limit middleware, which
	// cannot import this package; the values are kept in sync.
	ErrCodeRateLimited = "rate_limited"
	ErrCodeInternal    = "internal_error"

	// Domain-specific:
	ErrCodeConfig              = "config_error"
	ErrCodeUpstreamAuth        = "upstream_auth"
	ErrCodeUpstreamRateLimited = "upstream_rate_limited"
	ErrCodeUpstream            = "upstream_error"
	ErrCodeStorage             = "storage_error"
	ErrCodeListFailed          = "list_failed"
	ErrCodeMethodNotAllowed    = "method_not_allowed"
)
