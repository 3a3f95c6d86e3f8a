package multipart

import "errors"

// Distinct sentinel errors for each parse-failure variant named in
// spec.md §4.1's edge cases, wrapped by apperrors.ProcessingError at the
// call sites in multipart.go. The sentinels are unexported, so only code in
// this package can match them with errors.Is; outside callers see the
// distinct error text.
var (
	errNotMultipart       = errors.New("content-type is not multipart/form-data")
	errNoBoundary         = errors.New("missing multipart boundary")
	errEmptyBody          = errors.New("empty request body")
	errNoFilename         = errors.New("missing filename in multipart body")
	errNoInnerContentType = errors.New("missing inner Content-Type header")
	errNoPayload          = errors.New("zero-length file payload")
)
