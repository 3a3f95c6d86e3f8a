// Package multipart implements the upload-body extractor required by
// spec.md §4.1 / §9: a hand-rolled KMP-based scanner over the raw request
// body, not the standard library's mime/multipart, so binary image bytes
// can never trigger quadratic scanning and so the exact boundary/filename/
// Content-Type recovery procedure of the original zimg ingest path
// (original_source/src/zhttpd.c, post_request_cb) is reproduced.
package multipart

import (
	"bytes"
	"strings"

	apperrors "github.com/Skryldev/image-processor/errors"
	"github.com/Skryldev/image-processor/kmp"
)

// File is the single uploaded file recovered from a multipart body.
type File struct {
	Filename string
	Data     []byte // a slice into the original body buffer
}

// Boundary extracts the multipart boundary from a Content-Type header
// value. Per spec.md §4.1 step 1: if the value after "boundary=" is
// quoted, use the contents between the quotes; otherwise the value runs up
// to the next ',' or ';'.
func Boundary(contentType string) (string, error) {
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return "", apperrors.New(apperrors.CategoryInput, "multipart.boundary",
			errNotMultipart)
	}
	idx := strings.Index(contentType, "boundary=")
	if idx < 0 {
		return "", apperrors.New(apperrors.CategoryInput, "multipart.boundary", errNoBoundary)
	}
	rest := contentType[idx+len("boundary="):]
	if len(rest) > 0 && rest[0] == '"' {
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			return "", apperrors.New(apperrors.CategoryInput, "multipart.boundary", errNoBoundary)
		}
		return rest[1 : 1+end], nil
	}
	end := strings.IndexAny(rest, ",;")
	if end < 0 {
		return rest, nil
	}
	return rest[:end], nil
}

// Extract recovers the first file part's bytes and declared filename from
// body, given the request's Content-Type header value.
//
// Procedure (spec.md §4.1):
//  1. boundary pattern is "\r\n--<boundary>"
//  2. locate "filename=" in the body; the filename is the quoted run, or
//     the run up to the next "\r\n"
//  3. skip past the next "Content-Type:" header line and its trailing
//     "\r\n"; the payload begins four bytes after the following "\r\n\r\n"
//  4. the payload ends at the next occurrence of the boundary pattern
//
// Every failure mode returns a distinct sentinel-wrapped error so callers
// can distinguish them (spec.md §4.1 "Edge cases").
func Extract(body []byte, contentType string) (*File, error) {
	if len(body) == 0 {
		return nil, apperrors.New(apperrors.CategoryInput, "multipart.extract", errEmptyBody)
	}
	boundary, err := Boundary(contentType)
	if err != nil {
		return nil, err
	}
	boundaryPattern := []byte("\r\n--" + boundary)

	filenameKey := []byte("filename=")
	fnMatcher := kmp.New(filenameKey)
	fnIdx := fnMatcher.Index(body, 0)
	if fnIdx < 0 {
		return nil, apperrors.New(apperrors.CategoryInput, "multipart.extract", errNoFilename)
	}
	nameStart := fnIdx + len(filenameKey)
	var filename string
	if nameStart < len(body) && body[nameStart] == '"' {
		end := bytes.IndexByte(body[nameStart+1:], '"')
		if end < 0 {
			return nil, apperrors.New(apperrors.CategoryInput, "multipart.extract", errNoFilename)
		}
		filename = string(body[nameStart+1 : nameStart+1+end])
	} else {
		end := bytes.Index(body[nameStart:], []byte("\r\n"))
		if end < 0 {
			return nil, apperrors.New(apperrors.CategoryInput, "multipart.extract", errNoFilename)
		}
		filename = string(body[nameStart : nameStart+end])
	}
	if filename == "" {
		return nil, apperrors.New(apperrors.CategoryInput, "multipart.extract", errNoFilename)
	}

	ctKey := []byte("Content-Type")
	ctMatcher := kmp.New(ctKey)
	ctIdx := ctMatcher.Index(body, nameStart)
	if ctIdx < 0 {
		return nil, apperrors.New(apperrors.CategoryInput, "multipart.extract", errNoInnerContentType)
	}
	headerEnd := bytes.Index(body[ctIdx:], []byte("\r\n\r\n"))
	if headerEnd < 0 {
		return nil, apperrors.New(apperrors.CategoryInput, "multipart.extract", errNoInnerContentType)
	}
	payloadStart := ctIdx + headerEnd + len("\r\n\r\n")
	if payloadStart > len(body) {
		return nil, apperrors.New(apperrors.CategoryInput, "multipart.extract", errNoPayload)
	}

	boundaryMatcher := kmp.New(boundaryPattern)
	payloadEnd := boundaryMatcher.Index(body, payloadStart)
	if payloadEnd < 0 {
		payloadEnd = len(body)
	}
	if payloadEnd <= payloadStart {
		return nil, apperrors.New(apperrors.CategoryInput, "multipart.extract", errNoPayload)
	}

	return &File{Filename: filename, Data: body[payloadStart:payloadEnd]}, nil
}
