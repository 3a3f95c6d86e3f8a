package httpd

import "strings"

// contentTypeTable recovers original_source/src/zhttpd.c's
// content_type_table: an extension-to-MIME lookup for files served out of
// the configured root path (spec.md §4.8's static-file fallback), with the
// same "application/misc" fallback the original used for anything it
// didn't recognize.
var contentTypeTable = map[string]string{
	"txt":  "text/plain",
	"c":    "text/plain",
	"h":    "text/plain",
	"html": "text/html",
	"htm":  "text/html",
	"css":  "text/css",
	"gif":  "image/gif",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"pdf":  "application/pdf",
	"ps":   "application/postscript",
}

func guessContentType(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return "application/misc"
	}
	ext := strings.ToLower(name[i+1:])
	if ct, ok := contentTypeTable[ext]; ok {
		return ct
	}
	return "application/misc"
}
