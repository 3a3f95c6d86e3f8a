// Package httpd is the request dispatcher of spec.md §4.8: a single
// http.Handler that routes uploads, downloads, the admin delete endpoint,
// and static root-path files, enforcing the access gate and the
// "no path traversal" guard ahead of any other routing decision.
//
// Routing is hand-written rather than built on net/http.ServeMux's
// wildcard patterns: ServeMux auto-redirects any path containing ".."
// before a handler ever runs, which would silently bypass the traversal
// guard spec.md requires at the dispatcher itself.
package httpd

import (
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Skryldev/image-processor/accessgate"
	"github.com/Skryldev/image-processor/config"
	"github.com/Skryldev/image-processor/fingerprint"
	"github.com/Skryldev/image-processor/multipart"
	"github.com/Skryldev/image-processor/resolver"
	"github.com/Skryldev/image-processor/sniff"
	"github.com/Skryldev/image-processor/storage"
	"github.com/Skryldev/image-processor/variant"
	"github.com/Skryldev/image-processor/workerpool"
)

// Logger is the minimal structured logging interface the dispatcher needs;
// satisfied by internal/zlog.Logger.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// Handler implements http.Handler per spec.md §4.8.
type Handler struct {
	Config   config.Config
	Upload   *accessgate.Gate
	Download *accessgate.Gate
	Pool     *workerpool.Pool
	Resolver *resolver.Resolver
	Log      Logger
}

// New builds a Handler. upload/download may be nil, which accessgate.Gate
// treats as default-permit.
func New(cfg config.Config, upload, download *accessgate.Gate, pool *workerpool.Pool, res *resolver.Resolver, log Logger) *Handler {
	return &Handler{Config: cfg, Upload: upload, Download: download, Pool: pool, Resolver: res, Log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Traversal guard first, ahead of every other routing decision
	// (spec.md §4.8, §8 invariant 6): a raw ".." anywhere in the request
	// path is rejected outright, before it can influence any later
	// decision about which handler runs.
	if strings.Contains(r.URL.Path, "..") {
		writeHTML(w, h.Config, http.StatusForbidden, forbiddenHTML())
		return
	}

	switch {
	case r.Method == http.MethodPost:
		h.handleUpload(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/":
		h.handleRoot(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/favicon.ico":
		h.handleFavicon(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/admin":
		h.handleAdmin(w, r)
	case r.Method == http.MethodGet:
		h.handleDownload(w, r)
	default:
		writeHTML(w, h.Config, http.StatusNotFound, notFoundHTML())
	}
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if v := h.Upload.Evaluate(r.RemoteAddr); v != accessgate.ALLOW {
		h.respondGateVerdict(w, v)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeHTML(w, h.Config, http.StatusInternalServerError, failureHTML("could not read body"))
		return
	}

	file, err := multipart.Extract(body, r.Header.Get("Content-Type"))
	if err != nil {
		h.logErr("upload.extract", err)
		writeHTML(w, h.Config, http.StatusInternalServerError, failureHTML("malformed upload"))
		return
	}
	if !sniff.IsImage(file.Filename) {
		writeHTML(w, h.Config, http.StatusInternalServerError, failureHTML("unsupported file type"))
		return
	}

	fp := fingerprint.Sum(file.Data)

	var putErr error
	dispatchErr := h.Pool.Dispatch(r.Context(), func(backend storage.Backend) {
		putErr = backend.Put(r.Context(), fp, file.Data)
	})
	if dispatchErr != nil {
		h.logErr("upload.dispatch", dispatchErr)
		writeHTML(w, h.Config, http.StatusInternalServerError, failureHTML("storage unavailable"))
		return
	}
	if putErr != nil {
		h.logErr("upload.put", putErr)
		writeHTML(w, h.Config, http.StatusInternalServerError, failureHTML("storage write failed"))
		return
	}

	writeHTML(w, h.Config, http.StatusOK, uploadSuccessHTML(hostOf(r), h.Config.Port, fp))
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	candidate := strings.TrimPrefix(r.URL.Path, "/")
	if !fingerprint.Valid(candidate) {
		writeHTML(w, h.Config, http.StatusNotFound, notFoundHTML())
		return
	}
	if v := h.Download.Evaluate(r.RemoteAddr); v != accessgate.ALLOW {
		h.respondGateVerdict(w, v)
		return
	}

	params := variant.ParseQuery(r.URL.Query())
	ifNoneMatch := r.Header.Get("If-None-Match")

	var result resolver.Result
	dispatchErr := h.Pool.Dispatch(r.Context(), func(backend storage.Backend) {
		result = h.Resolver.Resolve(r.Context(), backend, candidate, params, ifNoneMatch)
	})
	if dispatchErr != nil {
		h.logErr("download.dispatch", dispatchErr)
		writeHTML(w, h.Config, http.StatusInternalServerError, errorHTML("storage unavailable"))
		return
	}

	switch result.Status {
	case resolver.OK:
		applyHeaders(w, h.Config, contentTypeOf(result.Bytes))
		w.Header().Set("ETag", result.ETag)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Bytes)
	case resolver.NotModified:
		applyExtraHeaders(w, h.Config)
		w.Header().Set("ETag", result.ETag)
		w.WriteHeader(http.StatusNotModified)
	case resolver.NotFound:
		writeHTML(w, h.Config, http.StatusNotFound, notFoundHTML())
	default:
		h.logErr("download.resolve", result.Err)
		writeHTML(w, h.Config, http.StatusInternalServerError, errorHTML("render failed"))
	}
}

func (h *Handler) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if v := h.Download.Evaluate(r.RemoteAddr); v != accessgate.ALLOW {
		h.respondGateVerdict(w, v)
		return
	}

	q := r.URL.Query()
	md5 := q.Get("md5")
	if !fingerprint.Valid(md5) {
		writeHTML(w, h.Config, http.StatusNotFound, adminNotFoundHTML())
		return
	}
	if q.Get("t") != "1" {
		writeHTML(w, h.Config, http.StatusOK, htmlPage("Admin", "<p>no action taken</p>"))
		return
	}

	var opErr error
	dispatchErr := h.Pool.Dispatch(r.Context(), func(backend storage.Backend) {
		deleter, ok := backend.(storage.FingerprintDeleter)
		if !ok {
			opErr = errors.New("backend does not support deletion")
			return
		}
		opErr = deleter.DeleteFingerprint(r.Context(), md5)
	})
	if dispatchErr != nil {
		h.logErr("admin.dispatch", dispatchErr)
		writeHTML(w, h.Config, http.StatusInternalServerError, adminErrorHTML("storage unavailable"))
		return
	}
	if opErr != nil {
		if errors.Is(opErr, storage.ErrNotFound) {
			writeHTML(w, h.Config, http.StatusOK, adminNotFoundHTML())
			return
		}
		h.logErr("admin.delete", opErr)
		writeHTML(w, h.Config, http.StatusInternalServerError, adminErrorHTML("delete failed"))
		return
	}

	writeHTML(w, h.Config, http.StatusOK, adminSuccessHTML())
}

func (h *Handler) handleFavicon(w http.ResponseWriter, r *http.Request) {
	applyHeaders(w, h.Config, "image/x-icon")
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if h.Config.RootPath != "" {
		h.serveStatic(w, r, "index.html")
		return
	}
	writeHTML(w, h.Config, http.StatusOK, defaultWelcomeHTML())
}

// serveStatic serves name out of Config.RootPath, the teacher-less
// counterpart of original_source/src/zhttpd.c's static-file serving. The
// dispatcher calls it only for GET "/" (name "index.html"); any other
// unrecognized GET path goes to handleDownload and gets a 404.
func (h *Handler) serveStatic(w http.ResponseWriter, r *http.Request, name string) {
	full := filepath.Join(h.Config.RootPath, name)
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) && name == "index.html" {
			writeHTML(w, h.Config, http.StatusOK, defaultWelcomeHTML())
			return
		}
		writeHTML(w, h.Config, http.StatusNotFound, notFoundHTML())
		return
	}
	applyHeaders(w, h.Config, guessContentType(name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) respondGateVerdict(w http.ResponseWriter, v accessgate.Verdict) {
	switch v {
	case accessgate.FORBIDDEN:
		writeHTML(w, h.Config, http.StatusForbidden, forbiddenHTML())
	default: // ERROR
		writeHTML(w, h.Config, http.StatusInternalServerError, errorHTML("access evaluation failed"))
	}
}

func (h *Handler) logErr(op string, err error) {
	if h.Log == nil || err == nil {
		return
	}
	h.Log.Error(op, "error", err)
}

func hostOf(r *http.Request) string {
	if h, _, err := net.SplitHostPort(r.Host); err == nil {
		return h
	}
	return r.Host
}

// contentTypeOf picks the response Content-Type from the response bytes'
// magic number: GIF bytes get "image/gif", everything else "image/jpeg".
// Rendered variants are always JPEG unless the source was GIF (spec.md
// §4.6 step 4), but an identity request returns the stored original
// verbatim, so a PNG or WebP original served that way is also labeled
// "image/jpeg".
func contentTypeOf(data []byte) string {
	if len(data) >= 6 && (string(data[0:6]) == "GIF87a" || string(data[0:6]) == "GIF89a") {
		return "image/gif"
	}
	return "image/jpeg"
}
