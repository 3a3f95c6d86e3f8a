package httpd

import (
	"fmt"
	"net/http"

	"github.com/Skryldev/image-processor/config"
)

// applyHeaders sets the standard Server/Content-Type pair plus the
// configurable list of extra response headers injected verbatim from
// config, in parse order (spec.md §4.8, §9).
func applyHeaders(w http.ResponseWriter, cfg config.Config, contentType string) {
	w.Header().Set("Server", "zimgd")
	w.Header().Set("Content-Type", contentType)
	applyExtraHeaders(w, cfg)
}

// applyExtraHeaders sets the Server header plus the configured extra
// headers without forcing a Content-Type, for responses with no body
// (e.g. a 304 Not Modified) that must still carry config.Headers on
// every response per spec.md §4.8.
func applyExtraHeaders(w http.ResponseWriter, cfg config.Config) {
	w.Header().Set("Server", "zimgd")
	for _, h := range cfg.Headers {
		w.Header().Add(h.Key, h.Value)
	}
}

func writeHTML(w http.ResponseWriter, cfg config.Config, status int, body string) {
	applyHeaders(w, cfg, "text/html")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func htmlPage(title, body string) string {
	return fmt.Sprintf("<html><head><title>%s</title></head><body>%s</body></html>", title, body)
}

func uploadSuccessHTML(host string, port int, fp string) string {
	url := fmt.Sprintf("http://%s:%d/%s?w=width&amp;h=height&amp;p=proportion&amp;g=isgray", host, port, fp)
	return htmlPage("Upload Success", fmt.Sprintf("<p>%s</p><p>usage: <a href=%q>%s</a></p>", fp, url, url))
}

func failureHTML(reason string) string {
	return htmlPage("Upload Failed", fmt.Sprintf("<p>Upload Failed: %s</p>", reason))
}

func forbiddenHTML() string {
	return htmlPage("Forbidden", "<p>Forbidden</p>")
}

func notFoundHTML() string {
	return htmlPage("Not Found", "<p>Not Found</p>")
}

func errorHTML(reason string) string {
	return htmlPage("Internal Error", fmt.Sprintf("<p>Internal Error: %s</p>", reason))
}

func defaultWelcomeHTML() string {
	return htmlPage("zimg", "<p>Welcome to zimgd.</p>")
}

func adminSuccessHTML() string {
	return htmlPage("Admin", "<p>successful</p>")
}

func adminNotFoundHTML() string {
	return htmlPage("Admin", "<p>not found</p>")
}

func adminErrorHTML(reason string) string {
	return htmlPage("Admin", fmt.Sprintf("<p>failed: %s</p>", reason))
}
