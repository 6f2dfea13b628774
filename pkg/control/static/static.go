// Package static serves the browser client files alongside the control
// surface. It is a delivery boundary only: content types come from file
// extensions, nothing is templated or rewritten.
package static

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Handler resolves request paths against Root.
type Handler struct {
	Root string
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqPath := r.URL.Path
	if reqPath == "/" {
		reqPath = "/index.html"
	}

	clean := path.Clean("/" + reqPath)
	if strings.Contains(clean, "..") {
		http.Error(w, "404 - File Not Found", http.StatusNotFound)
		return
	}
	full := filepath.Join(h.Root, filepath.FromSlash(clean))

	if info, err := os.Stat(full); err != nil || info.IsDir() {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("404 - File Not Found"))
		return
	}

	data, err := os.ReadFile(full)
	if err != nil {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("500 - Server Error: " + err.Error()))
		return
	}

	w.Header().Set("Content-Type", ContentType(clean))
	_, _ = w.Write(data)
}

// ContentType maps a request path to the media type the client expects.
func ContentType(reqPath string) string {
	switch strings.ToLower(path.Ext(reqPath)) {
	case ".html":
		return "text/html"
	case ".js":
		return "application/javascript"
	case ".css":
		return "text/css"
	case ".json":
		return "application/json"
	case ".proto":
		return "application/protobuf"
	default:
		return "application/octet-stream"
	}
}
