package http

import (
	"bytes"
	"html/template"
	"net/http"
	"os"
	"path/filepath"

	"plotpilot/internal/config"
)

// pageData is the template context of index.html
type pageData struct {
	AppName    string
	Version    string
	Extensions []string
}

// ServeMainApp serves the single-page front end from webDir
func ServeMainApp(webDir string, extensions []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		indexPath := filepath.Join(webDir, "index.html")
		if _, err := os.Stat(indexPath); os.IsNotExist(err) {
			http.Error(w, "Main application page not found", http.StatusNotFound)
			return
		}

		serveHTML(w, indexPath, pageData{
			AppName:    config.AppName,
			Version:    config.AppVersion,
			Extensions: extensions,
		})
	}
}

// StaticFiles serves the assets under webDir/static
func StaticFiles(webDir string) http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.Dir(filepath.Join(webDir, "static"))))
}

// serveHTML renders an HTML template with data
func serveHTML(w http.ResponseWriter, filePath string, data interface{}) {
	tmpl, err := template.ParseFiles(filePath)
	if err != nil {
		http.Error(w, "Error loading page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = buf.WriteTo(w)
}
