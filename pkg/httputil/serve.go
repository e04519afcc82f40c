package httputil

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"
)

var extraTypes = map[string]string{
	".js":   "text/javascript; charset=utf-8",
	".mjs":  "text/javascript; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".map":  "application/json",
	".json": "application/json",
	".svg":  "image/svg+xml",
	".woff": "font/woff",
	".wasm": "application/wasm",
}

// ContentType returns the MIME type for name, judged by its extension.
func ContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if t, ok := extraTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// ServeFile writes the file name from fsys. Directories and missing files
// return an error wrapping fs.ErrNotExist; nothing is written in that case.
func ServeFile(w http.ResponseWriter, r *http.Request, fsys fs.FS, name string) error {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	f, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	w.Header().Set("Content-Type", ContentType(name))
	if rs, ok := f.(io.ReadSeeker); ok {
		http.ServeContent(w, r, "", info.ModTime(), rs)
		return nil
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	http.ServeContent(w, r, "", info.ModTime(), bytes.NewReader(data))
	return nil
}

// ServeContent writes inline content as if it were the file name.
func ServeContent(w http.ResponseWriter, r *http.Request, name, content string) {
	w.Header().Set("Content-Type", ContentType(name))
	http.ServeContent(w, r, "", time.Time{}, strings.NewReader(content))
}

// IsNotExist reports whether err means the requested file does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// StatusRecorder wraps a ResponseWriter and remembers the status code.
type StatusRecorder struct {
	http.ResponseWriter
	Status int

	wroteHeader bool
}

// NewStatusRecorder wraps w. The status defaults to 200.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (r *StatusRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *StatusRecorder) Write(p []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(p)
}

// Written reports whether the response has started.
func (r *StatusRecorder) Written() bool { return r.wroteHeader }

// Unwrap supports http.ResponseController.
func (r *StatusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
