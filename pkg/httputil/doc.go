// Package httputil provides the small HTTP helpers shared by module handlers
// and the server.
//
// # Overview
//
//   - [ServeFile] streams a file from an [fs.FS] with a content type derived
//     from its extension, reporting missing files as [fs.ErrNotExist] so the
//     router can answer 404.
//   - [ServeContent] writes inline content the same way.
//   - [StatusRecorder] captures the status code a handler wrote, for request
//     logs and metrics.
//   - [ContentType] maps a resource path to its MIME type, defaulting to
//     application/octet-stream.
package httputil
