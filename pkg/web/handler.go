package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/jenny/pkg/httputil"
)

// Middleware opens a render scope for each request.
func (w *Web) Middleware(next http.Handler) http.Handler {
	return RenderContext(w.contextPath)(next)
}

// Handler returns the HTTP handler of the whole application: the built-in
// pages, health and metrics endpoints, and every mounted module. Requests
// nothing matches get the 404 page.
func (w *Web) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(w.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(w.Middleware)

	r.Get("/", func(rw http.ResponseWriter, req *http.Request) {
		http.Redirect(rw, req, w.contextPath+"/index.html", http.StatusMovedPermanently)
	})
	r.Get("/index.html", w.Page("index.html", nil))
	r.Get("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = rw.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	w.mu.RLock()
	for _, rt := range w.routes {
		r.Handle(rt.pattern, rt.handler)
	}
	w.mu.RUnlock()

	r.NotFound(w.router.ServeHTTP)
	return r
}

// Page returns a handler rendering the page template name. data, if not
// nil, supplies the template's Data for each request.
func (w *Web) Page(name string, data func(*http.Request) any) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var d any
		if data != nil {
			d = data(r)
		}
		w.writePage(rw, r, name, http.StatusOK, d)
	}
}

func (w *Web) writePage(rw http.ResponseWriter, r *http.Request, name string, status int, data any) {
	html, err := w.RenderPage(r.Context(), name, data)
	if err != nil {
		w.logger.Error("render failed", "page", name, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "err", err)
		w.writeError(rw, r)
		return
	}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.WriteHeader(status)
	_, _ = rw.Write([]byte(html))
}

func (w *Web) serveNotFound(rw http.ResponseWriter, r *http.Request) {
	w.writePage(rw, r, "404.html", http.StatusNotFound, nil)
}

func (w *Web) routeError(rw http.ResponseWriter, r *http.Request, status int, _ error) {
	if status == http.StatusNotFound {
		w.serveNotFound(rw, r)
		return
	}
	w.writeError(rw, r)
}

// writeError writes the 500 page. It runs no pipeline, so it works even
// when rendering is what failed.
func (w *Web) writeError(rw http.ResponseWriter, r *http.Request) {
	page := &Page{Name: "500.html", Vars: w.vars(r.Context(), Scope{Page: "500.html", Tx: TxFrom(r.Context())})}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.WriteHeader(http.StatusInternalServerError)
	if err := w.templates.Render(rw, "500.html", page); err != nil {
		w.logger.Error("render error page", "err", err)
	}
}

func (w *Web) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := httputil.NewStatusRecorder(rw)
		next.ServeHTTP(rec, r)
		w.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.Status,
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
