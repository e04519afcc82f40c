package router

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jerrors "github.com/matzehuels/jenny/pkg/errors"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

func serve(rt *Router, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	rt.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestMountAndMatch(t *testing.T) {
	rt := New(WithLogger(quietLogger()))

	require.NoError(t, rt.Mount(`/npm/bootstrap/5\.3\.3/(.*)`, HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		_, err := w.Write([]byte("file=" + Group(r, 0)))
		return err
	})))
	require.NoError(t, rt.Mount(`/jquery\.js`, HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		_, err := w.Write([]byte("jquery"))
		return err
	})))

	w := serve(rt, "/npm/bootstrap/5.3.3/dist/js/bootstrap.js")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "file=dist/js/bootstrap.js", w.Body.String())

	assert.Equal(t, "jquery", serve(rt, "/jquery.js").Body.String())

	// escaped dot must not match arbitrary characters, and matches are anchored
	assert.Equal(t, http.StatusNotFound, serve(rt, "/jqueryXjs").Code)
	assert.Equal(t, http.StatusNotFound, serve(rt, "/x/jquery.js").Code)
}

func TestMountErrors(t *testing.T) {
	rt := New()
	h := HandlerFunc(func(http.ResponseWriter, *http.Request) error { return nil })

	require.NoError(t, rt.Mount(`/a\.js`, h))
	assert.ErrorIs(t, rt.Mount(`/a\.js`, h), ErrDuplicateRoute)

	err := rt.Mount(`/bad(`, h)
	assert.True(t, jerrors.Is(err, jerrors.ErrCodeConfiguration))
}

func TestUnmount(t *testing.T) {
	rt := New(WithLogger(quietLogger()))
	require.NoError(t, rt.Mount(`/a\.js`, HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		return nil
	})))
	assert.Equal(t, []string{`/a\.js`}, rt.Patterns())

	rt.Unmount(`/a\.js`)
	rt.Unmount(`/a\.js`)
	assert.Empty(t, rt.Patterns())
	assert.Equal(t, http.StatusNotFound, serve(rt, "/a.js").Code)
}

func TestErrorMapping(t *testing.T) {
	var gotStatus int
	rt := New(
		WithLogger(quietLogger()),
		WithErrorHandler(func(w http.ResponseWriter, r *http.Request, status int, err error) {
			gotStatus = status
			w.WriteHeader(status)
		}),
	)

	mount := func(pattern string, err error) {
		require.NoError(t, rt.Mount(pattern, HandlerFunc(func(http.ResponseWriter, *http.Request) error {
			return err
		})))
	}
	mount(`/notfound`, jerrors.New(jerrors.ErrCodeNotFound, "no such resource"))
	mount(`/missing`, &fs.PathError{Op: "open", Path: "x.js", Err: fs.ErrNotExist})
	mount(`/boom`, errors.New("boom"))

	tests := []struct {
		path string
		want int
	}{
		{"/notfound", http.StatusNotFound},
		{"/missing", http.StatusNotFound},
		{"/boom", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serve(rt, tt.path)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.want, gotStatus)
		})
	}
}

func TestErrorAfterPartialWrite(t *testing.T) {
	called := false
	rt := New(
		WithLogger(quietLogger()),
		WithErrorHandler(func(w http.ResponseWriter, r *http.Request, status int, err error) {
			called = true
			http.Error(w, "error page", status)
		}),
	)
	require.NoError(t, rt.Mount(`/partial\.js`, HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		_, _ = io.WriteString(w, "partial()")
		return errors.New("read failed")
	})))

	w := serve(rt, "/partial.js")
	assert.False(t, called, "error page must not follow a started response")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial()", w.Body.String())
}

func TestFallback(t *testing.T) {
	rt := New(WithFallback(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	assert.Equal(t, http.StatusTeapot, serve(rt, "/nothing").Code)
}

func TestGroupOutsideRouter(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", Group(r, 0))

	r = WithGroups(r, "dist/app.js")
	assert.Equal(t, "dist/app.js", Group(r, 0))
	assert.Equal(t, "", Group(r, 1))
}
