package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	jerrors "github.com/matzehuels/jenny/pkg/errors"
)

func TestCacheHooks(t *testing.T) {
	ctx := context.Background()
	h := Hooks{}

	before := testutil.ToFloat64(cacheOps.WithLabelValues("pkg", "hit"))
	h.OnCacheHit(ctx, "pkg")
	h.OnCacheHit(ctx, "pkg")
	assert.Equal(t, before+2, testutil.ToFloat64(cacheOps.WithLabelValues("pkg", "hit")))

	before = testutil.ToFloat64(cacheOps.WithLabelValues("files", "miss"))
	h.OnCacheMiss(ctx, "files")
	assert.Equal(t, before+1, testutil.ToFloat64(cacheOps.WithLabelValues("files", "miss")))
}

func TestMountGauge(t *testing.T) {
	h := Hooks{}
	before := testutil.ToFloat64(mountedModules)
	h.OnMount("jquery", `/jquery\.js`)
	h.OnMount("bootstrap", `/bootstrap/(.*)`)
	h.OnUnmount("jquery", `/jquery\.js`)
	assert.Equal(t, before+1, testutil.ToFloat64(mountedModules))
}

func TestResolveErrorsByCode(t *testing.T) {
	h := Hooks{}
	cycle := &jerrors.CycleError{Members: []string{"a", "b"}}

	before := testutil.ToFloat64(resolveErrors.WithLabelValues("CYCLE"))
	h.OnResolve(context.Background(), 1, 0, time.Millisecond, cycle)
	h.OnResolve(context.Background(), 1, 1, time.Millisecond, nil)
	assert.Equal(t, before+1, testutil.ToFloat64(resolveErrors.WithLabelValues("CYCLE")))

	assert.Equal(t, "other", errorKind(errors.New("boom")))
}

func TestServeAndUpstream(t *testing.T) {
	ctx := context.Background()
	h := Hooks{}

	before := testutil.ToFloat64(moduleRequests.WithLabelValues("bootstrap", "404"))
	h.OnServe(ctx, "bootstrap", 404, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(moduleRequests.WithLabelValues("bootstrap", "404")))

	before = testutil.ToFloat64(upstreamRequests.WithLabelValues("registry.npmjs.org", "error"))
	h.OnError(ctx, "GET", "registry.npmjs.org", "/jquery", errors.New("timeout"))
	assert.Equal(t, before+1, testutil.ToFloat64(upstreamRequests.WithLabelValues("registry.npmjs.org", "error")))
}
