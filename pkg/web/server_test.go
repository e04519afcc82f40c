package web

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	listenErr error
	stop      chan struct{}
	shutdown  bool
}

func newFakeServer(listenErr error) *fakeServer {
	return &fakeServer{listenErr: listenErr, stop: make(chan struct{})}
}

func (s *fakeServer) ListenAndServe() error {
	if s.listenErr != nil {
		return s.listenErr
	}
	<-s.stop
	return http.ErrServerClosed
}

func (s *fakeServer) Shutdown(context.Context) error {
	s.shutdown = true
	close(s.stop)
	return nil
}

func TestServerShutsDownOnCancel(t *testing.T) {
	fake := newFakeServer(nil)
	srv := NewServer(fake, time.Second)
	assert.Equal(t, "http-server", srv.String())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	assert.True(t, fake.shutdown)
}

func TestServerListenError(t *testing.T) {
	boom := errors.New("address in use")
	err := NewServer(newFakeServer(boom), 0).Serve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
