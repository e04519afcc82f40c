// Package plugin runs an ordered set of plugins through their lifecycle.
//
// Startup opens every plugin in order, then calls AfterOpen on every plugin
// in the same order. Shutdown calls BeforeClose on every plugin, then Close
// in reverse order, so a plugin is closed before anything it was opened
// after. Closers handed to [Context.AutoClose] are closed right after their
// plugin.
//
// Plugins that implement suture.Service, and services passed to
// [Context.Supervise], run under one supervisor between startup and
// shutdown. A failing service is restarted with backoff; it never takes the
// host down.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Plugin is the minimum a plugin implements.
type Plugin interface {
	Open(ctx *Context) error
}

// AfterOpener runs once every plugin is open.
type AfterOpener interface {
	AfterOpen(ctx *Context) error
}

// BeforeCloser runs before any plugin is closed.
type BeforeCloser interface {
	BeforeClose(ctx *Context)
}

// Context is a plugin's view of the host.
type Context struct {
	host    *Host
	plugin  Plugin
	closers []io.Closer
}

// Logger returns the host logger tagged with the plugin name.
func (c *Context) Logger() *log.Logger {
	return c.host.logger.With("plugin", Name(c.plugin))
}

// AutoClose closes cs, in reverse order, after the plugin itself closes.
func (c *Context) AutoClose(cs ...io.Closer) {
	c.closers = append(c.closers, cs...)
}

// Supervise runs svc under the host supervisor until shutdown.
func (c *Context) Supervise(svc suture.Service) {
	c.host.supervisor.Add(svc)
}

// Host returns the host the plugin belongs to.
func (c *Context) Host() *Host { return c.host }

// Name is a plugin's String method, or its type name.
func Name(p Plugin) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", p)
}

// Options configures a [Host].
type Options struct {
	Logger *log.Logger
	// ShutdownTimeout bounds how long supervised services get to stop.
	ShutdownTimeout time.Duration
}

// Host owns the plugins and the supervisor.
type Host struct {
	logger     *log.Logger
	plugins    []Plugin
	contexts   []*Context
	supervisor *suture.Supervisor
	opened     int
}

// NewHost creates a host for plugins, which are opened in the given order.
func NewHost(opts Options, plugins ...Plugin) *Host {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	handler := &sutureslog.Handler{Logger: slog.New(logger)}
	h := &Host{
		logger:  logger,
		plugins: plugins,
		supervisor: suture.New("jenny", suture.Spec{
			EventHook: handler.MustHook(),
			Timeout:   timeout,
		}),
	}
	for _, p := range plugins {
		h.contexts = append(h.contexts, &Context{host: h, plugin: p})
	}
	return h
}

// Plugins returns the plugins in open order.
func (h *Host) Plugins() []Plugin { return slices.Clone(h.plugins) }

// Find returns the first plugin of type T.
func Find[T any](h *Host) (T, bool) {
	for _, p := range h.plugins {
		if t, ok := p.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// Open opens then after-opens every plugin. If any step fails the plugins
// opened so far are closed again and the error is returned.
func (h *Host) Open() error {
	for i, c := range h.contexts {
		if err := c.plugin.Open(c); err != nil {
			h.closeOpened()
			return fmt.Errorf("open %s: %w", Name(c.plugin), err)
		}
		h.opened = i + 1
		h.logger.Debug("opened plugin", "plugin", Name(c.plugin))
	}
	for _, c := range h.contexts {
		if ao, ok := c.plugin.(AfterOpener); ok {
			if err := ao.AfterOpen(c); err != nil {
				h.closeOpened()
				return fmt.Errorf("after open %s: %w", Name(c.plugin), err)
			}
		}
		if svc, ok := c.plugin.(suture.Service); ok {
			h.supervisor.Add(svc)
		}
	}
	return nil
}

// Run opens the plugins, serves supervised services until ctx is done, then
// closes the plugins.
func (h *Host) Run(ctx context.Context) error {
	if err := h.Open(); err != nil {
		return err
	}
	h.logger.Info("started", "plugins", len(h.plugins))
	err := h.supervisor.Serve(ctx)
	if ctx.Err() != nil || errors.Is(err, suture.ErrTerminateSupervisorTree) {
		err = nil
	}
	return errors.Join(err, h.Close())
}

// Close runs BeforeClose on every open plugin, then closes them in reverse
// order. Close errors are joined; every plugin is closed regardless.
func (h *Host) Close() error {
	return h.closeOpened()
}

func (h *Host) closeOpened() error {
	open := h.contexts[:h.opened]
	h.opened = 0
	for _, c := range open {
		if bc, ok := c.plugin.(BeforeCloser); ok {
			bc.BeforeClose(c)
		}
	}
	var errs []error
	for _, c := range slices.Backward(open) {
		if cl, ok := c.plugin.(io.Closer); ok {
			if err := cl.Close(); err != nil {
				h.logger.Error("close plugin", "plugin", Name(c.plugin), "err", err)
				errs = append(errs, fmt.Errorf("close %s: %w", Name(c.plugin), err))
			}
		}
		for _, cl := range slices.Backward(c.closers) {
			if err := cl.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		c.closers = nil
	}
	return errors.Join(errs...)
}
