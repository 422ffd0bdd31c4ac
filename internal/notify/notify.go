// Package notify tells connected tools (a browser live-reload script, an
// editor plugin) about finished rebuilds by emitting a "build" event on a
// socket.io namespace.
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/vk/assetgraph/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// EventName is the socket.io event emitted after every build.
const EventName = "build"

// Event describes one finished build.
type Event struct {
	OK       bool     `json:"ok"`
	Error    string   `json:"error,omitempty"`
	Changed  []string `json:"changed,omitempty"`
	Outputs  []string `json:"outputs,omitempty"`
	Duration string   `json:"duration"`
}

// Publisher sends build events.
type Publisher interface {
	Publish(ctx context.Context, ev *Event) error
	Close() error
}

// Options tunes Dial.
type Options struct {
	// MaxTries bounds connection attempts. Zero means 5.
	MaxTries uint
	// InitialInterval is the first retry delay. Zero means 250ms.
	InitialInterval time.Duration
	// ConnectTimeout bounds each attempt. Zero means 5s.
	ConnectTimeout     time.Duration
	InsecureSkipVerify bool
}

// Client is a Publisher backed by a socket.io connection.
type Client struct {
	io *socket.Socket
}

// Dial connects to a socket.io server. The URL path selects the namespace:
// "http://localhost:3000/assets" publishes on "/assets". Failed attempts are
// retried with exponential backoff.
func Dial(ctx context.Context, rawURL string, opts Options) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notify URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("notify URL %q must be absolute", rawURL)
	}
	namespace := parsedURL.Path
	if namespace == "" {
		namespace = "/"
	}

	if opts.MaxTries == 0 {
		opts.MaxTries = 5
	}
	if opts.InitialInterval == 0 {
		opts.InitialInterval = 250 * time.Millisecond
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.InitialInterval

	attempt := 0
	io, err := backoff.Retry(ctx, func() (*socket.Socket, error) {
		attempt++
		logger.Debug("Connecting to notify server...", "attempt", attempt)
		return connect(ctx, parsedURL, namespace, opts)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(opts.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("Notify connection failed, retrying.", "error", err, "retryIn", next)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to notify server after %d attempts: %w", attempt, err)
	}

	logger.Info("Connected to notify server.", "sid", io.Id(), "namespace", namespace)
	return &Client{io: io}, nil
}

// connect makes one connection attempt.
func connect(ctx context.Context, u *url.URL, namespace string, opts Options) (*socket.Socket, error) {
	sockOpts := socket.DefaultOptions()
	if opts.InsecureSkipVerify {
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(namespace, sockOpts)

	io.Once(types.EventName("connect"), func(...any) {
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		connectChan <- connectError(errs)
	})
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return io, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, backoff.Permanent(ctx.Err())
	case <-time.After(opts.ConnectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", opts.ConnectTimeout)
	}
}

// connectError turns the arguments of a connect_error event into an error.
func connectError(args []any) error {
	if len(args) == 0 {
		return errors.New("connection refused without a reason")
	}
	if err, ok := args[0].(error); ok && err != nil {
		return err
	}
	return fmt.Errorf("%v", args[0])
}

// Publish emits a build event.
func (c *Client) Publish(ctx context.Context, ev *Event) error {
	if !c.io.Connected() {
		return errors.New("notify client is not connected")
	}
	ctxlog.FromContext(ctx).Debug("Publishing build event.", "ok", ev.OK, "sid", c.io.Id())
	c.io.Emit(EventName, ev)
	return nil
}

// Close disconnects from the server.
func (c *Client) Close() error {
	c.io.Disconnect()
	return nil
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, *Event) error { return nil }

func (Discard) Close() error { return nil }
