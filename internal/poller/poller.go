// Package poller implements the viewer's polling client: a single
// cooperative loop that asks the server for new content with the last
// known fingerprint and renders only fresh content.
//
// The browser client embedded in package web follows the same state
// machine; this package makes it usable from the terminal and testable.
package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/ariel/internal/version"
)

// DefaultInterval is the delay between two polls.
const DefaultInterval = time.Second

// ErrUnexpectedStatus is wrapped by errors for responses other than 200,
// 304 and 404.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Status is the connection indicator shown to the user.
type Status int

// Statuses.
const (
	StatusConnecting Status = iota
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of one poll iteration.
type Result int

// Poll results.
const (
	ResultFresh Result = iota
	ResultNotModified
	ResultNotFound
	ResultTransportError
	ResultRenderError
)

func (r Result) String() string {
	switch r {
	case ResultFresh:
		return "fresh"
	case ResultNotModified:
		return "not_modified"
	case ResultNotFound:
		return "not_found"
	case ResultTransportError:
		return "transport_error"
	case ResultRenderError:
		return "render_error"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Renderer turns diagram source into a visible artifact. Render must
// return only after rendering finished.
type Renderer interface {
	Render(ctx context.Context, src []byte) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, src []byte) error

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, src []byte) error { return f(ctx, src) }

// State is a snapshot of the client after a poll.
type State struct {
	Status Status

	// Fingerprint belongs to the last successfully rendered content.
	Fingerprint string

	// LastResult is the result of the most recent poll.
	LastResult Result

	// Err describes the most recent failure while Status is StatusError.
	Err error

	// Polls counts completed iterations.
	Polls int
}

// Options configures a Client.
type Options struct {
	// Interval is the delay between the end of one poll and the start of
	// the next.
	Interval time.Duration

	// HTTPClient performs requests. Defaults to a client without timeout.
	HTTPClient *http.Client

	// OnUpdate is called after every poll with the new state. Optional.
	OnUpdate func(State)

	// Logger is used for structured logging.
	Logger *slog.Logger
}

// Client polls one content URL.
type Client struct {
	url      string
	renderer Renderer
	opts     Options

	mu    sync.Mutex
	state State
}

// New returns a Client polling url and rendering with r.
func New(url string, r Renderer, opts Options) *Client {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		url:      url,
		renderer: r,
		opts:     opts,
		state:    State{Status: StatusConnecting},
	}
}

// State returns the current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Run polls until ctx is cancelled. The next poll is scheduled only after
// the previous one, including rendering, has completed. Failures never stop
// the loop and there is no backoff.
func (c *Client) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		c.Poll(ctx)

		timer.Reset(c.opts.Interval)
	}
}

// Poll performs one iteration of the state machine and returns the new
// state.
func (c *Client) Poll(ctx context.Context) State {
	c.mu.Lock()
	fingerprint := c.state.Fingerprint
	c.mu.Unlock()

	result, newFingerprint, err := c.fetchAndRender(ctx, fingerprint)

	c.mu.Lock()
	c.state.LastResult = result
	c.state.Polls++

	switch result {
	case ResultFresh:
		c.state.Fingerprint = newFingerprint
		c.state.Status = StatusConnected
		c.state.Err = nil
	case ResultNotModified:
		c.state.Status = StatusConnected
		c.state.Err = nil
	default:
		c.state.Status = StatusError
		c.state.Err = err
	}

	state := c.state
	c.mu.Unlock()

	if err != nil {
		c.opts.Logger.Debug("poll failed",
			slog.String("result", result.String()),
			slog.String("error", err.Error()),
		)
	}

	if c.opts.OnUpdate != nil {
		c.opts.OnUpdate(state)
	}

	return state
}

func (c *Client) fetchAndRender(ctx context.Context, fingerprint string) (Result, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return ResultTransportError, "", fmt.Errorf("building request: %w", err)
	}

	if fingerprint != "" {
		req.Header.Set("If-None-Match", `"`+fingerprint+`"`)
	}

	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return ResultTransportError, "", fmt.Errorf("failed to fetch diagram: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ResultTransportError, "", fmt.Errorf("failed to read diagram: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusNotModified:
		return ResultNotModified, "", nil

	case http.StatusOK:
		next := unquoteETag(resp.Header.Get("ETag"))

		if err := c.renderer.Render(ctx, body); err != nil {
			return ResultRenderError, "", fmt.Errorf("failed to render diagram: %w", err)
		}

		return ResultFresh, next, nil

	case http.StatusNotFound:
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}

		return ResultNotFound, "", errors.New(msg)

	default:
		return ResultTransportError, "", fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
}

// unquoteETag strips the weak prefix and quotes from an entity tag.
func unquoteETag(etag string) string {
	etag = strings.TrimSpace(etag)
	etag = strings.TrimPrefix(etag, "W/")

	return strings.Trim(etag, `"`)
}
