package sdk

import (
	"log/slog"
	"net/http"
	"time"
)

type options struct {
	httpClient     *http.Client
	attemptTimeout time.Duration
	writePolicy    RetryPolicy
	readPolicy     RetryPolicy
	logger         *slog.Logger
	actorID        string
	tool           string
}

func defaultOptions() options {
	return options{
		httpClient:     http.DefaultClient,
		attemptTimeout: 15 * time.Second,
		writePolicy:    WritePolicy(),
		readPolicy:     ReadPolicy(),
		logger:         slog.Default(),
		actorID:        "routekit",
		tool:           "routekit",
	}
}

// Option configures the client.
type Option func(*options)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithAttemptTimeout sets the timeout applied to each individual attempt.
// It never bounds the whole retrying call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *options) { o.attemptTimeout = d }
}

// WithWritePolicy overrides the retry policy used for mutation calls.
func WithWritePolicy(p RetryPolicy) Option {
	return func(o *options) { o.writePolicy = p }
}

// WithReadPolicy overrides the retry policy used for reads.
func WithReadPolicy(p RetryPolicy) Option {
	return func(o *options) { o.readPolicy = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithActor sets the default actor id used when a caller supplies none.
func WithActor(id string) Option {
	return func(o *options) { o.actorID = id }
}

// WithTool sets the tool name reported on change proposals.
func WithTool(name string) Option {
	return func(o *options) { o.tool = name }
}
