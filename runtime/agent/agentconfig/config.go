// Package agentconfig exposes the runtime's tunables as a single Config value
// built with functional options, the same construction pattern the executor
// and confirmation packages use for their own option sets. The runtime is a
// library embedded into a host application, not a standalone service, so
// configuration is supplied by the embedder in code rather than loaded from
// an external file format.
package agentconfig

import "time"

// Config collects every tunable named in the external-interfaces
// configuration table. Zero value is invalid; use New to obtain a value with
// defaults applied.
type Config struct {
	// AgentTimeout bounds the active-execution time of one run.
	AgentTimeout time.Duration
	// AgentStateTTL is the cache lifetime of a persisted AgentState.
	AgentStateTTL time.Duration
	// AgentRunLockTTL is the run lock's TTL and crash-detection heartbeat period.
	AgentRunLockTTL time.Duration
	// CancellationSignalTTL is the cancellation channel signal's TTL. Must be >= AgentRunLockTTL.
	CancellationSignalTTL time.Duration
	// CancellationPollInterval is the cooperative poll period for the cancellation channel.
	CancellationPollInterval time.Duration
	// AgentDownloadURLExpiry is the lifetime of a signed blob download URL minted on resume.
	AgentDownloadURLExpiry time.Duration
	// OutputValidationMaxRetries bounds structured-output validation retries.
	OutputValidationMaxRetries int
}

// Option mutates a Config at construction time.
type Option func(*Config)

// WithAgentTimeout overrides the active-execution timeout.
func WithAgentTimeout(d time.Duration) Option { return func(c *Config) { c.AgentTimeout = d } }

// WithStateTTL overrides the AgentState cache TTL.
func WithStateTTL(d time.Duration) Option { return func(c *Config) { c.AgentStateTTL = d } }

// WithRunLockTTL overrides the run lock TTL.
func WithRunLockTTL(d time.Duration) Option { return func(c *Config) { c.AgentRunLockTTL = d } }

// WithCancellationSignalTTL overrides the cancellation signal TTL.
func WithCancellationSignalTTL(d time.Duration) Option {
	return func(c *Config) { c.CancellationSignalTTL = d }
}

// WithCancellationPollInterval overrides the cooperative poll period.
func WithCancellationPollInterval(d time.Duration) Option {
	return func(c *Config) { c.CancellationPollInterval = d }
}

// WithDownloadURLExpiry overrides the signed blob URL lifetime.
func WithDownloadURLExpiry(d time.Duration) Option {
	return func(c *Config) { c.AgentDownloadURLExpiry = d }
}

// WithOutputValidationMaxRetries overrides the structured-output retry cap.
func WithOutputValidationMaxRetries(n int) Option {
	return func(c *Config) { c.OutputValidationMaxRetries = n }
}

// New builds a Config with the documented defaults applied, then overridden
// by opts in order.
func New(opts ...Option) Config {
	c := Config{
		AgentTimeout:               5 * time.Minute,
		AgentStateTTL:              24 * time.Hour,
		AgentRunLockTTL:            10 * time.Minute,
		CancellationSignalTTL:      10 * time.Minute,
		CancellationPollInterval:   2 * time.Second,
		AgentDownloadURLExpiry:     time.Hour,
		OutputValidationMaxRetries: 3,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
