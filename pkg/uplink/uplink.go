// Package uplink implements the client side of upstream registry
// federation: per-uplink HTTP clients with circuit-breaker health tracking,
// conditional metadata fetches, streaming tarball downloads and federated
// search against npm-compatible registries.
package uplink

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lukaszraczylo/uplink/pkg/config"
	"github.com/lukaszraczylo/uplink/pkg/errors"
	"github.com/lukaszraczylo/uplink/pkg/interval"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Uplink is a client for a single upstream registry. It is constructed once
// from config at server start and is safe for concurrent use; the health
// tracker holds the only mutable state.
type Uplink struct {
	name      string
	upstream  string // base URL, trailing slash stripped
	config    *config.Uplink
	auth      *config.ParsedAuth
	proxyURL  *url.URL // nil when requests go direct
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	serverID  string

	timeout     time.Duration
	maxAge      time.Duration
	failTimeout time.Duration
	maxFails    int

	health *healthTracker
}

// New builds an uplink client from its parsed configuration. No network I/O
// happens here; the CA bundle, when configured, is read at first request.
func New(name string, cfg config.Uplink, main *config.Main) (*Uplink, error) {
	cfg = config.ApplyUplinkDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeInvalidConfig, "uplink %s", name)
	}

	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeInvalidConfig, "uplink %s url", name)
	}

	timeout, err := parseUplinkInterval(cfg.Timeout)
	if err != nil {
		return nil, err
	}
	warnSuspectTimeout(name, cfg.Timeout)

	maxAge, err := parseUplinkInterval(cfg.MaxAge)
	if err != nil {
		return nil, err
	}
	failTimeout, err := parseUplinkInterval(cfg.FailTimeout)
	if err != nil {
		return nil, err
	}

	auth, err := config.ParseAuth(cfg.Auth)
	if err != nil {
		return nil, err
	}

	var proxyURL *url.URL
	if proxy := selectProxy(parsed.Hostname(), parsed.Scheme, &cfg, main); proxy != "" {
		proxyURL, err = url.Parse(proxy)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeInvalidConfig, "uplink %s proxy url", name)
		}
		log.Debug().
			Str("uplink", name).
			Str("proxy", proxyURL.Redacted()).
			Msg("Using explicit proxy for uplink")
	}

	var transport http.RoundTripper = newTransport(&cfg, proxyURL)
	if cfg.CA != "" {
		transport = &caTransport{inner: transport.(*http.Transport), caPath: cfg.CA}
	}

	var limiter *rate.Limiter
	if cfg.MaxRate > 0 {
		burst := cfg.MaxBurst
		if burst == 0 {
			burst = int(cfg.MaxRate)
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxRate), burst)
	}

	return &Uplink{
		name:        name,
		upstream:    strings.TrimRight(cfg.URL, "/"),
		config:      &cfg,
		auth:        auth,
		proxyURL:    proxyURL,
		client:      &http.Client{Transport: transport},
		limiter:     limiter,
		userAgent:   main.UserAgent,
		serverID:    main.ServerID,
		timeout:     timeout,
		maxAge:      maxAge,
		failTimeout: failTimeout,
		maxFails:    cfg.MaxFails,
		health:      newHealthTracker(name, cfg.MaxFails, failTimeout),
	}, nil
}

// parseUplinkInterval parses a config interval string, keeping the
// BAD_INTERVAL code on failure.
func parseUplinkInterval(raw string) (time.Duration, error) {
	return interval.Parse(raw)
}

// warnSuspectTimeout flags bare-number timeouts of 1000 or more. Values that
// large are almost always seconds that were meant to be milliseconds.
func warnSuspectTimeout(name, raw string) {
	if !interval.IsBareNumber(raw) {
		return
	}
	if ms, err := strconv.ParseFloat(raw, 64); err == nil && ms >= 1000 {
		log.Warn().
			Str("uplink", name).
			Str("timeout", raw).
			Msg("Timeout is a bare number and will be read as milliseconds; append a unit if seconds were intended")
	}
}

// Name returns the logical uplink name
func (u *Uplink) Name() string {
	return u.name
}

// URL returns the stored base URL (no trailing slash)
func (u *Uplink) URL() string {
	return u.upstream
}

// Proxy returns the resolved explicit proxy URL, or "" for direct requests
func (u *Uplink) Proxy() string {
	if u.proxyURL == nil {
		return ""
	}
	return u.proxyURL.String()
}

// MaxAge returns how long cached copies from this uplink stay fresh
func (u *Uplink) MaxAge() time.Duration {
	return u.maxAge
}

// IsOffline reports whether the circuit breaker is currently open
func (u *Uplink) IsOffline() bool {
	return u.health.isOffline()
}

// FailedRequests returns the current consecutive failure count
func (u *Uplink) FailedRequests() int {
	failed, _ := u.health.snapshot()
	return failed
}

// preflight rejects the request without touching the network when the
// breaker is open.
func (u *Uplink) preflight() error {
	if u.health.isOffline() {
		log.Debug().Str("uplink", u.name).Msg("Uplink is offline, rejecting request")
		return errors.UplinkOffline(u.name)
	}
	return nil
}

// issue sends a request through the rate limiter, stamping the health
// tracker's last-request time.
func (u *Uplink) issue(ctx context.Context, req *http.Request) (*http.Response, error) {
	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	u.health.markRequest()
	return u.client.Do(req.WithContext(ctx))
}

// retryableStatus mirrors the set of status codes worth retrying: server
// errors, request timeout, and throttling.
func retryableStatus(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests
}
