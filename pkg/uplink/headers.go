package uplink

import (
	"net/http"
)

const (
	headerAccept        = "Accept"
	headerEncoding      = "Accept-Encoding"
	headerUserAgent     = "User-Agent"
	headerAuthorization = "Authorization"
	headerVia           = "Via"
	headerForwardedFor  = "X-Forwarded-For"
	headerIfNoneMatch   = "If-None-Match"
	headerETag          = "ETag"

	acceptJSON = "application/json;"
	viaProduct = "Verdaccio"
)

// headerOptions carries the caller-supplied pieces of an outgoing request
type headerOptions struct {
	etag          string
	remoteAddress string
	headers       http.Header // incoming request headers to forward
	includeAuth   bool
}

// buildHeaders assembles the outgoing header set: base headers unless the
// caller already set them, auth injection, verbatim config overrides, the
// ETag clamp, and the forwarding rules (Via chain, conditional
// X-Forwarded-For).
func (u *Uplink) buildHeaders(opts headerOptions) (http.Header, error) {
	h := make(http.Header)
	for key, values := range opts.headers {
		for _, v := range values {
			h.Add(key, v)
		}
	}

	setUnlessExists(h, headerAccept, acceptJSON)
	setUnlessExists(h, headerEncoding, "gzip")
	setUnlessExists(h, headerUserAgent, "npm ("+u.userAgent+")")

	if opts.includeAuth && u.auth != nil && h.Get(headerAuthorization) == "" {
		value, err := u.auth.Resolve(u.name)
		if err != nil {
			return nil, err
		}
		h.Set(headerAuthorization, value)
	}

	// Config header overrides are applied verbatim and may replace anything
	// set so far, including Authorization.
	for key, value := range u.config.Headers {
		h.Set(key, value)
	}

	// The conditional-request pair cannot be overridden.
	if opts.etag != "" {
		h.Set(headerIfNoneMatch, opts.etag)
		h.Set(headerAccept, acceptJSON)
	}

	u.applyForwardingHeaders(h, opts.remoteAddress)

	return h, nil
}

// applyForwardingHeaders appends this hop to the Via chain and, when no
// explicit proxy is in play, records the client address in X-Forwarded-For.
func (u *Uplink) applyForwardingHeaders(h http.Header, remoteAddress string) {
	via := "1.1 " + u.serverID + " (" + viaProduct + ")"
	if prev := h.Get(headerVia); prev != "" {
		via = prev + ", " + via
	}
	h.Set(headerVia, via)

	if u.proxyURL == nil && remoteAddress != "" {
		forwarded := remoteAddress
		if prev := h.Get(headerForwardedFor); prev != "" {
			forwarded = prev + ", " + remoteAddress
		}
		h.Set(headerForwardedFor, forwarded)
	}
}

func setUnlessExists(h http.Header, key, value string) {
	if h.Get(key) == "" {
		h.Set(key, value)
	}
}
