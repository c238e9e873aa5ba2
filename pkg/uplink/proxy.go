package uplink

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lukaszraczylo/uplink/pkg/config"
	"github.com/lukaszraczylo/uplink/pkg/errors"
	"github.com/rs/zerolog/log"
)

// selectProxy resolves the explicit proxy URL for a target hostname. Uplink
// settings win over main-config fallbacks; a no_proxy suffix match clears
// the proxy entirely.
func selectProxy(hostname, scheme string, up *config.Uplink, main *config.Main) string {
	var proxy string
	if scheme == "https" {
		proxy = firstNonEmpty(up.HTTPSProxy, main.HTTPSProxy)
	} else {
		proxy = firstNonEmpty(up.HTTPProxy, main.HTTPProxy)
	}
	if proxy == "" {
		return ""
	}

	noProxy := up.NoProxy
	if noProxy == nil {
		noProxy = main.NoProxy
	}

	host := hostname
	if !strings.HasPrefix(host, ".") {
		host = "." + host
	}

	for _, entry := range config.NoProxyList(noProxy) {
		if !strings.HasPrefix(entry, ".") {
			entry = "." + entry
		}
		if strings.HasSuffix(host, entry) {
			log.Debug().
				Str("hostname", hostname).
				Str("no_proxy", entry).
				Msg("Proxy disabled by no_proxy match")
			return ""
		}
	}

	return proxy
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// newTransport builds the keep-alive transport for an uplink. When a proxy
// URL is given, all requests traverse it instead of going direct.
func newTransport(cfg *config.Uplink, proxyURL *url.URL) *http.Transport {
	keepAlive := true
	if cfg.AgentOptions.KeepAlive != nil {
		keepAlive = *cfg.AgentOptions.KeepAlive
	}
	strictSSL := true
	if cfg.StrictSSL != nil {
		strictSSL = *cfg.StrictSSL
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.AgentOptions.MaxSockets,
		MaxIdleConnsPerHost: cfg.AgentOptions.MaxFreeSockets,
		MaxConnsPerHost:     cfg.AgentOptions.MaxSockets,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   !keepAlive,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !strictSSL, // #nosec G402 -- Governed by strict_ssl config
		},
	}
	if proxyURL != nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return transport
}

// caTransport defers reading the CA bundle until the first request is
// issued. The read happens once; later requests reuse the parsed pool.
type caTransport struct {
	inner  *http.Transport
	caPath string
	once   sync.Once
	err    error
}

func (t *caTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.once.Do(func() {
		pem, err := os.ReadFile(t.caPath)
		if err != nil {
			t.err = errors.Wrapf(err, errors.ErrCodeInvalidConfig, "cannot read ca bundle %s", t.caPath)
			return
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			t.err = errors.Newf(errors.ErrCodeInvalidConfig, "no certificates found in ca bundle %s", t.caPath)
			return
		}
		t.inner.TLSClientConfig.RootCAs = pool
	})
	if t.err != nil {
		return nil, t.err
	}
	return t.inner.RoundTrip(req)
}
