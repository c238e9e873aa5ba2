package uplink

import (
	"testing"

	"github.com/lukaszraczylo/uplink/pkg/config"
	"github.com/stretchr/testify/assert"
)

// TestSelectProxy tests explicit proxy resolution with no_proxy matching
func TestSelectProxy(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		scheme   string
		up       config.Uplink
		main     config.Main
		want     string
	}{
		// GOOD: No proxy configured anywhere
		{
			name:     "no proxy configured",
			hostname: "registry.npmjs.org",
			scheme:   "https",
			want:     "",
		},
		// GOOD: Uplink proxy wins over main
		{
			name:     "uplink proxy preferred",
			hostname: "registry.npmjs.org",
			scheme:   "https",
			up:       config.Uplink{HTTPSProxy: "http://uplink-proxy:8080"},
			main:     config.Main{HTTPSProxy: "http://main-proxy:8080"},
			want:     "http://uplink-proxy:8080",
		},
		// GOOD: Main proxy as fallback
		{
			name:     "main proxy fallback",
			hostname: "registry.npmjs.org",
			scheme:   "https",
			main:     config.Main{HTTPSProxy: "http://main-proxy:8080"},
			want:     "http://main-proxy:8080",
		},
		// GOOD: Scheme selects the proxy variable
		{
			name:     "http scheme uses http_proxy",
			hostname: "registry.internal",
			scheme:   "http",
			up:       config.Uplink{HTTPProxy: "http://plain-proxy:3128", HTTPSProxy: "http://tls-proxy:3128"},
			want:     "http://plain-proxy:3128",
		},
		// GOOD: no_proxy suffix match clears the proxy
		{
			name:     "no_proxy dotted suffix",
			hostname: "pkg.example.com",
			scheme:   "https",
			up:       config.Uplink{HTTPSProxy: "http://corp:8080", NoProxy: ".example.com"},
			want:     "",
		},
		// GOOD: no_proxy entry without leading dot still matches
		{
			name:     "no_proxy bare suffix",
			hostname: "pkg.example.com",
			scheme:   "https",
			up:       config.Uplink{HTTPSProxy: "http://corp:8080", NoProxy: "example.com"},
			want:     "",
		},
		// GOOD: Exact hostname match
		{
			name:     "no_proxy exact host",
			hostname: "pkg.example.com",
			scheme:   "https",
			up:       config.Uplink{HTTPSProxy: "http://corp:8080", NoProxy: "pkg.example.com"},
			want:     "",
		},
		// WRONG: Non-matching entry leaves the proxy in place
		{
			name:     "no_proxy miss",
			hostname: "registry.npmjs.org",
			scheme:   "https",
			up:       config.Uplink{HTTPSProxy: "http://corp:8080", NoProxy: ".example.com"},
			want:     "http://corp:8080",
		},
		// WRONG: Partial label must not match
		{
			name:     "no_proxy must match on label boundary",
			hostname: "notexample.com",
			scheme:   "https",
			up:       config.Uplink{HTTPSProxy: "http://corp:8080", NoProxy: "example.com"},
			want:     "http://corp:8080",
		},
		// GOOD: Comma-separated list, second entry matches
		{
			name:     "no_proxy list",
			hostname: "pkg.example.com",
			scheme:   "https",
			up:       config.Uplink{HTTPSProxy: "http://corp:8080", NoProxy: "internal.local, example.com"},
			want:     "",
		},
		// GOOD: Uplink no_proxy shadows main no_proxy
		{
			name:     "uplink no_proxy preferred",
			hostname: "pkg.example.com",
			scheme:   "https",
			up:       config.Uplink{HTTPSProxy: "http://corp:8080", NoProxy: "other.org"},
			main:     config.Main{NoProxy: "example.com"},
			want:     "http://corp:8080",
		},
		// EDGE: List form from YAML
		{
			name:     "no_proxy slice form",
			hostname: "pkg.example.com",
			scheme:   "https",
			up:       config.Uplink{HTTPSProxy: "http://corp:8080", NoProxy: []interface{}{"example.com"}},
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectProxy(tt.hostname, tt.scheme, &tt.up, &tt.main)
			assert.Equal(t, tt.want, got)
		})
	}
}
