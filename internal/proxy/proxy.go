package proxy

import (
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/atomic"

	"github.com/williampepple1/isr-cache-warmer/internal/config"
)

// Manager routes warm requests through the configured proxies
type Manager struct {
	proxies []*url.URL
	rotate  bool
	next    *atomic.Uint64
}

// NewManager parses the proxy list up front. It returns nil when proxies are
// disabled or none are configured.
func NewManager(cfg *config.ProxyConfig) (*Manager, error) {
	if !cfg.Enabled || len(cfg.List) == 0 {
		return nil, nil
	}

	proxies := make([]*url.URL, 0, len(cfg.List))
	for _, raw := range cfg.List {
		proxyURL, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url %q: %w", raw, err)
		}
		if cfg.Auth.Username != "" && cfg.Auth.Password != "" {
			proxyURL.User = url.UserPassword(cfg.Auth.Username, cfg.Auth.Password)
		}
		proxies = append(proxies, proxyURL)
	}

	return &Manager{
		proxies: proxies,
		rotate:  cfg.Rotate,
		next:    atomic.NewUint64(0),
	}, nil
}

// Pick returns the proxy for the next request, round robin when rotation is on.
func (m *Manager) Pick() *url.URL {
	if !m.rotate || len(m.proxies) == 1 {
		return m.proxies[0]
	}
	n := m.next.Inc() - 1
	return m.proxies[n%uint64(len(m.proxies))]
}

// ApplyToTransport makes transport pick a proxy per request.
func (m *Manager) ApplyToTransport(transport *http.Transport) {
	transport.Proxy = func(*http.Request) (*url.URL, error) {
		return m.Pick(), nil
	}
}
