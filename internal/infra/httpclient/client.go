// Package httpclient builds the outbound HTTP client shared by provider adapters.
package httpclient

import (
	"net"
	"net/http"

	"github.com/devmob/onboard/internal/infra/config"
)

// UserAgent is sent on every outbound request that does not set its own.
const UserAgent = "onboard-bot/1.0"

// New returns a client tuned for a handful of long-running completion calls.
func New(cfg config.HTTPClientConfig) *http.Client {
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: cfg.KeepAlive,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &http.Client{
		Transport: &userAgentTransport{next: base},
		Timeout:   cfg.ResponseTimeout,
	}
}

type userAgentTransport struct {
	next http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	// RoundTrip must not modify the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", UserAgent)
	return t.next.RoundTrip(clone)
}
