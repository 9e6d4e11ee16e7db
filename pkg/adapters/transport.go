package adapters

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// NewHTTPClient returns an http.Client with a hard timeout. A non-empty proxyURL
// routes traffic through an http(s) or socks5 proxy; an empty one bypasses any
// proxy from the environment.
func NewHTTPClient(timeout time.Duration, proxyURL string) (*http.Client, error) {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("default transport is not *http.Transport")
	}
	cloned := transport.Clone()
	cloned.Proxy = nil

	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		switch u.Scheme {
		case "http", "https":
			cloned.Proxy = http.ProxyURL(u)
		case "socks5", "socks":
			u.Scheme = "socks5"
			dialer, err := proxy.FromURL(u, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("invalid socks proxy: %w", err)
			}
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				cloned.DialContext = cd.DialContext
			} else {
				cloned.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
					return dialer.Dial(network, addr)
				}
			}
		default:
			return nil, fmt.Errorf("unsupported proxy scheme: %s", u.Scheme)
		}
	}

	return &http.Client{Transport: cloned, Timeout: timeout}, nil
}
