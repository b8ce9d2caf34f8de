package telegram

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

var netDialer = net.Dialer{Timeout: 30 * time.Second}

func newHTTPClient(proxyURL string) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL == "" {
		return &http.Client{Transport: transport}, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram proxy: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, &netDialer)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram proxy: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			return nil, fmt.Errorf("telegram proxy dialer does not support contexts")
		}
	default:
		return nil, fmt.Errorf("unsupported telegram proxy scheme %q", u.Scheme)
	}

	return &http.Client{Transport: transport}, nil
}
