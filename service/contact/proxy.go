package contact

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/net/proxy"

	"alert-webhook-relay/config"
)

// NewHTTPClient returns the client used for provider calls. Every call is
// bounded by cfg.SendTimeout and goes through the configured proxy, if any.
func NewHTTPClient(cfg *config.Config) (*http.Client, error) {
	client := &http.Client{
		Timeout: cfg.SendTimeout,
	}

	if cfg.ProxyURL != "" {
		transport, err := createProxyTransport(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create proxy transport: %w", err)
		}
		client.Transport = transport
	}

	return client, nil
}

func createProxyTransport(cfg *config.Config) (*http.Transport, error) {
	proxyURL, err := url.Parse(cfg.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL '%s': %w", cfg.ProxyURL, err)
	}

	if cfg.ProxyType == "socks5" {
		var auth *proxy.Auth
		if cfg.ProxyUser != "" && cfg.ProxyPass != "" {
			auth = &proxy.Auth{
				User:     cfg.ProxyUser,
				Password: string(cfg.ProxyPass),
			}
		}

		dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}

		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return &http.Transport{DialContext: cd.DialContext}, nil
		}
		return &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}, nil
	}

	if cfg.ProxyUser != "" && cfg.ProxyPass != "" {
		proxyURL.User = url.UserPassword(cfg.ProxyUser, string(cfg.ProxyPass))
	}

	return &http.Transport{
		Proxy: http.ProxyURL(proxyURL),
	}, nil
}
