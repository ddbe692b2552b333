// ABOUTME: HTTP transport for upstream webhook calls
// ABOUTME: Optionally tunnels through an SSH jumpbox via SOCKS5 (ssh+socks5://user@host:port?private-key=path)

package services

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	proxy "github.com/cloudfoundry/socks5-proxy"
)

// newUpstreamTransport builds the transport used for webhook calls. When allProxy is
// set but unusable the error is returned rather than silently going direct.
func newUpstreamTransport(allProxy string) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = 10 * time.Second

	if allProxy == "" {
		return transport, nil
	}

	dial, err := socks5DialContext(allProxy)
	if err != nil {
		return nil, err
	}
	transport.DialContext = dial
	// The tunnel dialer already picked the route; environment proxies must not override it.
	transport.Proxy = nil

	return transport, nil
}

// socks5DialContext parses allProxy and returns a dial func that lazily opens the SSH tunnel.
func socks5DialContext(allProxy string) (func(ctx context.Context, network, address string) (net.Conn, error), error) {
	proxyURL, err := url.Parse(strings.TrimPrefix(allProxy, "ssh+"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse UPSTREAM_ALL_PROXY: %w", err)
	}
	if proxyURL.Scheme != "socks5" || proxyURL.Host == "" {
		return nil, fmt.Errorf("UPSTREAM_ALL_PROXY must look like ssh+socks5://user@host:port?private-key=/path")
	}

	keyPath := proxyURL.Query().Get("private-key")
	if keyPath == "" {
		return nil, fmt.Errorf("UPSTREAM_ALL_PROXY missing required 'private-key' query param")
	}

	sshKey, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH private key %s: %w", keyPath, err)
	}

	username := ""
	if proxyURL.User != nil {
		username = proxyURL.User.Username()
	}

	socks5Proxy := proxy.NewSocks5Proxy(proxy.NewHostKey(), log.Default(), time.Minute)

	var (
		dialer proxy.DialFunc
		mu     sync.Mutex
	)

	slog.Info("Upstream webhook traffic tunnelled through SOCKS5", "jumpbox", proxyURL.Host)

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		mu.Lock()
		if dialer == nil {
			d, err := socks5Proxy.Dialer(username, string(sshKey), proxyURL.Host)
			if err != nil {
				mu.Unlock()
				return nil, fmt.Errorf("error creating SOCKS5 dialer: %w", err)
			}
			dialer = d
		}
		d := dialer
		mu.Unlock()

		return d(network, address)
	}, nil
}
