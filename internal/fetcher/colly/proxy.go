package collyfetcher

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/proxy"
)

// ProxyConfig points at a SOCKS5 endpoint such as a local Tor daemon. Plain
// and TLS requests may go through different ports.
type ProxyConfig struct {
	Host      string
	HTTPPort  int
	HTTPSPort int
}

// Enabled reports whether requests should be proxied.
func (p ProxyConfig) Enabled() bool {
	return p.Host != ""
}

// URLs returns the socks5 endpoint for plain and TLS traffic.
func (p ProxyConfig) URLs() (string, string) {
	return socksURL(p.Host, p.HTTPPort), socksURL(p.Host, p.HTTPSPort)
}

func socksURL(host string, port int) string {
	return "socks5://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// newProxyFunc routes each request through the endpoint for its scheme.
func newProxyFunc(p ProxyConfig) (colly.ProxyFunc, error) {
	httpURL, httpsURL := p.URLs()
	plain, err := proxy.RoundRobinProxySwitcher(httpURL)
	if err != nil {
		return nil, fmt.Errorf("http proxy %s: %w", httpURL, err)
	}
	secure, err := proxy.RoundRobinProxySwitcher(httpsURL)
	if err != nil {
		return nil, fmt.Errorf("https proxy %s: %w", httpsURL, err)
	}
	return func(req *http.Request) (*url.URL, error) {
		if req.URL != nil && req.URL.Scheme == "https" {
			return secure(req)
		}
		return plain(req)
	}, nil
}
