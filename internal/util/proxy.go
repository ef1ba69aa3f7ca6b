package util

import (
	"net/http"
	"net/url"
	"time"
)

// NewProxyFunc picks a proxy per request scheme. Without explicit proxy
// URLs it defers to HTTP_PROXY / HTTPS_PROXY / NO_PROXY.
func NewProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// NewHTTPClient returns a client with its own transport and the given
// proxy settings. A zero timeout leaves deadlines to the request context.
func NewHTTPClient(timeout time.Duration, httpProxy, httpsProxy string) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = NewProxyFunc(httpProxy, httpsProxy)
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
