package server

import (
	"net"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient is an interface for making HTTP requests
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const connectTimeout = 10 * time.Second

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// NewHTTPClient creates the shared outbound client. Only the connect phase is
// bounded; the overall request deadline stays open because conversation
// responses are long-lived SSE streams. proxyURL may use the http, https or
// socks5 scheme; nil means direct connections.
func NewHTTPClient(proxyURL *url.URL) HTTPClient {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		ForceAttemptHTTP2: true,
	}
	if proxyURL != nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{Transport: transport}
}

// setCommonHeaders applies the browser header set the anonymous backend
// expects on both the requirements and conversation endpoints.
func setCommonHeaders(req *http.Request) {
	req.Header.Set("accept", "*/*")
	req.Header.Set("accept-language", "en")
	req.Header.Set("cache-control", "no-cache")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("oai-language", "en-US")
	req.Header.Set("origin", "https://chat.openai.com")
	req.Header.Set("pragma", "no-cache")
	req.Header.Set("priority", "u=1, i")
	req.Header.Set("referer", "https://chat.openai.com/")
	req.Header.Set("sec-ch-ua", `"Google Chrome"; v="123", "Not:A-Brand"; v="8", "Chromium"; v="123"`)
	req.Header.Set("sec-ch-ua-mobile", "?0")
	req.Header.Set("sec-ch-ua-platform", `"Windows"`)
	req.Header.Set("sec-fetch-dest", "empty")
	req.Header.Set("sec-fetch-mode", "cors")
	req.Header.Set("sec-fetch-site", "same-origin")
	req.Header.Set("user-agent", browserUserAgent)
}
