// Package httpc builds HTTP clients for talking to devices on the
// installation LAN. Trackers answer in milliseconds, so timeouts are short.
package httpc

import (
	"net"
	"net/http"
	"time"
)

// Default timeouts for LAN requests.
const (
	DefaultTimeout         = 2 * time.Second
	DefaultConnectTimeout  = 500 * time.Millisecond
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
)

// NewClient creates a new HTTP client with the specified overall timeout,
// or DefaultTimeout when timeout is not positive. Connections are kept
// alive since pollers hit the same host every tick.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: DefaultKeepAlive,
			}).DialContext,
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     DefaultIdleConnTimeout,
		},
	}
}
