package http

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/oshokin/songbook-offline/internal/utils"
)

// ClientConfig configures NewRestyClient.
type ClientConfig struct {
	// Transport is the innermost round tripper; http.DefaultTransport when nil.
	Transport http.RoundTripper
	// UserAgent is injected into requests that do not set one; utils.DefaultUserAgent when empty.
	UserAgent string
	// MaxLogLength limits debug dumps.
	MaxLogLength uint64
	// Timeout bounds a whole request including the body; zero means no limit.
	Timeout time.Duration
}

// NewRestyClient builds a resty client on top of the logging and User-Agent round trippers.
func NewRestyClient(cfg ClientConfig) *resty.Client {
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	userAgentProvider := utils.NewUserAgentProvider(cfg.UserAgent)

	transport := NewUserAgentInjector(
		NewLogTransport(base, cfg.MaxLogLength),
		userAgentProvider,
	)

	// resty fills in its own User-Agent on requests without one.
	return resty.New().
		SetTransport(transport).
		SetHeader(userAgentHeader, userAgentProvider.GetUserAgent()).
		SetTimeout(cfg.Timeout)
}
