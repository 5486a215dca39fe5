package utils

//go:generate $MOCKGEN -source=user_agent_provider.go -destination=mocks/user_agent_provider_mock.go

import (
	"fmt"
	"strings"

	"github.com/oshokin/songbook-offline/internal/version"
)

const (
	userAgentProduct  = "songbook-offline"
	userAgentHomepage = "https://github.com/oshokin/songbook-offline"
)

// UserAgentProvider supplies the User-Agent of outgoing catalog and asset requests.
type UserAgentProvider interface {
	// GetUserAgent returns a User-Agent string.
	GetUserAgent() string
}

// StaticUserAgentProvider returns the same User-Agent for every request.
type StaticUserAgentProvider struct {
	userAgent string
}

// NewUserAgentProvider returns a provider of userAgent, or of DefaultUserAgent when userAgent is blank.
func NewUserAgentProvider(userAgent string) *StaticUserAgentProvider {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent()
	}

	return &StaticUserAgentProvider{userAgent: userAgent}
}

// GetUserAgent returns the configured User-Agent.
func (p *StaticUserAgentProvider) GetUserAgent() string {
	return p.userAgent
}

// DefaultUserAgent identifies the application and its version, e.g. "songbook-offline/0.1.0 (+https://...)".
func DefaultUserAgent() string {
	return fmt.Sprintf("%s/%s (+%s)", userAgentProduct, version.Short(), userAgentHomepage)
}
