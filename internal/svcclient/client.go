// Package svcclient builds the HTTP client used for calls to sibling services.
package svcclient

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
}

// New returns an OAuth2 client-credentials client when a token URL is
// configured, otherwise a plain client. Either way requests time out.
func New(cfg Config) *http.Client {
	var h *http.Client
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		h = cc.Client(context.Background())
	} else {
		h = &http.Client{}
	}
	h.Timeout = cfg.Timeout
	if h.Timeout <= 0 {
		h.Timeout = 5 * time.Second
	}
	return h
}
