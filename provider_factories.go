package subscriptions

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/graph"
)

// GraphClient builds the Microsoft Graph resource client from provider
// config and a bearer token source.
func GraphClient(cfg core.ProviderConfig, tokens graph.TokenSource, opts ...graph.Option) (*graph.Client, error) {
	return graph.NewClient(cfg, tokens, opts...)
}

// StaticGraphClient builds the resource client with a fixed access token.
func StaticGraphClient(cfg core.ProviderConfig, token string, opts ...graph.Option) (*graph.Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("subscriptions: provider access token is required")
	}
	return graph.NewClient(cfg, graph.StaticTokenSource(token), opts...)
}

// NewGraphService builds the lifecycle manager and batch resolver on top of
// a Graph client constructed once from cfg.Provider.
func NewGraphService(cfg Config, tokens graph.TokenSource, opts ...Option) (*Service, error) {
	client, err := GraphClient(cfg.Provider, tokens)
	if err != nil {
		return nil, err
	}
	return NewService(cfg, append([]Option{WithResourceClient(client)}, opts...)...)
}
